// internal/fasta/reader.go
package fasta

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"taxmrca/internal/fileio"
)

// Record is one FASTA entry. Header is the full header line without '>'.
type Record struct {
	ID     string
	Header string
	Seq    []byte
}

const maxLine = 64 * 1024 * 1024 // allow very long single-line sequences (64 MiB)

// Scan parses FASTA from r and calls emit per record. It returns promptly
// when ctx is done, even mid-file.
func Scan(ctx context.Context, r io.Reader, emit func(Record) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)

	var (
		cur  Record
		open bool
		n    int
	)
	flush := func() error {
		if !open {
			return nil
		}
		out := cur
		out.Seq = bytes.Clone(cur.Seq)
		return emit(out)
	}
	for sc.Scan() {
		n++
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		line := bytes.TrimRight(sc.Bytes(), "\r")
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if err := flush(); err != nil {
				return err
			}
			hdr := string(line[1:])
			id := headerID(hdr)
			if id == "" {
				return fmt.Errorf("fasta: line %d: empty record id", n)
			}
			cur = Record{ID: id, Header: hdr, Seq: cur.Seq[:0]}
			open = true
			continue
		}
		if !open {
			return fmt.Errorf("fasta: line %d: sequence before first header", n)
		}
		cur.Seq = append(cur.Seq, line...)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return flush()
}

// ScanFile is Scan over a path ("-" for stdin, gzip detected).
func ScanFile(ctx context.Context, path string, emit func(Record) error) error {
	rc, err := fileio.Open(path)
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := Scan(ctx, rc, emit); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// IDs lists record ids in file order.
func IDs(ctx context.Context, path string) ([]string, error) {
	var ids []string
	err := ScanFile(ctx, path, func(r Record) error {
		ids = append(ids, r.ID)
		return nil
	})
	return ids, err
}

// Subset calls emit for every record whose id is in keep and returns the ids
// of keep that were not found, in no particular order.
func Subset(ctx context.Context, path string, keep map[string]struct{}, emit func(Record) error) ([]string, error) {
	seen := make(map[string]struct{}, len(keep))
	err := ScanFile(ctx, path, func(r Record) error {
		if _, ok := keep[r.ID]; !ok {
			return nil
		}
		seen[r.ID] = struct{}{}
		return emit(r)
	})
	if err != nil {
		return nil, err
	}
	var missing []string
	for id := range keep {
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// Write emits r with sequence lines wrapped at width (0 = no wrapping).
func Write(w io.Writer, r Record, width int) error {
	hdr := r.Header
	if hdr == "" {
		hdr = r.ID
	}
	if _, err := fmt.Fprintf(w, ">%s\n", hdr); err != nil {
		return err
	}
	seq := r.Seq
	if width <= 0 {
		width = len(seq)
	}
	for len(seq) > 0 {
		k := min(width, len(seq))
		if _, err := w.Write(seq[:k]); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
		seq = seq[k:]
	}
	return nil
}

// headerID is the first whitespace-delimited token of a header.
func headerID(h string) string {
	f := bytes.Fields([]byte(h))
	if len(f) == 0 {
		return ""
	}
	return string(f[0])
}
