// internal/records/records.go
package records

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"taxmrca/internal/fileio"
)

// Stage-boundary files are tab-separated with a single '#' header line.
// Readers skip blank and '#' lines and report errors as path:line.

const none = "-"

func fmtFloat(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

func fmtBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func parseBool(s string) (bool, error) {
	switch s {
	case "1", "true", "yes":
		return true, nil
	case "0", "false", "no", "", none:
		return false, nil
	}
	return false, fmt.Errorf("bad flag %q", s)
}

func orNone(s string) string {
	if s == "" {
		return none
	}
	return s
}

func fromNone(s string) string {
	if s == none {
		return ""
	}
	return s
}

// writeFile creates path and hands a buffered writer to fn.
func writeFile(path string, fn func(io.Writer) error) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(fh, 64<<10)
	if err := fn(bw); err != nil {
		_ = fh.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}

// scanRows calls fn with the fields of each data row.
func scanRows(r io.Reader, src string, minCols, maxCols int, fn func(f []string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	ln := 0
	for sc.Scan() {
		ln++
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" || line[0] == '#' {
			continue
		}
		f := strings.Split(line, "\t")
		if len(f) < minCols || len(f) > maxCols {
			return fmt.Errorf("%s:%d bad field count %d", src, ln, len(f))
		}
		if err := fn(f); err != nil {
			return fmt.Errorf("%s:%d %w", src, ln, err)
		}
	}
	return sc.Err()
}

func readFile[T any](path string, read func(io.Reader, string) (T, error)) (T, error) {
	var zero T
	rc, err := fileio.Open(path)
	if err != nil {
		return zero, err
	}
	defer rc.Close()
	return read(rc, path)
}
