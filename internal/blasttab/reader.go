// internal/blasttab/reader.go
package blasttab

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"taxmrca/internal/fileio"
)

// Stats counts what a read pass saw.
type Stats struct {
	Lines     int
	Malformed int
	NoHit     int
}

// MalformedFunc is told about each skipped line; it may be nil.
type MalformedFunc func(src string, line int, err error)

// Read streams records from r to emit. Malformed lines are counted and
// reported through bad, never fatal. emit errors and ctx cancellation stop
// the scan.
func Read(ctx context.Context, r io.Reader, src string, bad MalformedFunc, emit func(Hit) error) (Stats, error) {
	var st Stats
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	ln := 0
	for sc.Scan() {
		ln++
		if ln&1023 == 0 {
			select {
			case <-ctx.Done():
				return st, ctx.Err()
			default:
			}
		}
		line := sc.Text()
		if line == "" || line[0] == '#' {
			continue
		}
		st.Lines++
		h, err := ParseLine(line)
		if err != nil {
			st.Malformed++
			if bad != nil {
				bad(src, ln, err)
			}
			continue
		}
		if h.NoHit {
			st.NoHit++
		}
		if err := emit(h); err != nil {
			return st, err
		}
	}
	if err := sc.Err(); err != nil {
		return st, fmt.Errorf("%s: %w", src, err)
	}
	return st, ctx.Err()
}

// ReadFile opens path (gzip and "-" aware) and calls Read.
func ReadFile(ctx context.Context, path string, bad MalformedFunc, emit func(Hit) error) (Stats, error) {
	rc, err := fileio.Open(path)
	if err != nil {
		return Stats{}, err
	}
	defer rc.Close()
	return Read(ctx, rc, path, bad, emit)
}

// Stream reads every path in order and sends hits on the returned channel.
// The error channel yields exactly one value after the hit channel closes.
func Stream(ctx context.Context, paths []string, bad MalformedFunc) (<-chan Hit, <-chan StreamResult) {
	out := make(chan Hit, 256)
	done := make(chan StreamResult, 1)
	go func() {
		defer close(out)
		var total Stats
		for _, p := range paths {
			st, err := ReadFile(ctx, p, bad, func(h Hit) error {
				select {
				case out <- h:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
			total.Lines += st.Lines
			total.Malformed += st.Malformed
			total.NoHit += st.NoHit
			if err != nil {
				done <- StreamResult{Stats: total, Err: err}
				return
			}
		}
		done <- StreamResult{Stats: total}
	}()
	return out, done
}

// StreamResult is the outcome of Stream.
type StreamResult struct {
	Stats Stats
	Err   error
}

// ReadAll collects every hit in paths into memory.
func ReadAll(ctx context.Context, paths []string, bad MalformedFunc) ([]Hit, Stats, error) {
	var hits []Hit
	ch, done := Stream(ctx, paths, bad)
	for h := range ch {
		hits = append(hits, h)
	}
	res := <-done
	if res.Err != nil && !errors.Is(res.Err, context.Canceled) {
		return nil, res.Stats, res.Err
	}
	return hits, res.Stats, res.Err
}
