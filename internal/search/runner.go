// internal/search/runner.go
package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// OutFields is the tabular layout the hit reader expects.
var OutFields = []string{
	"qseqid", "sseqid", "pident", "length", "mismatch", "gapopen",
	"qstart", "qend", "sstart", "send", "evalue", "bitscore", "staxids",
}

// Job is one similarity search.
type Job struct {
	Name      string
	Queries   string   // FASTA path
	DB        string
	TaxonList []string // restrict subjects to these taxa; empty = whole database
	Out       string   // tabular output path
}

// Runner executes a search job.
type Runner interface {
	Run(ctx context.Context, job Job) error
}

// Diamond runs `diamond blastp` as a subprocess.
type Diamond struct {
	Binary    string
	Threads   int
	ExtraArgs []string
	Logger    *slog.Logger
}

// Args builds the command line for job, without the binary.
func (d Diamond) Args(job Job) []string {
	args := []string{"blastp", "-q", job.Queries, "-d", job.DB, "-o", job.Out,
		"-k0", "--sensitive", "--outfmt", "6"}
	args = append(args, OutFields...)
	args = append(args, "--unal", "1")
	if len(job.TaxonList) > 0 {
		args = append(args, "--taxonlist", strings.Join(job.TaxonList, ","))
	}
	if d.Threads > 0 {
		args = append(args, "--threads", strconv.Itoa(d.Threads))
	}
	return append(args, d.ExtraArgs...)
}

// ErrSearchFailed wraps a non-zero exit of the search binary.
var ErrSearchFailed = errors.New("search failed")

func (d Diamond) Run(ctx context.Context, job Job) error {
	if d.Binary == "" {
		return fmt.Errorf("%w: no search binary configured", ErrSearchFailed)
	}
	args := d.Args(job)
	cmd := exec.CommandContext(ctx, d.Binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &tailWriter{buf: &stderr, max: 4096}
	cmd.Stdout = io.Discard

	log := d.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	start := time.Now()
	log.Info("search start", "job", job.Name, "db", job.DB, "taxa", len(job.TaxonList))
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s %s: %v: %s", ErrSearchFailed, d.Binary, job.Name, err, strings.TrimSpace(stderr.String()))
	}
	log.Info("search done", "job", job.Name, "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// tailWriter keeps at most max trailing bytes.
type tailWriter struct {
	buf *bytes.Buffer
	max int
}

func (t *tailWriter) Write(p []byte) (int, error) {
	t.buf.Write(p)
	if over := t.buf.Len() - t.max; over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

// RunAll runs jobs with at most parallel in flight and stops at the first
// failure.
func RunAll(ctx context.Context, r Runner, jobs []Job, parallel int) error {
	g, ctx := errgroup.WithContext(ctx)
	if parallel < 1 {
		parallel = 1
	}
	g.SetLimit(parallel)
	for _, j := range jobs {
		j := j
		g.Go(func() error { return r.Run(ctx, j) })
	}
	return g.Wait()
}
