// internal/search/regroup.go
package search

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"taxmrca/internal/fasta"
	"taxmrca/internal/subtree"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Plan is the set of scoped searches for one rerun partition.
type Plan struct {
	Jobs    []Job
	Missing []string // rerun ids absent from the sequence file, sorted
	// Unscoped names non-root scopes with no mapped taxid on their root path.
	// Their jobs search the whole database.
	Unscoped []string
}

// Regroup writes one query FASTA per scope group under dir and returns a job
// per group against db. The group rooted at rootScope searches the whole
// database, as does any group whose ScopeTaxID is empty (see Plan.Unscoped).
func Regroup(ctx context.Context, seqPath, dir, db, rootScope string, groups []subtree.Group) (Plan, error) {
	var plan Plan
	if len(groups) == 0 {
		return plan, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return plan, err
	}

	scopeOf := map[string]int{}
	keep := map[string]struct{}{}
	for gi, g := range groups {
		for _, q := range g.Queries {
			scopeOf[q] = gi
			keep[q] = struct{}{}
		}
	}

	files := make([]*os.File, len(groups))
	bufs := make([]*bufio.Writer, len(groups))
	defer func() {
		for _, f := range files {
			if f != nil {
				f.Close()
			}
		}
	}()
	for gi, g := range groups {
		name := fmt.Sprintf("scope_%03d_%s", gi, unsafeName.ReplaceAllString(g.Scope, "_"))
		path := filepath.Join(dir, name+".fa")
		f, err := os.Create(path)
		if err != nil {
			return plan, err
		}
		files[gi], bufs[gi] = f, bufio.NewWriter(f)
		job := Job{Name: name, Queries: path, DB: db, Out: filepath.Join(dir, name+".tsv")}
		switch {
		case g.Scope == rootScope:
		case g.ScopeTaxID == "":
			plan.Unscoped = append(plan.Unscoped, g.Scope)
		default:
			job.TaxonList = []string{g.ScopeTaxID}
		}
		plan.Jobs = append(plan.Jobs, job)
	}

	missing, err := fasta.Subset(ctx, seqPath, keep, func(r fasta.Record) error {
		return fasta.Write(bufs[scopeOf[r.ID]], r, 0)
	})
	if err != nil {
		return plan, err
	}
	sort.Strings(missing)
	plan.Missing = missing

	for gi, b := range bufs {
		if err := b.Flush(); err != nil {
			return plan, err
		}
		if err := files[gi].Close(); err != nil {
			return plan, err
		}
		files[gi] = nil
	}
	return plan, nil
}

// Outputs lists the output path of every job.
func (p Plan) Outputs() []string {
	out := make([]string, len(p.Jobs))
	for i, j := range p.Jobs {
		out[i] = j.Out
	}
	return out
}

// Concat appends parts, in order, into dst. Missing parts are an error.
func Concat(dst string, parts []string) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	for _, p := range parts {
		in, err := os.Open(p)
		if err != nil {
			out.Close()
			return err
		}
		_, err = io.Copy(out, in)
		in.Close()
		if err != nil {
			out.Close()
			return fmt.Errorf("concat %s: %w", p, err)
		}
	}
	return out.Close()
}
