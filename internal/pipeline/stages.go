// internal/pipeline/stages.go
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"taxmrca/internal/blasttab"
	"taxmrca/internal/dag"
	"taxmrca/internal/extract"
	"taxmrca/internal/fasta"
	"taxmrca/internal/lineage"
	"taxmrca/internal/mrca"
	"taxmrca/internal/reconcile"
	"taxmrca/internal/search"
	"taxmrca/internal/subtree"
)

const warnCap = 4096

func (p *Pipeline) search1(ctx context.Context, _ map[string]any) ([]string, error) {
	if len(p.cfg.FirstHits) > 0 {
		return p.cfg.FirstHits, nil
	}
	job := search.Job{
		Name:    "first",
		Queries: p.cfg.Sequences,
		DB:      p.cfg.TargetDB,
		Out:     filepath.Join(p.cfg.OutDir, "first_hits.tsv"),
	}
	if err := p.run.Run(ctx, job); err != nil {
		return nil, err
	}
	return []string{job.Out}, nil
}

func (p *Pipeline) extract1(ctx context.Context, in map[string]any) (Pass, error) {
	paths, err := dag.Input[[]string](in, StageSearch1)
	if err != nil {
		return Pass{}, err
	}
	var expected []string
	if p.cfg.Sequences != "" {
		if expected, err = fasta.IDs(ctx, p.cfg.Sequences); err != nil {
			return Pass{}, err
		}
	}
	return p.extractPass(ctx, "first", paths, expected, nil)
}

func (p *Pipeline) anchor(ctx context.Context, in map[string]any) (string, error) {
	if !strings.EqualFold(p.cfg.Anchor, "auto") {
		return p.cfg.Anchor, nil
	}
	paths, err := dag.Input[[]string](in, StageSearch1)
	if err != nil {
		return "", err
	}
	top, err := AutoAnchor(ctx, p.idx, paths, p.cfg.EValue, p.malformed("anchor"))
	if err != nil {
		return "", err
	}
	p.log.Info("anchor chosen", slog.String("taxid", top), slog.String("name", p.idx.Name(top)))
	return top, nil
}

// AutoAnchor picks the taxon that best represents the queried organism from
// first-pass hits. Only taxa the tree knows can anchor.
func AutoAnchor(ctx context.Context, idx *lineage.Index, paths []string, evalue float64, bad blasttab.MalformedFunc) (string, error) {
	hits, _, err := blasttab.ReadAll(ctx, paths, bad)
	if err != nil {
		return "", err
	}
	known := hits[:0]
	for _, h := range hits {
		cand := h.TaxIDs
		if !h.HasTax && !h.NoHit {
			cand = []string{blasttab.SubjectTaxon(h.Subject)}
		}
		var ids []string
		for _, t := range cand {
			if _, err := idx.Resolve(t); err == nil {
				ids = append(ids, t)
			}
		}
		if len(ids) > 0 || h.NoHit {
			h.TaxIDs, h.HasTax = ids, true
			known = append(known, h)
		}
	}
	top := extract.TopTaxon(known, evalue)
	if top == "" {
		return "", ErrNoAnchor
	}
	return top, nil
}

func (p *Pipeline) resolve1(ctx context.Context, in map[string]any) ([]mrca.Result, error) {
	return p.resolvePass(ctx, in, StageExtract1, mrca.FirstPass)
}

func (p *Pipeline) expand(_ context.Context, in map[string]any) (subtree.Partition, error) {
	pass, err := dag.Input[Pass](in, StageExtract1)
	if err != nil {
		return subtree.Partition{}, err
	}
	rs, err := dag.Input[[]mrca.Result](in, StageResolve1)
	if err != nil {
		return subtree.Partition{}, err
	}
	part := subtree.NewExpander(p.idx, pass.Batch.Sets).Expand(rs, p.cfg.LevelsUp)
	p.log.Info("partitioned first pass",
		slog.Int("resolved", len(part.Resolved)), slog.Int("rerun", len(part.Rerun)))
	return part, nil
}

func (p *Pipeline) search2(ctx context.Context, in map[string]any) ([]string, error) {
	if len(p.cfg.SecondHits) > 0 {
		return p.cfg.SecondHits, nil
	}
	part, err := dag.Input[subtree.Partition](in, StageExpand)
	if err != nil {
		return nil, err
	}
	groups := part.Groups()
	if len(groups) == 0 {
		return []string{}, nil
	}
	dir := filepath.Join(p.cfg.OutDir, "rerun")
	plan, err := search.Regroup(ctx, p.cfg.Sequences, dir, p.cfg.ComprehensiveDB, p.idx.Root().ID, groups)
	if err != nil {
		return nil, err
	}
	if len(plan.Missing) > 0 {
		p.log.Warn("rerun queries missing from sequences",
			slog.Int("count", len(plan.Missing)), slog.String("first", plan.Missing[0]))
	}
	for _, sc := range plan.Unscoped {
		p.log.Warn("scope has no mapped taxid, searching unscoped", slog.String("scope", sc))
	}
	if err := search.RunAll(ctx, p.run, plan.Jobs, 1); err != nil {
		return nil, err
	}
	merged := filepath.Join(p.cfg.OutDir, "second_hits.tsv")
	if err := search.Concat(merged, plan.Outputs()); err != nil {
		return nil, err
	}
	return []string{merged}, nil
}

func (p *Pipeline) extract2(ctx context.Context, in map[string]any) (Pass, error) {
	paths, err := dag.Input[[]string](in, StageSearch2)
	if err != nil {
		return Pass{}, err
	}
	part, err := dag.Input[subtree.Partition](in, StageExpand)
	if err != nil {
		return Pass{}, err
	}
	ids := part.RerunIDs()
	only := make(map[string]struct{}, len(ids))
	for _, q := range ids {
		only[q] = struct{}{}
	}
	return p.extractPass(ctx, "second", paths, ids, only)
}

func (p *Pipeline) resolve2(ctx context.Context, in map[string]any) ([]mrca.Result, error) {
	return p.resolvePass(ctx, in, StageExtract2, mrca.HybridPass)
}

func (p *Pipeline) reconcile(_ context.Context, in map[string]any) (Reconciled, error) {
	part, err := dag.Input[subtree.Partition](in, StageExpand)
	if err != nil {
		return Reconciled{}, err
	}
	hybrid, err := dag.Input[[]mrca.Result](in, StageResolve2)
	if err != nil {
		return Reconciled{}, err
	}
	finals, st := reconcile.Reconcile(part.Resolved, hybrid)
	if st.Conflicts > 0 {
		p.log.Warn("queries reached reconciliation twice", slog.Int("conflicts", st.Conflicts))
	}
	return Reconciled{Finals: finals, Stats: st}, nil
}

// extractPass streams hits from paths into the extractor. When only is
// non-nil, hits for other queries are dropped.
func (p *Pipeline) extractPass(ctx context.Context, pass string, paths, expected []string, only map[string]struct{}) (Pass, error) {
	w, err := extract.ParseWeighting(p.cfg.Weighting)
	if err != nil {
		return Pass{}, err
	}
	ex := extract.New(p.idx, extract.Options{
		EValue:    p.cfg.EValue,
		Threads:   p.cfg.Threads,
		Weighting: w,
		Expected:  expected,
		WarnCap:   warnCap,
		Logger:    p.log.With(slog.String("pass", pass)),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	hits, done := blasttab.Stream(ctx, paths, p.malformed(pass))
	src := hits
	if only != nil {
		filtered := make(chan blasttab.Hit, 256)
		go func() {
			defer close(filtered)
			for h := range hits {
				if _, ok := only[h.Query]; !ok {
					continue
				}
				select {
				case filtered <- h:
				case <-ctx.Done():
					return
				}
			}
		}()
		src = filtered
	}

	batch, err := ex.Extract(ctx, src)
	cancel()
	res := <-done
	if err != nil {
		return Pass{}, err
	}
	if res.Err != nil {
		return Pass{}, res.Err
	}
	p.log.Info("extracted",
		slog.String("pass", pass),
		slog.Int("hits", batch.Stats.Hits),
		slog.Int("kept", batch.Stats.Kept),
		slog.Int("filtered", batch.Stats.Filtered),
		slog.Int("unknown_taxa", batch.Stats.UnknownTaxa),
		slog.Int("queries", batch.Stats.Queries),
	)
	return Pass{Batch: batch, Lines: res.Stats.Lines, Malformed: res.Stats.Malformed}, nil
}

func (p *Pipeline) resolvePass(ctx context.Context, in map[string]any, from string, prov mrca.Provenance) ([]mrca.Result, error) {
	pass, err := dag.Input[Pass](in, from)
	if err != nil {
		return nil, err
	}
	anchor, err := dag.Input[string](in, StageAnchor)
	if err != nil {
		return nil, err
	}
	mode, err := mrca.ParseMode(p.cfg.Mode)
	if err != nil {
		return nil, err
	}
	r, err := mrca.NewResolver(p.idx, mrca.Options{
		Threshold:  p.cfg.Threshold,
		Mode:       mode,
		Anchor:     anchor,
		CacheSize:  p.cfg.CacheSize,
		Provenance: prov,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prov, err)
	}
	return r.ResolveAll(ctx, pass.Batch.Sets, p.cfg.Threads)
}
