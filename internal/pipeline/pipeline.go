// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"taxmrca/internal/blasttab"
	"taxmrca/internal/checkpoint"
	"taxmrca/internal/config"
	"taxmrca/internal/dag"
	"taxmrca/internal/extract"
	"taxmrca/internal/lineage"
	"taxmrca/internal/metrics"
	"taxmrca/internal/mrca"
	"taxmrca/internal/reconcile"
	"taxmrca/internal/search"
	"taxmrca/internal/subtree"
	"taxmrca/internal/summary"
)

// Stage names, also used as checkpoint keys.
const (
	StageSearch1   = "search1"
	StageExtract1  = "extract1"
	StageAnchor    = "anchor"
	StageResolve1  = "resolve1"
	StageExpand    = "expand"
	StageSearch2   = "search2"
	StageExtract2  = "extract2"
	StageResolve2  = "resolve2"
	StageReconcile = "reconcile"
)

// ErrNoAnchor is returned when anchor "auto" finds no usable hit.
var ErrNoAnchor = errors.New("no anchor taxon could be chosen from the first-pass hits")

// Pass is the output of one extraction stage.
type Pass struct {
	Batch     extract.Batch
	Lines     int
	Malformed int
}

// Reconciled is the output of the reconcile stage.
type Reconciled struct {
	Finals []reconcile.Final
	Stats  reconcile.Stats
}

// Outcome is everything a finished run produced.
type Outcome struct {
	SessionID string
	Anchor    string
	First     Pass
	Second    Pass
	Resolved1 []mrca.Result
	Partition subtree.Partition
	Hybrid    []mrca.Result
	Final     Reconciled
	Summary   summary.Summary
}

// Deps are the collaborators of a Pipeline. Zero values get defaults.
type Deps struct {
	Index      *lineage.Index
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Runner     search.Runner
	Checkpoint *checkpoint.Checkpointer
}

// Pipeline runs one configured resolution.
type Pipeline struct {
	cfg config.Run
	idx *lineage.Index
	log *slog.Logger
	met *metrics.Metrics
	run search.Runner
	cp  *checkpoint.Checkpointer
}

// New checks cfg and fills defaults for missing deps.
func New(cfg config.Run, d Deps) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if d.Index == nil {
		return nil, fmt.Errorf("pipeline: %w: nil index", dag.ErrInvalidInput)
	}
	p := &Pipeline{cfg: cfg, idx: d.Index, log: d.Logger, met: d.Metrics, run: d.Runner, cp: d.Checkpoint}
	if p.log == nil {
		p.log = slog.Default()
	}
	if p.met == nil {
		p.met = metrics.New()
	}
	if p.run == nil {
		p.run = search.Diamond{
			Binary:    cfg.SearchBinary,
			Threads:   cfg.Threads,
			ExtraArgs: cfg.SearchArgs,
			Logger:    p.log,
		}
	}
	return p, nil
}

// Metrics returns the run's collectors.
func (p *Pipeline) Metrics() *metrics.Metrics { return p.met }

// Run executes every stage and writes the output directory.
func (p *Pipeline) Run(ctx context.Context) (Outcome, error) {
	if err := os.MkdirAll(p.cfg.OutDir, 0o755); err != nil {
		return Outcome{}, err
	}
	graph, err := p.graph()
	if err != nil {
		return Outcome{}, err
	}
	ex, err := dag.NewExecutor(graph, p.log)
	if err != nil {
		return Outcome{}, err
	}
	ex.OnNodeDone(func(node string, d time.Duration, err error) {
		if err == nil {
			p.met.ObserveStage(node, d)
		}
	})

	res, err := ex.Run(ctx, nil)
	if err != nil {
		return Outcome{}, err
	}

	var out Outcome
	out.SessionID = res.SessionID
	o := res.Outputs
	out.Anchor, _ = o[StageAnchor].(string)
	out.First, _ = o[StageExtract1].(Pass)
	out.Resolved1, _ = o[StageResolve1].([]mrca.Result)
	out.Partition, _ = o[StageExpand].(subtree.Partition)
	out.Second, _ = o[StageExtract2].(Pass)
	out.Hybrid, _ = o[StageResolve2].([]mrca.Result)
	out.Final, _ = o[StageReconcile].(Reconciled)
	out.Summary = summary.Of(out.Final.Finals)

	p.observe(out)
	if err := p.writeArtifacts(ctx, out); err != nil {
		return out, err
	}
	attrs := []any{
		slog.String("session_id", out.SessionID),
		slog.Int("queries", out.Summary.Total),
		slog.Int("old", out.Final.Stats.Old),
		slog.Int("hybrid", out.Final.Stats.Hybrid),
		slog.Int("conflicts", out.Final.Stats.Conflicts),
		slog.Int("unsupported", out.Final.Stats.Unsupported),
	}
	if most, ok := out.Summary.Most(); ok {
		least, _ := out.Summary.Least()
		attrs = append(attrs,
			slog.String("most_mrca", most.NodeID), slog.Float64("most_pct", most.Percent),
			slog.String("least_mrca", least.NodeID), slog.Float64("least_pct", least.Percent))
	}
	p.log.Info("run complete", attrs...)
	return out, nil
}

func (p *Pipeline) graph() (*dag.DAG, error) {
	return dag.NewBuilder("taxmrca").
		AddNode(stage(p, StageSearch1, nil, p.search1)).
		AddNode(stage(p, StageExtract1, []string{StageSearch1}, p.extract1)).
		AddNode(stage(p, StageAnchor, []string{StageSearch1}, p.anchor)).
		AddNode(stage(p, StageResolve1, []string{StageExtract1, StageAnchor}, p.resolve1)).
		AddNode(stage(p, StageExpand, []string{StageExtract1, StageResolve1}, p.expand)).
		AddNode(stage(p, StageSearch2, []string{StageExpand}, p.search2)).
		AddNode(stage(p, StageExtract2, []string{StageSearch2, StageExpand}, p.extract2)).
		AddNode(stage(p, StageResolve2, []string{StageExtract2, StageAnchor}, p.resolve2)).
		AddNode(stage(p, StageReconcile, []string{StageExpand, StageResolve2}, p.reconcile)).
		Build()
}

// stage wraps fn with checkpoint restore and save.
func stage[T any](p *Pipeline, name string, deps []string, fn func(context.Context, map[string]any) (T, error)) dag.Node {
	return dag.NewFuncNode(name, deps, func(ctx context.Context, in map[string]any) (any, error) {
		if p.cp != nil && p.cfg.Resume {
			var v T
			ok, err := p.cp.Load(ctx, name, &v)
			switch {
			case err != nil:
				p.log.Warn("checkpoint unreadable, recomputing", slog.String("stage", name), slog.String("error", err.Error()))
			case ok:
				p.log.Info("stage restored", slog.String("stage", name))
				return v, nil
			}
		}
		v, err := fn(ctx, in)
		if err != nil {
			return nil, err
		}
		if p.cp != nil {
			if err := p.cp.Save(ctx, name, v); err != nil {
				return nil, err
			}
		}
		return v, nil
	}).WithTimeout(p.cfg.StageTimeout)
}

func (p *Pipeline) observe(out Outcome) {
	for pass, ps := range map[string]Pass{"first": out.First, "second": out.Second} {
		st := ps.Batch.Stats
		p.met.Hits.WithLabelValues(pass).Add(float64(st.Hits))
		p.met.Filtered.WithLabelValues(pass).Add(float64(st.Filtered))
		p.met.NoHit.WithLabelValues(pass).Add(float64(st.NoHit))
		p.met.UnknownTaxa.WithLabelValues(pass).Add(float64(st.UnknownTaxa))
		p.met.Malformed.WithLabelValues(pass).Add(float64(ps.Malformed))
	}
	for pass, rs := range map[string][]mrca.Result{"first": out.Resolved1, "second": out.Hybrid} {
		p.met.Queries.WithLabelValues(pass).Add(float64(len(rs)))
		n := 0
		for _, r := range rs {
			if r.Unsupported {
				n++
			}
		}
		p.met.Unsupported.WithLabelValues(pass).Add(float64(n))
	}
	p.met.Partition.WithLabelValues(string(subtree.Old)).Add(float64(len(out.Partition.Resolved)))
	p.met.Partition.WithLabelValues(string(subtree.New)).Add(float64(len(out.Partition.Rerun)))
	p.met.Conflicts.Add(float64(out.Final.Stats.Conflicts))
}

func (p *Pipeline) malformed(pass string) blasttab.MalformedFunc {
	return func(src string, line int, err error) {
		p.log.Debug("skipping malformed hit line",
			slog.String("pass", pass), slog.String("file", src), slog.Int("line", line), slog.String("error", err.Error()))
	}
}
