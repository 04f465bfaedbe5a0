// internal/dag/executor.go
package dag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("taxmrca.dag")
	meter  = otel.Meter("taxmrca.dag")
)

// Observer is told about every finished node.
type Observer func(node string, d time.Duration, err error)

// Executor runs a DAG, launching every ready node in parallel.
type Executor struct {
	dag      *DAG
	logger   *slog.Logger
	observer Observer

	metricsOnce   sync.Once
	nodeLatency   metric.Float64Histogram
	nodeSuccesses metric.Int64Counter
	nodeFailures  metric.Int64Counter
}

func NewExecutor(d *DAG, logger *slog.Logger) (*Executor, error) {
	if d == nil {
		return nil, ErrInvalidInput
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{dag: d, logger: logger}, nil
}

// OnNodeDone installs obs and returns e for chaining.
func (e *Executor) OnNodeDone(obs Observer) *Executor {
	e.observer = obs
	return e
}

func (e *Executor) initMetrics() {
	e.metricsOnce.Do(func() {
		var errs []error
		var err error
		e.nodeLatency, err = meter.Float64Histogram("dag_node_duration_seconds",
			metric.WithDescription("Time spent executing each DAG node"),
			metric.WithUnit("s"))
		errs = append(errs, err)
		e.nodeSuccesses, err = meter.Int64Counter("dag_node_success_total",
			metric.WithDescription("Number of successful node executions"))
		errs = append(errs, err)
		e.nodeFailures, err = meter.Int64Counter("dag_node_failure_total",
			metric.WithDescription("Number of failed node executions"))
		errs = append(errs, err)
		if err := errors.Join(errs...); err != nil {
			e.logger.Warn("dag metrics unavailable", slog.String("error", err.Error()))
		}
	})
}

// Run executes the DAG with input available to root nodes under RootInput.
// The returned error is the first node failure or the context error.
func (e *Executor) Run(ctx context.Context, input any) (*Result, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	e.initMetrics()

	ctx, span := tracer.Start(ctx, "dag.Pipeline",
		trace.WithAttributes(
			attribute.String("dag.name", e.dag.Name()),
			attribute.Int("dag.node_count", e.dag.NodeCount()),
		),
	)
	defer span.End()

	start := time.Now()
	state := NewState(uuid.NewString()[:12])
	state.Outputs[RootInput] = input
	durations := make(map[string]time.Duration)

	e.logger.Info("pipeline started",
		slog.String("dag", e.dag.Name()),
		slog.String("session_id", state.SessionID),
		slog.Int("nodes", e.dag.NodeCount()),
	)

	fail := func(err error) (*Result, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error("pipeline failed",
			slog.String("session_id", state.SessionID),
			slog.String("failed_node", state.FailedNode),
			slog.String("error", err.Error()),
		)
		return e.buildResult(state, start, durations, err), err
	}

	for !state.IsDAGComplete(e.dag) {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		ready := e.findReadyNodes(state)
		if len(ready) == 0 {
			return fail(ErrNoProgress)
		}
		if err := e.executeParallel(ctx, ready, state, durations); err != nil {
			return fail(err)
		}
	}

	res := e.buildResult(state, start, durations, nil)
	span.SetStatus(codes.Ok, "")
	e.logger.Info("pipeline completed",
		slog.String("session_id", state.SessionID),
		slog.Duration("duration", res.Duration),
		slog.Int("nodes_executed", res.NodesExecuted),
	)
	return res, nil
}

func (e *Executor) findReadyNodes(state *State) []Node {
	var ready []Node
	for _, name := range e.dag.NodeNames() {
		if state.GetStatus(name) != NodeStatusPending {
			continue
		}
		ok := true
		for _, dep := range e.dag.GetDependencies(name) {
			if !state.IsCompleted(dep) {
				ok = false
				break
			}
		}
		if ok {
			n, _ := e.dag.GetNode(name)
			ready = append(ready, n)
		}
	}
	return ready
}

func (e *Executor) executeParallel(ctx context.Context, nodes []Node, state *State, durations map[string]time.Duration) error {
	type done struct {
		name string
		d    time.Duration
		err  error
	}
	ch := make(chan done, len(nodes))
	var wg sync.WaitGroup
	for _, n := range nodes {
		state.SetStatus(n.Name(), NodeStatusRunning)
		wg.Add(1)
		go func(n Node) {
			defer wg.Done()
			t0 := time.Now()
			err := e.executeNode(ctx, n, state)
			ch <- done{n.Name(), time.Since(t0), err}
		}(n)
	}
	wg.Wait()
	close(ch)

	var first error
	for d := range ch {
		durations[d.name] = d.d
		if e.observer != nil {
			e.observer(d.name, d.d, d.err)
		}
		if d.err != nil && first == nil {
			first = d.err
		}
	}
	return first
}

func (e *Executor) executeNode(ctx context.Context, node Node, state *State) error {
	ctx, span := tracer.Start(ctx, node.Name(),
		trace.WithAttributes(
			attribute.String("dag.node", node.Name()),
			attribute.StringSlice("dag.dependencies", node.Dependencies()),
			attribute.String("dag.session_id", state.SessionID),
		),
	)
	defer span.End()

	e.logger.Debug("node starting", slog.String("node", node.Name()), slog.String("session_id", state.SessionID))

	inputs := make(map[string]any, len(node.Dependencies())+1)
	for _, dep := range node.Dependencies() {
		inputs[dep], _ = state.GetOutput(dep)
	}
	if len(node.Dependencies()) == 0 {
		inputs[RootInput], _ = state.GetOutput(RootInput)
	}

	timeout := node.Timeout()
	if timeout <= 0 {
		timeout = DefaultNodeTimeout
	}
	nodeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	output, err := node.Execute(nodeCtx, inputs)
	duration := time.Since(start)

	attrs := metric.WithAttributes(attribute.String("node", node.Name()))
	if e.nodeLatency != nil {
		e.nodeLatency.Record(ctx, duration.Seconds(), attrs)
	}

	if err != nil {
		if errors.Is(nodeCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("%w after %s: %v", ErrNodeTimeout, timeout, err)
		}
		if e.nodeFailures != nil {
			e.nodeFailures.Add(ctx, 1, attrs)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		state.SetFailed(node.Name(), err)
		e.logger.Error("node failed",
			slog.String("node", node.Name()),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()),
		)
		return NewNodeError(node.Name(), err)
	}

	if e.nodeSuccesses != nil {
		e.nodeSuccesses.Add(ctx, 1, attrs)
	}
	span.SetStatus(codes.Ok, "")
	state.SetCompleted(node.Name(), output)
	e.logger.Info("node completed", slog.String("node", node.Name()), slog.Duration("duration", duration))
	return nil
}

func (e *Executor) buildResult(state *State, start time.Time, durations map[string]time.Duration, err error) *Result {
	state.mu.RLock()
	outputs := maps.Clone(state.Outputs)
	state.mu.RUnlock()
	delete(outputs, RootInput)

	res := &Result{
		SessionID:     state.SessionID,
		Outputs:       outputs,
		Duration:      time.Since(start),
		NodesExecuted: state.CompletedCount(),
		NodeDurations: durations,
	}
	if err != nil {
		res.Error = err.Error()
		res.FailedNode = state.FailedNode
		return res
	}
	res.Success = true
	res.Output = outputs[e.dag.Terminal()]
	return res
}

// Input fetches a typed dependency output.
func Input[T any](inputs map[string]any, name string) (T, error) {
	v, ok := inputs[name]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: missing input %q", ErrInvalidInput, name)
	}
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: input %q is %T", ErrInvalidInput, name, v)
	}
	return t, nil
}
