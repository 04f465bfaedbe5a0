// internal/dag/node.go
package dag

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// DefaultNodeTimeout applies to nodes that don't specify one.
const DefaultNodeTimeout = 30 * time.Second

// RootInput is the input key for nodes without dependencies.
const RootInput = "root"

// Node is one step of a pipeline. Execute receives the outputs of its
// dependencies keyed by node name.
type Node interface {
	Name() string
	Dependencies() []string
	Timeout() time.Duration
	Execute(ctx context.Context, inputs map[string]any) (any, error)
}

// BaseNode implements everything but Execute. Embed it in concrete nodes.
type BaseNode struct {
	NodeName         string
	NodeDependencies []string
	NodeTimeout      time.Duration
}

func (n *BaseNode) Name() string { return n.NodeName }

func (n *BaseNode) Dependencies() []string {
	if n.NodeDependencies == nil {
		return []string{}
	}
	return n.NodeDependencies
}

func (n *BaseNode) Timeout() time.Duration {
	if n.NodeTimeout == 0 {
		return DefaultNodeTimeout
	}
	return n.NodeTimeout
}

func (n *BaseNode) Execute(_ context.Context, _ map[string]any) (any, error) {
	return nil, fmt.Errorf("%w: BaseNode.Execute must be overridden", ErrInvalidInput)
}

// FuncNode adapts a function to Node.
type FuncNode struct {
	BaseNode
	fn func(context.Context, map[string]any) (any, error)
}

func NewFuncNode(name string, deps []string, fn func(context.Context, map[string]any) (any, error)) *FuncNode {
	return &FuncNode{
		BaseNode: BaseNode{NodeName: name, NodeDependencies: deps},
		fn:       fn,
	}
}

func (n *FuncNode) Execute(ctx context.Context, inputs map[string]any) (any, error) {
	if n.fn == nil {
		return nil, ErrInvalidInput
	}
	return n.fn(ctx, inputs)
}

// WithTimeout sets the node timeout and returns n for chaining.
func (n *FuncNode) WithTimeout(d time.Duration) *FuncNode {
	n.NodeTimeout = d
	return n
}

// Edge is a dependency: To runs after From.
type Edge struct {
	From string
	To   string
}

// DAG is a validated, immutable set of nodes.
type DAG struct {
	name     string
	nodes    map[string]Node
	edges    []Edge
	names    []string
	terminal string
}

func (d *DAG) Name() string { return d.name }

func (d *DAG) NodeCount() int { return len(d.nodes) }

// NodeNames returns node names sorted.
func (d *DAG) NodeNames() []string { return d.names }

func (d *DAG) GetNode(name string) (Node, bool) {
	n, ok := d.nodes[name]
	return n, ok
}

func (d *DAG) GetDependencies(name string) []string {
	if n, ok := d.nodes[name]; ok {
		return n.Dependencies()
	}
	return nil
}

// Terminal is the lexicographically first node nothing depends on.
func (d *DAG) Terminal() string { return d.terminal }

// Builder constructs a DAG. Not safe for concurrent use.
//
//	d, err := dag.NewBuilder("taxmrca").
//	    AddNode(extract).
//	    AddNode(resolve).
//	    Build()
type Builder struct {
	name   string
	nodes  map[string]Node
	edges  []Edge
	errors []error
}

func NewBuilder(name string) *Builder {
	return &Builder{name: name, nodes: make(map[string]Node)}
}

// AddNode adds node and an edge per declared dependency. Errors are
// deferred to Build.
func (b *Builder) AddNode(node Node) *Builder {
	if node == nil {
		b.errors = append(b.errors, ErrNilNode)
		return b
	}
	name := node.Name()
	if _, exists := b.nodes[name]; exists {
		b.errors = append(b.errors, NewNodeError(name, ErrDuplicateNode))
		return b
	}
	b.nodes[name] = node
	for _, dep := range node.Dependencies() {
		b.edges = append(b.edges, Edge{From: dep, To: name})
	}
	return b
}

// Build checks that every dependency exists and that there is no cycle.
func (b *Builder) Build() (*DAG, error) {
	if len(b.errors) > 0 {
		return nil, b.errors[0]
	}
	if len(b.nodes) == 0 {
		return nil, ErrInvalidInput
	}
	for _, e := range b.edges {
		if _, ok := b.nodes[e.From]; !ok {
			return nil, NewNodeError(e.To, fmt.Errorf("%w: dependency %q", ErrNodeNotFound, e.From))
		}
	}

	names := make([]string, 0, len(b.nodes))
	for name := range b.nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	if err := b.detectCycles(names); err != nil {
		return nil, err
	}
	return &DAG{
		name:     b.name,
		nodes:    b.nodes,
		edges:    b.edges,
		names:    names,
		terminal: b.findTerminal(names),
	}, nil
}

func (b *Builder) detectCycles(names []string) error {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var path []string

	var dfs func(string) error
	dfs = func(node string) error {
		visited[node] = true
		onStack[node] = true
		path = append(path, node)
		for _, dep := range b.nodes[node].Dependencies() {
			if !visited[dep] {
				if err := dfs(dep); err != nil {
					return err
				}
			} else if onStack[dep] {
				start := 0
				for i, n := range path {
					if n == dep {
						start = i
						break
					}
				}
				cycle := append(append([]string(nil), path[start:]...), dep)
				return NewCycleError(cycle)
			}
		}
		path = path[:len(path)-1]
		onStack[node] = false
		return nil
	}

	for _, name := range names {
		if !visited[name] {
			if err := dfs(name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Builder) findTerminal(names []string) string {
	hasDependent := make(map[string]bool)
	for _, e := range b.edges {
		hasDependent[e.From] = true
	}
	for _, name := range names {
		if !hasDependent[name] {
			return name
		}
	}
	return ""
}
