// internal/subtree/expand.go
package subtree

import (
	"sort"

	"taxmrca/internal/extract"
	"taxmrca/internal/lineage"
	"taxmrca/internal/mrca"
)

// Status is a query's side of the partition.
type Status string

const (
	Old Status = "old" // evidence fits the broadened subtree; first pass is final
	New Status = "new" // needs a scoped second search
)

// Assignment records where one query went and the scope that decided it.
type Assignment struct {
	Query      string
	Status     Status
	Scope      string // broadened subtree root node id
	ScopeTaxID string // real taxid of Scope or its nearest mapped ancestor; "" if none
}

// Partition is a disjoint split of first-pass results.
type Partition struct {
	Resolved    []mrca.Result
	Rerun       []mrca.Result
	Assignments []Assignment // one per input result, sorted by query
}

// Group is the rerun queries sharing one search scope.
type Group struct {
	Scope      string
	ScopeTaxID string
	Queries    []string
}

// Expander broadens MRCA nodes and checks evidence containment.
type Expander struct {
	idx  *lineage.Index
	sets map[string]extract.FocalSet
}

// NewExpander checks evidence against sets; a query without a set has no
// evidence to contradict its scope.
func NewExpander(idx *lineage.Index, sets map[string]extract.FocalSet) *Expander {
	return &Expander{idx: idx, sets: sets}
}

// Expand splits results. A query is Old when every FocalSet entry lies inside
// AncestorAtDistance(mrca, levelsUp). Unsupported results, and results naming
// a node the index does not know, are New with the root as scope.
func (e *Expander) Expand(results []mrca.Result, levelsUp int) Partition {
	var p Partition
	p.Assignments = make([]Assignment, 0, len(results))
	root := e.idx.Root()
	for _, r := range results {
		a := Assignment{Query: r.Query, Status: New, Scope: root.ID, ScopeTaxID: e.scopeTaxID(root)}
		node, ok := e.idx.Node(r.NodeID)
		if ok && !r.Unsupported {
			broader := e.idx.AncestorAtDistance(node, levelsUp)
			a.Scope, a.ScopeTaxID = broader.ID, e.scopeTaxID(broader)
			if e.inside(broader, e.sets[r.Query]) {
				a.Status = Old
			}
		}
		p.Assignments = append(p.Assignments, a)
		if a.Status == Old {
			p.Resolved = append(p.Resolved, r)
		} else {
			p.Rerun = append(p.Rerun, r)
		}
	}
	sort.Slice(p.Assignments, func(i, j int) bool { return p.Assignments[i].Query < p.Assignments[j].Query })
	mrca.SortResults(p.Resolved)
	mrca.SortResults(p.Rerun)
	return p
}

// scopeTaxID is the taxid a scoped search can filter on: the scope's own, or
// that of its nearest mapped ancestor. Empty when nothing above is mapped.
func (e *Expander) scopeTaxID(n *lineage.Node) string {
	if m, ok := e.idx.MappedAncestor(n); ok {
		return m.TaxID
	}
	return ""
}

func (e *Expander) inside(scope *lineage.Node, fs extract.FocalSet) bool {
	for _, en := range fs.Entries {
		n, ok := e.idx.Node(en.NodeID)
		if !ok || !e.idx.Contains(scope, n) {
			return false
		}
	}
	return true
}

// RerunIDs lists the queries needing a second search, sorted.
func (p Partition) RerunIDs() []string {
	out := make([]string, len(p.Rerun))
	for i, r := range p.Rerun {
		out[i] = r.Query
	}
	return out
}

// Groups collects New queries by scope, ordered by scope id.
func (p Partition) Groups() []Group {
	by := map[string]*Group{}
	for _, a := range p.Assignments {
		if a.Status != New {
			continue
		}
		g, ok := by[a.Scope]
		if !ok {
			g = &Group{Scope: a.Scope, ScopeTaxID: a.ScopeTaxID}
			by[a.Scope] = g
		}
		g.Queries = append(g.Queries, a.Query)
	}
	out := make([]Group, 0, len(by))
	for _, g := range by {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Scope < out[j].Scope })
	return out
}
