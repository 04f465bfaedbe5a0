// internal/summary/summary.go
package summary

import (
	"fmt"
	"io"
	"sort"

	"taxmrca/internal/reconcile"
)

// NodeCount is how many queries resolved to one node.
type NodeCount struct {
	NodeID  string
	TaxID   string
	Queries int
	Percent float64
}

// Summary describes a final table.
type Summary struct {
	Total       int
	Old         int
	Hybrid      int
	Conflicts   int
	Unsupported int
	Nodes       []NodeCount // most frequent first, ties by node id
}

// Of computes the summary of finals.
func Of(finals []reconcile.Final) Summary {
	s := Summary{Total: len(finals)}
	counts := map[string]*NodeCount{}
	for _, f := range finals {
		switch f.Provenance {
		case reconcile.Old:
			s.Old++
		case reconcile.Hybrid:
			s.Hybrid++
		}
		if f.Conflict {
			s.Conflicts++
		}
		if f.Result.Unsupported {
			s.Unsupported++
			continue
		}
		nc, ok := counts[f.Result.NodeID]
		if !ok {
			nc = &NodeCount{NodeID: f.Result.NodeID, TaxID: f.Result.TaxID}
			counts[f.Result.NodeID] = nc
		}
		nc.Queries++
	}
	for _, nc := range counts {
		nc.Percent = 100 * float64(nc.Queries) / float64(s.Total)
		s.Nodes = append(s.Nodes, *nc)
	}
	sort.Slice(s.Nodes, func(i, j int) bool {
		if s.Nodes[i].Queries != s.Nodes[j].Queries {
			return s.Nodes[i].Queries > s.Nodes[j].Queries
		}
		return s.Nodes[i].NodeID < s.Nodes[j].NodeID
	})
	return s
}

// Most returns the most frequent MRCA node, if any.
func (s Summary) Most() (NodeCount, bool) {
	if len(s.Nodes) == 0 {
		return NodeCount{}, false
	}
	return s.Nodes[0], true
}

// Least returns the least frequent MRCA node, if any.
func (s Summary) Least() (NodeCount, bool) {
	if len(s.Nodes) == 0 {
		return NodeCount{}, false
	}
	return s.Nodes[len(s.Nodes)-1], true
}

// WriteTSV writes the per-node table preceded by '#' totals.
func (s Summary) WriteTSV(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "#total\t%d\n#old\t%d\n#hybrid\t%d\n#conflicts\t%d\n#unsupported\t%d\n",
		s.Total, s.Old, s.Hybrid, s.Conflicts, s.Unsupported); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "#mrca\ttaxid\tqueries\tpercent"); err != nil {
		return err
	}
	for _, n := range s.Nodes {
		tax := n.TaxID
		if tax == "" {
			tax = "-"
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\n", n.NodeID, tax, n.Queries, n.Percent); err != nil {
			return err
		}
	}
	return nil
}
