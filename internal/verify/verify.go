// internal/verify/verify.go
package verify

import (
	"sort"

	"taxmrca/internal/lineage"
	"taxmrca/internal/reconcile"
)

// Discrepancy is a query whose candidate answer is not at or below the
// reference answer.
type Discrepancy struct {
	Query      string
	Candidate  string
	Reference  string
	CandTaxID  string
	RefTaxID   string
	Unresolved bool // a node id was not found in the tree
}

// Compare checks every query present in both tables: the candidate node must
// lie in the subtree of the reference node. Queries missing from either side
// are ignored. Output is ordered by query id.
func Compare(idx *lineage.Index, candidate, reference []reconcile.Final) []Discrepancy {
	ref := make(map[string]reconcile.Final, len(reference))
	for _, f := range reference {
		ref[f.Query] = f
	}
	var out []Discrepancy
	for _, c := range candidate {
		r, ok := ref[c.Query]
		if !ok {
			continue
		}
		d := Discrepancy{
			Query: c.Query, Candidate: c.Result.NodeID, Reference: r.Result.NodeID,
			CandTaxID: c.Result.TaxID, RefTaxID: r.Result.TaxID,
		}
		cn, okC := idx.Node(c.Result.NodeID)
		rn, okR := idx.Node(r.Result.NodeID)
		if !okC || !okR {
			d.Unresolved = true
			out = append(out, d)
			continue
		}
		if !idx.Contains(rn, cn) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Query < out[j].Query })
	return out
}
