// internal/reconcile/reconcile.go
package reconcile

import (
	"sort"

	"taxmrca/internal/mrca"
)

// Provenance tags where a final answer came from.
type Provenance string

const (
	Old    Provenance = "old"
	Hybrid Provenance = "hybrid"
)

// Final is the reconciled answer for one query.
type Final struct {
	Query      string
	Result     mrca.Result
	Provenance Provenance
	// Conflict is set when the query reached reconciliation more than once.
	// Result is then the resolved candidate and Alternate the other one.
	Conflict  bool
	Alternate *mrca.Result
}

// Stats summarises one reconciliation.
type Stats struct {
	Old         int
	Hybrid      int
	Conflicts   int
	Unsupported int
}

// Reconcile merges the resolved first-pass results with the hybrid results
// into one row per query, sorted by query id. A query present on both sides
// (or twice on one side) keeps the resolved candidate and is flagged.
func Reconcile(resolved, hybrid []mrca.Result) ([]Final, Stats) {
	by := make(map[string]*Final, len(resolved)+len(hybrid))
	add := func(r mrca.Result, p Provenance) {
		if f, ok := by[r.Query]; ok {
			if !f.Conflict {
				alt := r
				f.Alternate = &alt
				f.Conflict = true
			}
			return
		}
		by[r.Query] = &Final{Query: r.Query, Result: r, Provenance: p}
	}
	for _, r := range sorted(resolved) {
		add(r, Old)
	}
	for _, r := range sorted(hybrid) {
		add(r, Hybrid)
	}

	out := make([]Final, 0, len(by))
	var st Stats
	for _, f := range by {
		out = append(out, *f)
		switch f.Provenance {
		case Old:
			st.Old++
		case Hybrid:
			st.Hybrid++
		}
		if f.Conflict {
			st.Conflicts++
		}
		if f.Result.Unsupported {
			st.Unsupported++
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Query < out[j].Query })
	return out, st
}

// sorted copies rs ordered by query then node id so duplicate handling does
// not depend on arrival order.
func sorted(rs []mrca.Result) []mrca.Result {
	cp := append([]mrca.Result(nil), rs...)
	sort.SliceStable(cp, func(i, j int) bool {
		if cp[i].Query != cp[j].Query {
			return cp[i].Query < cp[j].Query
		}
		return cp[i].NodeID < cp[j].NodeID
	})
	return cp
}
