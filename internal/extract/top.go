// internal/extract/top.go
package extract

import (
	"taxmrca/internal/blasttab"
)

// TopTaxon picks the taxon that best represents the queried organism.
//
// First the most frequent first-hit taxon over all queries is found. Each
// query then votes for that global best if any of its hits name it, and for
// its own first-hit taxon otherwise. The taxon with the most votes wins; ties
// go to the smaller id. Hits above evalue and unaligned rows are ignored.
func TopTaxon(hits []blasttab.Hit, evalue float64) string {
	type qinfo struct {
		first string
		seen  map[string]bool
	}
	var order []string
	per := map[string]*qinfo{}
	for _, h := range hits {
		if h.NoHit || h.EValue > evalue {
			continue
		}
		ids := h.TaxIDs
		if !h.HasTax {
			ids = []string{blasttab.SubjectTaxon(h.Subject)}
		}
		if len(ids) == 0 {
			continue
		}
		qi, ok := per[h.Query]
		if !ok {
			qi = &qinfo{first: ids[0], seen: map[string]bool{}}
			per[h.Query] = qi
			order = append(order, h.Query)
		}
		for _, id := range ids {
			qi.seen[id] = true
		}
	}
	if len(order) == 0 {
		return ""
	}

	firsts := map[string]int{}
	for _, q := range order {
		firsts[per[q].first]++
	}
	best := argmax(firsts)

	votes := map[string]int{}
	for _, q := range order {
		qi := per[q]
		if qi.seen[best] {
			votes[best]++
		} else {
			votes[qi.first]++
		}
	}
	return argmax(votes)
}

func argmax(m map[string]int) string {
	best, n := "", -1
	for k, v := range m {
		if v > n || (v == n && k < best) {
			best, n = k, v
		}
	}
	return best
}
