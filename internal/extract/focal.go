// internal/extract/focal.go
package extract

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Entry is one taxon observed for a query.
type Entry struct {
	TaxID  string
	NodeID string
	Weight float64
}

// FocalSet is the weighted taxa collected for one query, sorted by TaxID.
// It is never mutated once built.
type FocalSet struct {
	Query   string
	Entries []Entry
}

// Empty reports whether the set carries no taxa.
func (f FocalSet) Empty() bool { return len(f.Entries) == 0 }

// TotalWeight sums entry weights.
func (f FocalSet) TotalWeight() float64 {
	var w float64
	for _, e := range f.Entries {
		w += e.Weight
	}
	return w
}

// Signature is a canonical key for the taxa and weights, independent of the
// query id. Sets with equal signatures resolve identically.
func (f FocalSet) Signature() string {
	var b strings.Builder
	for i, e := range f.Entries {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(e.NodeID)
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(e.Weight, 'g', -1, 64))
	}
	return b.String()
}

func (f FocalSet) String() string {
	return fmt.Sprintf("%s[%s]", f.Query, f.Signature())
}

func sortEntries(es []Entry) {
	sort.Slice(es, func(i, j int) bool { return es[i].TaxID < es[j].TaxID })
}
