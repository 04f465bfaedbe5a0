// internal/mrca/result.go
package mrca

import (
	"fmt"
	"sort"
)

// Provenance tags which pass produced a result.
type Provenance string

const (
	FirstPass  Provenance = "first"
	HybridPass Provenance = "hybrid"
)

// Mode selects the metric reported alongside the chosen node.
type Mode string

const (
	SpeciesPercentage Mode = "species_percentage"
	NodeActivation    Mode = "node_activation"
)

// ParseMode validates a mode name; "" means species_percentage.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", SpeciesPercentage:
		return SpeciesPercentage, nil
	case NodeActivation:
		return NodeActivation, nil
	}
	return "", fmt.Errorf("unknown mode %q (want species_percentage|node_activation)", s)
}

// Result is the resolved ancestor for one query in one pass.
type Result struct {
	Query       string
	NodeID      string
	TaxID       string
	Depth       int
	Support     float64   // weight fraction under NodeID
	Coverage    float64   // observed leaves / leaves under NodeID
	Activation  []float64 // node_activation only, anchor first
	Unsupported bool
	Provenance  Provenance
}

// SortResults orders results by query id.
func SortResults(rs []Result) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].Query < rs[j].Query })
}
