// pkg/api/finals_v1.go
package api

// FinalV1 is the stable JSON/JSONL schema for one reconciled query.
// Keep fields, names, and types stable. Add new fields only with ",omitempty".
type FinalV1 struct {
	Query       string    `json:"query"`
	MRCA        string    `json:"mrca"`
	TaxID       string    `json:"taxid"`
	Name        string    `json:"name,omitempty"`
	Depth       int       `json:"depth"`
	Support     float64   `json:"support"`
	Coverage    float64   `json:"coverage"`
	Provenance  string    `json:"provenance"` // "old" | "hybrid"
	Unsupported bool      `json:"unsupported,omitempty"`
	Activation  []float64 `json:"activation,omitempty"`
	Conflict    bool      `json:"conflict,omitempty"`
	AltMRCA     string    `json:"alt_mrca,omitempty"`
	AltTaxID    string    `json:"alt_taxid,omitempty"`
}

// NodeCountV1 is one row of a run summary.
type NodeCountV1 struct {
	MRCA    string  `json:"mrca"`
	TaxID   string  `json:"taxid"`
	Name    string  `json:"name,omitempty"`
	Queries int     `json:"queries"`
	Percent float64 `json:"percent"`
}

// SummaryV1 describes a final table.
type SummaryV1 struct {
	Total       int           `json:"total"`
	Old         int           `json:"old"`
	Hybrid      int           `json:"hybrid"`
	Conflicts   int           `json:"conflicts"`
	Unsupported int           `json:"unsupported"`
	Nodes       []NodeCountV1 `json:"nodes"`
}

// DiscrepancyV1 is one verification finding.
type DiscrepancyV1 struct {
	Query      string `json:"query"`
	Candidate  string `json:"candidate"`
	Reference  string `json:"reference"`
	CandTaxID  string `json:"candidate_taxid,omitempty"`
	RefTaxID   string `json:"reference_taxid,omitempty"`
	Unresolved bool   `json:"unresolved,omitempty"`
}
