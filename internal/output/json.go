// internal/output/json.go
package output

import (
	"io"

	"taxmrca/internal/jsonlutil"
	"taxmrca/internal/reconcile"
	"taxmrca/internal/summary"
	"taxmrca/internal/verify"
	"taxmrca/pkg/api"
)

// ToAPIFinal converts a reconciled row to the stable wire schema (v1).
func ToAPIFinal(f reconcile.Final, names Namer) api.FinalV1 {
	r := f.Result
	v := api.FinalV1{
		Query:       f.Query,
		MRCA:        r.NodeID,
		TaxID:       r.TaxID,
		Name:        names.name(r.TaxID),
		Depth:       r.Depth,
		Support:     r.Support,
		Coverage:    r.Coverage,
		Provenance:  string(f.Provenance),
		Unsupported: r.Unsupported,
		Activation:  append([]float64(nil), r.Activation...),
		Conflict:    f.Conflict,
	}
	if f.Alternate != nil {
		v.AltMRCA = f.Alternate.NodeID
		v.AltTaxID = f.Alternate.TaxID
	}
	return v
}

// ToAPISummary converts a summary to its wire schema.
func ToAPISummary(s summary.Summary, names Namer) api.SummaryV1 {
	v := api.SummaryV1{
		Total:       s.Total,
		Old:         s.Old,
		Hybrid:      s.Hybrid,
		Conflicts:   s.Conflicts,
		Unsupported: s.Unsupported,
		Nodes:       make([]api.NodeCountV1, 0, len(s.Nodes)),
	}
	for _, n := range s.Nodes {
		v.Nodes = append(v.Nodes, api.NodeCountV1{
			MRCA: n.NodeID, TaxID: n.TaxID, Name: names.name(n.TaxID),
			Queries: n.Queries, Percent: n.Percent,
		})
	}
	return v
}

func ToAPIDiscrepancy(d verify.Discrepancy) api.DiscrepancyV1 {
	return api.DiscrepancyV1(d)
}

// WriteJSON writes a single JSON array of v1 finals (pretty-indented).
func WriteJSON(w io.Writer, list []reconcile.Final, names Namer) error {
	out := make([]api.FinalV1, 0, len(list))
	for _, f := range list {
		out = append(out, ToAPIFinal(f, names))
	}
	return jsonlutil.EncodePretty(w, out)
}

// WriteSummaryJSON writes s as one pretty JSON object.
func WriteSummaryJSON(w io.Writer, s summary.Summary, names Namer) error {
	return jsonlutil.EncodePretty(w, ToAPISummary(s, names))
}

// WriteDiscrepanciesJSON writes a JSON array of findings.
func WriteDiscrepanciesJSON(w io.Writer, ds []verify.Discrepancy) error {
	out := make([]api.DiscrepancyV1, 0, len(ds))
	for _, d := range ds {
		out = append(out, ToAPIDiscrepancy(d))
	}
	return jsonlutil.EncodePretty(w, out)
}
