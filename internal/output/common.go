// internal/output/common.go
package output

// Output formats understood by the writers registry.
const (
	FormatTSV   = "tsv"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
)

// DiscrepancyTSVHeader is the header row of verification reports.
const DiscrepancyTSVHeader = "#query\tcandidate\treference\tcandidate_taxid\treference_taxid\tunresolved"

// Namer maps a taxid to a display name; "" when unknown.
type Namer func(taxid string) string

func (n Namer) name(taxid string) string {
	if n == nil || taxid == "" {
		return ""
	}
	return n(taxid)
}
