// internal/records/summary.go
package records

import (
	"io"

	"taxmrca/internal/summary"
)

// SaveSummary writes s as summary TSV.
func SaveSummary(path string, s summary.Summary) error {
	return writeFile(path, func(w io.Writer) error { return s.WriteTSV(w) })
}
