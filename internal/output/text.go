// internal/output/text.go
package output

import (
	"fmt"
	"io"

	"taxmrca/internal/common"
	"taxmrca/internal/verify"
)

// WriteDiscrepanciesTSV writes findings as a tab-delimited table.
func WriteDiscrepanciesTSV(w io.Writer, ds []verify.Discrepancy, header bool) error {
	if header {
		if _, err := fmt.Fprintln(w, DiscrepancyTSVHeader); err != nil {
			return err
		}
	}
	for _, d := range ds {
		un := "0"
		if d.Unresolved {
			un = "1"
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.Query, d.Candidate, d.Reference, common.Dash(d.CandTaxID), common.Dash(d.RefTaxID), un); err != nil {
			return err
		}
	}
	return nil
}
