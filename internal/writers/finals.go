// internal/writers/finals.go
package writers

import (
	"io"

	"taxmrca/internal/output"
	"taxmrca/internal/records"
)

func init() {
	RegisterFinal(output.FormatTSV, func(w io.Writer, p Finals) error {
		return records.WriteFinals(w, p.Rows, p.Header)
	})
	RegisterFinal(output.FormatJSON, func(w io.Writer, p Finals) error {
		return output.WriteJSON(w, p.Rows, p.Names)
	})
	RegisterFinal(output.FormatJSONL, func(w io.Writer, p Finals) error {
		in, done := StartFinalJSONLWriter(w, 256, p.Names)
		for _, f := range p.Rows {
			in <- f
		}
		close(in)
		return <-done
	})

	RegisterReport(output.FormatTSV, func(w io.Writer, p Report) error {
		return output.WriteDiscrepanciesTSV(w, p.Rows, p.Header)
	})
	RegisterReport(output.FormatJSON, func(w io.Writer, p Report) error {
		return output.WriteDiscrepanciesJSON(w, p.Rows)
	})
	RegisterReport(output.FormatJSONL, func(w io.Writer, p Report) error {
		in, done := StartDiscrepancyJSONLWriter(w, 256)
		for _, d := range p.Rows {
			in <- d
		}
		close(in)
		return <-done
	})

	RegisterSummary(output.FormatTSV, func(w io.Writer, p Summary) error {
		return p.Summary.WriteTSV(w)
	})
	summaryJSON := func(w io.Writer, p Summary) error {
		return output.WriteSummaryJSON(w, p.Summary, p.Names)
	}
	RegisterSummary(output.FormatJSON, summaryJSON)
	RegisterSummary(output.FormatJSONL, summaryJSON)
}
