// internal/writers/registry.go
package writers

import (
	"fmt"
	"io"
	"sort"

	"taxmrca/internal/output"
	"taxmrca/internal/reconcile"
	"taxmrca/internal/summary"
	"taxmrca/internal/verify"
)

// Finals is the payload of a final-table writer.
type Finals struct {
	Rows   []reconcile.Final
	Names  output.Namer
	Header bool
}

// Report is the payload of a verification writer.
type Report struct {
	Rows   []verify.Discrepancy
	Header bool
}

// Summary is the payload of a summary writer.
type Summary struct {
	Summary summary.Summary
	Names   output.Namer
}

// Writer registries (format → handler). Filled in init() by the format files.
var (
	FinalWriters   = map[string]func(io.Writer, Finals) error{}
	ReportWriters  = map[string]func(io.Writer, Report) error{}
	SummaryWriters = map[string]func(io.Writer, Summary) error{}
)

// Register helpers (last wins).
func RegisterFinal(format string, fn func(io.Writer, Finals) error) { FinalWriters[format] = fn }
func RegisterReport(format string, fn func(io.Writer, Report) error) { ReportWriters[format] = fn }
func RegisterSummary(format string, fn func(io.Writer, Summary) error) { SummaryWriters[format] = fn }

func WriteFinals(format string, w io.Writer, p Finals) error {
	fn, ok := FinalWriters[format]
	if !ok {
		return fmt.Errorf("unknown output format %q (want %v)", format, Formats())
	}
	return fn(w, p)
}

func WriteReport(format string, w io.Writer, p Report) error {
	fn, ok := ReportWriters[format]
	if !ok {
		return fmt.Errorf("unknown report format %q", format)
	}
	return fn(w, p)
}

func WriteSummary(format string, w io.Writer, p Summary) error {
	fn, ok := SummaryWriters[format]
	if !ok {
		return fmt.Errorf("unknown summary format %q", format)
	}
	return fn(w, p)
}

// Formats lists the registered final-table formats, sorted.
func Formats() []string {
	out := make([]string, 0, len(FinalWriters))
	for k := range FinalWriters {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
