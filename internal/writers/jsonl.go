// internal/writers/jsonl.go
package writers

import (
	"encoding/json"
	"io"

	"taxmrca/internal/jsonlutil"
	"taxmrca/internal/output"
	"taxmrca/internal/reconcile"
	"taxmrca/internal/verify"
)

// StartFinalJSONLWriter streams each reconciled row as one JSON line (v1).
func StartFinalJSONLWriter(out io.Writer, bufSize int, names output.Namer) (chan<- reconcile.Final, <-chan error) {
	return jsonlutil.Start[reconcile.Final](out, bufSize,
		func(enc *json.Encoder, f reconcile.Final) error {
			return enc.Encode(output.ToAPIFinal(f, names))
		},
		IsBrokenPipe,
	)
}

// StartDiscrepancyJSONLWriter streams verification findings as JSON lines.
func StartDiscrepancyJSONLWriter(out io.Writer, bufSize int) (chan<- verify.Discrepancy, <-chan error) {
	return jsonlutil.Start[verify.Discrepancy](out, bufSize,
		func(enc *json.Encoder, d verify.Discrepancy) error {
			return enc.Encode(output.ToAPIDiscrepancy(d))
		},
		IsBrokenPipe,
	)
}
