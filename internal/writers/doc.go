// Package writers turns reconciled results into serialized outputs.
//
// Writers own presentation (TSV, JSON, JSONL). The pipeline only produces
// domain values, and JSON/JSONL go through pkg/api (v1) for a stable wire
// format.
package writers
