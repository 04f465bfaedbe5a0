package writers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxmrca/internal/mrca"
	"taxmrca/internal/reconcile"
	"taxmrca/internal/summary"
	"taxmrca/internal/verify"
	"taxmrca/pkg/api"
)

var rows = []reconcile.Final{
	{Query: "q1", Provenance: reconcile.Old, Result: mrca.Result{Query: "q1", NodeID: "A", TaxID: "10", Support: 1, Coverage: 1, Provenance: mrca.FirstPass}},
	{Query: "q2", Provenance: reconcile.Hybrid, Result: mrca.Result{Query: "q2", NodeID: "B", TaxID: "20", Support: 0.75, Coverage: 0.5, Provenance: mrca.HybridPass}},
}

func TestRegistryFormats(t *testing.T) {
	assert.Equal(t, []string{"json", "jsonl", "tsv"}, Formats())
	err := WriteFinals("xml", &bytes.Buffer{}, Finals{})
	assert.ErrorContains(t, err, `unknown output format "xml"`)
}

func TestFinalsTSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFinals("tsv", &buf, Finals{Rows: rows, Header: true}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "#query"))
	assert.True(t, strings.HasPrefix(lines[1], "q1\tA\t10\t"))
}

func TestFinalsJSONL(t *testing.T) {
	var buf bytes.Buffer
	names := func(id string) string { return map[string]string{"20": "Betas"}[id] }
	require.NoError(t, WriteFinals("jsonl", &buf, Finals{Rows: rows, Names: names}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var v api.FinalV1
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &v))
	assert.Equal(t, "Betas", v.Name)
	assert.Equal(t, "hybrid", v.Provenance)
}

func TestReportAndSummary(t *testing.T) {
	var buf bytes.Buffer
	ds := []verify.Discrepancy{{Query: "q1", Candidate: "B", Reference: "A"}}
	require.NoError(t, WriteReport("jsonl", &buf, Report{Rows: ds}))
	assert.Equal(t, "{\"query\":\"q1\",\"candidate\":\"B\",\"reference\":\"A\"}\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteSummary("tsv", &buf, Summary{Summary: summary.Of(rows)}))
	assert.Contains(t, buf.String(), "#total\t2\n")
}

func TestIsBrokenPipe(t *testing.T) {
	assert.True(t, IsBrokenPipe(syscall.EPIPE))
	assert.True(t, IsBrokenPipe(fmt.Errorf("flush: %w", os.ErrClosed)))
	assert.False(t, IsBrokenPipe(nil))
	assert.False(t, IsBrokenPipe(errors.New("disk full")))
}
