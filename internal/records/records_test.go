package records

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxmrca/internal/extract"
	"taxmrca/internal/mrca"
	"taxmrca/internal/reconcile"
	"taxmrca/internal/subtree"
)

func TestFocalSetsKeepEmptyQueries(t *testing.T) {
	sets := map[string]extract.FocalSet{
		"q2": {Query: "q2"},
		"q1": {Query: "q1", Entries: []extract.Entry{
			{TaxID: "10", NodeID: "x1", Weight: 2},
			{TaxID: "20", NodeID: "x2", Weight: 0.5},
		}},
	}
	path := filepath.Join(t.TempDir(), "focal.tsv")
	require.NoError(t, SaveFocalSets(path, sets))

	got, err := LoadFocalSets(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got["q2"].Empty())
	assert.Equal(t, sets["q1"], got["q1"])
}

func TestFocalSetsLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFocalSets(&buf, map[string]extract.FocalSet{
		"b": {Query: "b"},
		"a": {Query: "a", Entries: []extract.Entry{{TaxID: "1", NodeID: "n", Weight: 3}}},
	}))
	assert.Equal(t, FocalHeader+"\na\t1\tn\t3\nb\t-\t-\t0\n", buf.String())
}

func TestResultsRoundTrip(t *testing.T) {
	rs := []mrca.Result{
		{Query: "q1", NodeID: "A", TaxID: "10", Depth: 1, Support: 1, Coverage: 0.5, Provenance: mrca.FirstPass},
		{Query: "q2", NodeID: "R", Depth: 0, Unsupported: true, Provenance: mrca.HybridPass, Activation: []float64{0, 1, 0.25}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, rs))
	got, err := ReadResults(&buf, "r")
	require.NoError(t, err)
	assert.Equal(t, rs, got)
}

func TestResultsErrorsCarryLine(t *testing.T) {
	in := ResultHeader + "\nq1\tA\t-\tdeep\t1\t1\tfirst\t0\t-\n"
	_, err := ReadResults(strings.NewReader(in), "res.tsv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "res.tsv:2")

	_, err = ReadResults(strings.NewReader("q1\tA\n"), "res.tsv")
	require.Error(t, err)
}

func TestPartitionRoundTrip(t *testing.T) {
	as := []subtree.Assignment{
		{Query: "a", Status: subtree.Old, Scope: "A", ScopeTaxID: "10"},
		{Query: "b", Status: subtree.New, Scope: "R"},
	}
	var buf bytes.Buffer
	require.NoError(t, WritePartition(&buf, as))
	got, err := ReadPartition(&buf, "p")
	require.NoError(t, err)
	assert.Equal(t, as, got)

	_, err = ReadPartition(strings.NewReader("a\tmaybe\tA\t-\n"), "p")
	require.Error(t, err)
}

func TestFinalsRoundTrip(t *testing.T) {
	fs := []reconcile.Final{
		{Query: "q1", Provenance: reconcile.Old, Result: mrca.Result{Query: "q1", NodeID: "A", TaxID: "10", Support: 1, Coverage: 1, Provenance: mrca.FirstPass}},
		{Query: "q2", Provenance: reconcile.Hybrid, Conflict: true,
			Result:    mrca.Result{Query: "q2", NodeID: "B", Support: 0.75, Provenance: mrca.HybridPass},
			Alternate: &mrca.Result{Query: "q2", NodeID: "C", TaxID: "30"}},
	}
	path := filepath.Join(t.TempDir(), "final.tsv")
	require.NoError(t, SaveFinals(path, fs))
	got, err := LoadFinals(path)
	require.NoError(t, err)
	assert.Equal(t, fs, got)
}

func TestResultsKeepFullPrecision(t *testing.T) {
	rs := []mrca.Result{{
		Query: "q1", NodeID: "A", Depth: 2, Provenance: mrca.FirstPass,
		Support: 1.0 / 3, Coverage: 2.0 / 3, Activation: []float64{1.0 / 7},
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, rs))
	got, err := ReadResults(&buf, "r")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1.0/3, got[0].Support)
	assert.Equal(t, 2.0/3, got[0].Coverage)
	assert.Equal(t, []float64{1.0 / 7}, got[0].Activation)
}
