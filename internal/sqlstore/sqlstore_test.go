package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxmrca/internal/mrca"
	"taxmrca/internal/reconcile"
	"taxmrca/internal/summary"
)

func TestPutRunAndReadBack(t *testing.T) {
	ctx := context.Background()
	s, err := New(&Config{DBPath: filepath.Join(t.TempDir(), "runs.db")})
	require.NoError(t, err)
	defer s.Close()

	finals := []reconcile.Final{
		{Query: "q1", Provenance: reconcile.Old, Result: mrca.Result{Query: "q1", NodeID: "A", TaxID: "100", Depth: 1, Support: 1, Coverage: 0.5, Provenance: mrca.FirstPass}},
		{Query: "q2", Provenance: reconcile.Hybrid, Conflict: true,
			Result:    mrca.Result{Query: "q2", NodeID: "R", TaxID: "1", Support: 1, Coverage: 1, Unsupported: true, Provenance: mrca.HybridPass},
			Alternate: &mrca.Result{Query: "q2", NodeID: "B", TaxID: "200"}},
	}
	meta := RunMeta{RunID: "abc123", Namespace: "ns", Threshold: 0.5, Mode: "species_percentage", Created: time.Unix(1700000000, 0)}
	require.NoError(t, s.PutRun(ctx, meta, finals, summary.Of(finals)))

	got, err := s.Finals(ctx, "abc123")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Result.NodeID)
	assert.Equal(t, mrca.FirstPass, got[0].Result.Provenance)
	assert.True(t, got[1].Conflict)
	assert.True(t, got[1].Result.Unsupported)
	require.NotNil(t, got[1].Alternate)
	assert.Equal(t, "B", got[1].Alternate.NodeID)

	// Replacing the run keeps one copy of each row.
	require.NoError(t, s.PutRun(ctx, meta, finals[:1], summary.Of(finals[:1])))
	got, err = s.Finals(ctx, "abc123")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "ns", runs[0].Namespace)
	assert.Equal(t, int64(1700000000), runs[0].Created.Unix())
}

func TestNewRequiresPath(t *testing.T) {
	_, err := New(&Config{})
	assert.Error(t, err)
}
