package checkpoint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stageOut struct {
	Queries []string
	Support map[string]float64
}

func roundTrip(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	cp, err := New(store, Fingerprint("tree.nwk", "0.5"))
	require.NoError(t, err)
	defer cp.Close()

	var got stageOut
	ok, err := cp.Load(ctx, "resolve1", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	want := stageOut{Queries: []string{"q1", "q2"}, Support: map[string]float64{"q1": 0.75}}
	require.NoError(t, cp.Save(ctx, "resolve1", want))

	ok, err = cp.Load(ctx, "resolve1", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, cp.Forget(ctx, "resolve1"))
	ok, err = cp.Load(ctx, "resolve1", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	roundTrip(t, NewMemory())
}

func TestBadgerStore(t *testing.T) {
	s, err := OpenBadger(&BadgerConfig{DataDir: t.TempDir()})
	require.NoError(t, err)
	roundTrip(t, s)
}

func TestBadgerRequiresDir(t *testing.T) {
	_, err := OpenBadger(&BadgerConfig{})
	assert.Error(t, err)
}

func TestNamespacesIsolate(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	a, err := New(store, Fingerprint("a"))
	require.NoError(t, err)
	b, err := New(store, Fingerprint("b"))
	require.NoError(t, err)

	require.NoError(t, a.Save(ctx, "extract1", []string{"q1"}))
	var out []string
	ok, err := b.Load(ctx, "extract1", &out)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotEqual(t, a.Namespace(), b.Namespace())
}

func TestFingerprintSeparatesParts(t *testing.T) {
	assert.NotEqual(t, Fingerprint("ab", "c"), Fingerprint("a", "bc"))
	assert.Equal(t, Fingerprint("x", "y"), Fingerprint("x", "y"))
}
