package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("x\n"), 0o644))
	return p
}

func validRun(t *testing.T) Run {
	dir := t.TempDir()
	c := Defaults()
	c.OutDir = filepath.Join(dir, "out")
	c.Tree = touch(t, dir, "tree.nwk")
	c.FirstHits = []string{touch(t, dir, "h1.tsv")}
	c.SecondHits = []string{touch(t, dir, "h2.tsv")}
	return c
}

func TestDefaults(t *testing.T) {
	c := Defaults()
	assert.Equal(t, 16, c.Threads)
	assert.Equal(t, 1e-4, c.EValue)
	assert.Equal(t, 1, c.LevelsUp)
	assert.Equal(t, 0.5, c.Threshold)
	assert.Equal(t, "diamond", c.SearchBinary)
}

func TestValidateOK(t *testing.T) {
	c := validRun(t)
	require.NoError(t, c.Validate())
}

func TestValidateFieldErrorsUseYAMLNames(t *testing.T) {
	c := validRun(t)
	c.Threshold = 1.5
	c.Mode = "lca"
	err := c.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "threshold")
	assert.Contains(t, err.Error(), "mode")

	c = validRun(t)
	c.Tree = filepath.Join(t.TempDir(), "missing.nwk")
	require.ErrorIs(t, c.Validate(), ErrInvalid)

	c = validRun(t)
	c.Anchor = "two words"
	require.ErrorIs(t, c.Validate(), ErrInvalid)
}

func TestValidateCrossField(t *testing.T) {
	c := validRun(t)
	c.FirstHits = nil
	err := c.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "first_hits")

	c = validRun(t)
	c.Mode = "node_activation"
	require.ErrorIs(t, c.Validate(), ErrInvalid)
	c.Anchor = "auto"
	require.NoError(t, c.Validate())

	c = validRun(t)
	c.Resume = true
	require.ErrorIs(t, c.Validate(), ErrInvalid)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(p, []byte("out_dir: out\nthreads: 4\nlevels_up: 2\nstage_timeout: 90m\nfirst_hits: [a.tsv, b.tsv]\n"), 0o644))

	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "out", c.OutDir)
	assert.Equal(t, 4, c.Threads)
	assert.Equal(t, 2, c.LevelsUp)
	assert.Equal(t, 90*time.Minute, c.StageTimeout)
	assert.Equal(t, []string{"a.tsv", "b.tsv"}, c.FirstHits)
	assert.Equal(t, 0.5, c.Threshold, "defaults survive")

	require.NoError(t, os.WriteFile(p, []byte("bogus_key: 1\n"), 0o644))
	_, err = Load(p)
	require.Error(t, err)
}
