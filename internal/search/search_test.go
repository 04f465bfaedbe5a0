package search

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxmrca/internal/subtree"
)

type fakeRunner struct {
	mu   sync.Mutex
	jobs []Job
	fail string
}

func (f *fakeRunner) Run(_ context.Context, j Job) error {
	f.mu.Lock()
	f.jobs = append(f.jobs, j)
	f.mu.Unlock()
	if j.Name == f.fail {
		return errors.New("boom")
	}
	return os.WriteFile(j.Out, []byte(j.Name+"\n"), 0o644)
}

func TestDiamondArgs(t *testing.T) {
	d := Diamond{Binary: "diamond", Threads: 8, ExtraArgs: []string{"--block-size", "4"}}
	args := d.Args(Job{Queries: "q.fa", DB: "nr.dmnd", Out: "o.tsv", TaxonList: []string{"2", "7"}})
	assert.Equal(t, []string{"blastp", "-q", "q.fa", "-d", "nr.dmnd", "-o", "o.tsv", "-k0", "--sensitive", "--outfmt", "6"}, args[:11])
	assert.Contains(t, args, "staxids")
	assert.Subset(t, args, []string{"--taxonlist", "2,7", "--threads", "8", "--block-size", "4"})

	args = d.Args(Job{Queries: "q.fa", DB: "nr.dmnd", Out: "o.tsv"})
	assert.NotContains(t, args, "--taxonlist")
}

func TestDiamondWithoutBinary(t *testing.T) {
	err := Diamond{}.Run(context.Background(), Job{Name: "x"})
	assert.ErrorIs(t, err, ErrSearchFailed)
}

func TestRegroupRunConcat(t *testing.T) {
	dir := t.TempDir()
	seq := filepath.Join(dir, "q.fa")
	require.NoError(t, os.WriteFile(seq, []byte(">q1\nAAA\n>q2\nCCC\n>q3\nGGG\n"), 0o644))

	groups := []subtree.Group{
		{Scope: "A", ScopeTaxID: "100", Queries: []string{"q1", "q3"}},
		{Scope: "R", ScopeTaxID: "1", Queries: []string{"q2", "qx"}},
	}
	plan, err := Regroup(context.Background(), seq, filepath.Join(dir, "rerun"), "nr.dmnd", "R", groups)
	require.NoError(t, err)
	require.Len(t, plan.Jobs, 2)
	assert.Equal(t, []string{"qx"}, plan.Missing)
	assert.Equal(t, []string{"100"}, plan.Jobs[0].TaxonList)
	assert.Empty(t, plan.Jobs[1].TaxonList)

	body, err := os.ReadFile(plan.Jobs[0].Queries)
	require.NoError(t, err)
	assert.Equal(t, ">q1\nAAA\n>q3\nGGG\n", string(body))

	r := &fakeRunner{}
	require.NoError(t, RunAll(context.Background(), r, plan.Jobs, 2))
	assert.Len(t, r.jobs, 2)

	merged := filepath.Join(dir, "second.tsv")
	require.NoError(t, Concat(merged, plan.Outputs()))
	body, err = os.ReadFile(merged)
	require.NoError(t, err)
	assert.Equal(t, plan.Jobs[0].Name+"\n"+plan.Jobs[1].Name+"\n", string(body))
}

func TestRegroupWithoutScopeTaxIDSearchesEverything(t *testing.T) {
	dir := t.TempDir()
	seq := filepath.Join(dir, "q.fa")
	require.NoError(t, os.WriteFile(seq, []byte(">q1\nAAA\n>q2\nCCC\n"), 0o644))

	groups := []subtree.Group{
		{Scope: "Internal_1", Queries: []string{"q1"}},
		{Scope: "B", ScopeTaxID: "20", Queries: []string{"q2"}},
	}
	plan, err := Regroup(context.Background(), seq, filepath.Join(dir, "rerun"), "nr.dmnd", "R", groups)
	require.NoError(t, err)
	require.Len(t, plan.Jobs, 2)
	assert.Empty(t, plan.Jobs[0].TaxonList)
	assert.NotContains(t, Diamond{Binary: "diamond"}.Args(plan.Jobs[0]), "--taxonlist")
	assert.Equal(t, []string{"20"}, plan.Jobs[1].TaxonList)
	assert.Equal(t, []string{"Internal_1"}, plan.Unscoped)
}

func TestRunAllStopsOnError(t *testing.T) {
	dir := t.TempDir()
	jobs := []Job{{Name: "a", Out: filepath.Join(dir, "a")}, {Name: "b", Out: filepath.Join(dir, "b")}}
	err := RunAll(context.Background(), &fakeRunner{fail: "b"}, jobs, 1)
	assert.EqualError(t, err, "boom")
}

func TestRegroupEmpty(t *testing.T) {
	plan, err := Regroup(context.Background(), "unused", t.TempDir(), "db", "R", nil)
	require.NoError(t, err)
	assert.Empty(t, plan.Jobs)
}
