package extract

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxmrca/internal/blasttab"
	"taxmrca/internal/lineage"
)

func testIndex(t *testing.T) *lineage.Index {
	t.Helper()
	tree, err := lineage.ParseNewick(strings.NewReader("((x1,x2)A,(x3,x4)B)R;"))
	require.NoError(t, err)
	idx, err := lineage.Build(tree, []lineage.Correspondence{
		{TaxID: "1", NodeID: "x1"}, {TaxID: "2", NodeID: "x2"},
		{TaxID: "3", NodeID: "x3"}, {TaxID: "4", NodeID: "x4"},
	})
	require.NoError(t, err)
	return idx
}

func hit(q string, evalue, bits float64, taxa ...string) blasttab.Hit {
	return blasttab.Hit{Query: q, Subject: "s", EValue: evalue, BitScore: bits, HasTax: true, TaxIDs: taxa}
}

func TestExtractFiltersAndWeights(t *testing.T) {
	idx := testIndex(t)
	hits := []blasttab.Hit{
		hit("q1", 1e-10, 100, "1"),
		hit("q1", 1e-10, 50, "1", "2"),
		hit("q1", 1e-4, 10, "3"),  // boundary: kept
		hit("q1", 1e-3, 10, "4"),  // too weak
		hit("q2", 1e-10, 10, "99"), // unknown taxid
		{Query: "q3", Subject: "*", EValue: -1, NoHit: true},
	}

	b, err := New(idx, Options{EValue: 1e-4, Threads: 3}).ExtractSlice(context.Background(), hits)
	require.NoError(t, err)

	assert.Equal(t, []string{"q1", "q2", "q3"}, b.Queries())
	assert.Equal(t, []Entry{
		{TaxID: "1", NodeID: "x1", Weight: 2},
		{TaxID: "2", NodeID: "x2", Weight: 1},
		{TaxID: "3", NodeID: "x3", Weight: 1},
	}, b.Sets["q1"].Entries)
	assert.True(t, b.Sets["q2"].Empty())
	assert.True(t, b.Sets["q3"].Empty())

	assert.Equal(t, Stats{Hits: 6, Kept: 3, Filtered: 1, NoHit: 1, UnknownTaxa: 1, Queries: 3}, b.Stats)
}

func TestExtractWeightingModes(t *testing.T) {
	idx := testIndex(t)
	hits := []blasttab.Hit{hit("q", 0, 100, "1"), hit("q", 0, 20, "1"), hit("q", 0, 5, "2")}

	cases := map[Weighting][]float64{
		WeightCount:    {2, 1},
		WeightPresence: {1, 1},
		WeightBitscore: {120, 5},
	}
	for w, want := range cases {
		b, err := New(idx, Options{EValue: 1, Weighting: w}).ExtractSlice(context.Background(), hits)
		require.NoError(t, err)
		es := b.Sets["q"].Entries
		require.Len(t, es, 2, string(w))
		assert.Equal(t, want, []float64{es[0].Weight, es[1].Weight}, string(w))
	}
}

func TestExtractSubjectIDFallback(t *testing.T) {
	tree, err := lineage.ParseNewick(strings.NewReader("(Homo_sapiens,Mus_musculus)R;"))
	require.NoError(t, err)
	idx, err := lineage.Build(tree, nil)
	require.NoError(t, err)

	hits := []blasttab.Hit{{Query: "q", Subject: "Homo_sapiens", EValue: 0}}
	b, err := New(idx, Options{EValue: 1}).ExtractSlice(context.Background(), hits)
	require.NoError(t, err)
	require.Len(t, b.Sets["q"].Entries, 1)
	assert.Equal(t, "Homo_sapiens", b.Sets["q"].Entries[0].NodeID)
}

func TestExtractExpectedUniverse(t *testing.T) {
	idx := testIndex(t)
	b, err := New(idx, Options{EValue: 1, Expected: []string{"q1", "qX"}}).
		ExtractSlice(context.Background(), []blasttab.Hit{hit("q1", 0, 1, "1")})
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "qX"}, b.Queries())
	assert.True(t, b.Sets["qX"].Empty())
	assert.Equal(t, 2, b.Stats.Queries)
}

func TestExtractPartitionCountIrrelevant(t *testing.T) {
	idx := testIndex(t)
	var hits []blasttab.Hit
	for i := 0; i < 500; i++ {
		hits = append(hits, hit(fmt.Sprintf("q%03d", i%97), 0, 1, fmt.Sprint(1+i%4)))
	}
	ref, err := New(idx, Options{EValue: 1, Threads: 1}).ExtractSlice(context.Background(), hits)
	require.NoError(t, err)
	for _, n := range []int{2, 7, 16} {
		got, err := New(idx, Options{EValue: 1, Threads: n}).ExtractSlice(context.Background(), hits)
		require.NoError(t, err)
		assert.Equal(t, ref.Sets, got.Sets, "threads=%d", n)
		assert.Equal(t, ref.Stats, got.Stats, "threads=%d", n)
	}
}

func TestExtractCanceled(t *testing.T) {
	idx := testIndex(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ch := make(chan blasttab.Hit)
	_, err := New(idx, Options{EValue: 1, Threads: 2}).Extract(ctx, ch)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFocalSetHelpers(t *testing.T) {
	fs := FocalSet{Query: "q", Entries: []Entry{
		{TaxID: "1", NodeID: "x1", Weight: 2},
		{TaxID: "2", NodeID: "x2", Weight: 0.5},
	}}
	assert.Equal(t, "x1:2;x2:0.5", fs.Signature())
	assert.Equal(t, 2.5, fs.TotalWeight())
	assert.Equal(t, "q[x1:2;x2:0.5]", fs.String())
	assert.True(t, FocalSet{}.Empty())
}

func TestTopTaxon(t *testing.T) {
	hits := []blasttab.Hit{
		hit("q1", 0, 1, "A"), hit("q1", 0, 1, "B"),
		hit("q2", 0, 1, "A"),
		hit("q3", 0, 1, "C"), hit("q3", 0, 1, "A"),
		hit("q4", 0, 1, "C"),
		hit("q5", 1, 1, "Z"), // filtered
	}
	assert.Equal(t, "A", TopTaxon(hits, 1e-4))
	assert.Equal(t, "", TopTaxon(nil, 1))
}

func TestParseWeighting(t *testing.T) {
	w, err := ParseWeighting("")
	require.NoError(t, err)
	assert.Equal(t, WeightCount, w)
	_, err = ParseWeighting("max")
	require.Error(t, err)
}
