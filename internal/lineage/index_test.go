package lineage

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = "((x1,x2)A,(x3,x4)B)R;"

func mustIndex(t *testing.T, nwk string, corr []Correspondence) *Index {
	t.Helper()
	tree, err := ParseNewick(strings.NewReader(nwk))
	require.NoError(t, err)
	idx, err := Build(tree, corr)
	require.NoError(t, err)
	return idx
}

func ids(ns []*Node) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.ID
	}
	return out
}

func TestAncestorPath(t *testing.T) {
	idx := mustIndex(t, fixture, []Correspondence{{TaxID: "9606", NodeID: "x1"}})

	path, err := idx.AncestorPath("9606")
	require.NoError(t, err)
	assert.Equal(t, []string{"x1", "A", "R"}, ids(path))

	// node labels resolve without a correspondence row
	path, err = idx.AncestorPath("x3")
	require.NoError(t, err)
	assert.Equal(t, []string{"x3", "B", "R"}, ids(path))

	_, err = idx.AncestorPath("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTaxid))
}

func TestAncestorAtDistanceClamps(t *testing.T) {
	idx := mustIndex(t, fixture, nil)
	x1, _ := idx.Node("x1")

	assert.Equal(t, "x1", idx.AncestorAtDistance(x1, 0).ID)
	assert.Equal(t, "x1", idx.AncestorAtDistance(x1, -3).ID)
	assert.Equal(t, "A", idx.AncestorAtDistance(x1, 1).ID)
	assert.Equal(t, "R", idx.AncestorAtDistance(x1, 2).ID)
	for k := 3; k < 10; k++ {
		assert.Equal(t, "R", idx.AncestorAtDistance(x1, k).ID, "k=%d", k)
	}
}

func TestContainsAndLeaves(t *testing.T) {
	idx := mustIndex(t, fixture, nil)
	r := idx.Root()
	a, _ := idx.Node("A")
	x2, _ := idx.Node("x2")
	x3, _ := idx.Node("x3")

	assert.True(t, idx.Contains(r, x3))
	assert.True(t, idx.Contains(a, x2))
	assert.True(t, idx.Contains(a, a))
	assert.False(t, idx.Contains(a, x3))
	assert.False(t, idx.Contains(x2, a))

	assert.Equal(t, 4, idx.LeafCount(r))
	assert.Equal(t, 2, idx.LeafCount(a))
	assert.Equal(t, 1, idx.LeafCount(x2))
	assert.Equal(t, []string{"x1", "x2"}, ids(idx.Leaves(a)))
	assert.Equal(t, 3, idx.SubtreeSize(a))

	assert.Equal(t, "A", idx.LCA(x2, a).ID)
	assert.Equal(t, "R", idx.LCA(x2, x3).ID)
}

func TestMappedAncestor(t *testing.T) {
	idx := mustIndex(t, fixture, []Correspondence{{TaxID: "1", NodeID: "R"}, {TaxID: "10", NodeID: "A"}})
	x2, _ := idx.Node("x2")
	x4, _ := idx.Node("x4")
	a, _ := idx.Node("A")

	m, ok := idx.MappedAncestor(x2)
	require.True(t, ok)
	assert.Equal(t, "A", m.ID)
	m, ok = idx.MappedAncestor(a)
	require.True(t, ok)
	assert.Equal(t, "10", m.TaxID)
	m, ok = idx.MappedAncestor(x4)
	require.True(t, ok)
	assert.Equal(t, "R", m.ID)

	bare := mustIndex(t, fixture, nil)
	x1, _ := bare.Node("x1")
	_, ok = bare.MappedAncestor(x1)
	assert.False(t, ok)
}

func TestBuildRejectsBadTrees(t *testing.T) {
	cases := map[string]*Tree{
		"duplicate": {Nodes: []RawNode{{ID: "R"}, {ID: "a", Parent: "R"}, {ID: "a", Parent: "R"}}},
		"two roots": {Nodes: []RawNode{{ID: "R"}, {ID: "S"}}},
		"dangling":  {Nodes: []RawNode{{ID: "R"}, {ID: "a", Parent: "zz"}}},
		"cycle":     {Nodes: []RawNode{{ID: "R"}, {ID: "a", Parent: "b"}, {ID: "b", Parent: "a"}}},
		"no root":   {Nodes: []RawNode{{ID: "a", Parent: "b"}, {ID: "b", Parent: "a"}}},
		"empty":     {},
	}
	for name, tr := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Build(tr, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrTreeParse), "got %v", err)
			var tpe *TreeParseError
			assert.True(t, errors.As(err, &tpe))
		})
	}
}

func TestBuildCorrespondence(t *testing.T) {
	tree, err := ParseNewick(strings.NewReader(fixture))
	require.NoError(t, err)

	idx, err := Build(tree, []Correspondence{
		{TaxID: "1", NodeID: "x1", Name: "one"},
		{TaxID: "11", NodeID: "x1"},
		{TaxID: "2", NodeID: "missing"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Skipped())
	n, err := idx.Resolve("11")
	require.NoError(t, err)
	assert.Equal(t, "x1", n.ID)
	assert.Equal(t, "1", idx.TaxIDOf(n))
	assert.Equal(t, "one", idx.Name("1"))

	a, _ := idx.Node("A")
	assert.Equal(t, "A", idx.TaxIDOf(a))

	_, err = Build(tree, []Correspondence{{TaxID: "1", NodeID: "x1"}, {TaxID: "1", NodeID: "x2"}})
	assert.True(t, errors.Is(err, ErrTreeParse))
}

func TestDeepCaterpillar(t *testing.T) {
	const depth = 20000
	tr := &Tree{Nodes: []RawNode{{ID: "n0"}}}
	for i := 1; i <= depth; i++ {
		tr.Nodes = append(tr.Nodes, RawNode{ID: nodeName(i), Parent: nodeName(i - 1)})
	}
	idx, err := Build(tr, nil)
	require.NoError(t, err)
	leaf, ok := idx.Node(nodeName(depth))
	require.True(t, ok)
	assert.Equal(t, depth, leaf.Depth)
	assert.Equal(t, "n0", idx.AncestorAtDistance(leaf, depth+5).ID)
	assert.True(t, idx.Contains(idx.Root(), leaf))
}

func nodeName(i int) string { return "n" + strconv.Itoa(i) }
