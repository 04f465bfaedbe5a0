package lineage

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNewickNamesInternalNodes(t *testing.T) {
	tree, err := ParseNewick(strings.NewReader("((a:0.1,b:0.2):0.5,(c,d)CD)[root comment];"))
	require.NoError(t, err)

	got := map[string]string{}
	for _, n := range tree.Nodes {
		got[n.ID] = n.Parent
	}
	// level order: root first, then its unnamed child
	assert.Equal(t, "", got["Internal_1"])
	assert.Equal(t, "Internal_1", got["Internal_2"])
	assert.Equal(t, "Internal_2", got["a"])
	assert.Equal(t, "CD", got["d"])
	assert.Equal(t, "Internal_1", got["CD"])
}

func TestParseNewickSkipsUsedInternalNames(t *testing.T) {
	tree, err := ParseNewick(strings.NewReader("((a,b),Internal_1);"))
	require.NoError(t, err)
	idx, err := Build(tree, nil)
	require.NoError(t, err)
	assert.Equal(t, "Internal_2", idx.Root().ID)
	_, ok := idx.Node("Internal_3")
	assert.True(t, ok)
}

func TestParseNewickQuoted(t *testing.T) {
	tree, err := ParseNewick(strings.NewReader("('Homo sapiens',Pan)'Homininae x';"))
	require.NoError(t, err)
	idx, err := Build(tree, nil)
	require.NoError(t, err)
	assert.Equal(t, "Homininae x", idx.Root().ID)
	_, ok := idx.Node("Homo sapiens")
	assert.True(t, ok)

	var buf bytes.Buffer
	require.NoError(t, idx.WriteNewick(&buf))
	assert.Equal(t, "('Homo sapiens',Pan)'Homininae x';\n", buf.String())
}

func TestWriteNewickEscapesQuotes(t *testing.T) {
	idx, err := Build(&Tree{Nodes: []RawNode{{ID: "R [x]"}, {ID: "it's", Parent: "R [x]"}}}, nil)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, idx.WriteNewick(&buf))
	assert.Equal(t, "('it''s')'R [x]';\n", buf.String())
}

func TestParseNewickErrors(t *testing.T) {
	for _, in := range []string{"", "  \n", "(a,b", "(a,b);x", "(a,b)R", "(a:zz,b);", "(a,'b);"} {
		_, err := ParseNewick(strings.NewReader(in))
		require.Error(t, err, "input %q", in)
		assert.True(t, errors.Is(err, ErrTreeParse), "input %q: %v", in, err)
	}
}

func TestWriteNewickRoundTrip(t *testing.T) {
	idx := mustIndex(t, "((x2,x1)A,(x3)B)R;", nil)
	var buf bytes.Buffer
	require.NoError(t, idx.WriteNewick(&buf))
	// children come back sorted by id
	assert.Equal(t, "((x1,x2)A,(x3)B)R;\n", buf.String())

	again := mustIndex(t, buf.String(), nil)
	assert.Equal(t, idx.Len(), again.Len())
}

func TestParseEdgeTable(t *testing.T) {
	in := "# child\tparent\ttaxid\nR\t-\t1\nA\tR\t10\nx1\tA\t100\nx2\tA\n"
	tree, err := ParseEdgeTable(strings.NewReader(in))
	require.NoError(t, err)
	idx, err := Build(tree, nil)
	require.NoError(t, err)

	n, err := idx.Resolve("100")
	require.NoError(t, err)
	assert.Equal(t, "x1", n.ID)
	assert.Equal(t, "R", idx.Root().ID)
	assert.Equal(t, "1", idx.TaxIDOf(idx.Root()))

	_, err = ParseEdgeTable(strings.NewReader("a\tb\tc\td\n"))
	var tpe *TreeParseError
	require.True(t, errors.As(err, &tpe))
	assert.Equal(t, 1, tpe.Line)
}

func TestParseCorrespondence(t *testing.T) {
	list, err := ParseCorrespondence(strings.NewReader("#taxid\tnode\n9606\tx1\tHomo sapiens\n10090\tx2\n"))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, Correspondence{TaxID: "9606", NodeID: "x1", Name: "Homo sapiens"}, list[0])

	_, err = ParseCorrespondence(strings.NewReader("9606\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "<input>:1")
}
