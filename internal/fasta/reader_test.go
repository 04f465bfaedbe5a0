package fasta

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plain = `>seq1 first read
ACGT
ACGT
>seq2
NNnn

>seq3 x
GG
`

func collect(t *testing.T, src string) []Record {
	t.Helper()
	var out []Record
	require.NoError(t, Scan(context.Background(), strings.NewReader(src), func(r Record) error {
		out = append(out, r)
		return nil
	}))
	return out
}

func TestScan(t *testing.T) {
	recs := collect(t, plain)
	require.Len(t, recs, 3)
	assert.Equal(t, "seq1", recs[0].ID)
	assert.Equal(t, "seq1 first read", recs[0].Header)
	assert.Equal(t, "ACGTACGT", string(recs[0].Seq))
	assert.Equal(t, "NNnn", string(recs[1].Seq))
	assert.Equal(t, "GG", string(recs[2].Seq))
}

func TestScanErrors(t *testing.T) {
	err := Scan(context.Background(), strings.NewReader("ACGT\n>a\nA\n"), func(Record) error { return nil })
	assert.ErrorContains(t, err, "before first header")

	err = Scan(context.Background(), strings.NewReader(">  \nA\n"), func(Record) error { return nil })
	assert.ErrorContains(t, err, "empty record id")
}

func TestScanCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	big := strings.Repeat(">r\nA\n", 5000)
	err := Scan(ctx, strings.NewReader(big), func(Record) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubsetAndWrite(t *testing.T) {
	p := filepath.Join(t.TempDir(), "q.fa")
	require.NoError(t, os.WriteFile(p, []byte(plain), 0o644))

	var buf bytes.Buffer
	keep := map[string]struct{}{"seq1": {}, "seq3": {}, "ghost": {}}
	missing, err := Subset(context.Background(), p, keep, func(r Record) error {
		return Write(&buf, r, 5)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ghost"}, missing)
	assert.Equal(t, ">seq1 first read\nACGTA\nCGT\n>seq3 x\nGG\n", buf.String())

	ids, err := IDs(context.Background(), p)
	require.NoError(t, err)
	sort.Strings(ids)
	assert.Equal(t, []string{"seq1", "seq2", "seq3"}, ids)
}
