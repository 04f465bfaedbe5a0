package fileio

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

func TestOpenPlainAndGzip(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "a.tsv")
	require.NoError(t, os.WriteFile(plain, []byte("q1\tA\n"), 0o644))

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, _ = zw.Write([]byte("q1\tA\n"))
	require.NoError(t, zw.Close())
	// no .gz suffix: detected by magic number
	packed := filepath.Join(dir, "b.tsv")
	require.NoError(t, os.WriteFile(packed, buf.Bytes(), 0o644))

	for _, p := range []string{plain, packed} {
		rc, err := Open(p)
		require.NoError(t, err, p)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		require.Equal(t, "q1\tA\n", string(data), p)
	}
}

func TestOpenBadGzipSuffix(t *testing.T) {
	p := filepath.Join(t.TempDir(), "x.tsv.gz")
	require.NoError(t, os.WriteFile(p, []byte("not gzip"), 0o644))
	_, err := Open(p)
	require.Error(t, err)
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
