package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoFormatIsJSONOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	lg, err := New(&buf, Options{Attrs: []slog.Attr{slog.String("run", "r1")}})
	require.NoError(t, err)
	lg.Info("stage done", slog.Int("queries", 3))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "stage done", rec["msg"])
	assert.Equal(t, "r1", rec["run"])
	assert.Equal(t, float64(3), rec["queries"])
}

func TestQuietDropsWarnings(t *testing.T) {
	var buf bytes.Buffer
	lg, err := New(&buf, Options{Format: "text", Quiet: true})
	require.NoError(t, err)
	lg.Warn("taxid not in tree")
	assert.Empty(t, buf.String())
	lg.Error("boom")
	assert.Contains(t, buf.String(), "boom")
}

func TestBadOptions(t *testing.T) {
	_, err := New(&bytes.Buffer{}, Options{Level: "loud"})
	require.Error(t, err)
	_, err = New(&bytes.Buffer{}, Options{Format: "xml"})
	require.Error(t, err)
}
