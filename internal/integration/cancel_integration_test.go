package integration

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"taxmrca/internal/app"
)

func TestCanceledRunExits130(t *testing.T) {
	e := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	code := app.RunContext(ctx, []string{"run",
		"--tree", e.tree, "--correspondence", e.corr,
		"--first-hits", e.first, "--second-hits", e.second,
		"--out-dir", filepath.Join(e.dir, "out"), "-q",
	}, io.Discard, io.Discard)
	assert.Equal(t, 130, code)
}
