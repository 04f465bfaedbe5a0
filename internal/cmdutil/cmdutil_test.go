package cmdutil

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWarnf(t *testing.T) {
	var buf bytes.Buffer
	Warnf(&buf, false, "%d queries missing", 3)
	Warnf(&buf, true, "hidden")
	assert.Equal(t, "WARN: 3 queries missing\n", buf.String())
}

type pipeWriter struct{}

func (pipeWriter) Write([]byte) (int, error) { return 0, syscall.EPIPE }

func TestFlush(t *testing.T) {
	var out, errw bytes.Buffer
	w := bufio.NewWriter(&out)
	_, _ = w.WriteString("x")
	assert.Equal(t, ExitNoResult, Flush(w, &errw, ExitNoResult))
	assert.Equal(t, "x", out.String())

	w = bufio.NewWriter(pipeWriter{})
	_, _ = w.WriteString("x")
	assert.Equal(t, ExitOK, Flush(w, &errw, ExitOK))
	assert.Empty(t, errw.String())
}

func TestCodeFor(t *testing.T) {
	usage := errors.New("usage")
	isUsage := func(err error) bool { return errors.Is(err, usage) }
	assert.Equal(t, ExitOK, CodeFor(nil, isUsage))
	assert.Equal(t, ExitCanceled, CodeFor(fmt.Errorf("stage: %w", context.Canceled), isUsage))
	assert.Equal(t, ExitUsage, CodeFor(fmt.Errorf("flag: %w", usage), isUsage))
	assert.Equal(t, ExitRuntime, CodeFor(errors.New("disk"), isUsage))
	assert.Equal(t, ExitOK, CodeFor(syscall.EPIPE, isUsage))
}
