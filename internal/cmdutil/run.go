// internal/cmdutil/run.go
package cmdutil

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"taxmrca/internal/writers"
)

// Exit codes shared by every command.
const (
	ExitOK       = 0
	ExitNoResult = 1
	ExitUsage    = 2
	ExitRuntime  = 3
	ExitCanceled = 130
)

// Flush drains outw and maps the outcome to an exit code. A consumer closing
// the pipe early (head, less) is not an error.
func Flush(outw *bufio.Writer, stderr io.Writer, code int) int {
	err := outw.Flush()
	switch {
	case err == nil, writers.IsBrokenPipe(err):
		return code
	default:
		_, _ = fmt.Fprintln(stderr, err)
		return ExitRuntime
	}
}

// CodeFor maps a command error to an exit code. usage reports whether err is
// a usage problem.
func CodeFor(err error, usage func(error) bool) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitCanceled
	case writers.IsBrokenPipe(err):
		return ExitOK
	case usage != nil && usage(err):
		return ExitUsage
	default:
		return ExitRuntime
	}
}
