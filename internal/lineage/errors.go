// internal/lineage/errors.go
package lineage

import (
	"errors"
	"fmt"
)

var (
	// ErrTreeParse marks a structurally invalid tree. Fatal for a run.
	ErrTreeParse = errors.New("tree parse error")

	// ErrUnknownTaxid is returned when a taxid maps to no tree node.
	ErrUnknownTaxid = errors.New("unknown taxid")
)

// TreeParseError describes where tree input or validation failed.
type TreeParseError struct {
	Source string // file name or "<input>"
	Line   int    // 0 when not line oriented
	Msg    string
}

func (e *TreeParseError) Error() string {
	switch {
	case e.Source != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Msg)
	case e.Source != "":
		return fmt.Sprintf("%s: %s", e.Source, e.Msg)
	default:
		return e.Msg
	}
}

func (e *TreeParseError) Unwrap() error { return ErrTreeParse }

func treeErr(format string, a ...any) error {
	return &TreeParseError{Msg: fmt.Sprintf(format, a...)}
}
