// internal/dag/errors.go
package dag

import (
	"errors"
	"fmt"
)

var (
	ErrNilContext    = errors.New("context must not be nil")
	ErrNilNode       = errors.New("node must not be nil")
	ErrDuplicateNode = errors.New("node with this name already exists")
	ErrNodeNotFound  = errors.New("node not found")
	ErrCycleDetected = errors.New("cycle detected in DAG")
	ErrNoProgress    = errors.New("no progress possible: deadlock or missing dependency")
	ErrNodeTimeout   = errors.New("node execution timed out")
	ErrInvalidInput  = errors.New("invalid input")
)

// NodeError ties an error to the node that produced it.
type NodeError struct {
	NodeName string
	Err      error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q: %v", e.NodeName, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// NewNodeError wraps err for nodeName.
func NewNodeError(nodeName string, err error) *NodeError {
	return &NodeError{NodeName: nodeName, Err: err}
}

// CycleError reports the dependency loop found while building.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected: %v", e.Path)
}

func (e *CycleError) Unwrap() error { return ErrCycleDetected }

func NewCycleError(path []string) *CycleError {
	return &CycleError{Path: path}
}
