// internal/dag/state.go
package dag

import (
	"sync"
	"time"
)

// NodeStatus is the lifecycle position of a node within one run.
type NodeStatus string

const (
	NodeStatusPending   NodeStatus = "pending"
	NodeStatusRunning   NodeStatus = "running"
	NodeStatusCompleted NodeStatus = "completed"
	NodeStatusFailed    NodeStatus = "failed"
)

// State is the mutable progress of one run. Safe for concurrent use.
type State struct {
	mu sync.RWMutex

	SessionID  string
	Outputs    map[string]any
	Statuses   map[string]NodeStatus
	FailedNode string
	Error      string
}

func NewState(sessionID string) *State {
	return &State{
		SessionID: sessionID,
		Outputs:   make(map[string]any),
		Statuses:  make(map[string]NodeStatus),
	}
}

func (s *State) SetStatus(name string, st NodeStatus) {
	s.mu.Lock()
	s.Statuses[name] = st
	s.mu.Unlock()
}

func (s *State) GetStatus(name string) NodeStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.Statuses[name]; ok {
		return st
	}
	return NodeStatusPending
}

func (s *State) IsCompleted(name string) bool {
	return s.GetStatus(name) == NodeStatusCompleted
}

func (s *State) SetCompleted(name string, output any) {
	s.mu.Lock()
	s.Statuses[name] = NodeStatusCompleted
	s.Outputs[name] = output
	s.mu.Unlock()
}

func (s *State) GetOutput(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.Outputs[name]
	return v, ok
}

func (s *State) SetFailed(name string, err error) {
	s.mu.Lock()
	s.Statuses[name] = NodeStatusFailed
	if s.FailedNode == "" {
		s.FailedNode = name
		s.Error = err.Error()
	}
	s.mu.Unlock()
}

func (s *State) IsFailed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.FailedNode != ""
}

func (s *State) IsDAGComplete(d *DAG) bool {
	for _, name := range d.NodeNames() {
		if !s.IsCompleted(name) {
			return false
		}
	}
	return true
}

func (s *State) CompletedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, st := range s.Statuses {
		if st == NodeStatusCompleted {
			n++
		}
	}
	return n
}

// Result summarises a finished run.
type Result struct {
	SessionID     string
	Success       bool
	Output        any // terminal node output on success
	Outputs       map[string]any
	NodesExecuted int
	FailedNode    string
	Error         string
	Duration      time.Duration
	NodeDurations map[string]time.Duration
}
