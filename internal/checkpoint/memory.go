// internal/checkpoint/memory.go
package checkpoint

import (
	"context"
	"sync"
)

// MemoryStore keeps checkpoints in process memory.
type MemoryStore struct {
	data sync.Map
}

func NewMemory() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Put(_ context.Context, key, value []byte) error {
	s.data.Store(string(key), append([]byte(nil), value...))
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key []byte) ([]byte, error) {
	v, ok := s.data.Load(string(key))
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v.([]byte)...), nil
}

func (s *MemoryStore) Delete(_ context.Context, key []byte) error {
	s.data.Delete(string(key))
	return nil
}

func (s *MemoryStore) Close() error { return nil }
