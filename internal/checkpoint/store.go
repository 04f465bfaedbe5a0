// internal/checkpoint/store.go
package checkpoint

import "context"

// Store is the key-value backend behind a Checkpointer.
type Store interface {
	// Put stores a key-value pair.
	Put(ctx context.Context, key, value []byte) error

	// Get returns nil if the key does not exist.
	Get(ctx context.Context, key []byte) ([]byte, error)

	Delete(ctx context.Context, key []byte) error

	Close() error
}
