// internal/checkpoint/badger.go
package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore persists checkpoints in a BadgerDB directory.
type BadgerStore struct {
	db *badger.DB
}

// BadgerConfig holds configuration for BadgerStore.
type BadgerConfig struct {
	DataDir string
}

// OpenBadger opens or creates the store under cfg.DataDir.
func OpenBadger(cfg *BadgerConfig) (*BadgerStore, error) {
	if cfg == nil || cfg.DataDir == "" {
		return nil, fmt.Errorf("checkpoint: DataDir is required")
	}
	opts := badger.DefaultOptions(cfg.DataDir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open badger %s: %w", cfg.DataDir, err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Put(_ context.Context, key, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (s *BadgerStore) Get(_ context.Context, key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *BadgerStore) Delete(_ context.Context, key []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (s *BadgerStore) Close() error {
	if s.db == nil {
		return nil
	}
	// Reclaim value-log space left by overwritten stages before closing.
	if err := s.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		_ = s.db.Close()
		return err
	}
	return s.db.Close()
}
