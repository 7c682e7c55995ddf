// Package leveldb implements store.KV on an on-device LevelDB database. It is
// the default backend: tokens and the basket survive restarts without any
// external service.
package leveldb

import (
	"context"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/utafrali/EcommerceGo/storefront/internal/store"
)

// Store wraps a LevelDB handle.
type Store struct {
	store.Notifier

	db *leveldb.DB
}

var _ store.KV = (*Store)(nil)

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("leveldb: path required")
	}
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Get returns store.ErrNotFound when the key is absent.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	value, err := s.db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("leveldb get %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.Apply(ctx, store.Put(key, value))
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.Apply(ctx, store.Del(key))
}

// Apply commits ops as one synced batch.
func (s *Store) Apply(_ context.Context, ops ...store.Op) error {
	if len(ops) == 0 {
		return nil
	}
	batch := new(leveldb.Batch)
	for _, op := range ops {
		if op.Delete {
			batch.Delete([]byte(op.Key))
			continue
		}
		batch.Put([]byte(op.Key), op.Value)
	}
	if err := s.db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("leveldb write batch: %w", err)
	}
	s.Notify(store.ChangesFor(ops)...)
	return nil
}

// Ping reads a database property to confirm the handle is open.
func (s *Store) Ping(context.Context) error {
	_, err := s.db.GetProperty("leveldb.num-files-at-level0")
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}
