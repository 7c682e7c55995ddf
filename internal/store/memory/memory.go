// Package memory is an in-process store.KV used by tests and by the agent
// when STORE_BACKEND=memory.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/utafrali/EcommerceGo/storefront/internal/store"
)

// Store keeps values in a map guarded by a mutex.
type Store struct {
	store.Notifier

	mu   sync.Mutex
	data map[string][]byte
}

var _ store.KV = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return slices.Clone(v), nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.Apply(ctx, store.Put(key, value))
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.Apply(ctx, store.Del(key))
}

func (s *Store) Apply(_ context.Context, ops ...store.Op) error {
	s.mu.Lock()
	for _, op := range ops {
		if op.Delete {
			delete(s.data, op.Key)
			continue
		}
		s.data[op.Key] = slices.Clone(op.Value)
	}
	s.mu.Unlock()

	s.Notify(store.ChangesFor(ops)...)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
