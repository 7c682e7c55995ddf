// Package store defines the persisted key/value layer shared by the token
// vault, the basket and the delivery selection. Every backend reports
// committed changes to in-process subscribers so readers such as the bearer
// token source see updates without polling.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("store: key not found")

// Op is one write inside an atomic Apply.
type Op struct {
	Key    string
	Value  []byte
	Delete bool
}

// Put returns a set operation.
func Put(key string, value []byte) Op {
	return Op{Key: key, Value: value}
}

// Del returns a delete operation.
func Del(key string) Op {
	return Op{Key: key, Delete: true}
}

// Change describes a committed write.
type Change struct {
	Key     string
	Value   []byte
	Deleted bool
}

// KV is a durable key/value store with change subscriptions. Writes to a
// single key are serialized by the implementation; Apply commits several
// writes atomically.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Apply(ctx context.Context, ops ...Op) error

	// Subscribe calls fn after every committed change to a key that starts
	// with prefix. An empty prefix matches all keys. The returned function
	// removes the subscription.
	Subscribe(prefix string, fn func(Change)) (unsubscribe func())

	Ping(ctx context.Context) error
	Close() error
}
