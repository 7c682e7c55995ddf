// Package storetest holds the behaviour every store.KV backend must share.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/EcommerceGo/storefront/internal/store"
)

// Run exercises kv through the KV contract. newKV must return an empty store.
func Run(t *testing.T, newKV func(t *testing.T) store.KV) {
	t.Run("GetMissing", func(t *testing.T) {
		kv := newKV(t)
		_, err := kv.Get(context.Background(), "missing")
		assert.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)
	})

	t.Run("SetGetDelete", func(t *testing.T) {
		kv := newKV(t)
		ctx := context.Background()

		require.NoError(t, kv.Set(ctx, "customer:tokens", []byte(`{"accessToken":"a"}`)))
		got, err := kv.Get(ctx, "customer:tokens")
		require.NoError(t, err)
		assert.Equal(t, `{"accessToken":"a"}`, string(got))

		require.NoError(t, kv.Set(ctx, "customer:tokens", []byte(`{"accessToken":"b"}`)))
		got, err = kv.Get(ctx, "customer:tokens")
		require.NoError(t, err)
		assert.Equal(t, `{"accessToken":"b"}`, string(got))

		require.NoError(t, kv.Delete(ctx, "customer:tokens"))
		_, err = kv.Get(ctx, "customer:tokens")
		assert.True(t, errors.Is(err, store.ErrNotFound))
	})

	t.Run("DeleteMissingIsNoop", func(t *testing.T) {
		kv := newKV(t)
		assert.NoError(t, kv.Delete(context.Background(), "never-set"))
	})

	t.Run("ApplyAtomicWrites", func(t *testing.T) {
		kv := newKV(t)
		ctx := context.Background()
		require.NoError(t, kv.Set(ctx, "basket", []byte("{}")))

		require.NoError(t, kv.Apply(ctx,
			store.Put("vendor:tokens", []byte("t")),
			store.Put("active-user-type", []byte("vendor")),
			store.Del("basket"),
		))

		v, err := kv.Get(ctx, "active-user-type")
		require.NoError(t, err)
		assert.Equal(t, "vendor", string(v))
		_, err = kv.Get(ctx, "basket")
		assert.True(t, errors.Is(err, store.ErrNotFound))
	})

	t.Run("SubscribeByPrefix", func(t *testing.T) {
		kv := newKV(t)
		ctx := context.Background()

		var mu sync.Mutex
		var seen []store.Change
		unsubscribe := kv.Subscribe("customer:", func(c store.Change) {
			mu.Lock()
			seen = append(seen, c)
			mu.Unlock()
		})

		require.NoError(t, kv.Set(ctx, "customer:tokens", []byte("x")))
		require.NoError(t, kv.Set(ctx, "vendor:tokens", []byte("y")))
		require.NoError(t, kv.Delete(ctx, "customer:tokens"))

		unsubscribe()
		unsubscribe()
		require.NoError(t, kv.Set(ctx, "customer:tokens", []byte("z")))

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, seen, 2)
		assert.Equal(t, store.Change{Key: "customer:tokens", Value: []byte("x")}, seen[0])
		assert.Equal(t, store.Change{Key: "customer:tokens", Deleted: true}, seen[1])
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, newKV(t).Ping(context.Background()))
	})
}
