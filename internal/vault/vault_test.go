package vault

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/store"
	"github.com/utafrali/EcommerceGo/storefront/internal/store/memory"
)

func sampleRecord() Record {
	return Record{
		Tokens:  domain.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"},
		Profile: domain.Profile{ID: "u1", Name: "Ada", Email: "ada@example.com"},
	}
}

func TestVault_LoadNeverSaved(t *testing.T) {
	v := New(memory.New())
	rec, err := v.Load(context.Background(), domain.KindCustomer)
	require.NoError(t, err)
	assert.True(t, rec.Tokens.Empty())
}

func TestVault_SaveLoad(t *testing.T) {
	v := New(memory.New())
	ctx := context.Background()

	require.NoError(t, v.Save(ctx, domain.KindCustomer, sampleRecord(), true))

	rec, err := v.Load(ctx, domain.KindCustomer)
	require.NoError(t, err)
	assert.Equal(t, sampleRecord(), rec)

	kind, err := v.ActiveKind(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.KindCustomer, kind)

	other, err := v.Load(ctx, domain.KindVendor)
	require.NoError(t, err)
	assert.True(t, other.Tokens.Empty(), "namespaces are independent")
}

func TestVault_PersistsTokenPairShape(t *testing.T) {
	kv := memory.New()
	v := New(kv)
	require.NoError(t, v.Save(context.Background(), domain.KindVendor, sampleRecord(), false))

	raw, err := kv.Get(context.Background(), "vendor:tokens")
	require.NoError(t, err)
	assert.JSONEq(t, `{"accessToken":"access-1","refreshToken":"refresh-1"}`, string(raw))

	_, err = kv.Get(context.Background(), ActiveKindKey)
	assert.True(t, errors.Is(err, store.ErrNotFound), "marker only written when asked")
}

func TestVault_SaveTokensKeepsProfile(t *testing.T) {
	v := New(memory.New())
	ctx := context.Background()
	require.NoError(t, v.Save(ctx, domain.KindCustomer, sampleRecord(), true))

	require.NoError(t, v.SaveTokens(ctx, domain.KindCustomer, domain.TokenPair{AccessToken: "access-2", RefreshToken: "refresh-2"}))

	rec, err := v.Load(ctx, domain.KindCustomer)
	require.NoError(t, err)
	assert.Equal(t, "access-2", rec.Tokens.AccessToken)
	assert.Equal(t, "Ada", rec.Profile.Name)
}

func TestVault_Clear(t *testing.T) {
	v := New(memory.New())
	ctx := context.Background()
	require.NoError(t, v.Save(ctx, domain.KindCustomer, sampleRecord(), true))

	require.NoError(t, v.Clear(ctx, domain.KindCustomer, true))

	rec, err := v.Load(ctx, domain.KindCustomer)
	require.NoError(t, err)
	assert.Equal(t, Record{}, rec)
	kind, err := v.ActiveKind(ctx)
	require.NoError(t, err)
	assert.Empty(t, kind)
}

func TestVault_ClearKeepsMarkerWhenAsked(t *testing.T) {
	v := New(memory.New())
	ctx := context.Background()
	require.NoError(t, v.Save(ctx, domain.KindCustomer, sampleRecord(), true))

	require.NoError(t, v.Clear(ctx, domain.KindVendor, false))

	kind, err := v.ActiveKind(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.KindCustomer, kind)
}

func TestVault_ActiveKindIgnoresGarbage(t *testing.T) {
	kv := memory.New()
	require.NoError(t, kv.Set(context.Background(), ActiveKindKey, []byte("admin")))

	kind, err := New(kv).ActiveKind(context.Background())
	require.NoError(t, err)
	assert.Empty(t, kind)
}

func TestVault_LoadCorruptRecord(t *testing.T) {
	kv := memory.New()
	require.NoError(t, kv.Set(context.Background(), TokensKey(domain.KindCustomer), []byte("{not json")))

	_, err := New(kv).Load(context.Background(), domain.KindCustomer)
	assert.ErrorContains(t, err, "decode customer:tokens")
}

func TestVault_WatchScopedToKind(t *testing.T) {
	v := New(memory.New())
	ctx := context.Background()

	var keys []string
	unsubscribe := v.Watch(domain.KindVendor, func(c store.Change) { keys = append(keys, c.Key) })
	defer unsubscribe()

	require.NoError(t, v.Save(ctx, domain.KindCustomer, sampleRecord(), true))
	require.NoError(t, v.Save(ctx, domain.KindVendor, sampleRecord(), true))

	assert.Equal(t, []string{"vendor:tokens", "vendor:profile"}, keys)
}
