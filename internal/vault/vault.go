// Package vault is the TokenVault: durable credential pairs and profiles
// namespaced per identity kind, plus the process-wide active-kind marker.
package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/store"
)

// ActiveKindKey holds the persisted active identity kind.
const ActiveKindKey = "active-user-type"

// TokensKey returns the key of kind's token pair.
func TokensKey(kind domain.Kind) string { return string(kind) + ":tokens" }

// ProfileKey returns the key of kind's profile.
func ProfileKey(kind domain.Kind) string { return string(kind) + ":profile" }

// Record is everything persisted for one identity kind.
type Record struct {
	Tokens  domain.TokenPair
	Profile domain.Profile
}

// Vault reads and writes credentials through a store.KV.
type Vault struct {
	kv store.KV
}

// New creates a vault over kv.
func New(kv store.KV) *Vault {
	return &Vault{kv: kv}
}

// Load returns kind's record. A kind that was never saved yields an empty
// record and no error.
func (v *Vault) Load(ctx context.Context, kind domain.Kind) (Record, error) {
	var rec Record
	if err := v.getJSON(ctx, TokensKey(kind), &rec.Tokens); err != nil {
		return Record{}, err
	}
	if err := v.getJSON(ctx, ProfileKey(kind), &rec.Profile); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Save writes kind's tokens and profile in one atomic write. When markActive
// is set the active-kind marker is written in the same batch.
func (v *Vault) Save(ctx context.Context, kind domain.Kind, rec Record, markActive bool) error {
	tokens, err := json.Marshal(rec.Tokens)
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}
	profile, err := json.Marshal(rec.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	ops := []store.Op{
		store.Put(TokensKey(kind), tokens),
		store.Put(ProfileKey(kind), profile),
	}
	if markActive {
		ops = append(ops, store.Put(ActiveKindKey, []byte(kind)))
	}
	if err := v.kv.Apply(ctx, ops...); err != nil {
		return fmt.Errorf("save %s credentials: %w", kind, err)
	}
	return nil
}

// SaveTokens overwrites kind's token pair with a single write.
func (v *Vault) SaveTokens(ctx context.Context, kind domain.Kind, tokens domain.TokenPair) error {
	data, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}
	if err := v.kv.Set(ctx, TokensKey(kind), data); err != nil {
		return fmt.Errorf("save %s tokens: %w", kind, err)
	}
	return nil
}

// Clear removes kind's tokens and profile. With clearActive the active-kind
// marker goes in the same batch.
func (v *Vault) Clear(ctx context.Context, kind domain.Kind, clearActive bool) error {
	ops := []store.Op{store.Del(TokensKey(kind)), store.Del(ProfileKey(kind))}
	if clearActive {
		ops = append(ops, store.Del(ActiveKindKey))
	}
	if err := v.kv.Apply(ctx, ops...); err != nil {
		return fmt.Errorf("clear %s credentials: %w", kind, err)
	}
	return nil
}

// ActiveKind reads the marker. It returns "" when no identity is active or
// the stored value is not a known kind.
func (v *Vault) ActiveKind(ctx context.Context) (domain.Kind, error) {
	raw, err := v.kv.Get(ctx, ActiveKindKey)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read active kind: %w", err)
	}
	kind, err := domain.ParseKind(string(raw))
	if err != nil {
		return "", nil
	}
	return kind, nil
}

// ClearActiveKind removes the marker only.
func (v *Vault) ClearActiveKind(ctx context.Context) error {
	return v.kv.Delete(ctx, ActiveKindKey)
}

// Watch calls fn after every committed change to kind's tokens or profile.
func (v *Vault) Watch(kind domain.Kind, fn func(store.Change)) (unsubscribe func()) {
	return v.kv.Subscribe(string(kind)+":", fn)
}

func (v *Vault) getJSON(ctx context.Context, key string, dst any) error {
	raw, err := v.kv.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
