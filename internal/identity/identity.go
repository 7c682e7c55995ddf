// Package identity keeps the in-memory copy of one kind's identity. The copy
// follows the vault: every committed vault write for the kind is applied here,
// so bearer tokens read by outgoing requests never lag behind the vault.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/store"
	"github.com/utafrali/EcommerceGo/storefront/internal/vault"
)

// Store is the IdentityStore for one kind.
type Store struct {
	kind   domain.Kind
	vault  *vault.Vault
	logger *slog.Logger

	mu      sync.RWMutex
	current *domain.Identity

	unsubscribe func()
}

// New creates a store for kind and starts following the vault.
func New(kind domain.Kind, v *vault.Vault, logger *slog.Logger) *Store {
	s := &Store{kind: kind, vault: v, logger: logger.With(slog.String("identity_kind", string(kind)))}
	s.unsubscribe = v.Watch(kind, s.apply)
	return s
}

// Kind returns the kind this store holds.
func (s *Store) Kind() domain.Kind { return s.kind }

// Hydrate replaces the in-memory copy with what the vault holds. It runs at
// process start, where the vault is the source of truth.
func (s *Store) Hydrate(ctx context.Context) error {
	rec, err := s.vault.Load(ctx, s.kind)
	if err != nil {
		return fmt.Errorf("hydrate %s identity: %w", s.kind, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.Tokens.Empty() {
		s.current = nil
		return nil
	}
	id := newIdentity(s.kind, rec.Tokens)
	id.Profile = rec.Profile
	s.current = &id
	return nil
}

// Current returns a copy of the identity, if one is logged in.
func (s *Store) Current() (domain.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domain.Identity{}, false
	}
	return *s.current, true
}

// AccessToken returns the current access token or "".
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Tokens.AccessToken
}

// Close stops following the vault.
func (s *Store) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *Store) apply(c store.Change) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch c.Key {
	case vault.TokensKey(s.kind):
		if c.Deleted {
			s.current = nil
			return
		}
		var tokens domain.TokenPair
		if err := json.Unmarshal(c.Value, &tokens); err != nil || tokens.Empty() {
			s.logger.Warn("ignoring unreadable token update")
			return
		}
		next := newIdentity(s.kind, tokens)
		if s.current != nil {
			next.Profile = s.current.Profile
		}
		s.current = &next

	case vault.ProfileKey(s.kind):
		if s.current == nil {
			return
		}
		var profile domain.Profile
		if !c.Deleted {
			if err := json.Unmarshal(c.Value, &profile); err != nil {
				s.logger.Warn("ignoring unreadable profile update")
				return
			}
		}
		s.current.Profile = profile
	}
}

func newIdentity(kind domain.Kind, tokens domain.TokenPair) domain.Identity {
	id := domain.Identity{Kind: kind, Tokens: tokens}
	id.Subject, id.ExpiresAt = claimsOf(tokens.AccessToken)
	return id
}
