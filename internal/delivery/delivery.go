// Package delivery persists the shipping address and delivery method chosen
// for the current session.
package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/store"
	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
	"github.com/utafrali/EcommerceGo/storefront/pkg/validator"
)

// Key is where the selection is stored.
const Key = "shipping-address"

// Selection is the delivery context used when pricing the basket.
type Selection struct {
	Address      *domain.Address       `json:"address,omitempty"`
	Method       domain.DeliveryMethod `json:"method" validate:"required,oneof=delivery pickup"`
	Period       string                `json:"period,omitempty"`
	Instructions string                `json:"instructions,omitempty" validate:"max=500"`
}

// Store reads and writes the Selection.
type Store struct {
	kv store.KV
}

// New creates a Store over kv.
func New(kv store.KV) *Store {
	return &Store{kv: kv}
}

// Get returns the saved selection, or NotFound when nothing was chosen yet.
func (s *Store) Get(ctx context.Context) (Selection, error) {
	data, err := s.kv.Get(ctx, Key)
	if errors.Is(err, store.ErrNotFound) {
		return Selection{}, apperrors.NotFound("delivery selection", "current")
	}
	if err != nil {
		return Selection{}, fmt.Errorf("load delivery selection: %w", err)
	}

	var sel Selection
	if err := json.Unmarshal(data, &sel); err != nil {
		return Selection{}, fmt.Errorf("decode delivery selection: %w", err)
	}
	return sel, nil
}

// Set validates and saves sel. Delivery requires an address; pickup drops it.
func (s *Store) Set(ctx context.Context, sel Selection) error {
	if err := validator.Validate(sel); err != nil {
		return err
	}
	switch sel.Method {
	case domain.DeliveryMethodDelivery:
		if sel.Address == nil {
			return apperrors.InvalidInput("address is required for delivery")
		}
		if err := validator.Validate(sel.Address); err != nil {
			return err
		}
	case domain.DeliveryMethodPickup:
		sel.Address = nil
	}

	data, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("marshal delivery selection: %w", err)
	}
	if err := s.kv.Set(ctx, Key, data); err != nil {
		return fmt.Errorf("save delivery selection: %w", err)
	}
	return nil
}

// Reset forgets the selection on logout.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.kv.Delete(ctx, Key); err != nil {
		return fmt.Errorf("reset delivery selection: %w", err)
	}
	return nil
}
