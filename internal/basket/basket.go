// Package basket is the BasketAggregator: a single-vendor basket persisted in
// the KV store and mutated through read-modify-write snapshots.
package basket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/store"
	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
	"github.com/utafrali/EcommerceGo/storefront/pkg/validator"
)

// Storage keys.
const (
	Key            = "basket"
	FirstLaunchKey = "first-launch"
)

var (
	basketMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_basket_mutations_total",
			Help: "Basket mutations by operation",
		},
		[]string{"op"},
	)

	basketConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_basket_cross_vendor_rejections_total",
		Help: "Items rejected because the basket belongs to another vendor",
	})
)

// Aggregator owns the basket. All mutations are serialized so two rapid
// updates cannot interleave into a lost update.
type Aggregator struct {
	kv     store.KV
	logger *slog.Logger
	newID  func() string

	mu sync.Mutex
}

// New creates an Aggregator over kv.
func New(kv store.KV, logger *slog.Logger) *Aggregator {
	return &Aggregator{kv: kv, logger: logger, newID: uuid.NewString}
}

// Start applies the first-launch rule: the first time the agent runs against
// a store, any basket found there is discarded.
func (a *Aggregator) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, err := a.kv.Get(ctx, FirstLaunchKey)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("read first-launch flag: %w", err)
	}

	if err := a.kv.Apply(ctx, store.Del(Key), store.Put(FirstLaunchKey, []byte("false"))); err != nil {
		return fmt.Errorf("apply first-launch reset: %w", err)
	}
	a.logger.InfoContext(ctx, "first launch, basket reset")
	return nil
}

// Basket returns the current basket.
func (a *Aggregator) Basket(ctx context.Context) (domain.Basket, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.load(ctx)
}

func validateItem(item domain.LineItem) error {
	if err := validator.Validate(item); err != nil {
		return err
	}
	if item.UnitPrice.IsNegative() {
		return apperrors.InvalidInput("unit price must not be negative")
	}
	return nil
}

// AddItem adds item to the basket. An empty basket adopts the item's vendor.
// An item of a different vendor is rejected with a CrossVendor error and the
// basket is left untouched.
func (a *Aggregator) AddItem(ctx context.Context, item domain.LineItem, vendor *domain.VendorDetails) (domain.Basket, error) {
	if err := validateItem(item); err != nil {
		return domain.Basket{}, err
	}

	return a.mutate(ctx, "add", func(b domain.Basket) (domain.Basket, error) {
		next, err := b.WithItem(item, vendor)
		if err != nil {
			if errors.Is(err, apperrors.ErrCrossVendor) {
				basketConflicts.Inc()
				a.logger.InfoContext(ctx, "cross-vendor item rejected",
					slog.String("basket_vendor_id", b.VendorID),
					slog.String("item_vendor_id", item.VendorID),
				)
			}
			return b, err
		}
		if b.Empty() {
			next.ID = a.newID()
		}
		return next, nil
	})
}

// ReplaceBasket discards the current basket and seeds a new one with item.
// It is the confirm path after AddItem reported a vendor conflict.
func (a *Aggregator) ReplaceBasket(ctx context.Context, item domain.LineItem, vendor *domain.VendorDetails) (domain.Basket, error) {
	if err := validateItem(item); err != nil {
		return domain.Basket{}, err
	}

	return a.mutate(ctx, "replace", func(domain.Basket) (domain.Basket, error) {
		next, err := domain.EmptyBasket().WithItem(item, vendor)
		if err != nil {
			return domain.Basket{}, err
		}
		next.ID = a.newID()
		return next, nil
	})
}

// UpdateQuantity sets the quantity of productID. qty ≤ 0 removes it.
func (a *Aggregator) UpdateQuantity(ctx context.Context, productID string, qty int) (domain.Basket, error) {
	if productID == "" {
		return domain.Basket{}, apperrors.InvalidInput("product id is required")
	}
	return a.mutate(ctx, "update", func(b domain.Basket) (domain.Basket, error) {
		return b.WithQuantity(productID, qty), nil
	})
}

// RemoveItem drops productID from the basket.
func (a *Aggregator) RemoveItem(ctx context.Context, productID string) (domain.Basket, error) {
	if productID == "" {
		return domain.Basket{}, apperrors.InvalidInput("product id is required")
	}
	return a.mutate(ctx, "remove", func(b domain.Basket) (domain.Basket, error) {
		return b.Without(productID), nil
	})
}

// Clear empties the basket unconditionally.
func (a *Aggregator) Clear(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.kv.Delete(ctx, Key); err != nil {
		return fmt.Errorf("clear basket: %w", err)
	}
	basketMutations.WithLabelValues("clear").Inc()
	return nil
}

// Reset clears the basket when a session is torn down.
func (a *Aggregator) Reset(ctx context.Context) error {
	return a.Clear(ctx)
}

// TotalItems is Σ quantity over the current basket.
func (a *Aggregator) TotalItems(ctx context.Context) (int, error) {
	b, err := a.Basket(ctx)
	if err != nil {
		return 0, err
	}
	return b.TotalItems(), nil
}

// TotalPrice is Σ quantity × unitPrice over the current basket.
func (a *Aggregator) TotalPrice(ctx context.Context) (domain.Money, error) {
	b, err := a.Basket(ctx)
	if err != nil {
		return domain.Zero, err
	}
	return b.TotalPrice(), nil
}

func (a *Aggregator) mutate(ctx context.Context, op string, fn func(domain.Basket) (domain.Basket, error)) (domain.Basket, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	current, err := a.load(ctx)
	if err != nil {
		return domain.Basket{}, err
	}
	next, err := fn(current)
	if err != nil {
		return current, err
	}
	if err := a.save(ctx, next); err != nil {
		return current, err
	}
	basketMutations.WithLabelValues(op).Inc()
	return next.Clone(), nil
}

func (a *Aggregator) load(ctx context.Context) (domain.Basket, error) {
	data, err := a.kv.Get(ctx, Key)
	if errors.Is(err, store.ErrNotFound) {
		return domain.EmptyBasket(), nil
	}
	if err != nil {
		return domain.Basket{}, fmt.Errorf("load basket: %w", err)
	}

	var b domain.Basket
	if err := json.Unmarshal(data, &b); err != nil {
		a.logger.WarnContext(ctx, "discarding unreadable basket", slog.String("error", err.Error()))
		return domain.EmptyBasket(), nil
	}
	if b.Empty() {
		return domain.EmptyBasket(), nil
	}
	return b, nil
}

func (a *Aggregator) save(ctx context.Context, b domain.Basket) error {
	if b.Empty() {
		if err := a.kv.Delete(ctx, Key); err != nil {
			return fmt.Errorf("save basket: %w", err)
		}
		return nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal basket: %w", err)
	}
	if err := a.kv.Set(ctx, Key, data); err != nil {
		return fmt.Errorf("save basket: %w", err)
	}
	return nil
}
