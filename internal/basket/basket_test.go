package basket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/store"
	"github.com/utafrali/EcommerceGo/storefront/internal/store/memory"
	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
	"github.com/utafrali/EcommerceGo/storefront/pkg/validator"
)

func newTestAggregator(t *testing.T) (*Aggregator, *memory.Store) {
	t.Helper()
	kv := memory.New()
	a := New(kv, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ids := 0
	a.newID = func() string {
		ids++
		return fmt.Sprintf("basket-%d", ids)
	}
	return a, kv
}

func lineItem(productID, vendorID, price string) domain.LineItem {
	return domain.LineItem{
		ProductID: productID,
		VendorID:  vendorID,
		Title:     "Product " + productID,
		UnitPrice: decimal.RequireFromString(price),
		Quantity:  1,
	}
}

func TestAddItem_SameProductTwice(t *testing.T) {
	a, _ := newTestAggregator(t)
	ctx := context.Background()
	vendor := &domain.VendorDetails{ID: "v1", Name: "Bakery"}

	_, err := a.AddItem(ctx, lineItem("p1", "v1", "5"), vendor)
	require.NoError(t, err)
	b, err := a.AddItem(ctx, lineItem("p1", "v1", "5"), vendor)
	require.NoError(t, err)

	require.Len(t, b.Items, 1)
	assert.Equal(t, 2, b.Items[0].Quantity)
	assert.True(t, b.TotalPrice().Equal(decimal.NewFromInt(10)))

	total, err := a.TotalPrice(ctx)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(10)))
	n, err := a.TotalItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestAddItem_InsertsOneUnitIgnoringItemQuantity(t *testing.T) {
	a, _ := newTestAggregator(t)
	ctx := context.Background()

	in := lineItem("p1", "v1", "5")
	in.Quantity = 3
	b, err := a.AddItem(ctx, in, nil)
	require.NoError(t, err)
	require.Len(t, b.Items, 1)
	assert.Equal(t, 1, b.Items[0].Quantity)

	b, err = a.AddItem(ctx, in, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, b.Items[0].Quantity)
}

func TestAddItem_MismatchedVendorDetailsRejected(t *testing.T) {
	a, _ := newTestAggregator(t)
	ctx := context.Background()

	_, err := a.AddItem(ctx, lineItem("p1", "v1", "5"), &domain.VendorDetails{ID: "v2"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	b, err := a.Basket(ctx)
	require.NoError(t, err)
	assert.True(t, b.Empty())
}

func TestAddItem_EmptyBasketAdoptsVendorAndID(t *testing.T) {
	a, _ := newTestAggregator(t)
	ctx := context.Background()

	b, err := a.AddItem(ctx, lineItem("p1", "v1", "5"), &domain.VendorDetails{ID: "v1", Name: "Bakery"})
	require.NoError(t, err)

	assert.Equal(t, "basket-1", b.ID)
	assert.Equal(t, "v1", b.VendorID)
	require.NotNil(t, b.Vendor)
	assert.Equal(t, "Bakery", b.Vendor.Name)

	b, err = a.AddItem(ctx, lineItem("p2", "v1", "3"), nil)
	require.NoError(t, err)
	assert.Equal(t, "basket-1", b.ID, "a non-empty basket keeps its id")
	assert.Len(t, b.Items, 2)
}

func TestAddItem_CrossVendorRejected(t *testing.T) {
	a, _ := newTestAggregator(t)
	ctx := context.Background()

	_, err := a.AddItem(ctx, lineItem("p1", "v1", "5"), nil)
	require.NoError(t, err)

	b, err := a.AddItem(ctx, lineItem("p9", "v2", "7"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrCrossVendor))
	assert.Equal(t, "v1", b.VendorID)

	stored, err := a.Basket(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v1", stored.VendorID)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "p1", stored.Items[0].ProductID)
}

func TestAddItem_Invalid(t *testing.T) {
	a, _ := newTestAggregator(t)
	ctx := context.Background()

	_, err := a.AddItem(ctx, domain.LineItem{VendorID: "v1", Title: "x"}, nil)
	var ve *validator.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields(), "productId")

	_, err = a.AddItem(ctx, lineItem("p1", "v1", "-1"), nil)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestReplaceBasket(t *testing.T) {
	a, _ := newTestAggregator(t)
	ctx := context.Background()

	_, err := a.AddItem(ctx, lineItem("p1", "v1", "5"), nil)
	require.NoError(t, err)
	_, err = a.AddItem(ctx, lineItem("p2", "v1", "5"), nil)
	require.NoError(t, err)

	b, err := a.ReplaceBasket(ctx, lineItem("p9", "v2", "7"), &domain.VendorDetails{Name: "Florist"})
	require.NoError(t, err)

	assert.Equal(t, "basket-2", b.ID)
	assert.Equal(t, "v2", b.VendorID)
	assert.Equal(t, "v2", b.Vendor.ID)
	require.Len(t, b.Items, 1)
	assert.Equal(t, "p9", b.Items[0].ProductID)
}

func TestUpdateQuantity_ZeroRemovesLastItem(t *testing.T) {
	a, kv := newTestAggregator(t)
	ctx := context.Background()

	_, err := a.AddItem(ctx, lineItem("p1", "v1", "5"), &domain.VendorDetails{ID: "v1"})
	require.NoError(t, err)

	b, err := a.UpdateQuantity(ctx, "p1", 0)
	require.NoError(t, err)
	assert.True(t, b.Empty())
	assert.Nil(t, b.Vendor)
	assert.Empty(t, b.VendorID)

	_, err = kv.Get(ctx, Key)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateQuantity_Sets(t *testing.T) {
	a, _ := newTestAggregator(t)
	ctx := context.Background()

	_, err := a.AddItem(ctx, lineItem("p1", "v1", "2.50"), nil)
	require.NoError(t, err)
	b, err := a.UpdateQuantity(ctx, "p1", 4)
	require.NoError(t, err)
	assert.True(t, b.TotalPrice().Equal(decimal.NewFromInt(10)))

	_, err = a.UpdateQuantity(ctx, "", 4)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestRemoveItem(t *testing.T) {
	a, _ := newTestAggregator(t)
	ctx := context.Background()

	_, err := a.AddItem(ctx, lineItem("p1", "v1", "5"), nil)
	require.NoError(t, err)
	_, err = a.AddItem(ctx, lineItem("p2", "v1", "3"), nil)
	require.NoError(t, err)

	b, err := a.RemoveItem(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, b.Items, 1)
	assert.Equal(t, "v1", b.VendorID)

	b, err = a.RemoveItem(ctx, "p2")
	require.NoError(t, err)
	assert.Nil(t, b.Vendor)
}

func TestClearAndReset(t *testing.T) {
	a, _ := newTestAggregator(t)
	ctx := context.Background()

	_, err := a.AddItem(ctx, lineItem("p1", "v1", "5"), nil)
	require.NoError(t, err)
	require.NoError(t, a.Reset(ctx))

	b, err := a.Basket(ctx)
	require.NoError(t, err)
	assert.True(t, b.Empty())
	assert.Nil(t, b.Vendor)

	require.NoError(t, a.Clear(ctx), "clearing an empty basket is fine")
}

func TestStart_FirstLaunchDiscardsBasket(t *testing.T) {
	a, kv := newTestAggregator(t)
	ctx := context.Background()

	stale, err := json.Marshal(domain.Basket{VendorID: "v1", Items: []domain.LineItem{lineItem("p1", "v1", "5")}})
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, Key, stale))

	require.NoError(t, a.Start(ctx))
	b, err := a.Basket(ctx)
	require.NoError(t, err)
	assert.True(t, b.Empty())

	_, err = kv.Get(ctx, FirstLaunchKey)
	require.NoError(t, err)
}

func TestStart_LaterLaunchKeepsBasket(t *testing.T) {
	a, _ := newTestAggregator(t)
	ctx := context.Background()
	require.NoError(t, a.Start(ctx))

	_, err := a.AddItem(ctx, lineItem("p1", "v1", "5"), nil)
	require.NoError(t, err)

	require.NoError(t, a.Start(ctx))
	b, err := a.Basket(ctx)
	require.NoError(t, err)
	assert.Len(t, b.Items, 1)
}

func TestBasket_CorruptRecordReadsAsEmpty(t *testing.T) {
	a, kv := newTestAggregator(t)
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, Key, []byte("{not json")))

	b, err := a.Basket(ctx)
	require.NoError(t, err)
	assert.True(t, b.Empty())
}

func TestBasket_ReturnedSnapshotIsACopy(t *testing.T) {
	a, _ := newTestAggregator(t)
	ctx := context.Background()

	b, err := a.AddItem(ctx, lineItem("p1", "v1", "5"), nil)
	require.NoError(t, err)
	b.Items[0].Quantity = 99

	stored, err := a.Basket(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Items[0].Quantity)
}

func TestConcurrentUpdatesAreNotLost(t *testing.T) {
	a, _ := newTestAggregator(t)
	ctx := context.Background()

	const adds = 50
	var wg sync.WaitGroup
	for range adds {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := a.AddItem(ctx, lineItem("p1", "v1", "1"), nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := a.TotalItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, adds, n)
}

func TestTotalPrice_MatchesFoldAfterMixedOperations(t *testing.T) {
	a, _ := newTestAggregator(t)
	ctx := context.Background()

	_, err := a.AddItem(ctx, lineItem("p1", "v1", "1.25"), nil)
	require.NoError(t, err)
	_, err = a.AddItem(ctx, lineItem("p2", "v1", "3.10"), nil)
	require.NoError(t, err)
	_, err = a.AddItem(ctx, lineItem("p1", "v1", "1.25"), nil)
	require.NoError(t, err)
	_, err = a.UpdateQuantity(ctx, "p2", 3)
	require.NoError(t, err)
	_, err = a.AddItem(ctx, lineItem("p3", "v1", "0.99"), nil)
	require.NoError(t, err)
	b, err := a.RemoveItem(ctx, "p3")
	require.NoError(t, err)

	want := decimal.Zero
	for _, it := range b.Items {
		want = want.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	got, err := a.TotalPrice(ctx)
	require.NoError(t, err)
	assert.True(t, got.Equal(want))
	assert.True(t, got.Equal(decimal.RequireFromString("11.80")))
}
