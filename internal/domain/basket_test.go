package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
)

func item(productID, vendorID string, price string) LineItem {
	return LineItem{
		ProductID: productID,
		VendorID:  vendorID,
		Title:     "Item " + productID,
		UnitPrice: decimal.RequireFromString(price),
		Quantity:  1,
	}
}

// ============================================================================
// Totals
// ============================================================================

func TestBasket_TotalsEmpty(t *testing.T) {
	b := EmptyBasket()
	assert.Equal(t, 0, b.TotalItems())
	assert.True(t, b.TotalPrice().IsZero())
}

func TestBasket_TotalPriceIsSumOfSubtotals(t *testing.T) {
	b := Basket{Items: []LineItem{
		{UnitPrice: decimal.RequireFromString("2.50"), Quantity: 3},
		{UnitPrice: decimal.RequireFromString("0.10"), Quantity: 3},
	}}
	assert.Equal(t, 6, b.TotalItems())
	assert.True(t, decimal.RequireFromString("7.80").Equal(b.TotalPrice()), b.TotalPrice().String())
}

// ============================================================================
// WithItem
// ============================================================================

func TestWithItem_EmptyBasketAdoptsVendor(t *testing.T) {
	vendor := &VendorDetails{ID: "v1", Name: "Corner Bakery"}
	b, err := EmptyBasket().WithItem(item("p1", "v1", "5"), vendor)
	require.NoError(t, err)

	assert.Equal(t, "v1", b.VendorID)
	require.NotNil(t, b.Vendor)
	assert.Equal(t, "Corner Bakery", b.Vendor.Name)
	assert.NotSame(t, vendor, b.Vendor)
	require.Len(t, b.Items, 1)
	assert.Equal(t, 1, b.Items[0].Quantity)
}

func TestWithItem_NilVendorDetailsSynthesized(t *testing.T) {
	b, err := EmptyBasket().WithItem(item("p1", "v1", "5"), nil)
	require.NoError(t, err)
	require.NotNil(t, b.Vendor)
	assert.Equal(t, "v1", b.Vendor.ID)
}

func TestWithItem_SameProductTwice(t *testing.T) {
	b, err := EmptyBasket().WithItem(item("p1", "v1", "5"), nil)
	require.NoError(t, err)
	b, err = b.WithItem(item("p1", "v1", "5"), nil)
	require.NoError(t, err)

	require.Len(t, b.Items, 1)
	assert.Equal(t, 2, b.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(10).Equal(b.TotalPrice()))
}

func TestWithItem_SecondProductAppends(t *testing.T) {
	b, _ := EmptyBasket().WithItem(item("p1", "v1", "5"), nil)
	b, err := b.WithItem(item("p2", "v1", "3"), nil)
	require.NoError(t, err)

	require.Len(t, b.Items, 2)
	assert.Equal(t, "p2", b.Items[1].ProductID)
	assert.True(t, decimal.NewFromInt(8).Equal(b.TotalPrice()))
}

func TestWithItem_CrossVendorRejected(t *testing.T) {
	b, _ := EmptyBasket().WithItem(item("p1", "v1", "5"), nil)
	after, err := b.WithItem(item("p9", "v2", "1"), nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrCrossVendor))
	assert.Equal(t, b, after)
	for _, li := range after.Items {
		assert.Equal(t, "v1", li.VendorID)
	}
}

func TestWithItem_AddsOneUnitWhateverTheItemQuantity(t *testing.T) {
	for _, qty := range []int{0, 1, 3} {
		in := item("p1", "v1", "5")
		in.Quantity = qty

		b, err := EmptyBasket().WithItem(in, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, b.Items[0].Quantity, "insert with quantity %d", qty)

		b, err = b.WithItem(in, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, b.Items[0].Quantity, "increment with quantity %d", qty)
	}
}

func TestWithItem_VendorDetailsOfAnotherVendorRejected(t *testing.T) {
	b, err := EmptyBasket().WithItem(item("p1", "v1", "5"), &VendorDetails{ID: "v2", Name: "Other"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.True(t, b.Empty())
	assert.Nil(t, b.Vendor)
}

func TestWithItem_DoesNotMutateReceiver(t *testing.T) {
	b, _ := EmptyBasket().WithItem(item("p1", "v1", "5"), nil)
	_, err := b.WithItem(item("p1", "v1", "5"), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Items[0].Quantity)
}

// ============================================================================
// WithQuantity / Without
// ============================================================================

func TestWithQuantity_Sets(t *testing.T) {
	b, _ := EmptyBasket().WithItem(item("p1", "v1", "5"), nil)
	b = b.WithQuantity("p1", 4)
	assert.Equal(t, 4, b.TotalItems())
}

func TestWithQuantity_ZeroRemovesLastItemAndVendor(t *testing.T) {
	b, _ := EmptyBasket().WithItem(item("p1", "v1", "5"), nil)
	b.ID = "cart-1"

	b = b.WithQuantity("p1", 0)
	assert.Equal(t, -1, b.FindItem("p1"))
	assert.Nil(t, b.Vendor)
	assert.Empty(t, b.VendorID)
	assert.Empty(t, b.ID)
}

func TestWithQuantity_NegativeRemovesButKeepsVendorWhenItemsRemain(t *testing.T) {
	b, _ := EmptyBasket().WithItem(item("p1", "v1", "5"), nil)
	b, _ = b.WithItem(item("p2", "v1", "5"), nil)

	b = b.WithQuantity("p1", -3)
	assert.Equal(t, -1, b.FindItem("p1"))
	require.NotNil(t, b.Vendor)
	assert.Equal(t, "v1", b.VendorID)
}

func TestWithQuantity_UnknownProductNoop(t *testing.T) {
	b, _ := EmptyBasket().WithItem(item("p1", "v1", "5"), nil)
	assert.Equal(t, b, b.WithQuantity("nope", 7))
}

func TestWithout_Symmetric(t *testing.T) {
	b, _ := EmptyBasket().WithItem(item("p1", "v1", "5"), nil)
	assert.Equal(t, b.WithQuantity("p1", 0), b.Without("p1"))
}

// ============================================================================
// JSON
// ============================================================================

func TestBasket_JSONPricesAsNumbers(t *testing.T) {
	b, _ := EmptyBasket().WithItem(item("p1", "v1", "2.5"), nil)
	raw, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"unitPrice":2.5`)
	assert.Contains(t, string(raw), `"vendorDetails":{"_id":"v1"}`)
}

func TestEmptyBasket_JSONHasNullVendor(t *testing.T) {
	raw, err := json.Marshal(EmptyBasket())
	require.NoError(t, err)
	assert.JSONEq(t, `{"vendorDetails":null,"items":[]}`, string(raw))
}
