package domain

import (
	"slices"

	"github.com/shopspring/decimal"

	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
)

// VendorDetails describes the vendor a basket is scoped to.
type VendorDetails struct {
	ID          string `json:"_id" validate:"required"`
	Name        string `json:"name,omitempty"`
	Image       string `json:"image,omitempty"`
	Address     string `json:"address,omitempty"`
	DeliveryFee *Money `json:"deliveryFee,omitempty"`
}

// LineItem is one product in the basket.
type LineItem struct {
	ProductID string `json:"productId" validate:"required"`
	VendorID  string `json:"vendorId" validate:"required"`
	Title     string `json:"title" validate:"required"`
	UnitPrice Money  `json:"unitPrice"`
	Image     string `json:"image,omitempty"`
	Quantity  int    `json:"quantity" validate:"gte=0"`
}

// Subtotal returns UnitPrice × Quantity.
func (li LineItem) Subtotal() Money {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Basket holds the line items of a single vendor. An empty basket has no
// vendor and no ID.
type Basket struct {
	ID       string         `json:"id,omitempty"`
	VendorID string         `json:"vendorId,omitempty"`
	Vendor   *VendorDetails `json:"vendorDetails"`
	Items    []LineItem     `json:"items"`
}

// Empty reports whether the basket has no items.
func (b Basket) Empty() bool {
	return len(b.Items) == 0
}

// TotalItems is Σ quantity.
func (b Basket) TotalItems() int {
	var n int
	for _, item := range b.Items {
		n += item.Quantity
	}
	return n
}

// TotalPrice is Σ quantity × unitPrice.
func (b Basket) TotalPrice() Money {
	total := decimal.Zero
	for _, item := range b.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// FindItem returns the index of productID, or -1.
func (b Basket) FindItem(productID string) int {
	return slices.IndexFunc(b.Items, func(li LineItem) bool { return li.ProductID == productID })
}

// Clone returns a deep copy so callers cannot alias the stored snapshot.
func (b Basket) Clone() Basket {
	out := b
	out.Items = slices.Clone(b.Items)
	if out.Items == nil {
		out.Items = []LineItem{}
	}
	if b.Vendor != nil {
		v := *b.Vendor
		out.Vendor = &v
	}
	return out
}

// WithItem returns the basket after adding one unit of item. An empty basket
// adopts the item's vendor; a non-empty basket only accepts items of its own
// vendor and returns a CrossVendor error otherwise. A matching product has its
// quantity incremented by one, a new one is appended at quantity 1. The
// quantity carried by item is ignored.
func (b Basket) WithItem(item LineItem, vendor *VendorDetails) (Basket, error) {
	next := b.Clone()
	item.Quantity = 1

	if next.Empty() {
		details, err := vendorFor(item.VendorID, vendor)
		if err != nil {
			return b, err
		}
		next.VendorID = item.VendorID
		next.Vendor = details
		next.Items = []LineItem{item}
		return next, nil
	}

	if item.VendorID != next.VendorID {
		return b, apperrors.CrossVendor(next.VendorID, item.VendorID)
	}

	if idx := next.FindItem(item.ProductID); idx >= 0 {
		next.Items[idx].Quantity++
		return next, nil
	}
	next.Items = append(next.Items, item)
	return next, nil
}

// WithQuantity returns the basket with productID set to qty. qty ≤ 0 removes
// the item. Unknown products leave the basket unchanged.
func (b Basket) WithQuantity(productID string, qty int) Basket {
	if qty <= 0 {
		return b.Without(productID)
	}
	idx := b.FindItem(productID)
	if idx < 0 {
		return b.Clone()
	}
	next := b.Clone()
	next.Items[idx].Quantity = qty
	return next
}

// Without returns the basket with productID removed, dropping the vendor when
// the last item goes.
func (b Basket) Without(productID string) Basket {
	next := b.Clone()
	next.Items = slices.DeleteFunc(next.Items, func(li LineItem) bool { return li.ProductID == productID })
	if next.Empty() {
		return EmptyBasket()
	}
	return next
}

// EmptyBasket returns a basket with no vendor and no items.
func EmptyBasket() Basket {
	return Basket{Items: []LineItem{}}
}

// vendorFor returns a copy of vendor scoped to vendorID. Details describing
// another vendor are rejected.
func vendorFor(vendorID string, vendor *VendorDetails) (*VendorDetails, error) {
	if vendor == nil {
		return &VendorDetails{ID: vendorID}, nil
	}
	v := *vendor
	switch v.ID {
	case "":
		v.ID = vendorID
	case vendorID:
	default:
		return nil, apperrors.InvalidInput("vendorDetails belong to vendor " + v.ID + ", not " + vendorID)
	}
	return &v, nil
}
