package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// DeliveryMethod is how the order reaches the customer.
type DeliveryMethod string

const (
	DeliveryMethodDelivery DeliveryMethod = "delivery"
	DeliveryMethodPickup   DeliveryMethod = "pickup"
)

// Valid reports whether m is a known method.
func (m DeliveryMethod) Valid() bool {
	return m == DeliveryMethodDelivery || m == DeliveryMethodPickup
}

// Address is a delivery address as the backend expects it.
type Address struct {
	Label      string   `json:"label,omitempty"`
	Street     string   `json:"street" validate:"required"`
	Apartment  string   `json:"apartment,omitempty"`
	City       string   `json:"city" validate:"required"`
	PostalCode string   `json:"postalCode,omitempty"`
	Country    string   `json:"country,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
}

// PricedOrder is a basket combined with delivery context and backend totals.
// It is a value: copies never share state with the basket it was priced from.
type PricedOrder struct {
	Basket        Basket         `json:"basketSnapshot"`
	Address       Address        `json:"deliveryAddress"`
	Method        DeliveryMethod `json:"deliveryMethod"`
	DeliveryFee   Money          `json:"deliveryFee"`
	ServiceCharge Money          `json:"serviceCharge"`
	Tips          Money          `json:"tips"`
	Subtotal      Money          `json:"subtotal"`
	Total         Money          `json:"total"`
}

// WithTips returns a copy with tips replaced and the total adjusted.
func (p PricedOrder) WithTips(tips Money) PricedOrder {
	if tips.IsNegative() {
		tips = decimal.Zero
	}
	out := p
	out.Basket = p.Basket.Clone()
	out.Total = p.Total.Sub(p.Tips).Add(tips)
	out.Tips = tips
	return out
}

// OrderDetails is the placeOrder payload.
type OrderDetails struct {
	CartID          string         `json:"cartId"`
	DeliveryMethod  DeliveryMethod `json:"deliveryMethod"`
	DeliveryPeriod  string         `json:"deliveryPeriod,omitempty"`
	DeliveryFee     Money          `json:"deliveryFee"`
	DeliveryAddress *Address       `json:"deliveryAddress,omitempty"`
	Tips            Money          `json:"tips"`
	Instructions    string         `json:"instructions,omitempty"`
	Date            time.Time      `json:"date"`
}

// NewOrderDetails builds the placeOrder payload for a priced order.
func NewOrderDetails(p PricedOrder, period, instructions string, date time.Time) OrderDetails {
	od := OrderDetails{
		CartID:         p.Basket.ID,
		DeliveryMethod: p.Method,
		DeliveryPeriod: period,
		DeliveryFee:    p.DeliveryFee,
		Tips:           p.Tips,
		Instructions:   instructions,
		Date:           date.UTC(),
	}
	if p.Method == DeliveryMethodDelivery {
		addr := p.Address
		od.DeliveryAddress = &addr
	}
	return od
}

// Validate checks the payload before anything is sent.
func (o OrderDetails) Validate() error {
	if o.CartID == "" {
		return errors.New("cart id is required")
	}
	if !o.DeliveryMethod.Valid() {
		return errors.New("delivery method must be delivery or pickup")
	}
	if o.DeliveryMethod == DeliveryMethodDelivery && o.DeliveryAddress == nil {
		return errors.New("delivery address is required for delivery")
	}
	if o.Tips.IsNegative() || o.DeliveryFee.IsNegative() {
		return errors.New("amounts must not be negative")
	}
	return nil
}
