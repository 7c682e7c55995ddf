// Package pricing is the PricingClient. It is stateless; callers guard
// against concurrent quotes themselves.
package pricing

import (
	"context"
	"log/slog"

	"github.com/utafrali/EcommerceGo/storefront/internal/api"
	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
	"github.com/utafrali/EcommerceGo/storefront/pkg/tracing"
)

// Backend is the pricing endpoint.
type Backend interface {
	OrderPricing(ctx context.Context, req api.PricingRequest) (api.PricingResponse, error)
}

// Client prices baskets.
type Client struct {
	backend Backend
	logger  *slog.Logger
}

// New creates a Client.
func New(backend Backend, logger *slog.Logger) *Client {
	return &Client{backend: backend, logger: logger}
}

// Price asks the backend to price basket with the given delivery context.
// Backend rejections are returned as-is so their message reaches the user.
func (c *Client) Price(ctx context.Context, basket domain.Basket, addr domain.Address, method domain.DeliveryMethod) (_ domain.PricedOrder, err error) {
	ctx, span := tracing.Tracer("storefront/pricing").Start(ctx, "pricing.Price")
	defer func() { tracing.End(span, err) }()

	if basket.Empty() || basket.ID == "" {
		return domain.PricedOrder{}, apperrors.InvalidInput("basket is empty")
	}
	if !method.Valid() {
		return domain.PricedOrder{}, apperrors.InvalidInput("delivery method must be delivery or pickup")
	}

	req := api.PricingRequest{CartID: basket.ID}
	if method == domain.DeliveryMethodDelivery {
		req.DeliveryAddress = &addr
	}

	resp, err := c.backend.OrderPricing(ctx, req)
	if err != nil {
		c.logger.WarnContext(ctx, "order pricing failed",
			slog.String("cart_id", basket.ID),
			slog.String("error", err.Error()),
		)
		return domain.PricedOrder{}, err
	}

	subtotal := resp.Subtotal
	if subtotal.IsZero() {
		subtotal = basket.TotalPrice()
	}
	total := resp.Total
	if total.IsZero() {
		total = subtotal.Add(resp.DeliveryFee).Add(resp.ServiceCharge).Add(resp.Tips)
	}

	return domain.PricedOrder{
		Basket:        basket.Clone(),
		Address:       addr,
		Method:        method,
		DeliveryFee:   resp.DeliveryFee,
		ServiceCharge: resp.ServiceCharge,
		Tips:          resp.Tips,
		Subtotal:      subtotal,
		Total:         total,
	}, nil
}
