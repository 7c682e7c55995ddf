// Package checkout ties the basket, pricing, payment and alerts together
// into the quote and pay flows the UI drives.
package checkout

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/utafrali/EcommerceGo/storefront/internal/alert"
	"github.com/utafrali/EcommerceGo/storefront/internal/basket"
	"github.com/utafrali/EcommerceGo/storefront/internal/delivery"
	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/event"
	"github.com/utafrali/EcommerceGo/storefront/internal/payment"
	"github.com/utafrali/EcommerceGo/storefront/internal/pricing"
	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
	"github.com/utafrali/EcommerceGo/storefront/pkg/validator"
)

// PayOptions are the choices made on the payment screen.
type PayOptions struct {
	Tips         domain.Money `json:"tips"`
	Period       string       `json:"deliveryPeriod,omitempty" validate:"max=64"`
	Instructions string       `json:"instructions,omitempty" validate:"max=500"`
}

// Service runs checkout.
type Service struct {
	basket   *basket.Aggregator
	delivery *delivery.Store
	pricing  *pricing.Client
	payments *payment.Orchestrator
	alerts   *alert.Channel
	events   *event.Producer
	logger   *slog.Logger
	now      func() time.Time

	mu    sync.Mutex
	quote *domain.PricedOrder
}

// NewService creates a checkout Service.
func NewService(
	b *basket.Aggregator,
	d *delivery.Store,
	p *pricing.Client,
	o *payment.Orchestrator,
	alerts *alert.Channel,
	events *event.Producer,
	logger *slog.Logger,
) *Service {
	return &Service{
		basket:   b,
		delivery: d,
		pricing:  p,
		payments: o,
		alerts:   alerts,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

// Quote prices the current basket for the saved delivery selection. When sel
// is non-nil it is saved first. The quote is kept for Pay.
func (s *Service) Quote(ctx context.Context, sel *delivery.Selection) (domain.PricedOrder, error) {
	if sel != nil {
		if err := s.delivery.Set(ctx, *sel); err != nil {
			return domain.PricedOrder{}, err
		}
	}

	current, err := s.delivery.Get(ctx)
	if errors.Is(err, apperrors.ErrNotFound) {
		return domain.PricedOrder{}, apperrors.InvalidInput("choose a delivery method first")
	}
	if err != nil {
		return domain.PricedOrder{}, err
	}

	b, err := s.basket.Basket(ctx)
	if err != nil {
		return domain.PricedOrder{}, err
	}

	var addr domain.Address
	if current.Address != nil {
		addr = *current.Address
	}
	priced, err := s.pricing.Price(ctx, b, addr, current.Method)
	if err != nil {
		return domain.PricedOrder{}, err
	}

	s.mu.Lock()
	s.quote = &priced
	s.mu.Unlock()
	return priced, nil
}

// Pay runs the payment for the last quote. The basket must not have changed
// since it was priced, and a quote pays at most once: after any outcome a new
// Quote is needed. A cancelled payment raises no alert.
func (s *Service) Pay(ctx context.Context, opts PayOptions) (payment.Result, error) {
	if err := validator.Validate(opts); err != nil {
		return payment.Result{}, err
	}

	s.mu.Lock()
	quote := s.quote
	s.mu.Unlock()
	if quote == nil {
		return payment.Result{}, apperrors.Conflict("price the basket before paying")
	}

	b, err := s.basket.Basket(ctx)
	if err != nil {
		return payment.Result{}, err
	}
	if !sameBasket(b, quote.Basket) {
		s.dropQuote(quote)
		return payment.Result{}, apperrors.Conflict("the basket changed since it was priced, please review the order again")
	}

	period, instructions := opts.Period, opts.Instructions
	if sel, err := s.delivery.Get(ctx); err == nil {
		if period == "" {
			period = sel.Period
		}
		if instructions == "" {
			instructions = sel.Instructions
		}
	}

	priced := quote.WithTips(opts.Tips)
	details := domain.NewOrderDetails(priced, period, instructions, s.now())

	res, err := s.payments.Run(ctx, details)
	if errors.Is(err, payment.ErrRunInFlight) {
		return payment.Result{}, apperrors.Conflict("a payment is already in progress")
	}
	if err != nil {
		return payment.Result{}, err
	}
	// The attempt consumed the quote whatever its outcome; a retry prices again.
	s.dropQuote(quote)

	switch res.Outcome {
	case domain.OutcomeSucceeded:
		if err := s.basket.Clear(ctx); err != nil {
			s.logger.ErrorContext(ctx, "failed to clear basket after payment",
				slog.String("attempt_id", res.AttemptID),
				slog.String("error", err.Error()),
			)
		}
		s.alerts.Raise(ctx, alert.LevelInfo, "Order placed", "Your payment was successful and your order has been placed.")
		if res.FinalizeErr != nil {
			s.alerts.Raise(ctx, alert.LevelWarning, "Order confirmation pending",
				"Your payment went through but we could not confirm the order yet. "+apperrors.UserMessage(res.FinalizeErr))
		}
	case domain.OutcomeFailed:
		s.alerts.Raise(ctx, alert.LevelError, "Payment failed", res.Reason)
	case domain.OutcomeCancelled:
		s.logger.InfoContext(ctx, "checkout cancelled", slog.String("attempt_id", res.AttemptID))
	}

	if err := s.events.PublishCheckout(ctx, res, priced); err != nil {
		s.logger.WarnContext(ctx, "failed to publish checkout event",
			slog.String("attempt_id", res.AttemptID),
			slog.String("error", err.Error()),
		)
	}
	return res, nil
}

// Reset forgets the cached quote on logout.
func (s *Service) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quote = nil
	return nil
}

func (s *Service) dropQuote(q *domain.PricedOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quote == q {
		s.quote = nil
	}
}

func sameBasket(a, b domain.Basket) bool {
	if a.ID != b.ID || len(a.Items) != len(b.Items) {
		return false
	}
	for i := range a.Items {
		x, y := a.Items[i], b.Items[i]
		if x.ProductID != y.ProductID || x.Quantity != y.Quantity || !x.UnitPrice.Equal(y.UnitPrice) {
			return false
		}
	}
	return true
}
