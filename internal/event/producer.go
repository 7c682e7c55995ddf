// Package event publishes storefront domain events to Kafka.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/payment"
	"github.com/utafrali/EcommerceGo/storefront/internal/session"
	pkgkafka "github.com/utafrali/EcommerceGo/storefront/pkg/kafka"
	"github.com/utafrali/EcommerceGo/storefront/pkg/logger"
)

// Kafka topic constants for storefront events.
const (
	TopicSessionAuthenticated = "storefront.session.authenticated"
	TopicSessionLoggedOut     = "storefront.session.logged_out"
	TopicCheckoutSucceeded    = "storefront.checkout.succeeded"
	TopicCheckoutCancelled    = "storefront.checkout.cancelled"
	TopicCheckoutFailed       = "storefront.checkout.failed"
)

// Aggregate type constants.
const (
	AggregateTypeSession  = "session"
	AggregateTypeCheckout = "checkout"
)

// SourceStorefront identifies events from this agent.
const SourceStorefront = "storefront-agent"

// Publisher is satisfied by *pkgkafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// SessionData is the payload of session events.
type SessionData struct {
	Kind domain.Kind `json:"kind"`
}

// CheckoutData is the payload of checkout events.
type CheckoutData struct {
	AttemptID string       `json:"attempt_id"`
	OrderID   string       `json:"order_id,omitempty"`
	CartID    string       `json:"cart_id"`
	VendorID  string       `json:"vendor_id"`
	ItemCount int          `json:"item_count"`
	Total     domain.Money `json:"total"`
	Reason    string       `json:"reason,omitempty"`
	Finalized bool         `json:"finalized"`
}

// Producer publishes storefront events. A Producer without a publisher
// drops every event, which is how the agent runs when Kafka is not
// configured.
type Producer struct {
	pub    Publisher
	logger *slog.Logger
}

// NewProducer creates a producer. pub may be nil.
func NewProducer(pub Publisher, logger *slog.Logger) *Producer {
	return &Producer{pub: pub, logger: logger}
}

// Enabled reports whether events are actually sent.
func (p *Producer) Enabled() bool {
	return p.pub != nil
}

// PublishSession publishes a session event.
func (p *Producer) PublishSession(ctx context.Context, ev session.Event) error {
	var topic string
	switch ev.Type {
	case session.EventAuthenticated:
		topic = TopicSessionAuthenticated
	case session.EventLoggedOut:
		topic = TopicSessionLoggedOut
	default:
		return nil
	}
	return p.publish(ctx, topic, string(ev.Kind), AggregateTypeSession, SessionData{Kind: ev.Kind})
}

// SessionListener adapts PublishSession to session.Coordinator.Subscribe.
// Publish failures are logged by the Kafka producer and otherwise ignored.
func (p *Producer) SessionListener(ctx context.Context) func(session.Event) {
	return func(ev session.Event) {
		_ = p.PublishSession(ctx, ev)
	}
}

// PublishCheckout publishes the terminal outcome of a checkout.
func (p *Producer) PublishCheckout(ctx context.Context, res payment.Result, priced domain.PricedOrder) error {
	var topic string
	switch res.Outcome {
	case domain.OutcomeSucceeded:
		topic = TopicCheckoutSucceeded
	case domain.OutcomeCancelled:
		topic = TopicCheckoutCancelled
	case domain.OutcomeFailed:
		topic = TopicCheckoutFailed
	default:
		return fmt.Errorf("unknown checkout outcome %q", res.Outcome)
	}

	data := CheckoutData{
		AttemptID: res.AttemptID,
		OrderID:   res.OrderID,
		CartID:    priced.Basket.ID,
		VendorID:  priced.Basket.VendorID,
		ItemCount: priced.Basket.TotalItems(),
		Total:     priced.Total,
		Reason:    res.Reason,
		Finalized: res.Outcome == domain.OutcomeSucceeded && res.FinalizeErr == nil,
	}
	return p.publish(ctx, topic, res.AttemptID, AggregateTypeCheckout, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	if p.pub == nil {
		return nil
	}

	ev, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	ev.WithCorrelationID(logger.CorrelationIDFromContext(ctx)).
		WithMetadata("attempt_id", logger.AttemptIDFromContext(ctx))

	if err := p.pub.Publish(ctx, topic, ev); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}
