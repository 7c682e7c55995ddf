// Package payment drives one checkout attempt through place order, payment
// sheet and order confirmation as an explicit state machine.
package payment

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/EcommerceGo/storefront/internal/api"
	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
	"github.com/utafrali/EcommerceGo/storefront/pkg/logger"
	"github.com/utafrali/EcommerceGo/storefront/pkg/tracing"
)

// ErrRunInFlight is returned by Run while another attempt is in progress.
// Nothing is sent to the backend.
var ErrRunInFlight = errors.New("payment: attempt already in progress")

const invalidServerResponse = "invalid server response"

var (
	paymentOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_payment_attempts_total",
			Help: "Payment attempts by terminal outcome",
		},
		[]string{"outcome"},
	)

	paymentStepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_payment_step_duration_seconds",
			Help:    "Duration of each payment step",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"step"},
	)

	paymentRejectedRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_payment_rejected_runs_total",
		Help: "Run calls ignored because an attempt was already in flight",
	})

	paymentFinalizeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_payment_finalize_errors_total",
		Help: "Successful payments whose postOrder call failed",
	})
)

// Backend is the order side of the backend.
type Backend interface {
	PlaceOrder(ctx context.Context, details domain.OrderDetails) (api.PlaceOrderResponse, error)
	PostOrder(ctx context.Context, orderID string) error
}

// Platform selects the wallet offered in the sheet.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// Options configure the sheet for every attempt.
type Options struct {
	MerchantDisplayName string
	Platform            Platform
	CountryCode         string
	CurrencyCode        string
	ReturnURL           string
	GooglePayTestEnv    bool
}

// Result is the terminal outcome of an attempt. Reason is the text to show
// the user; Err carries the classified error for Cancelled and Failed.
// FinalizeErr is set when the payment succeeded but postOrder did not.
type Result struct {
	AttemptID   string         `json:"attemptId"`
	OrderID     string         `json:"orderId,omitempty"`
	Outcome     domain.Outcome `json:"outcome"`
	Reason      string         `json:"reason,omitempty"`
	Err         error          `json:"-"`
	FinalizeErr error          `json:"-"`
}

// Transition is reported to observers on every state change.
type Transition struct {
	AttemptID string
	From      domain.PaymentState
	To        domain.PaymentState
	At        time.Time
}

// Orchestrator is the PaymentOrchestrator.
type Orchestrator struct {
	backend Backend
	sheet   Sheet
	opts    Options
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time
	newID   func() string

	mu        sync.Mutex
	attempt   *domain.PaymentAttempt
	observers []func(Transition)
}

// NewOrchestrator creates an idle orchestrator.
func NewOrchestrator(backend Backend, sheet Sheet, opts Options, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		backend: backend,
		sheet:   sheet,
		opts:    opts,
		logger:  logger,
		tracer:  tracing.Tracer("storefront/payment"),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Observe registers fn for every state transition. Register observers before
// the first Run.
func (o *Orchestrator) Observe(fn func(Transition)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, fn)
}

// State returns the current state; Idle between attempts.
func (o *Orchestrator) State() domain.PaymentState {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.attempt == nil {
		return domain.PaymentIdle
	}
	return o.attempt.State
}

// Attempt returns a copy of the attempt in flight, if any.
func (o *Orchestrator) Attempt() (domain.PaymentAttempt, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.attempt == nil {
		return domain.PaymentAttempt{}, false
	}
	return *o.attempt, true
}

// Run places the order and takes the user through the payment sheet. A call
// while an attempt is in flight returns ErrRunInFlight without side effects.
// Once placing has started the attempt runs to a terminal state even if ctx
// is cancelled; the only user cancellation is dismissing the sheet.
func (o *Orchestrator) Run(ctx context.Context, details domain.OrderDetails) (Result, error) {
	if err := details.Validate(); err != nil {
		return Result{}, apperrors.InvalidInput(err.Error())
	}

	o.mu.Lock()
	if o.attempt != nil {
		o.mu.Unlock()
		paymentRejectedRuns.Inc()
		return Result{}, ErrRunInFlight
	}
	attempt := &domain.PaymentAttempt{
		ID:        o.newID(),
		State:     domain.PaymentIdle,
		StartedAt: o.now().UTC(),
	}
	o.attempt = attempt
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.attempt = nil
		o.mu.Unlock()
	}()

	ctx = logger.WithAttemptID(context.WithoutCancel(ctx), attempt.ID)
	ctx, span := o.tracer.Start(ctx, "payment.Run", trace.WithAttributes(
		attribute.String("payment.attempt_id", attempt.ID),
		attribute.String("payment.cart_id", details.CartID),
	))

	res := o.run(ctx, attempt, details)

	span.SetAttributes(attribute.String("payment.outcome", string(res.Outcome)))
	tracing.End(span, res.Err)
	paymentOutcomes.WithLabelValues(string(res.Outcome)).Inc()
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, attempt *domain.PaymentAttempt, details domain.OrderDetails) Result {
	log := logger.WithContext(ctx, o.logger)
	res := Result{AttemptID: attempt.ID}

	// Idle → Placing
	o.transition(attempt, domain.PaymentPlacing)
	var placed api.PlaceOrderResponse
	err := o.step(ctx, "place_order", func(ctx context.Context) error {
		var err error
		placed, err = o.backend.PlaceOrder(ctx, details)
		return err
	})
	if err != nil {
		log.WarnContext(ctx, "place order failed", slog.String("error", err.Error()))
		return o.fail(attempt, res, apperrors.UserMessage(err), err)
	}
	if placed.Payment == "" {
		log.WarnContext(ctx, "place order response has no client secret")
		return o.fail(attempt, res, invalidServerResponse, apperrors.InvalidServerResponse(invalidServerResponse))
	}

	o.mu.Lock()
	attempt.OrderID = placed.OrderID
	attempt.ClientSecret = placed.Payment
	attempt.CustomerID = placed.CustomerID
	attempt.EphemeralKey = placed.EphemeralKey
	o.mu.Unlock()
	res.OrderID = placed.OrderID

	// Placing → SheetInitializing
	o.transition(attempt, domain.PaymentSheetInitializing)
	err = o.step(ctx, "init_sheet", func(ctx context.Context) error {
		return o.sheet.Init(ctx, o.sheetConfig(placed))
	})
	if err != nil {
		msg := providerMessage(err)
		log.WarnContext(ctx, "payment sheet init failed", slog.String("error", msg))
		return o.fail(attempt, res, msg, apperrors.PaymentFailed(msg))
	}

	// SheetInitializing → Presenting
	o.transition(attempt, domain.PaymentPresenting)
	err = o.step(ctx, "present_sheet", o.sheet.Present)
	switch {
	case err == nil:
	case IsCancellation(err):
		msg := providerMessage(err)
		o.transition(attempt, domain.PaymentCancelled)
		log.InfoContext(ctx, "payment cancelled by user")
		res.Outcome = domain.OutcomeCancelled
		res.Reason = msg
		res.Err = apperrors.PaymentCancelled(msg)
		return res
	default:
		msg := providerMessage(err)
		log.WarnContext(ctx, "payment sheet failed", slog.String("error", msg))
		return o.fail(attempt, res, msg, apperrors.PaymentFailed(msg))
	}

	o.transition(attempt, domain.PaymentSucceeded)
	res.Outcome = domain.OutcomeSucceeded

	// The payment is captured; finalization problems are reported, never
	// turned into a failed outcome.
	orderID := placed.OrderID
	if orderID == "" {
		orderID = details.CartID
	}
	if err := o.step(ctx, "post_order", func(ctx context.Context) error {
		return o.backend.PostOrder(ctx, orderID)
	}); err != nil {
		paymentFinalizeErrors.Inc()
		log.ErrorContext(ctx, "order finalization failed after payment",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
		res.FinalizeErr = err
	}

	log.InfoContext(ctx, "payment succeeded", slog.String("order_id", orderID))
	return res
}

func (o *Orchestrator) fail(attempt *domain.PaymentAttempt, res Result, reason string, err error) Result {
	o.transition(attempt, domain.PaymentFailed)
	res.Outcome = domain.OutcomeFailed
	res.Reason = reason
	res.Err = err
	return res
}

// step runs fn inside a span and records its duration.
func (o *Orchestrator) step(ctx context.Context, name string, fn func(context.Context) error) (err error) {
	ctx, span := o.tracer.Start(ctx, "payment."+name)
	start := time.Now()
	defer func() {
		paymentStepDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		tracing.End(span, err)
	}()
	return fn(ctx)
}

func (o *Orchestrator) transition(attempt *domain.PaymentAttempt, to domain.PaymentState) {
	o.mu.Lock()
	from := attempt.State
	attempt.State = to
	observers := o.observers
	o.mu.Unlock()

	t := Transition{AttemptID: attempt.ID, From: from, To: to, At: o.now().UTC()}
	for _, fn := range observers {
		fn(t)
	}
}

func (o *Orchestrator) sheetConfig(placed api.PlaceOrderResponse) SheetConfig {
	cfg := SheetConfig{
		ClientSecret:        placed.Payment,
		CustomerID:          placed.CustomerID,
		EphemeralKey:        placed.EphemeralKey,
		MerchantDisplayName: o.opts.MerchantDisplayName,
		ReturnURL:           o.opts.ReturnURL,
	}
	switch o.opts.Platform {
	case PlatformIOS:
		cfg.ApplePay = &ApplePay{MerchantCountryCode: o.opts.CountryCode}
	case PlatformAndroid:
		cfg.GooglePay = &GooglePay{
			MerchantCountryCode: o.opts.CountryCode,
			CurrencyCode:        o.opts.CurrencyCode,
			TestEnv:             o.opts.GooglePayTestEnv,
		}
	}
	return cfg
}
