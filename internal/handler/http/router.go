package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/EcommerceGo/storefront/internal/alert"
	"github.com/utafrali/EcommerceGo/storefront/internal/auth"
	"github.com/utafrali/EcommerceGo/storefront/internal/basket"
	"github.com/utafrali/EcommerceGo/storefront/internal/checkout"
	"github.com/utafrali/EcommerceGo/storefront/internal/delivery"
	"github.com/utafrali/EcommerceGo/storefront/internal/payment"
	"github.com/utafrali/EcommerceGo/storefront/internal/payment/bridge"
	"github.com/utafrali/EcommerceGo/storefront/internal/session"
	"github.com/utafrali/EcommerceGo/storefront/pkg/health"
	"github.com/utafrali/EcommerceGo/storefront/pkg/middleware"
)

// requestTimeout bounds every route except payment, which waits on the user.
const requestTimeout = 30 * time.Second

// Services are the components the control API drives.
type Services struct {
	Sessions   *session.Coordinator
	Navigation *session.NavigationGate
	Auth       *auth.Service
	Basket     *basket.Aggregator
	Delivery   *delivery.Store
	Checkout   *checkout.Service
	Payments   *payment.Orchestrator
	Alerts     *alert.Channel

	// Sheet is set when the payment sheet is driven by the UI shell.
	Sheet *bridge.Sheet
}

// NewRouter creates a chi router with all control API routes registered.
func NewRouter(svc Services, healthHandler *health.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(middleware.RequestLogging(logger, func() (string, string) {
		return string(svc.Sessions.CurrentKind()), svc.Sessions.CurrentUserID()
	}))
	r.Use(middleware.Metrics)
	r.Use(middleware.Tracing)

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	sessionHandler := NewSessionHandler(svc.Sessions, svc.Navigation, svc.Auth, logger)
	basketHandler := NewBasketHandler(svc.Basket, svc.Delivery, logger)
	checkoutHandler := NewCheckoutHandler(svc.Checkout, svc.Payments, svc.Sheet, svc.Alerts, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(requestTimeout))

			r.Route("/session", func(r chi.Router) {
				r.Get("/", sessionHandler.GetSession)
				r.Post("/login", sessionHandler.Login)
				r.Post("/register/{kind}", sessionHandler.Register)
				r.Post("/logout", sessionHandler.Logout)
				r.Post("/settled", sessionHandler.Settled)
			})
			r.Put("/navigation", sessionHandler.Navigation)

			r.Route("/basket", func(r chi.Router) {
				r.Get("/", basketHandler.GetBasket)
				r.Delete("/", basketHandler.ClearBasket)

				r.Post("/items", basketHandler.AddItem)
				r.Post("/replace", basketHandler.ReplaceBasket)
				r.Put("/items/{productId}", basketHandler.UpdateItemQuantity)
				r.Delete("/items/{productId}", basketHandler.RemoveItem)
			})

			r.Get("/delivery", basketHandler.GetDelivery)
			r.Put("/delivery", basketHandler.SetDelivery)

			r.Post("/checkout/quote", checkoutHandler.Quote)
			r.Get("/alerts", checkoutHandler.DrainAlerts)
			r.Get("/payment", checkoutHandler.PaymentStatus)

			if svc.Sheet != nil {
				r.Get("/payment/sheet", checkoutHandler.PendingSheet)
				r.Post("/payment/sheet/{requestId}", checkoutHandler.ResolveSheet)
			}
		})

		r.Post("/checkout/pay", checkoutHandler.Pay)
	})

	return r
}
