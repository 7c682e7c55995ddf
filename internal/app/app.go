package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/utafrali/EcommerceGo/storefront/internal/alert"
	"github.com/utafrali/EcommerceGo/storefront/internal/api"
	"github.com/utafrali/EcommerceGo/storefront/internal/auth"
	"github.com/utafrali/EcommerceGo/storefront/internal/basket"
	"github.com/utafrali/EcommerceGo/storefront/internal/checkout"
	"github.com/utafrali/EcommerceGo/storefront/internal/config"
	"github.com/utafrali/EcommerceGo/storefront/internal/delivery"
	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/event"
	handler "github.com/utafrali/EcommerceGo/storefront/internal/handler/http"
	"github.com/utafrali/EcommerceGo/storefront/internal/identity"
	"github.com/utafrali/EcommerceGo/storefront/internal/payment"
	"github.com/utafrali/EcommerceGo/storefront/internal/payment/bridge"
	"github.com/utafrali/EcommerceGo/storefront/internal/payment/mocksheet"
	"github.com/utafrali/EcommerceGo/storefront/internal/pricing"
	"github.com/utafrali/EcommerceGo/storefront/internal/session"
	"github.com/utafrali/EcommerceGo/storefront/internal/store"
	leveldbstore "github.com/utafrali/EcommerceGo/storefront/internal/store/leveldb"
	"github.com/utafrali/EcommerceGo/storefront/internal/store/memory"
	redisstore "github.com/utafrali/EcommerceGo/storefront/internal/store/redis"
	"github.com/utafrali/EcommerceGo/storefront/internal/vault"
	"github.com/utafrali/EcommerceGo/storefront/pkg/database"
	"github.com/utafrali/EcommerceGo/storefront/pkg/health"
	"github.com/utafrali/EcommerceGo/storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/EcommerceGo/storefront/pkg/kafka"
	"github.com/utafrali/EcommerceGo/storefront/pkg/tracing"
)

const serviceName = "storefront"

// slowStoreOp is the latency above which a store call is logged.
const slowStoreOp = 100 * time.Millisecond

// App wires together all dependencies and runs the storefront agent.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	kv             store.KV
	identities     []*identity.Store
	producer       *pkgkafka.Producer
	unsubscribe    func()
	handler        http.Handler
	httpServer     *http.Server
	shutdownTracer func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
// Persisted sessions are restored before it returns.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize tracing.
	tracingCfg := tracing.DefaultConfig(serviceName)
	tracingCfg.ServiceVersion = cfg.Version
	tracingCfg.Environment = cfg.Environment
	tracingCfg.OTLPEndpoint = cfg.OTELEndpoint
	tracingCfg.SampleRate = cfg.OTELSampleRate
	tracingCfg.Enabled = cfg.OTELEnabled
	shutdownTracer, err := tracing.InitTracer(ctx, tracingCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// Open the persistent store.
	kv, err := openStore(ctx, cfg, logger)
	if err != nil {
		_ = shutdownTracer(context.Background())
		return nil, err
	}

	a := &App{
		cfg:            cfg,
		logger:         logger,
		kv:             kv,
		shutdownTracer: shutdownTracer,
	}
	if err := a.build(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	// Sessions.
	v := vault.New(a.kv)
	customer := identity.New(domain.KindCustomer, v, logger)
	vendor := identity.New(domain.KindVendor, v, logger)
	a.identities = []*identity.Store{customer, vendor}
	coordinator := session.New(v, customer, vendor, logger)
	navigation := &session.NavigationGate{}
	coordinator.SetNavigator(navigation)

	// Backend client.
	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.BackendTimeout
	httpCfg.MaxRetries = cfg.BackendMaxRetries
	cbCfg := httpclient.DefaultCircuitBreakerConfig("backend")
	cbCfg.MaxRequests = cfg.CBMaxRequests
	cbCfg.Timeout = cfg.CBTimeout
	cbCfg.FailureRatio = cfg.CBFailureRatio
	cbCfg.MinRequests = cfg.CBMinRequests
	doer := httpclient.NewCircuitBreakerClient(httpclient.New(httpCfg), cbCfg, logger)
	backend := api.New(cfg.BackendBaseURL, doer, coordinator, logger)

	// Payment sheet.
	var (
		sheet   payment.Sheet
		sheetUI *bridge.Sheet
	)
	switch cfg.PaymentSheet {
	case config.SheetMock:
		outcome, err := mocksheet.ParseOutcome(cfg.PaymentMockOutcome)
		if err != nil {
			return err
		}
		sheet = mocksheet.New(outcome)
		logger.Warn("using scripted payment sheet", slog.String("outcome", string(outcome)))
	default:
		sheetUI = bridge.New(cfg.PaymentSheetTimeout)
		sheet = sheetUI
	}

	orchestrator := payment.NewOrchestrator(backend, sheet, payment.Options{
		MerchantDisplayName: cfg.MerchantDisplayName,
		Platform:            payment.Platform(cfg.PaymentPlatform),
		CountryCode:         cfg.MerchantCountryCode,
		CurrencyCode:        cfg.CurrencyCode,
		ReturnURL:           cfg.PaymentReturnURL,
		GooglePayTestEnv:    cfg.GooglePayTestEnv,
	}, logger)
	orchestrator.Observe(func(t payment.Transition) {
		logger.Debug("payment state changed",
			slog.String("attempt_id", t.AttemptID),
			slog.String("from", string(t.From)),
			slog.String("to", string(t.To)),
		)
	})

	// Domain events, optional.
	var publisher event.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = a.producer
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	events := event.NewProducer(publisher, logger)

	// Session-scoped state and checkout.
	basketAgg := basket.New(a.kv, logger)
	deliveryStore := delivery.New(a.kv)
	alerts := alert.New(cfg.AlertQueueSize, logger)
	checkoutService := checkout.NewService(
		basketAgg,
		deliveryStore,
		pricing.New(backend, logger),
		orchestrator,
		alerts,
		events,
		logger,
	)
	coordinator.RegisterScoped("basket", basketAgg)
	coordinator.RegisterScoped("delivery", deliveryStore)
	coordinator.RegisterScoped("checkout", checkoutService)

	if events.Enabled() {
		a.unsubscribe = coordinator.Subscribe(events.SessionListener(context.Background()))
	}

	// Restore persisted state.
	if err := coordinator.Start(ctx); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if err := basketAgg.Start(ctx); err != nil {
		return fmt.Errorf("restore basket: %w", err)
	}
	if kind := coordinator.CurrentKind(); kind != "" {
		logger.Info("session restored", slog.String("kind", string(kind)))
	}

	// Health checks.
	healthHandler := health.NewHandler(cfg.Version)
	healthHandler.SetCheckTimeout(cfg.HealthCheckTimeout)
	healthHandler.Register("store", a.kv.Ping)
	healthHandler.Register("backend", doer.Check)
	if a.producer != nil {
		healthHandler.Register("kafka", a.producer.Ping)
	}

	// HTTP router.
	a.handler = handler.NewRouter(handler.Services{
		Sessions:   coordinator,
		Navigation: navigation,
		Auth:       auth.NewService(backend, coordinator, logger),
		Basket:     basketAgg,
		Delivery:   deliveryStore,
		Checkout:   checkoutService,
		Payments:   orchestrator,
		Alerts:     alerts,
		Sheet:      sheetUI,
	}, healthHandler, logger)

	// WriteTimeout is left unset: POST /checkout/pay holds the connection
	// until the payment sheet closes.
	a.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.KV, error) {
	switch cfg.StoreBackend {
	case config.StoreRedis:
		redisCfg := database.DefaultRedisConfig()
		redisCfg.Addr = cfg.RedisAddr
		redisCfg.Password = cfg.RedisPass
		redisCfg.DB = cfg.RedisDB
		client, err := database.NewRedisClient(ctx, redisCfg)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		return store.Traced(redisstore.New(client, cfg.RedisPrefix), config.StoreRedis, slowStoreOp, logger), nil
	case config.StoreMemory:
		logger.Warn("using in-memory store, sessions will not survive a restart")
		return memory.New(), nil
	default:
		db, err := leveldbstore.Open(cfg.LevelDBPath)
		if err != nil {
			return nil, err
		}
		logger.Info("opened LevelDB store", slog.String("path", cfg.LevelDBPath))
		return store.Traced(db, config.StoreLevelDB, slowStoreOp, logger), nil
	}
}

// Handler returns the control API handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting control API",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.close()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.close()
	a.logger.Info("application shutdown complete")
	return nil
}

// close releases everything but the HTTP server.
func (a *App) close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	for _, s := range a.identities {
		s.Close()
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if err := a.kv.Close(); err != nil {
		a.logger.Error("store close error", slog.String("error", err.Error()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdownTracer(ctx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}
}
