package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/utafrali/EcommerceGo/storefront/pkg/config"
)

// Store backends.
const (
	StoreLevelDB = "leveldb"
	StoreRedis   = "redis"
	StoreMemory  = "memory"
)

// Payment sheet implementations.
const (
	SheetBridge = "bridge"
	SheetMock   = "mock"
)

// Config holds all configuration for the storefront agent.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Version     string `env:"STOREFRONT_VERSION" envDefault:"dev"`

	// Control API, loopback only by default
	HTTPAddr string `env:"STOREFRONT_HTTP_ADDR" envDefault:"127.0.0.1"`
	HTTPPort int    `env:"STOREFRONT_HTTP_PORT" envDefault:"8090"`

	HealthCheckTimeout time.Duration `env:"HEALTH_CHECK_TIMEOUT" envDefault:"3s"`

	// Backend
	BackendBaseURL    string        `env:"BACKEND_BASE_URL" envDefault:"http://localhost:8080/api"`
	BackendTimeout    time.Duration `env:"BACKEND_TIMEOUT" envDefault:"30s"`
	BackendMaxRetries int           `env:"BACKEND_MAX_RETRIES" envDefault:"0"`

	// Circuit breaker
	CBMaxRequests  uint32        `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBTimeout      time.Duration `env:"CB_TIMEOUT" envDefault:"30s"`
	CBFailureRatio float64       `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32        `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Persistence
	StoreBackend string `env:"STORE_BACKEND" envDefault:"leveldb"`
	LevelDBPath  string `env:"LEVELDB_PATH" envDefault:"./data/storefront"`
	RedisAddr    string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass    string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB      int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix  string `env:"REDIS_KEY_PREFIX" envDefault:"storefront:"`

	// Payment sheet
	MerchantDisplayName string        `env:"MERCHANT_DISPLAY_NAME" envDefault:"Storefront"`
	PaymentPlatform     string        `env:"PAYMENT_PLATFORM" envDefault:"ios"`
	MerchantCountryCode string        `env:"MERCHANT_COUNTRY_CODE" envDefault:"US"`
	CurrencyCode        string        `env:"CURRENCY_CODE" envDefault:"USD"`
	PaymentReturnURL    string        `env:"PAYMENT_RETURN_URL" envDefault:"storefront://stripe-redirect"`
	GooglePayTestEnv    bool          `env:"GOOGLE_PAY_TEST_ENV" envDefault:"true"`
	PaymentSheet        string        `env:"PAYMENT_SHEET" envDefault:"bridge"`
	PaymentMockOutcome  string        `env:"PAYMENT_MOCK_OUTCOME" envDefault:"succeed"`
	PaymentSheetTimeout time.Duration `env:"PAYMENT_SHEET_TIMEOUT" envDefault:"10m"`

	// Alerts
	AlertQueueSize int `env:"ALERT_QUEUE_SIZE" envDefault:"32"`

	// Kafka, empty disables events
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	return cfg, nil
}

// LoadFrom reads configuration from an explicit environment.
func LoadFrom(environment map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadWithEnv(cfg, environment); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	u, err := url.Parse(c.BackendBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_BASE_URL must be an absolute URL, got %q", c.BackendBaseURL)
	}
	if c.HealthCheckTimeout <= 0 {
		return errors.New("HEALTH_CHECK_TIMEOUT must be positive")
	}
	if c.BackendMaxRetries < 0 {
		return errors.New("BACKEND_MAX_RETRIES must not be negative")
	}
	if c.CBFailureRatio <= 0 || c.CBFailureRatio > 1 {
		return errors.New("CB_FAILURE_RATIO must be in (0, 1]")
	}

	switch c.StoreBackend {
	case StoreLevelDB:
		if c.LevelDBPath == "" {
			return errors.New("LEVELDB_PATH is required for the leveldb store")
		}
	case StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.PaymentPlatform {
	case "ios", "android":
	default:
		return fmt.Errorf("PAYMENT_PLATFORM must be ios or android, got %q", c.PaymentPlatform)
	}
	switch c.PaymentSheet {
	case SheetBridge:
		if c.PaymentSheetTimeout <= 0 {
			return errors.New("PAYMENT_SHEET_TIMEOUT must be positive")
		}
	case SheetMock:
	default:
		return fmt.Errorf("unknown PAYMENT_SHEET %q", c.PaymentSheet)
	}
	if c.MerchantDisplayName == "" {
		return errors.New("MERCHANT_DISPLAY_NAME is required")
	}

	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return errors.New("OTEL_SAMPLE_RATE must be between 0.0 and 1.0")
	}
	return nil
}

// Addr is the control API listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTPAddr, c.HTTPPort)
}
