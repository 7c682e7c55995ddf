package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port    int           `env:"TEST_CFG_PORT" envDefault:"8090"`
	Backend string        `env:"TEST_CFG_BACKEND_URL" envDefault:"http://127.0.0.1:3000"`
	Timeout time.Duration `env:"TEST_CFG_TIMEOUT" envDefault:"30s"`
	Debug   bool          `env:"TEST_CFG_DEBUG" envDefault:"false"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8090, cfg.Port)
	assert.Equal(t, "http://127.0.0.1:3000", cfg.Backend)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.False(t, cfg.Debug)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")
	t.Setenv("TEST_CFG_BACKEND_URL", "https://api.example.com")
	t.Setenv("TEST_CFG_TIMEOUT", "5s")
	t.Setenv("TEST_CFG_DEBUG", "true")

	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "https://api.example.com", cfg.Backend)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.True(t, cfg.Debug)
}

func TestLoadWithEnv_IgnoresProcessEnv(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")

	var cfg testConfig
	require.NoError(t, LoadWithEnv(&cfg, map[string]string{"TEST_CFG_DEBUG": "true"}))

	assert.Equal(t, 8090, cfg.Port)
	assert.True(t, cfg.Debug)
}

type requiredConfig struct {
	APIKey string `env:"TEST_CFG_API_KEY,required"`
}

func TestLoad_RequiredFieldMissing(t *testing.T) {
	var cfg requiredConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_InvalidType(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "not-a-number")

	var cfg testConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

type checkedConfig struct {
	Platform string `env:"TEST_CFG_PLATFORM" envDefault:"ios"`
}

func (c *checkedConfig) Validate() error {
	if c.Platform != "ios" && c.Platform != "android" {
		return errors.New("platform must be ios or android")
	}
	return nil
}

func TestLoad_RunsValidate(t *testing.T) {
	var ok checkedConfig
	require.NoError(t, LoadWithEnv(&ok, map[string]string{"TEST_CFG_PLATFORM": "android"}))
	assert.Equal(t, "android", ok.Platform)

	var bad checkedConfig
	err := LoadWithEnv(&bad, map[string]string{"TEST_CFG_PLATFORM": "web"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate config")
}
