package app

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/EcommerceGo/storefront/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeBackend answers the login endpoint.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Post("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			UserType string `json:"userType"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"userData": map[string]any{"_id": "u1", "email": req.Email},
			"tokens":   map[string]any{"accessToken": req.UserType + "-access", "refreshToken": "refresh"},
			"message":  "Logged in",
		})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T, env map[string]string) *App {
	t.Helper()
	cfg, err := config.LoadFrom(env)
	require.NoError(t, err)
	a, err := NewApp(cfg, testLogger())
	require.NoError(t, err)
	return a
}

func serve(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sessionKind(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := serve(t, h, http.MethodGet, "/api/v1/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var env struct {
		Data struct {
			Kind string `json:"kind"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Data.Kind
}

func TestNewApp_MemoryStoreReady(t *testing.T) {
	a := newTestApp(t, map[string]string{
		"STORE_BACKEND": config.StoreMemory,
		"PAYMENT_SHEET": config.SheetMock,
	})
	t.Cleanup(func() { _ = a.Shutdown() })

	rec := serve(t, a.Handler(), http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"store"`)
	assert.NotContains(t, rec.Body.String(), `"kafka"`)

	assert.Empty(t, sessionKind(t, a.Handler()))

	rec = serve(t, a.Handler(), http.MethodGet, "/api/v1/payment/sheet", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "the scripted sheet has no bridge routes")
}

func TestNewApp_BridgeSheetRoutes(t *testing.T) {
	a := newTestApp(t, map[string]string{
		"STORE_BACKEND": config.StoreMemory,
		"PAYMENT_SHEET": config.SheetBridge,
	})
	t.Cleanup(func() { _ = a.Shutdown() })

	rec := serve(t, a.Handler(), http.MethodGet, "/api/v1/payment/sheet", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestNewApp_BadMockOutcome(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{
		"STORE_BACKEND":        config.StoreMemory,
		"PAYMENT_SHEET":        config.SheetMock,
		"PAYMENT_MOCK_OUTCOME": "explode",
	})
	require.NoError(t, err)

	_, err = NewApp(cfg, testLogger())
	assert.Error(t, err)
}

func TestNewApp_SessionSurvivesRestart(t *testing.T) {
	backend := fakeBackend(t)
	env := map[string]string{
		"STORE_BACKEND":    config.StoreLevelDB,
		"LEVELDB_PATH":     filepath.Join(t.TempDir(), "db"),
		"PAYMENT_SHEET":    config.SheetMock,
		"BACKEND_BASE_URL": backend.URL + "/api",
	}

	first := newTestApp(t, env)
	rec := serve(t, first.Handler(), http.MethodPost, "/api/v1/session/login", map[string]string{
		"kind": "vendor", "email": "jane@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "vendor", sessionKind(t, first.Handler()))
	require.NoError(t, first.Shutdown())

	second := newTestApp(t, env)
	t.Cleanup(func() { _ = second.Shutdown() })
	assert.Equal(t, "vendor", sessionKind(t, second.Handler()))
}
