package store_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/utafrali/EcommerceGo/storefront/internal/store"
	"github.com/utafrali/EcommerceGo/storefront/internal/store/memory"
)

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return exporter
}

type slowKV struct {
	store.KV
	delay time.Duration
}

func (s slowKV) Set(ctx context.Context, key string, value []byte) error {
	time.Sleep(s.delay)
	return s.KV.Set(ctx, key, value)
}

func TestTraced_RecordsSpans(t *testing.T) {
	exporter := setupTestTracer(t)
	kv := store.Traced(memory.New(), "memory", 0, nil)
	ctx := context.Background()

	require.NoError(t, kv.Apply(ctx, store.Put("a", []byte("1")), store.Del("b")))
	_, err := kv.Get(ctx, "missing")
	require.True(t, errors.Is(err, store.ErrNotFound))

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "store.apply", spans[0].Name)
	assert.Equal(t, "store.get", spans[1].Name)
	assert.NotEqual(t, codes.Error, spans[1].Status.Code, "a miss is not an error")
}

func TestTraced_WarnsOnSlowOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	kv := store.Traced(slowKV{KV: memory.New(), delay: 20 * time.Millisecond}, "memory", 10*time.Millisecond, logger)

	require.NoError(t, kv.Set(context.Background(), "basket", []byte("secret-basket")))
	assert.Contains(t, buf.String(), "slow store operation")
	assert.Contains(t, buf.String(), `"operation":"set"`)
	assert.NotContains(t, buf.String(), "secret-basket", "values must not be logged")
}

func TestTraced_SubscribePassesThrough(t *testing.T) {
	kv := store.Traced(memory.New(), "memory", 0, nil)
	var got []string
	kv.Subscribe("", func(c store.Change) { got = append(got, c.Key) })

	require.NoError(t, kv.Set(context.Background(), "k", []byte("v")))
	assert.Equal(t, []string{"k"}, got)
}
