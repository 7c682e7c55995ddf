package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/EcommerceGo/storefront/pkg/tracing"
)

const tracerName = "github.com/utafrali/EcommerceGo/storefront/internal/store"

// Traced wraps kv with a client span per call and warns about operations
// slower than slow. A zero slow disables the warning. Keys are recorded,
// values never are.
func Traced(kv KV, backend string, slow time.Duration, logger *slog.Logger) KV {
	return &tracedKV{KV: kv, backend: backend, slow: slow, logger: logger}
}

type tracedKV struct {
	KV
	backend string
	slow    time.Duration
	logger  *slog.Logger
}

func (t *tracedKV) start(ctx context.Context, op string, keys ...string) (context.Context, func(error)) {
	begin := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "store."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", t.backend),
			attribute.String("db.operation", op),
			attribute.StringSlice("store.keys", keys),
		),
	)
	return ctx, func(err error) {
		if errors.Is(err, ErrNotFound) {
			err = nil
		}
		tracing.End(span, err)
		if elapsed := time.Since(begin); t.slow > 0 && elapsed >= t.slow && t.logger != nil {
			t.logger.WarnContext(ctx, "slow store operation",
				slog.String("backend", t.backend),
				slog.String("operation", op),
				slog.Any("keys", keys),
				slog.Duration("duration", elapsed),
			)
		}
	}
}

func (t *tracedKV) Get(ctx context.Context, key string) (_ []byte, err error) {
	ctx, end := t.start(ctx, "get", key)
	defer func() { end(err) }()
	return t.KV.Get(ctx, key)
}

func (t *tracedKV) Set(ctx context.Context, key string, value []byte) (err error) {
	ctx, end := t.start(ctx, "set", key)
	defer func() { end(err) }()
	return t.KV.Set(ctx, key, value)
}

func (t *tracedKV) Delete(ctx context.Context, key string) (err error) {
	ctx, end := t.start(ctx, "delete", key)
	defer func() { end(err) }()
	return t.KV.Delete(ctx, key)
}

func (t *tracedKV) Apply(ctx context.Context, ops ...Op) (err error) {
	keys := make([]string, 0, len(ops))
	for _, op := range ops {
		keys = append(keys, op.Key)
	}
	ctx, end := t.start(ctx, "apply", keys...)
	defer func() { end(err) }()
	return t.KV.Apply(ctx, ops...)
}
