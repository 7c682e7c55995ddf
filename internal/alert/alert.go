// Package alert is the AlertChannel: terminal checkout outcomes queued for the
// UI to display.
package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Level constants.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// DefaultQueueSize is used when New gets a non-positive size.
const DefaultQueueSize = 32

var alertsRaised = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_alerts_raised_total",
		Help: "Alerts queued for the UI, by level",
	},
	[]string{"level"},
)

var alertsDropped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "storefront_alerts_dropped_total",
	Help: "Alerts discarded because the UI did not drain the queue",
})

// Alert is a message for the user.
type Alert struct {
	ID        string    `json:"id"`
	Level     string    `json:"level"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Channel is a bounded queue of alerts. When full the oldest alert is
// dropped.
type Channel struct {
	logger *slog.Logger
	size   int

	mu    sync.Mutex
	queue []Alert
}

// New creates a Channel holding at most size alerts.
func New(size int, logger *slog.Logger) *Channel {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Channel{logger: logger, size: size}
}

// Raise queues an alert and logs it.
func (c *Channel) Raise(ctx context.Context, level, title, message string) Alert {
	a := Alert{
		ID:        uuid.NewString(),
		Level:     level,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}

	c.mu.Lock()
	if len(c.queue) >= c.size {
		c.queue = c.queue[1:]
		alertsDropped.Inc()
	}
	c.queue = append(c.queue, a)
	c.mu.Unlock()

	alertsRaised.WithLabelValues(level).Inc()
	c.logger.Log(ctx, levelOf(level), "alert raised",
		slog.String("alert_id", a.ID),
		slog.String("title", title),
		slog.String("message", message),
	)
	return a
}

// Drain returns queued alerts, oldest first, and empties the queue.
func (c *Channel) Drain() []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.queue
	c.queue = nil
	if out == nil {
		return []Alert{}
	}
	return out
}

func levelOf(level string) slog.Level {
	switch level {
	case LevelError:
		return slog.LevelError
	case LevelWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
