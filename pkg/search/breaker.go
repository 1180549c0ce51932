package search

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/rhuss/coursesearch/pkg/observability"
)

// BreakerConfig controls the per-source circuit breakers.
type BreakerConfig struct {
	Enabled bool

	// ConsecutiveFailures trips the breaker (default: 5).
	ConsecutiveFailures uint32

	// OpenTimeout is how long a tripped breaker stays open (default: 30s).
	OpenTimeout time.Duration

	// HalfOpenRequests are let through to probe recovery (default: 1).
	HalfOpenRequests uint32
}

func (c *BreakerConfig) defaults() {
	if c.ConsecutiveFailures == 0 {
		c.ConsecutiveFailures = 5
	}
	if c.OpenTimeout == 0 {
		c.OpenTimeout = 30 * time.Second
	}
	if c.HalfOpenRequests == 0 {
		c.HalfOpenRequests = 1
	}
}

func newBreaker(source string, cfg BreakerConfig) *gobreaker.CircuitBreaker {
	threshold := cfg.ConsecutiveFailures
	observability.BreakerState.WithLabelValues(source).Set(float64(gobreaker.StateClosed))

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        source,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("content source breaker state changed",
				"source", name,
				"from", from.String(),
				"to", to.String(),
			)
			observability.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
}
