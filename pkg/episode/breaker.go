package episode

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/ha1tch/kgview/pkg/graph"
)

// BreakerConfig holds circuit breaker settings for the episode fetcher.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns a lenient breaker: it opens once at least
// five requests have been seen and most of them failed.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "episodes",
		MaxRequests:      1,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// WithBreaker guards the fetcher with a circuit breaker. While open,
// requests fail fast with gobreaker.ErrOpenState.
func WithBreaker(cfg BreakerConfig) Option {
	return func(c *Cache) { c.breaker = &cfg }
}

func guard(fetch Fetcher, cfg BreakerConfig, log *zap.Logger) Fetcher {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})
	return func(ctx context.Context, id string) (graph.Episode, error) {
		v, err := cb.Execute(func() (interface{}, error) {
			return fetch(ctx, id)
		})
		if err != nil {
			return graph.Episode{}, err
		}
		return v.(graph.Episode), nil
	}
}
