package crm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/sells-group/meeting-agent/internal/model"
)

// BreakerConfig tunes the circuit breaker around a Store.
type BreakerConfig struct {
	// MaxFailures is the consecutive-failure count that trips the circuit.
	MaxFailures uint32
	// OpenTimeout is how long the circuit stays open before probing again.
	OpenTimeout time.Duration
}

// DefaultBreakerConfig returns the standard breaker tuning.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures: 3,
		OpenTimeout: 30 * time.Second,
	}
}

// Breaker wraps a Store with a circuit breaker. When the circuit is open,
// reads fail fast with ErrUnavailable instead of hammering a store that is
// already down.
type Breaker struct {
	inner   Store
	breaker *gobreaker.CircuitBreaker
}

// NewBreaker wraps inner with circuit-breaking reads.
func NewBreaker(inner Store, cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures == 0 {
		cfg = DefaultBreakerConfig()
	}
	settings := gobreaker.Settings{
		Name:    "crm-store",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			zap.L().Warn("crm: breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	return &Breaker{inner: inner, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (b *Breaker) FindCandidates(ctx context.Context, t model.EntityType, query string, hints Hints) ([]model.EntityRecord, error) {
	out, err := b.breaker.Execute(func() (any, error) {
		return b.inner.FindCandidates(ctx, t, query, hints)
	})
	if err != nil {
		return nil, b.mapErr(err)
	}
	recs, _ := out.([]model.EntityRecord)
	return recs, nil
}

func (b *Breaker) Get(ctx context.Context, t model.EntityType, id string) (*model.EntityRecord, error) {
	out, err := b.breaker.Execute(func() (any, error) {
		rec, err := b.inner.Get(ctx, t, id)
		if errors.Is(err, ErrNotFound) {
			// A miss is a valid answer, not a store failure.
			return (*model.EntityRecord)(nil), nil
		}
		return rec, err
	})
	if err != nil {
		return nil, b.mapErr(err)
	}
	rec, _ := out.(*model.EntityRecord)
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (b *Breaker) mapErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Join(ErrUnavailable, err)
	}
	return err
}
