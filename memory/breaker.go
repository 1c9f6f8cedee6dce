package memory

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker rejects store calls after
// repeated backend failures.
var ErrCircuitOpen = errors.New("memory store circuit breaker is open")

// BreakerConfig holds circuit breaker tuning for a wrapped store.
type BreakerConfig struct {
	// MaxFailures is the consecutive-failure count that trips the circuit.
	// Default: 3.
	MaxFailures uint32

	// Timeout is how long the circuit stays open before probing again.
	// Default: 30 seconds.
	Timeout time.Duration
}

// BreakerStore wraps a Store with a circuit breaker so a flapping remote
// backend fails fast instead of stalling every conversation turn. The
// Service treats breaker rejections like any other store failure: log and
// degrade.
type BreakerStore struct {
	inner   Store
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerStore wraps inner with a circuit breaker.
func NewBreakerStore(inner Store, config BreakerConfig) *BreakerStore {
	if config.MaxFailures == 0 {
		config.MaxFailures = 3
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:    "memory-store",
		Timeout: config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.MaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("[STORE] Circuit breaker %s: %s -> %s", name, from, to)
		},
	}

	return &BreakerStore{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Upsert saves through the breaker.
func (b *BreakerStore) Upsert(ctx context.Context, mem Memory) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.inner.Upsert(ctx, mem)
	})
	return b.translate(err)
}

// Query searches through the breaker.
func (b *BreakerStore) Query(ctx context.Context, filter Filter, embedding []float32, limit int) ([]Memory, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.Query(ctx, filter, embedding, limit)
	})
	if err != nil {
		return nil, b.translate(err)
	}
	matches, _ := result.([]Memory)
	return matches, nil
}

// Close closes the wrapped store directly; closing should work even with
// the circuit open.
func (b *BreakerStore) Close() error {
	return b.inner.Close()
}

func (b *BreakerStore) translate(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}
