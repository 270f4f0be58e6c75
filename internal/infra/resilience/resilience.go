// Package resilience wraps remote-store calls with retry, a circuit
// breaker and a concurrency cap. The sheet backend is a single slow
// endpoint shared by every session, so calls back off politely and stop
// entirely once it is clearly down.
package resilience

import (
	"context"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"
)

// Policy holds the retry/bulkhead parameters for store calls.
type Policy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int
}

// Retry runs op up to 1+MaxRetries times with doubling backoff plus
// jitter. Context cancellation wins over any remaining attempts.
func Retry(ctx context.Context, p Policy, op func() error) error {
	backoff := p.InitialBackoff
	var lastErr error

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if attempt >= p.MaxRetries {
			return lastErr
		}

		wait := backoff
		if backoff > 0 {
			wait += time.Duration(rand.Int63n(int64(backoff)))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		backoff *= 2
	}
}

// NewBreaker creates the circuit breaker guarding the sheet endpoint.
// It trips after a majority of recent calls fail and probes again after a
// short cool-down.
func NewBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 4 &&
				float64(counts.TotalFailures)/float64(counts.Requests) > 0.5
		},
	})
}

// Gate caps how many store calls run at once.
type Gate struct {
	slots chan struct{}
}

// NewGate creates a gate admitting at most n concurrent holders.
func NewGate(n int) *Gate {
	return &Gate{slots: make(chan struct{}, n)}
}

// Enter blocks until a slot frees up or ctx is done.
func (g *Gate) Enter(ctx context.Context) error {
	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Leave releases a slot taken by Enter.
func (g *Gate) Leave() {
	<-g.slots
}
