package providers

import (
	"time"

	"github.com/sony/gobreaker"
)

// breakers layers a fast-fail circuit breaker per provider underneath
// the explicit step-function cooldown (cooldown.go). The
// cooldown store is the authoritative, slow-moving gate ("don't even
// try this provider for the next N seconds"); the breaker protects
// against a burst of failures within a single still-open window by
// tripping after a handful of consecutive errors rather than waiting
// for SetCooldown's coarser bookkeeping, mirroring the layering in the
// teacher's internal/infrastructure/providers/circuitbreakers.go.
type breakers struct {
	byProvider map[string]*gobreaker.CircuitBreaker
}

func newBreakers(names []string) *breakers {
	b := &breakers{byProvider: map[string]*gobreaker.CircuitBreaker{}}
	for _, name := range names {
		settings := gobreaker.Settings{
			Name: name,
			MaxRequests: 1,
			Interval: 30 * time.Second,
			Timeout: 10 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}
		b.byProvider[name] = gobreaker.NewCircuitBreaker(settings)
	}
	return b
}

func (b *breakers) execute(name string, fn func() ([]Bar, error)) ([]Bar, error) {
	cb, ok := b.byProvider[name]
	if !ok {
		return fn()
	}
	result, err := cb.Execute(func() (any, error) { return fn() })
	if err != nil {
		return nil, err
	}
	return result.([]Bar), nil
}
