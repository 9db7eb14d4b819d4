package translation

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

const (
	breakerConsecutiveFailures = 5
	breakerCooldown            = 30 * time.Second
)

// WithBreaker wraps a provider in a circuit breaker. Consecutive transient
// failures open the circuit; while it is open, calls fail fast with a
// RateLimitError instead of reaching the backend. Permanent failures such as
// unsupported language pairs do not count against the circuit.
func WithBreaker(next Provider) Provider {
	if next == nil {
		return nil
	}

	settings := gobreaker.Settings{
		Name:        next.Name() + "-translate",
		MaxRequests: 1,
		Timeout:     breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !Retryable(err)
		},
	}

	return &breakerProvider{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

type breakerProvider struct {
	next    Provider
	breaker *gobreaker.CircuitBreaker
}

func (p *breakerProvider) Name() string {
	return p.next.Name()
}

func (p *breakerProvider) SupportedLanguages() []string {
	return p.next.SupportedLanguages()
}

func (p *breakerProvider) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	result, err := p.breaker.Execute(func() (any, error) {
		return p.next.Translate(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &RateLimitError{Provider: p.next.Name(), RetryAfter: breakerCooldown}
		}
		return nil, err
	}

	resp, ok := result.(*TranslateResponse)
	if !ok {
		return nil, &ProviderError{Provider: p.next.Name(), Message: "unexpected breaker result type"}
	}
	return resp, nil
}
