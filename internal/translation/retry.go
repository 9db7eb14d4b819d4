package translation

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const defaultRetryBackoff = 500 * time.Millisecond

// WithRetry retries transient provider failures up to retries additional
// attempts, doubling the backoff between attempts. A rate-limit cooldown
// hint overrides the computed backoff. Permanent failures return immediately.
func WithRetry(next Provider, retries int, backoff time.Duration) Provider {
	if next == nil || retries <= 0 {
		return next
	}
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}
	return &retryProvider{next: next, retries: retries, backoff: backoff}
}

type retryProvider struct {
	next    Provider
	retries int
	backoff time.Duration
}

func (p *retryProvider) Name() string {
	return p.next.Name()
}

func (p *retryProvider) SupportedLanguages() []string {
	return p.next.SupportedLanguages()
}

func (p *retryProvider) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	var lastErr error
	delay := p.backoff

	for attempt := 0; attempt <= p.retries; attempt++ {
		if attempt > 0 {
			wait := delay
			var rateLimited *RateLimitError
			if errors.As(lastErr, &rateLimited) && rateLimited.RetryAfter > 0 {
				wait = rateLimited.RetryAfter
			}
			if err := sleepContext(ctx, wait); err != nil {
				return nil, err
			}
			delay *= 2
		}

		resp, err := p.next.Translate(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !Retryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("translate failed after %d attempts: %w", p.retries+1, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
