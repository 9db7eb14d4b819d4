package translation

import (
	"context"

	"golang.org/x/time/rate"
)

// WithRateLimit caps outbound provider calls at ratePerSec with the given
// burst. Zero or negative rates return the provider unwrapped.
func WithRateLimit(next Provider, ratePerSec float64, burst int) Provider {
	if next == nil || ratePerSec <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &rateLimitedProvider{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
	}
}

type rateLimitedProvider struct {
	next    Provider
	limiter *rate.Limiter
}

func (p *rateLimitedProvider) Name() string {
	return p.next.Name()
}

func (p *rateLimitedProvider) SupportedLanguages() []string {
	return p.next.SupportedLanguages()
}

func (p *rateLimitedProvider) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.next.Translate(ctx, req)
}
