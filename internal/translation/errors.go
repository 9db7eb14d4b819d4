package translation

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// RateLimitError reports that a provider refused the call due to throttling.
// RetryAfter carries the upstream cooldown hint when one was given.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited, retry after %s", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("%s: rate limited", e.Provider)
}

// UnsupportedPairError reports that a provider cannot translate between the
// requested languages. The failure is permanent for that provider and pair.
type UnsupportedPairError struct {
	Provider   string
	SourceLang string
	TargetLang string
}

func (e *UnsupportedPairError) Error() string {
	source := e.SourceLang
	if source == "" {
		source = "auto"
	}
	return fmt.Sprintf("%s: unsupported language pair %s -> %s", e.Provider, source, e.TargetLang)
}

// ProviderError reports a failed provider call. Status carries the upstream
// HTTP status when a response was received; zero means the call never
// completed (transport failure, client construction, and so on).
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Transient reports whether the failure is worth retrying.
func (e *ProviderError) Transient() bool {
	return e.Status == 0 || e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// Retryable classifies provider failures: throttling and transient upstream
// failures are retryable, unsupported pairs and other client errors are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var rateLimited *RateLimitError
	if errors.As(err, &rateLimited) {
		return true
	}
	var unsupported *UnsupportedPairError
	if errors.As(err, &unsupported) {
		return false
	}
	var provider *ProviderError
	if errors.As(err, &provider) {
		return provider.Transient()
	}
	return false
}
