package translation

import (
	"context"
	"errors"
	"testing"
)

func TestWithBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{
		failWith: &ProviderError{Provider: "stub", Status: 502, Message: "bad gateway"},
	}
	provider := WithBreaker(stub)

	for i := 0; i < breakerConsecutiveFailures; i++ {
		if _, err := provider.Translate(context.Background(), TranslateRequest{Text: "Hello", TargetLang: "es"}); err == nil {
			t.Fatalf("expected failure on call %d", i+1)
		}
	}
	if stub.calls != breakerConsecutiveFailures {
		t.Fatalf("expected %d provider calls, got %d", breakerConsecutiveFailures, stub.calls)
	}

	// Circuit is open now: the call fails fast without reaching the provider.
	_, err := provider.Translate(context.Background(), TranslateRequest{Text: "Hello", TargetLang: "es"})
	var rateLimited *RateLimitError
	if !errors.As(err, &rateLimited) {
		t.Fatalf("expected RateLimitError from open breaker, got %v", err)
	}
	if stub.calls != breakerConsecutiveFailures {
		t.Fatalf("expected provider untouched while open, got %d calls", stub.calls)
	}
}

func TestWithBreakerIgnoresPermanentFailures(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{
		failWith: &UnsupportedPairError{Provider: "stub", SourceLang: "en", TargetLang: "xx"},
	}
	provider := WithBreaker(stub)

	for i := 0; i < breakerConsecutiveFailures*2; i++ {
		_, err := provider.Translate(context.Background(), TranslateRequest{Text: "Hello", TargetLang: "xx"})
		var unsupported *UnsupportedPairError
		if !errors.As(err, &unsupported) {
			t.Fatalf("expected UnsupportedPairError on call %d, got %v", i+1, err)
		}
	}
	if stub.calls != breakerConsecutiveFailures*2 {
		t.Fatalf("expected every call to reach the provider, got %d", stub.calls)
	}
}

func TestWithBreakerPassesSuccesses(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{}
	provider := WithBreaker(stub)

	resp, err := provider.Translate(context.Background(), TranslateRequest{Text: "Hello", TargetLang: "es"})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if resp.Text != "Hola" {
		t.Fatalf("expected Hola, got %q", resp.Text)
	}
}
