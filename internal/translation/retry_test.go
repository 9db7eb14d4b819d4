package translation

import (
	"context"
	"errors"
	"testing"
	"time"
)

// stubProvider fails scripted a number of times before succeeding.
type stubProvider struct {
	name     string
	calls    int
	failWith error
	failFor  int
	response *TranslateResponse
}

func (s *stubProvider) Name() string {
	if s.name == "" {
		return "stub"
	}
	return s.name
}

func (s *stubProvider) SupportedLanguages() []string {
	return []string{"en", "es"}
}

func (s *stubProvider) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	s.calls++
	if s.failWith != nil && (s.failFor <= 0 || s.calls <= s.failFor) {
		return nil, s.failWith
	}
	if s.response != nil {
		return s.response, nil
	}
	return &TranslateResponse{
		Text:         "Hola",
		SourceLang:   req.SourceLang,
		TargetLang:   req.TargetLang,
		ProviderName: s.Name(),
	}, nil
}

func TestWithRetryEventualSuccess(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{
		failWith: &ProviderError{Provider: "stub", Status: 503, Message: "overloaded"},
		failFor:  2,
	}
	provider := WithRetry(stub, 3, time.Millisecond)

	resp, err := provider.Translate(context.Background(), TranslateRequest{Text: "Hello", TargetLang: "es"})
	if err != nil {
		t.Fatalf("expected eventual success, got error: %v", err)
	}
	if resp.Text != "Hola" {
		t.Fatalf("expected Hola, got %q", resp.Text)
	}
	if stub.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", stub.calls)
	}
}

func TestWithRetryPermanentErrorNotRetried(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{
		failWith: &UnsupportedPairError{Provider: "stub", SourceLang: "en", TargetLang: "xx"},
	}
	provider := WithRetry(stub, 3, time.Millisecond)

	_, err := provider.Translate(context.Background(), TranslateRequest{Text: "Hello", TargetLang: "xx"})
	if err == nil {
		t.Fatalf("expected error")
	}
	var unsupported *UnsupportedPairError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedPairError, got %v", err)
	}
	if stub.calls != 1 {
		t.Fatalf("expected 1 call, got %d", stub.calls)
	}
}

func TestWithRetryExhausted(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{
		failWith: &RateLimitError{Provider: "stub", RetryAfter: time.Millisecond},
	}
	provider := WithRetry(stub, 2, time.Millisecond)

	_, err := provider.Translate(context.Background(), TranslateRequest{Text: "Hello", TargetLang: "es"})
	if err == nil {
		t.Fatalf("expected failure after exhausting retries")
	}
	var rateLimited *RateLimitError
	if !errors.As(err, &rateLimited) {
		t.Fatalf("expected wrapped RateLimitError, got %v", err)
	}
	if stub.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", stub.calls)
	}
}

func TestWithRetryContextCancelled(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{
		failWith: &ProviderError{Provider: "stub", Status: 500, Message: "boom"},
	}
	provider := WithRetry(stub, 5, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := provider.Translate(ctx, TranslateRequest{Text: "Hello", TargetLang: "es"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if stub.calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", stub.calls)
	}
}

func TestWithRetryDisabled(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{}
	if got := WithRetry(stub, 0, time.Second); got != Provider(stub) {
		t.Fatalf("expected zero retries to return the provider unwrapped")
	}
}
