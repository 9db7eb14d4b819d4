package processor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/lingodrop/internal/blobstore"
	"horse.fit/lingodrop/internal/config"
	"horse.fit/lingodrop/internal/translation"
	payloadschema "horse.fit/lingodrop/schema"
)

type fakeProvider struct {
	mu        sync.Mutex
	calls     int
	sources   []string
	responses map[string]string
	failTexts map[string]error
}

func (f *fakeProvider) Name() string {
	return "fake"
}

func (f *fakeProvider) SupportedLanguages() []string {
	return []string{"en", "es"}
}

func (f *fakeProvider) Translate(ctx context.Context, req translation.TranslateRequest) (*translation.TranslateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.sources = append(f.sources, req.SourceLang)
	if err, ok := f.failTexts[req.Text]; ok {
		return nil, err
	}
	translated, ok := f.responses[req.Text]
	if !ok {
		translated = "[" + req.TargetLang + "] " + req.Text
	}
	return &translation.TranslateResponse{
		Text:         translated,
		SourceLang:   req.SourceLang,
		TargetLang:   req.TargetLang,
		ProviderName: f.Name(),
	}, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestProcessor(provider translation.Provider, policy string) (*Processor, *blobstore.Memory, *blobstore.Memory) {
	requests := blobstore.NewMemory()
	responses := blobstore.NewMemory()
	proc := New(requests, responses, provider, zerolog.Nop(), Options{
		FailurePolicy: policy,
		Workers:       2,
		ResolveLanguage: func(source, text string) string {
			return "en"
		},
	})
	return proc, requests, responses
}

func putRequest(t *testing.T, store blobstore.Store, key, payload string) {
	t.Helper()
	if err := store.Put(context.Background(), key, []byte(payload)); err != nil {
		t.Fatalf("put request failed: %v", err)
	}
}

func getResult(t *testing.T, store blobstore.Store, key string) *payloadschema.TranslationResult {
	t.Helper()
	data, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("get result failed: %v", err)
	}
	result, err := payloadschema.ParseTranslationResult(data)
	if err != nil {
		t.Fatalf("parse result failed: %v", err)
	}
	return result
}

func TestProcessTranslatesRequest(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{responses: map[string]string{
		"Hello":        "Hola",
		"Good morning": "Buenos días",
	}}
	proc, requests, responses := newTestProcessor(provider, config.FailurePolicyFail)

	putRequest(t, requests, "req-1.json", `{
		"request_id":"req-1",
		"source_language":"en",
		"target_language":"es",
		"texts":[{"id":1,"text":"Hello"},{"id":2,"text":"Good morning"}]
	}`)

	outcome, err := proc.Process(context.Background(), "req-1.json")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if outcome != OutcomeProcessed {
		t.Fatalf("expected processed outcome, got %q", outcome)
	}

	result := getResult(t, responses, "req-1.json")
	if result.RequestID != "req-1" {
		t.Fatalf("expected request_id echo, got %q", result.RequestID)
	}
	if result.SourceLanguage != "en" || result.TargetLanguage != "es" {
		t.Fatalf("unexpected languages: %q -> %q", result.SourceLanguage, result.TargetLanguage)
	}
	if len(result.Texts) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Texts))
	}
	if result.Texts[0].ID != 1 || result.Texts[0].TranslatedText != "Hola" {
		t.Fatalf("unexpected first item: %+v", result.Texts[0])
	}
	if result.Texts[1].ID != 2 || result.Texts[1].TranslatedText != "Buenos días" {
		t.Fatalf("unexpected second item: %+v", result.Texts[1])
	}
	if result.Texts[0].CharacterCount != 5 {
		t.Fatalf("expected character_count=5, got %d", result.Texts[0].CharacterCount)
	}
	meta := result.TranslationMetadata
	if meta.TotalTexts != 2 {
		t.Fatalf("expected total_texts=2, got %d", meta.TotalTexts)
	}
	if meta.TotalCharacters != len("Hello")+len("Good morning") {
		t.Fatalf("unexpected total_characters %d", meta.TotalCharacters)
	}
	if meta.ProcessingStatus != payloadschema.ProcessingStatusCompleted {
		t.Fatalf("expected completed status, got %q", meta.ProcessingStatus)
	}
	if meta.Timestamp == "" {
		t.Fatalf("expected timestamp to be set")
	}
}

func TestProcessSkipsExistingResult(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{}
	proc, requests, responses := newTestProcessor(provider, config.FailurePolicyFail)

	putRequest(t, requests, "req-2.json", `{
		"source_language":"en",
		"target_language":"es",
		"texts":[{"id":1,"text":"Hello"}]
	}`)
	putRequest(t, responses, "req-2.json", `{"existing":"result"}`)

	outcome, err := proc.Process(context.Background(), "req-2.json")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if outcome != OutcomeSkipped {
		t.Fatalf("expected skipped outcome, got %q", outcome)
	}
	if provider.callCount() != 0 {
		t.Fatalf("expected provider untouched, got %d calls", provider.callCount())
	}

	// The pre-existing result is preserved byte for byte.
	data, err := responses.Get(context.Background(), "req-2.json")
	if err != nil {
		t.Fatalf("get result failed: %v", err)
	}
	if string(data) != `{"existing":"result"}` {
		t.Fatalf("existing result was overwritten: %s", data)
	}
}

func TestProcessMissingRequest(t *testing.T) {
	t.Parallel()

	proc, _, _ := newTestProcessor(&fakeProvider{}, config.FailurePolicyFail)

	_, err := proc.Process(context.Background(), "absent.json")
	if !errors.Is(err, blobstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProcessMalformedRequest(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{}
	proc, requests, responses := newTestProcessor(provider, config.FailurePolicyFail)

	putRequest(t, requests, "bad.json", `{"source_language":"en"}`)

	_, err := proc.Process(context.Background(), "bad.json")
	var malformed *MalformedInputError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedInputError, got %v", err)
	}
	if malformed.Key != "bad.json" {
		t.Fatalf("expected key in error, got %q", malformed.Key)
	}
	if provider.callCount() != 0 {
		t.Fatalf("expected no provider calls, got %d", provider.callCount())
	}

	exists, err := responses.Exists(context.Background(), "bad.json")
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if exists {
		t.Fatalf("expected no result for malformed request")
	}
}

func TestProcessEmptyTextPassthrough(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{responses: map[string]string{"Hello": "Hola"}}
	proc, requests, responses := newTestProcessor(provider, config.FailurePolicyFail)

	putRequest(t, requests, "req-3.json", `{
		"source_language":"en",
		"target_language":"es",
		"texts":[{"id":1,"text":"   "},{"id":2,"text":"Hello"}]
	}`)

	if _, err := proc.Process(context.Background(), "req-3.json"); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if provider.callCount() != 1 {
		t.Fatalf("expected 1 provider call, got %d", provider.callCount())
	}

	result := getResult(t, responses, "req-3.json")
	blank := result.Texts[0]
	if blank.TranslatedText != "   " || blank.OriginalText != "   " {
		t.Fatalf("expected blank passthrough, got %+v", blank)
	}
	if blank.CharacterCount != 0 {
		t.Fatalf("expected character_count=0 for blank item, got %d", blank.CharacterCount)
	}
	if result.TranslationMetadata.TotalTexts != 2 {
		t.Fatalf("expected total_texts=2, got %d", result.TranslationMetadata.TotalTexts)
	}
	if result.TranslationMetadata.TotalCharacters != 5 {
		t.Fatalf("expected total_characters=5, got %d", result.TranslationMetadata.TotalCharacters)
	}
}

func TestProcessFailPolicyWritesNothing(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		responses: map[string]string{"Hello": "Hola"},
		failTexts: map[string]error{
			"Broken": &translation.ProviderError{Provider: "fake", Status: 500, Message: "boom"},
		},
	}
	proc, requests, responses := newTestProcessor(provider, config.FailurePolicyFail)

	putRequest(t, requests, "req-4.json", `{
		"source_language":"en",
		"target_language":"es",
		"texts":[{"id":1,"text":"Hello"},{"id":2,"text":"Broken"}]
	}`)

	_, err := proc.Process(context.Background(), "req-4.json")
	var failure *TranslationFailureError
	if !errors.As(err, &failure) {
		t.Fatalf("expected TranslationFailureError, got %v", err)
	}
	if failure.ItemID != 2 {
		t.Fatalf("expected failing item 2, got %d", failure.ItemID)
	}

	exists, existsErr := responses.Exists(context.Background(), "req-4.json")
	if existsErr != nil {
		t.Fatalf("exists failed: %v", existsErr)
	}
	if exists {
		t.Fatalf("expected no result under fail policy")
	}
}

func TestProcessPartialPolicyRecordsFailures(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		responses: map[string]string{"Hello": "Hola"},
		failTexts: map[string]error{
			"Broken": &translation.ProviderError{Provider: "fake", Status: 500, Message: "boom"},
		},
	}
	proc, requests, responses := newTestProcessor(provider, config.FailurePolicyPartial)

	putRequest(t, requests, "req-5.json", `{
		"source_language":"en",
		"target_language":"es",
		"texts":[{"id":1,"text":"Hello"},{"id":2,"text":"Broken"}]
	}`)

	if _, err := proc.Process(context.Background(), "req-5.json"); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	result := getResult(t, responses, "req-5.json")
	if result.TranslationMetadata.ProcessingStatus != payloadschema.ProcessingStatusPartial {
		t.Fatalf("expected partial status, got %q", result.TranslationMetadata.ProcessingStatus)
	}
	if result.Texts[0].TranslatedText != "Hola" || result.Texts[0].Status != "" {
		t.Fatalf("unexpected succeeded item: %+v", result.Texts[0])
	}
	failedItem := result.Texts[1]
	if failedItem.Status != payloadschema.ItemStatusFailed {
		t.Fatalf("expected failed status, got %q", failedItem.Status)
	}
	if failedItem.Error == "" || failedItem.TranslatedText != "" {
		t.Fatalf("unexpected failed item: %+v", failedItem)
	}
}

func TestProcessPartialPolicyAllFailedWritesNothing(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		failTexts: map[string]error{
			"Broken": &translation.ProviderError{Provider: "fake", Status: 500, Message: "boom"},
		},
	}
	proc, requests, responses := newTestProcessor(provider, config.FailurePolicyPartial)

	putRequest(t, requests, "req-6.json", `{
		"source_language":"en",
		"target_language":"es",
		"texts":[{"id":1,"text":"Broken"}]
	}`)

	_, err := proc.Process(context.Background(), "req-6.json")
	var failure *TranslationFailureError
	if !errors.As(err, &failure) {
		t.Fatalf("expected TranslationFailureError, got %v", err)
	}

	exists, existsErr := responses.Exists(context.Background(), "req-6.json")
	if existsErr != nil {
		t.Fatalf("exists failed: %v", existsErr)
	}
	if exists {
		t.Fatalf("expected no result when every item fails")
	}
}

func TestProcessResolvesAutoSource(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{responses: map[string]string{"Hello there friend": "Hola amigo"}}
	proc, requests, responses := newTestProcessor(provider, config.FailurePolicyFail)

	putRequest(t, requests, "req-7.json", `{
		"source_language":"auto",
		"target_language":"es",
		"texts":[{"id":1,"text":"Hello there friend"}]
	}`)

	if _, err := proc.Process(context.Background(), "req-7.json"); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	result := getResult(t, responses, "req-7.json")
	if result.SourceLanguage != "en" {
		t.Fatalf("expected resolved source en, got %q", result.SourceLanguage)
	}
	provider.mu.Lock()
	defer provider.mu.Unlock()
	if len(provider.sources) != 1 || provider.sources[0] != "en" {
		t.Fatalf("expected provider to receive resolved source, got %v", provider.sources)
	}
}

func TestRunProcessesWatchedRequests(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{responses: map[string]string{"Hello": "Hola"}}
	proc, requests, responses := newTestProcessor(provider, config.FailurePolicyFail)

	// Uploaded before the worker starts: picked up by the startup sweep.
	putRequest(t, requests, "early.json", `{
		"source_language":"en",
		"target_language":"es",
		"texts":[{"id":1,"text":"Hello"}]
	}`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- proc.Run(ctx)
	}()

	waitForResult(t, responses, "early.json")

	// Uploaded while the worker is running: picked up by the watch.
	putRequest(t, requests, "late.json", `{
		"source_language":"en",
		"target_language":"es",
		"texts":[{"id":1,"text":"Hello"}]
	}`)

	waitForResult(t, responses, "late.json")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop after cancellation")
	}
}

func waitForResult(t *testing.T, store blobstore.Store, key string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		exists, err := store.Exists(context.Background(), key)
		if err != nil {
			t.Fatalf("exists failed: %v", err)
		}
		if exists {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("result %q did not appear in time", key)
}
