package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	payloadschema "horse.fit/lingodrop/schema"
)

// fakeAPI mimics the upload and result boundaries of the HTTP server. It
// serves notReadyPolls 404s before returning the configured result.
type fakeAPI struct {
	mu            sync.Mutex
	uploads       int
	polls         int
	notReadyPolls int
	uploadStatus  int
	uploadBody    string
	pollStatus    int
	pollBody      string
	resultJSON    string
	lastUpload    []byte
	lastRequestID string
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.uploads++

		var payload uploadPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err == nil {
			f.lastUpload, _ = json.Marshal(payload)
			f.lastRequestID = payload.RequestID
		}

		if f.uploadStatus != 0 && f.uploadStatus != http.StatusAccepted {
			w.WriteHeader(f.uploadStatus)
			_, _ = w.Write([]byte(f.uploadBody))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"status":"success","data":{"request_id":"` + payload.RequestID + `","key":"` + payload.RequestID + `.json"}}`))
	})
	mux.HandleFunc("/result/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.polls++

		if f.pollStatus != 0 {
			w.WriteHeader(f.pollStatus)
			_, _ = w.Write([]byte(f.pollBody))
			return
		}
		if f.polls <= f.notReadyPolls {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":"fail","message":"Translation not found or still processing."}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(f.resultJSON))
	})
	return mux
}

func (f *fakeAPI) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads
}

func (f *fakeAPI) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

const workflowResultJSON = `{
  "request_id": "req-1",
  "source_language": "en",
  "target_language": "es",
  "texts": [
    {"id": 1, "translated_text": "Hola", "original_text": "Hello", "character_count": 5}
  ],
  "translation_metadata": {
    "total_texts": 1,
    "total_characters": 5,
    "timestamp": "2026-02-20T10:00:00Z",
    "processing_status": "completed"
  }
}`

func newWorkflowUnderTest(t *testing.T, api *fakeAPI, opts WorkflowOptions) (*Workflow, *fakeAPI) {
	t.Helper()
	server := httptest.NewServer(api.handler())
	t.Cleanup(server.Close)
	return NewWorkflow(New(server.URL), opts), api
}

func TestWorkflowRunPollsUntilDone(t *testing.T) {
	t.Parallel()

	w, api := newWorkflowUnderTest(t, &fakeAPI{
		notReadyPolls: 2,
		resultJSON:    workflowResultJSON,
	}, WorkflowOptions{PollInterval: 5 * time.Millisecond, MaxDuration: 5 * time.Second})

	result, err := w.Run(context.Background(), UploadRequest{
		RequestID:      "req-1",
		SourceLanguage: "en",
		TargetLanguage: "es",
		Texts:          []payloadschema.TextItem{{ID: 1, Text: "Hello"}},
	})
	if err != nil {
		t.Fatalf("workflow run failed: %v", err)
	}

	if w.State() != StateDone {
		t.Fatalf("unexpected state: got %q want %q", w.State(), StateDone)
	}
	if result.Texts[0].TranslatedText != "Hola" {
		t.Fatalf("unexpected translation: %q", result.Texts[0].TranslatedText)
	}
	if got := api.pollCount(); got != 3 {
		t.Fatalf("expected 3 polls (two not-ready, one hit), got %d", got)
	}
	if got := api.uploadCount(); got != 1 {
		t.Fatalf("expected exactly one upload, got %d", got)
	}
}

func TestWorkflowUploadsSchemaValidPayload(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{resultJSON: workflowResultJSON}
	w, _ := newWorkflowUnderTest(t, api, WorkflowOptions{PollInterval: time.Millisecond, MaxDuration: time.Second})

	if _, err := w.Run(context.Background(), UploadRequest{
		RequestID:      "req-1",
		SourceLanguage: "auto",
		TargetLanguage: "es",
		Texts:          []payloadschema.TextItem{{ID: 1, Text: "Hello"}},
	}); err != nil {
		t.Fatalf("workflow run failed: %v", err)
	}

	api.mu.Lock()
	uploaded := append([]byte(nil), api.lastUpload...)
	api.mu.Unlock()
	if _, err := payloadschema.ValidateTranslationRequestPayload(uploaded); err != nil {
		t.Fatalf("uploaded payload is not schema-valid: %v", err)
	}
}

func TestWorkflowGeneratesRequestID(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{resultJSON: workflowResultJSON}
	w, _ := newWorkflowUnderTest(t, api, WorkflowOptions{PollInterval: time.Millisecond, MaxDuration: time.Second})

	if _, err := w.Run(context.Background(), UploadRequest{
		SourceLanguage: "en",
		TargetLanguage: "es",
		Texts:          []payloadschema.TextItem{{ID: 1, Text: "Hello"}},
	}); err != nil {
		t.Fatalf("workflow run failed: %v", err)
	}

	requestID := w.RequestID()
	if requestID == "" {
		t.Fatalf("expected a generated request id")
	}
	api.mu.Lock()
	uploadedID := api.lastRequestID
	api.mu.Unlock()
	if uploadedID != requestID {
		t.Fatalf("uploaded id %q does not match workflow id %q", uploadedID, requestID)
	}
}

func TestWorkflowValidationSkipsNetwork(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{resultJSON: workflowResultJSON}
	w, _ := newWorkflowUnderTest(t, api, WorkflowOptions{PollInterval: time.Millisecond, MaxDuration: time.Second})

	_, err := w.Run(context.Background(), UploadRequest{
		SourceLanguage: "en",
		TargetLanguage: "es",
		Texts:          []payloadschema.TextItem{{ID: 1, Text: "   "}},
	})

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if validationErr.Field != "text" {
		t.Fatalf("unexpected field: %q", validationErr.Field)
	}
	if w.State() != StateIdle {
		t.Fatalf("validation failure must not leave Idle, got %q", w.State())
	}
	if got := api.uploadCount(); got != 0 {
		t.Fatalf("expected no uploads, got %d", got)
	}
	if got := api.pollCount(); got != 0 {
		t.Fatalf("expected no polls, got %d", got)
	}
}

func TestWorkflowUploadFailureSkipsPolling(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{uploadStatus: http.StatusInternalServerError, uploadBody: "store exploded"}
	w, _ := newWorkflowUnderTest(t, api, WorkflowOptions{PollInterval: time.Millisecond, MaxDuration: time.Second})

	_, err := w.Run(context.Background(), UploadRequest{
		SourceLanguage: "en",
		TargetLanguage: "es",
		Texts:          []payloadschema.TextItem{{ID: 1, Text: "Hello"}},
	})

	var uploadErr *UploadError
	if !errors.As(err, &uploadErr) {
		t.Fatalf("expected UploadError, got %v", err)
	}
	if uploadErr.Status != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", uploadErr.Status)
	}
	if !strings.Contains(uploadErr.Body, "store exploded") {
		t.Fatalf("expected response body to be carried verbatim, got %q", uploadErr.Body)
	}
	if w.State() != StateFailed {
		t.Fatalf("unexpected state: got %q want %q", w.State(), StateFailed)
	}
	if got := api.pollCount(); got != 0 {
		t.Fatalf("failed upload must not poll, got %d polls", got)
	}
}

func TestWorkflowTimesOut(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{notReadyPolls: 1 << 30}
	w, _ := newWorkflowUnderTest(t, api, WorkflowOptions{
		PollInterval: 5 * time.Millisecond,
		MaxDuration:  40 * time.Millisecond,
	})

	_, err := w.Run(context.Background(), UploadRequest{
		SourceLanguage: "en",
		TargetLanguage: "es",
		Texts:          []payloadschema.TextItem{{ID: 1, Text: "Hello"}},
	})

	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("expected ErrTimedOut, got %v", err)
	}
	if w.State() != StateTimedOut {
		t.Fatalf("unexpected state: got %q want %q", w.State(), StateTimedOut)
	}
	if got := api.pollCount(); got == 0 {
		t.Fatalf("expected at least one poll before timing out")
	}
}

func TestWorkflowPollFailureFails(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{pollStatus: http.StatusBadGateway, pollBody: "upstream gone"}
	w, _ := newWorkflowUnderTest(t, api, WorkflowOptions{PollInterval: time.Millisecond, MaxDuration: time.Second})

	_, err := w.Run(context.Background(), UploadRequest{
		SourceLanguage: "en",
		TargetLanguage: "es",
		Texts:          []payloadschema.TextItem{{ID: 1, Text: "Hello"}},
	})

	var pollErr *PollError
	if !errors.As(err, &pollErr) {
		t.Fatalf("expected PollError, got %v", err)
	}
	if pollErr.Status != http.StatusBadGateway {
		t.Fatalf("unexpected status: %d", pollErr.Status)
	}
	if w.State() != StateFailed {
		t.Fatalf("unexpected state: got %q want %q", w.State(), StateFailed)
	}
}

func TestWorkflowCancelStopsPolling(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{notReadyPolls: 1 << 30}
	w, _ := newWorkflowUnderTest(t, api, WorkflowOptions{
		PollInterval: 10 * time.Millisecond,
		MaxDuration:  time.Minute,
	})

	done := make(chan error, 1)
	go func() {
		_, err := w.Run(context.Background(), UploadRequest{
			SourceLanguage: "en",
			TargetLanguage: "es",
			Texts:          []payloadschema.TextItem{{ID: 1, Text: "Hello"}},
		})
		done <- err
	}()

	deadline := time.After(5 * time.Second)
	for w.State() != StatePolling {
		select {
		case <-deadline:
			t.Fatalf("workflow never started polling, state %q", w.State())
		case <-time.After(time.Millisecond):
		}
	}
	w.Cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("workflow did not stop after cancel")
	}
	if w.State() != StateFailed {
		t.Fatalf("unexpected state: got %q want %q", w.State(), StateFailed)
	}
}

func TestWorkflowIsSingleUse(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{resultJSON: workflowResultJSON}
	w, _ := newWorkflowUnderTest(t, api, WorkflowOptions{PollInterval: time.Millisecond, MaxDuration: time.Second})

	req := UploadRequest{
		RequestID:      "req-1",
		SourceLanguage: "en",
		TargetLanguage: "es",
		Texts:          []payloadschema.TextItem{{ID: 1, Text: "Hello"}},
	}
	if _, err := w.Run(context.Background(), req); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if _, err := w.Run(context.Background(), req); err == nil {
		t.Fatalf("expected second run to be rejected")
	}
}
