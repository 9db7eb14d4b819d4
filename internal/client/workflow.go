package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	payloadschema "horse.fit/lingodrop/schema"
)

// State is the lifecycle of a single submission.
type State string

const (
	StateIdle      State = "idle"
	StateUploading State = "uploading"
	StatePolling   State = "polling"
	StateDone      State = "done"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed_out"
)

const (
	DefaultPollInterval = 3 * time.Second
	DefaultMaxDuration  = 5 * time.Minute
)

// ErrTimedOut is returned by Run when no result arrived within MaxDuration.
var ErrTimedOut = errors.New("timed out waiting for translation result")

// ValidationError reports a request rejected before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type WorkflowOptions struct {
	// PollInterval is the fixed delay between result polls. The interval
	// does not adapt; the first poll happens one interval after upload.
	PollInterval time.Duration
	// MaxDuration bounds the whole polling phase.
	MaxDuration time.Duration
}

// Workflow runs one submission end to end: validate, upload, poll until the
// result lands or a terminal state is reached. A workflow instance is
// single-use; fresh submissions get a fresh workflow and a fresh request id.
type Workflow struct {
	client *Client
	opts   WorkflowOptions

	mu        sync.Mutex
	state     State
	requestID string
	started   bool
	cancel    context.CancelFunc
}

func NewWorkflow(c *Client, opts WorkflowOptions) *Workflow {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = DefaultMaxDuration
	}
	return &Workflow{
		client: c,
		opts:   opts,
		state:  StateIdle,
	}
}

// State reports the current lifecycle state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// RequestID reports the id the workflow uploaded under; empty until Run has
// passed validation.
func (w *Workflow) RequestID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.requestID
}

// Cancel stops the workflow: the next poll never fires and an in-flight
// request is abandoned through its context.
func (w *Workflow) Cancel() {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (w *Workflow) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// Run executes the submission. Validation failures return a *ValidationError
// and leave the workflow Idle without touching the network. Upload failures
// and unexpected poll failures transition to Failed; expiry of MaxDuration
// transitions to TimedOut and returns ErrTimedOut.
func (w *Workflow) Run(ctx context.Context, req UploadRequest) (*payloadschema.TranslationResult, error) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil, errors.New("workflow already started")
	}
	w.started = true
	w.mu.Unlock()

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.RequestID) == "" {
		req.RequestID = uuid.NewString()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	w.mu.Lock()
	w.requestID = req.RequestID
	w.cancel = cancel
	w.mu.Unlock()

	w.setState(StateUploading)
	if _, err := w.client.Upload(runCtx, req); err != nil {
		w.setState(StateFailed)
		if runCtx.Err() != nil {
			return nil, runCtx.Err()
		}
		return nil, err
	}

	w.setState(StatePolling)

	// The workflow owns both timers; a terminal transition stops them so a
	// stale poll can never fire after Done, Failed, or TimedOut.
	pollTimer := time.NewTimer(w.opts.PollInterval)
	defer pollTimer.Stop()
	deadline := time.NewTimer(w.opts.MaxDuration)
	defer deadline.Stop()

	for {
		select {
		case <-runCtx.Done():
			w.setState(StateFailed)
			return nil, runCtx.Err()
		case <-deadline.C:
			w.setState(StateTimedOut)
			return nil, ErrTimedOut
		case <-pollTimer.C:
		}

		result, err := w.client.GetResult(runCtx, req.RequestID)
		if errors.Is(err, ErrNotReady) {
			pollTimer.Reset(w.opts.PollInterval)
			continue
		}
		if err != nil {
			w.setState(StateFailed)
			// A poll abandoned by Cancel reports the cancellation, not the
			// transport error it happened to die with.
			if runCtx.Err() != nil {
				return nil, runCtx.Err()
			}
			return nil, err
		}

		w.setState(StateDone)
		return result, nil
	}
}

func validateRequest(req UploadRequest) error {
	if strings.TrimSpace(req.SourceLanguage) == "" {
		return &ValidationError{Field: "source_language", Reason: "must not be empty"}
	}
	if strings.TrimSpace(req.TargetLanguage) == "" {
		return &ValidationError{Field: "target_language", Reason: "must not be empty"}
	}
	hasContent := false
	for _, item := range req.Texts {
		if strings.TrimSpace(item.Text) != "" {
			hasContent = true
			break
		}
	}
	if !hasContent {
		return &ValidationError{Field: "text", Reason: "must not be empty"}
	}
	return nil
}
