// Package client drives the upload/poll side of the translation pipeline:
// it submits translation requests to the HTTP API and retrieves results once
// the processor has written them.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"horse.fit/lingodrop/internal/globaltime"
	payloadschema "horse.fit/lingodrop/schema"
)

// ErrNotReady is returned by GetResult while the processor has not yet
// written a result for the request. Pollers keep going on this error.
var ErrNotReady = errors.New("translation result not ready")

// UploadError covers upload failures: Status carries the HTTP status for
// non-2xx responses, or 0 when the request never reached the server.
type UploadError struct {
	Status int
	Body   string
}

func (e *UploadError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("upload failed: %s", e.Body)
	}
	return fmt.Sprintf("upload failed with status %d: %s", e.Status, e.Body)
}

// PollError covers result retrieval failures other than not-ready: a non-404
// error status, or a transport failure (Status 0).
type PollError struct {
	Status int
	Body   string
}

func (e *PollError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("poll failed: %s", e.Body)
	}
	return fmt.Sprintf("poll failed with status %d: %s", e.Status, e.Body)
}

// UploadRequest is one submission. RequestID may be left empty; the workflow
// fills in a fresh uuid before uploading.
type UploadRequest struct {
	RequestID      string
	SourceLanguage string
	TargetLanguage string
	Texts          []payloadschema.TextItem
	ClientInfo     map[string]any
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type uploadPayload struct {
	RequestID      string                   `json:"request_id"`
	SourceLanguage string                   `json:"source_language"`
	TargetLanguage string                   `json:"target_language"`
	Texts          []payloadschema.TextItem `json:"texts"`
	Timestamp      string                   `json:"timestamp"`
	ClientInfo     map[string]any           `json:"client_info,omitempty"`
}

type uploadResponse struct {
	Status string `json:"status"`
	Data   struct {
		RequestID string `json:"request_id"`
		Key       string `json:"key"`
	} `json:"data"`
}

// Upload submits a translation request and returns the storage key the
// server filed it under. Non-2xx responses surface the body verbatim.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (string, error) {
	payload := uploadPayload{
		RequestID:      req.RequestID,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		Texts:          req.Texts,
		Timestamp:      globaltime.UTC().Format(time.RFC3339),
		ClientInfo:     req.ClientInfo,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode upload payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/upload", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return "", &UploadError{Status: 0, Body: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &UploadError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var parsed uploadResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	return parsed.Data.Key, nil
}

// GetResult fetches the translation result for a request id. It returns
// ErrNotReady on 404 so callers can keep polling, and a PollError for any
// other failure.
func (c *Client) GetResult(ctx context.Context, requestID string) (*payloadschema.TranslationResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/result/"+requestID, nil)
	if err != nil {
		return nil, fmt.Errorf("build result request: %w", err)
	}

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return nil, &PollError{Status: 0, Body: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read result response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotReady
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &PollError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	result, err := payloadschema.ParseTranslationResult(respBody)
	if err != nil {
		return nil, fmt.Errorf("parse translation result: %w", err)
	}
	return result, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
