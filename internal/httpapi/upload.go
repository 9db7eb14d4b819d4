package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"horse.fit/lingodrop/internal/blobstore"
	"horse.fit/lingodrop/internal/globaltime"
	"horse.fit/lingodrop/internal/language"
	payloadschema "horse.fit/lingodrop/schema"
)

type uploadRequest struct {
	RequestID      string                   `json:"request_id"`
	SourceLanguage string                   `json:"source_language"`
	TargetLanguage string                   `json:"target_language"`
	Text           string                   `json:"text"`
	Texts          []payloadschema.TextItem `json:"texts"`
	Timestamp      string                   `json:"timestamp"`
	ClientInfo     map[string]any           `json:"client_info"`
}

// handleUpload accepts a translation request and stores it in the request
// namespace. Translation happens asynchronously, so the response only
// acknowledges the upload; clients poll the result endpoint afterwards.
func (s *Server) handleUpload(c echo.Context) error {
	var body uploadRequest
	if err := c.Bind(&body); err != nil {
		return fail(c, http.StatusBadRequest, "Request body must be valid JSON", nil)
	}

	fieldErrors := map[string]string{}

	sourceLang := language.NormalizeTag(body.SourceLanguage)
	if sourceLang == "" {
		fieldErrors["source_language"] = "must be a language tag"
	}
	targetLang := language.NormalizeTag(body.TargetLanguage)
	if targetLang == "" {
		fieldErrors["target_language"] = "must be a language tag"
	} else if language.IsAuto(body.TargetLanguage) {
		fieldErrors["target_language"] = "must not be auto"
	}

	texts := body.Texts
	if len(texts) == 0 {
		if strings.TrimSpace(body.Text) == "" {
			fieldErrors["text"] = "must not be empty"
		} else {
			texts = []payloadschema.TextItem{{ID: 1, Text: body.Text}}
		}
	} else {
		hasContent := false
		for _, item := range texts {
			if strings.TrimSpace(item.Text) != "" {
				hasContent = true
				break
			}
		}
		if !hasContent {
			fieldErrors["texts"] = "must contain at least one non-empty text"
		}
	}

	requestID := strings.TrimSpace(body.RequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	key := blobstore.ObjectKey(requestID)
	if !blobstore.ValidKey(key) {
		fieldErrors["request_id"] = "contains invalid characters"
	}

	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	timestamp := strings.TrimSpace(body.Timestamp)
	if timestamp == "" {
		timestamp = globaltime.UTC().Format(time.RFC3339)
	}

	stored := payloadschema.TranslationRequest{
		RequestID:      requestID,
		SourceLanguage: sourceLang,
		TargetLanguage: targetLang,
		Texts:          texts,
		Timestamp:      timestamp,
		ClientInfo:     body.ClientInfo,
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("encode translation request failed")
		return internalError(c, "Failed to encode translation request")
	}

	// Round-trip through the schema so only valid requests enter the store.
	if _, err := payloadschema.ValidateTranslationRequestPayload(data); err != nil {
		return failValidation(c, map[string]string{"request": err.Error()})
	}

	if err := s.requests.Put(c.Request().Context(), key, data); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("store translation request failed")
		return internalError(c, "Failed to store translation request")
	}

	s.logger.Info().
		Str("key", key).
		Str("source_language", sourceLang).
		Str("target_language", targetLang).
		Int("texts", len(texts)).
		Msg("translation request accepted")

	return successWithStatus(c, http.StatusAccepted, map[string]any{
		"request_id": requestID,
		"key":        key,
	})
}
