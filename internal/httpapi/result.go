package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/lingodrop/internal/blobstore"
	payloadschema "horse.fit/lingodrop/schema"
)

// resultNotFoundMessage is what pollers see until the processor has written
// a result; clients treat this 404 as "keep polling".
const resultNotFoundMessage = "Translation not found or still processing."

// handleResult serves the stored translation result verbatim. Absence is a
// 404 (pending or unknown request), a stored object that does not parse is a
// 500 so clients never mistake corruption for pending work.
func (s *Server) handleResult(c echo.Context) error {
	requestID := strings.TrimSpace(c.Param("request_id"))
	if requestID == "" {
		return fail(c, http.StatusBadRequest, "request_id is required", nil)
	}
	key := blobstore.ObjectKey(requestID)
	if !blobstore.ValidKey(key) {
		return fail(c, http.StatusBadRequest, "request_id contains invalid characters", nil)
	}

	data, err := s.responses.Get(c.Request().Context(), key)
	if errors.Is(err, blobstore.ErrNotFound) {
		return failNotFound(c, resultNotFoundMessage)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("read translation result failed")
		return internalError(c, "Failed to read translation result")
	}

	if _, err := payloadschema.ParseTranslationResult(data); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("stored translation result is corrupt")
		return internalError(c, "Stored translation result is corrupt")
	}

	return c.JSONBlob(http.StatusOK, data)
}
