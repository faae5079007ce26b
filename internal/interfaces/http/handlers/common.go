// Package handlers adapts HTTP requests to the molecule service and writes
// JSON responses.
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/turtacn/molscout/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molscout/pkg/errors"
	"github.com/turtacn/molscout/pkg/types/common"
)

// DefaultMaxBodySize bounds request bodies when no limit is configured.
const DefaultMaxBodySize = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a structured error body.
func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code errors.ErrorCode, message string) {
	body := common.NewErrorDetail(code.String(), message)
	body.RequestID = logging.RequestIDFrom(r.Context())
	writeJSON(w, statusCode, body)
}

// writeAppError maps err to a status through its ErrorCode. Errors without
// an AppError in their chain are masked as internal errors.
func writeAppError(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	var ae *errors.AppError
	if !stderrors.As(err, &ae) {
		logging.FromContext(r.Context(), logger).Error("unhandled error", logging.Err(err))
		writeError(w, r, http.StatusInternalServerError, errors.ErrCodeInternal, errors.DefaultMessageForCode(errors.ErrCodeInternal))
		return
	}

	status := errors.HTTPStatusForCode(ae.Code)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context(), logger).Error("request failed",
			logging.String("code", ae.Code.String()), logging.Err(err))
	}
	writeError(w, r, status, ae.Code, ae.Message)
}

// decodeJSON reads a single JSON value from r's body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst interface{}) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodySize
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes))
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.InvalidParam("request body too large").WithCause(err)
		}
		return errors.InvalidParam("request body must be a JSON object").WithCause(err).WithDetail(err.Error())
	}
	return nil
}
