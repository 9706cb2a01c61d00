package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"visitor-counter/internal/middleware"
	apperrors "visitor-counter/pkg/errors"
	"visitor-counter/pkg/logger"
)

// DataResponse wraps successful read responses
type DataResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// MessageResponse is returned by endpoints that only acknowledge
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

func writeJSON(w http.ResponseWriter, log *logger.Logger, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

// writeError maps err to a status code and the standard error body.
// Errors that are not AppErrors are reported as internal.
func writeError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.NewInternalError("internal server error", err)
	}

	entry := log.WithError(err).WithFields(map[string]interface{}{
		"type":   appErr.Type,
		"path":   r.URL.Path,
		"status": appErr.StatusCode,
	})
	if appErr.StatusCode >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}

	response := &apperrors.ErrorResponse{Success: false}
	response.Error.Type = appErr.Type
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.RequestID = middleware.GetRequestID(r.Context())
	response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)

	if appErr.Retryable() {
		w.Header().Set("Retry-After", "5")
	}
	writeJSON(w, log, appErr.StatusCode, response)
}
