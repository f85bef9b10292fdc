package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/apperr"
)

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Error  string            `json:"error"`
	Code   apperr.Code       `json:"code"`
	Reason string            `json:"reason,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// statusFor maps an error category to an HTTP status.
func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeInvalidInput:
		return http.StatusBadRequest
	case apperr.CodeForbidden:
		return http.StatusForbidden
	case apperr.CodeBusinessRule:
		return http.StatusConflict
	case apperr.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as a structured error. Internal failures are
// logged and replaced by a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		ae = apperr.Internal("internal error", err)
	}

	status := statusFor(ae.Code)
	payload := errorResponse{
		Error:  strings.TrimSpace(ae.Message),
		Code:   ae.Code,
		Reason: ae.Reason,
		Fields: ae.Fields,
	}
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		payload.Error = "internal error"
	}
	writeJSON(w, status, payload)
}

// writeUnauthenticated rejects a request that names no caller.
func writeUnauthenticated(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, errorResponse{
		Error:  "missing " + CallerHeader + " header",
		Code:   apperr.CodeForbidden,
		Reason: "missing_caller",
	})
}
