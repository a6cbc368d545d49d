package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/indrealty/realty-cms/pkg/realtycms"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success *bool  `json:"success,omitempty"`
	Error   string `json:"error"`
}

// statusFor maps an error category to its HTTP status. Conflicts are reported
// as 400 for compatibility with existing clients.
func statusFor(err error) int {
	switch {
	case errors.Is(err, realtycms.ErrValidation), errors.Is(err, realtycms.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, realtycms.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, realtycms.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// writeError renders err as {error: message} with the mapped status.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeErrorBody(w, r, statusFor(err), ErrorResponse{Error: realtycms.Message(err)}, err)
}

// writeFailure renders err as {success: false, error: message}. Authorization
// failures keep the bare {error} shape.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusForbidden {
		writeError(w, r, err)
		return
	}
	success := false
	writeErrorBody(w, r, status, ErrorResponse{Success: &success, Error: realtycms.Message(err)}, err)
}

// writeFailureMessage renders a fixed message, hiding the cause from clients.
func writeFailureMessage(w http.ResponseWriter, r *http.Request, status int, msg string, cause error) {
	success := false
	writeErrorBody(w, r, status, ErrorResponse{Success: &success, Error: msg}, cause)
}

func writeErrorBody(w http.ResponseWriter, r *http.Request, status int, body ErrorResponse, cause error) {
	if status >= http.StatusInternalServerError && cause != nil {
		slog.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", cause)
	}
	render.Status(r, status)
	render.JSON(w, r, body)
}

func errorJSON(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: msg})
}
