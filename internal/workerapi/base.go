// Package workerapi hosts the Worker API HTTP surface: job dequeue and
// status endpoints, file brokerage, the internal enqueue receiver, and the
// identity-provider bootstrap endpoint (§4.4). Routing follows the
// teacher's raw http.ServeMux + manual path-prefix parsing style rather
// than a third-party router.
package workerapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloudforge/jobbroker/internal/filebroker"
	"github.com/cloudforge/jobbroker/internal/store"
)

// ErrorResponse is the standard JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// BaseHandler carries the error-translation logic shared by every
// workerapi handler, mirroring the teacher's handlers.BaseHandler.
type BaseHandler struct{}

func (h *BaseHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// respondWithError maps a domain sentinel error to the HTTP status table
// in §7.
func (h *BaseHandler) respondWithError(w http.ResponseWriter, err error) {
	var code int
	var errType, message string

	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, filebroker.ErrNotFound):
		code, errType, message = http.StatusNotFound, "not_found", "resource not found"
	case errors.Is(err, store.ErrPermissionDenied), errors.Is(err, filebroker.ErrPermissionDenied):
		code, errType, message = http.StatusForbidden, "permission_denied", "permission denied"
	case errors.Is(err, store.ErrValidation):
		code, errType, message = http.StatusUnprocessableEntity, "validation_error", "invalid request"
	case errors.Is(err, store.ErrUnauthorized):
		code, errType, message = http.StatusUnauthorized, "unauthorized", "unauthorized"
	case errors.Is(err, store.ErrConflict):
		code, errType, message = http.StatusConflict, "conflict", "conflicting update"
	case errors.Is(err, store.ErrJobDeleted):
		code, errType, message = http.StatusNotFound, "job_deleted", "job was deleted"
	default:
		code, errType, message = http.StatusInternalServerError, "internal_error", "internal server error"
	}

	h.respondWithJSON(w, code, ErrorResponse{Error: errType, Message: message})
}
