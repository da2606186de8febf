// Package submitapi implements the user-facing Submit API: catalog-driven
// submission validation, input-manifest resolution, and materialization of
// SubmittedJob envelopes posted to the Worker API (§4.5).
package submitapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/catalystcommunity/app-utils-go/logging"
	"github.com/cloudforge/jobbroker/internal/catalog"
	"github.com/cloudforge/jobbroker/internal/store"
)

// ErrorResponse is the JSON error envelope, matching the Worker API's.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// BaseHandler centralizes JSON response writing and domain-error
// translation, mirroring workerapi.BaseHandler.
type BaseHandler struct{}

func (h *BaseHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logging.Log.WithError(err).Error("failed to encode response")
		}
	}
}

func (h *BaseHandler) respondWithError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrUnknownTriple), errors.Is(err, ErrDisallowedEnvVar), errors.Is(err, ErrUnknownInput):
		h.respondWithJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: "validation_error", Message: err.Error()})
	case errors.Is(err, store.ErrValidation):
		h.respondWithJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: "validation_error", Message: err.Error()})
	case errors.Is(err, store.ErrNotFound):
		h.respondWithJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: err.Error()})
	case errors.Is(err, store.ErrUnauthorized):
		h.respondWithJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
	default:
		logging.Log.WithError(err).Error("submit api request failed")
		h.respondWithJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}
}
