package workerapi

import (
	"encoding/json"
	"net/http"

	"github.com/cloudforge/jobbroker/internal/store"
	"github.com/cloudforge/jobbroker/internal/store/models"
)

// InternalHandler implements the API-key-gated service-to-service
// endpoint the Submit API calls to enqueue new work (§4.4, §4.5).
type InternalHandler struct {
	BaseHandler
	Store store.Store
}

func NewInternalHandler(s store.Store) *InternalHandler {
	return &InternalHandler{Store: s}
}

// CreateJob implements POST /_jobs: accepts a SubmittedJob verbatim and
// echoes the created row.
func (h *InternalHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var submitted models.SubmittedJob
	if err := json.NewDecoder(r.Body).Decode(&submitted); err != nil {
		h.respondWithError(w, store.ErrValidation)
		return
	}

	job, err := h.Store.Enqueue(r.Context(), &submitted)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, job)
}
