package submitapi

import (
	"encoding/json"
	"net/http"

	"github.com/cloudforge/jobbroker/internal/store"
	"github.com/cloudforge/jobbroker/internal/store/models"
)

// CallbackHandler receives the Worker API's JobTracker status callbacks
// (§4.3, §6 "PUT /_job_status/{id}").
type CallbackHandler struct {
	BaseHandler
	Tracker *StatusTracker
}

func NewCallbackHandler(tracker *StatusTracker) *CallbackHandler {
	return &CallbackHandler{Tracker: tracker}
}

type statusCallback struct {
	Status         models.JobStatus `json:"status"`
	RuntimeDetails string           `json:"runtime_details,omitempty"`
}

// JobStatus implements PUT /_job_status/{id}. It records the reported status
// in the in-memory tracker and answers 200, or 422 when the body is not valid
// JSON or carries no status. It never answers 404 and does not mark the job
// as deleted in the tracker.
func (h *CallbackHandler) JobStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	var body statusCallback
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.respondWithError(w, store.ErrValidation)
		return
	}
	if body.Status == "" {
		h.respondWithError(w, store.ErrValidation)
		return
	}

	h.Tracker.Record(jobID, body.Status, body.RuntimeDetails)
	h.respondWithJSON(w, http.StatusOK, nil)
}
