package workerapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/cloudforge/jobbroker/internal/auth"
	"github.com/cloudforge/jobbroker/internal/store"
	"github.com/cloudforge/jobbroker/internal/store/models"
)

// JobsHandler implements GET /jobs and the {id}/status endpoints.
type JobsHandler struct {
	BaseHandler
	Store store.Store
}

func NewJobsHandler(s store.Store) *JobsHandler {
	return &JobsHandler{Store: s}
}

const defaultListLimit = 1

// ListJobs implements GET /jobs: a worker's pull request, resolved by
// repeatedly dequeuing up to query's limit (§4.4).
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		h.respondWithError(w, store.ErrUnauthorized)
		return
	}
	if strings.Contains(principal.Hostname, ";") {
		w.WriteHeader(http.StatusPreconditionFailed)
		return
	}

	q := r.URL.Query()
	memoryStr := q.Get("memory")
	if memoryStr == "" {
		h.respondWithError(w, store.ErrValidation)
		return
	}
	memory, err := strconv.ParseFloat(memoryStr, 64)
	if err != nil {
		h.respondWithError(w, store.ErrValidation)
		return
	}

	filter := models.JobFilter{
		Environment: models.Environment(principal.Environment),
		Memory:      memory,
		Groups:      principal.Groups,
	}
	if v := q.Get("cpu_cores"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.CPUCores = n
		}
	}
	if v := q.Get("gpu_mem"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			filter.GPUMem = n
		}
	}
	if v := q.Get("gpu_model"); v != "" {
		filter.GPUModel = &v
	}
	if v := q.Get("gpu_archi"); v != "" {
		filter.GPUArchi = &v
	}
	if v := q.Get("older_than"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.OlderThan = n
		}
	}
	if groups, ok := q["groups"]; ok {
		filter.Groups = groups
	}

	limit := defaultListLimit
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	results := map[string]models.JobSpec{}
	for i := 0; i < limit; i++ {
		job, err := h.Store.Dequeue(r.Context(), principal.Hostname, filter)
		if err != nil {
			break
		}
		results[job.ID] = job.Job
	}

	h.respondWithJSON(w, http.StatusOK, results)
}

// GetStatus implements GET /jobs/{id}/status.
func (h *JobsHandler) GetStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		h.respondWithError(w, store.ErrUnauthorized)
		return
	}

	job, err := h.Store.GetJobForWorker(r.Context(), jobID, principal.Hostname)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, job.Status)
}

type statusUpdateRequest struct {
	Status         models.JobStatus `json:"status"`
	RuntimeDetails string           `json:"runtime_details,omitempty"`
}

// PutStatus implements PUT /jobs/{id}/status.
func (h *JobsHandler) PutStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		h.respondWithError(w, store.ErrUnauthorized)
		return
	}

	var body statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Status == "" {
		h.respondWithError(w, store.ErrValidation)
		return
	}

	_, err := h.Store.UpdateJobStatusForWorker(r.Context(), jobID, body.Status, principal.Hostname, body.RuntimeDetails)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
