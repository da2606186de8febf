package submitapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudforge/jobbroker/internal/catalog"
	"github.com/cloudforge/jobbroker/internal/store"
	"github.com/cloudforge/jobbroker/internal/store/models"
	"github.com/google/uuid"
)

// SubmissionRequest is the user-facing submission payload: an (application,
// version, entrypoint) triple from the catalog, logical input ids, and
// environment-variable overrides (§4.5).
type SubmissionRequest struct {
	Application   string            `json:"application"`
	Version       string            `json:"version"`
	Entrypoint    string            `json:"entrypoint"`
	ConfigID      string            `json:"config_id,omitempty"`
	DataIDs       []string          `json:"data_ids,omitempty"`
	ArtifactIDs   []string          `json:"artifact_ids,omitempty"`
	EnvVars       map[string]string `json:"env_vars,omitempty"`
	Environment   models.Environment `json:"environment"`
	Group         *string           `json:"group,omitempty"`
	Priority      int               `json:"priority,omitempty"`
	SubmitterName string            `json:"submitter_name"`
}

// SubmissionHandler implements the Submit API's enqueue path.
type SubmissionHandler struct {
	BaseHandler
	Catalog *catalog.Catalog
	Client  *WorkerAPIClient
	Tracker *StatusTracker
	DataRoot string
}

func NewSubmissionHandler(cat *catalog.Catalog, client *WorkerAPIClient, tracker *StatusTracker, dataRoot string) *SubmissionHandler {
	return &SubmissionHandler{Catalog: cat, Client: client, Tracker: tracker, DataRoot: dataRoot}
}

// Submit implements POST /submissions.
func (h *SubmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, store.ErrValidation)
		return
	}
	if req.SubmitterName == "" {
		h.respondWithError(w, fmt.Errorf("%w: submitter_name is required", store.ErrValidation))
		return
	}

	imageURL, entrypoint, err := h.Catalog.Resolve(req.Application, req.Version, req.Entrypoint)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	if key := entrypoint.ValidateEnv(req.EnvVars); key != "" {
		h.respondWithError(w, fmt.Errorf("%w: %s", ErrDisallowedEnvVar, key))
		return
	}

	filesDown, err := BuildFilesDown(h.DataRoot, req.SubmitterName, req.ConfigID, req.DataIDs, req.ArtifactIDs)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	jobID := uuid.NewString()
	pathsUpload := BuildPathsUpload(h.DataRoot, req.SubmitterName, jobID)

	priority := req.Priority
	if priority == 0 {
		priority = 5
	}

	submitted := &models.SubmittedJob{
		Job: models.JobSpec{
			App: models.AppSpec{
				Cmd:     entrypoint.Cmd,
				EnvVars: req.EnvVars,
			},
			Handler: models.HandlerSpec{
				ImageURL:  imageURL,
				FilesDown: filesDown,
				FilesUp:   pathsUpload,
			},
			Meta: models.MetaSpec{
				JobID:         jobID,
				DateCreated:   time.Now().UTC(),
				SubmitterName: req.SubmitterName,
			},
			Hardware: models.HardwareSpec{
				CPUCores: entrypoint.Hardware.CPUCores,
				Memory:   entrypoint.Hardware.Memory,
				GPUMem:   entrypoint.Hardware.GPUMem,
				GPUModel: entrypoint.Hardware.GPUModel,
				GPUArchi: entrypoint.Hardware.GPUArchi,
			},
		},
		Environment: req.Environment,
		Group:       req.Group,
		Priority:    priority,
		PathsUpload: pathsUpload,
	}

	created, err := h.Client.Enqueue(r.Context(), submitted)
	if err != nil {
		h.respondWithError(w, fmt.Errorf("%w: %s", store.ErrUpstream, err.Error()))
		return
	}

	h.Tracker.Record(created.ID, created.Status, "")
	h.respondWithJSON(w, http.StatusCreated, created)
}

// Status implements GET /submissions/{id}/status, reading back the last
// callback the Worker API sent.
func (h *SubmissionHandler) Status(w http.ResponseWriter, r *http.Request, jobID string) {
	status, ok := h.Tracker.Get(jobID)
	if !ok {
		h.respondWithError(w, store.ErrNotFound)
		return
	}
	h.respondWithJSON(w, http.StatusOK, status)
}
