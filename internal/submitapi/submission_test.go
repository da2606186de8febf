package submitapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudforge/jobbroker/internal/catalog"
	"github.com/cloudforge/jobbroker/internal/store/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		Applications: map[string]catalog.Application{
			"sleeper": {
				Versions: map[string]catalog.Version{
					"1": {
						ImageURL: "example/sleeper:1",
						Entrypoints: map[string]catalog.Entrypoint{
							"main": {
								Cmd:        []string{"python", "run.py"},
								AllowedEnv: []string{"DURATION"},
								Hardware:   catalog.EntrypointHardware{CPUCores: 2, Memory: 4},
							},
						},
					},
				},
			},
		},
	}
}

func newSubmissionHandler(t *testing.T, workerAPI *httptest.Server) *SubmissionHandler {
	t.Helper()
	client := &WorkerAPIClient{HTTPClient: workerAPI.Client(), BaseURL: workerAPI.URL, APIKey: "secret"}
	return NewSubmissionHandler(testCatalog(), client, NewStatusTracker(), t.TempDir())
}

func doSubmit(h *SubmissionHandler, req SubmissionRequest) *httptest.ResponseRecorder {
	body, _ := json.Marshal(req)
	httpReq := httptest.NewRequest(http.MethodPost, "/submissions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Submit(rec, httpReq)
	return rec
}

func TestSubmit_HappyPath(t *testing.T) {
	workerAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_jobs", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))

		var submitted models.SubmittedJob
		require.NoError(t, json.NewDecoder(r.Body).Decode(&submitted))
		assert.Equal(t, []string{"python", "run.py"}, submitted.Job.App.Cmd)
		assert.Equal(t, "example/sleeper:1", submitted.Job.Handler.ImageURL)
		assert.Equal(t, submitted.PathsUpload, submitted.Job.Handler.FilesUp)
		assert.Contains(t, submitted.Job.Handler.FilesUp, "output")
		assert.Contains(t, submitted.Job.Handler.FilesUp, "log")
		assert.Contains(t, submitted.Job.Handler.FilesUp, "artifact")

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.QueuedJob{
			ID:     submitted.Job.Meta.JobID,
			Status: models.StatusQueued,
		})
	}))
	defer workerAPI.Close()

	h := newSubmissionHandler(t, workerAPI)
	rec := doSubmit(h, SubmissionRequest{
		Application:   "sleeper",
		Version:       "1",
		Entrypoint:    "main",
		SubmitterName: "alice",
		EnvVars:       map[string]string{"DURATION": "5"},
		Environment:   models.EnvironmentLocal,
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.QueuedJob
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, models.StatusQueued, created.Status)

	status, ok := h.Tracker.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, models.StatusQueued, status.Status)
}

func TestSubmit_MissingSubmitterName(t *testing.T) {
	workerAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("worker api should not be contacted on a validation failure")
	}))
	defer workerAPI.Close()

	h := newSubmissionHandler(t, workerAPI)
	rec := doSubmit(h, SubmissionRequest{Application: "sleeper", Version: "1", Entrypoint: "main"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSubmit_UnknownCatalogTriple(t *testing.T) {
	workerAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("worker api should not be contacted when the catalog lookup fails")
	}))
	defer workerAPI.Close()

	h := newSubmissionHandler(t, workerAPI)
	rec := doSubmit(h, SubmissionRequest{
		Application:   "unknown-app",
		Version:       "1",
		Entrypoint:    "main",
		SubmitterName: "alice",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSubmit_DisallowedEnvVar(t *testing.T) {
	workerAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("worker api should not be contacted when an env var is disallowed")
	}))
	defer workerAPI.Close()

	h := newSubmissionHandler(t, workerAPI)
	rec := doSubmit(h, SubmissionRequest{
		Application:   "sleeper",
		Version:       "1",
		Entrypoint:    "main",
		SubmitterName: "alice",
		EnvVars:       map[string]string{"FORBIDDEN": "1"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestStatus_UnknownJob(t *testing.T) {
	h := newSubmissionHandler(t, httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))
	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/submissions/missing/status", nil), "missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
