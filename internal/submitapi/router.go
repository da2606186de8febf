package submitapi

import (
	"net/http"
	"strings"

	"github.com/cloudforge/jobbroker/internal/catalog"
	"github.com/cloudforge/jobbroker/internal/config"
	"github.com/cloudforge/jobbroker/internal/middleware"
	"github.com/rs/cors"
)

// NewRouter builds the Submit API's http.Handler, following the same raw
// ServeMux + CORS-wrap pattern as workerapi.NewRouter.
func NewRouter(cat *catalog.Catalog, tracker *StatusTracker) http.Handler {
	mux := http.NewServeMux()

	submissionHandler := NewSubmissionHandler(cat, NewWorkerAPIClient(), tracker, config.UserDataRootPath)
	callbackHandler := NewCallbackHandler(tracker)

	apiKeyAuth := middleware.InternalAPIKeyMiddleware

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		(&BaseHandler{}).respondWithJSON(w, http.StatusOK, map[string]string{"message": "jobbroker submit api"})
	})

	mux.HandleFunc("/submissions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		submissionHandler.Submit(w, r)
	})

	mux.HandleFunc("/submissions/", func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/submissions/")
		jobID := strings.TrimSuffix(path, "/status")
		if jobID == path || r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		submissionHandler.Status(w, r, jobID)
	})

	mux.Handle("/_job_status/", apiKeyAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jobID := strings.TrimPrefix(r.URL.Path, "/_job_status/")
		if jobID == "" || r.Method != http.MethodPut {
			http.NotFound(w, r)
			return
		}
		callbackHandler.JobStatus(w, r, jobID)
	})))

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "x-api-key"},
		AllowCredentials: true,
	})
	return c.Handler(mux)
}
