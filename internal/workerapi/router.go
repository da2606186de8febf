package workerapi

import (
	"net/http"
	"strings"

	"github.com/cloudforge/jobbroker/internal/filebroker"
	"github.com/cloudforge/jobbroker/internal/middleware"
	"github.com/cloudforge/jobbroker/internal/store"
	"github.com/rs/cors"
)

// NewRouter builds the Worker API's http.Handler: a raw ServeMux with
// manual path-prefix parsing, wrapped in CORS, following the teacher's
// handlers.NewRouter pattern rather than a third-party router.
func NewRouter(appStore store.Store, broker filebroker.FileBroker) http.Handler {
	mux := http.NewServeMux()

	jobsHandler := NewJobsHandler(appStore)
	filesHandler := NewFilesHandler(appStore, broker)
	internalHandler := NewInternalHandler(appStore)

	txn := middleware.TransactionMiddleware
	workerAuth := middleware.WorkerAuthMiddleware
	apiKeyAuth := middleware.InternalAPIKeyMiddleware

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		Welcome(w, r)
	})

	mux.HandleFunc("/access_info", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		AccessInfo(w, r)
	})

	mux.Handle("/files/", txn(workerAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/files/")
		switch {
		case strings.HasSuffix(path, "/download"):
			filePath := strings.TrimSuffix(path, "/download")
			filesHandler.Download(w, r, filePath)
		case strings.HasSuffix(path, "/url"):
			// Unlike Download, the broker needs the full, suffix-terminated
			// path here: GetFileURL derives both the storage key and the
			// rewritten download URL from it (§4.1's anchored replace).
			filesHandler.URL(w, r, path)
		default:
			http.NotFound(w, r)
		}
	}))))

	mux.Handle("/jobs", txn(workerAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		jobsHandler.ListJobs(w, r)
	}))))

	mux.Handle("/jobs/", txn(workerAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/jobs/")
		if path == "" {
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		}

		switch {
		case strings.HasSuffix(path, "/status"):
			jobID := strings.TrimSuffix(path, "/status")
			switch r.Method {
			case http.MethodGet:
				jobsHandler.GetStatus(w, r, jobID)
			case http.MethodPut:
				jobsHandler.PutStatus(w, r, jobID)
			default:
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			}
		case strings.HasSuffix(path, "/files/upload"):
			jobID := strings.TrimSuffix(path, "/files/upload")
			if r.Method != http.MethodPost {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			filesHandler.Upload(w, r, jobID)
		case strings.HasSuffix(path, "/files/url"):
			jobID := strings.TrimSuffix(path, "/files/url")
			if r.Method != http.MethodPost {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			filesHandler.UploadURL(w, r, jobID)
		default:
			http.NotFound(w, r)
		}
	}))))

	mux.Handle("/_jobs", txn(apiKeyAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		internalHandler.CreateJob(w, r)
	}))))

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "x-api-key"},
		AllowCredentials: true,
	})
	return c.Handler(mux)
}
