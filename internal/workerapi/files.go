package workerapi

import (
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/cloudforge/jobbroker/internal/auth"
	"github.com/cloudforge/jobbroker/internal/filebroker"
	"github.com/cloudforge/jobbroker/internal/store"
)

// FilesHandler implements the file-brokerage endpoints: the bare
// /files/{path}/{download,url} pair and the per-job upload pair under
// /jobs/{id}/files/* (§4.1, §4.4).
type FilesHandler struct {
	BaseHandler
	Store  store.Store
	Broker filebroker.FileBroker
}

func NewFilesHandler(s store.Store, fb filebroker.FileBroker) *FilesHandler {
	return &FilesHandler{Store: s, Broker: fb}
}

// Download implements GET /files/{path}/download.
func (h *FilesHandler) Download(w http.ResponseWriter, r *http.Request, filePath string) {
	rc, err := h.Broker.GetFile(r.Context(), filePath)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	io.Copy(w, rc)
}

// URL implements GET /files/{path}/url.
func (h *FilesHandler) URL(w http.ResponseWriter, r *http.Request, filePath string) {
	req, err := h.Broker.GetFileURL(r.Context(), filePath, r.Header.Get("Authorization"), "/url", "/download")
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, req)
}

// uploadDestination validates the requester is the job's lease-holder and
// resolves {type, base_path} into a concrete upload-root path under the
// job's paths_upload manifest.
func (h *FilesHandler) uploadDestination(r *http.Request, jobID, uploadType, basePath string) (string, error) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		return "", store.ErrUnauthorized
	}
	job, err := h.Store.GetJobForWorker(r.Context(), jobID, principal.Hostname)
	if err != nil {
		return "", err
	}

	root, ok := job.PathsUpload[uploadType]
	if !ok || root == "" {
		return "", store.ErrValidation
	}
	return path.Join(root, basePath) + "/", nil
}

// Upload implements POST /jobs/{id}/files/upload.
func (h *FilesHandler) Upload(w http.ResponseWriter, r *http.Request, jobID string) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		h.respondWithError(w, store.ErrValidation)
		return
	}

	uploadType := r.FormValue("type")
	basePath := r.FormValue("base_path")
	dest, err := h.uploadDestination(r, jobID, uploadType, basePath)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondWithError(w, store.ErrValidation)
		return
	}
	defer file.Close()

	target := strings.TrimSuffix(dest, "/") + "/" + header.Filename
	if err := h.Broker.PostFile(r.Context(), target, file); err != nil {
		h.respondWithError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// UploadURL implements POST /jobs/{id}/files/url.
func (h *FilesHandler) UploadURL(w http.ResponseWriter, r *http.Request, jobID string) {
	uploadType := r.URL.Query().Get("type")
	basePath := r.URL.Query().Get("base_path")
	dest, err := h.uploadDestination(r, jobID, uploadType, basePath)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	req, err := h.Broker.PostFileURL(r.Context(), dest, "/url", "/upload")
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, req)
}
