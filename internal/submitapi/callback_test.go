package submitapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudforge/jobbroker/internal/store/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatus_RecordsCallback(t *testing.T) {
	tracker := NewStatusTracker()
	h := NewCallbackHandler(tracker)

	body := []byte(`{"status":"running","runtime_details":"pid 123"}`)
	req := httptest.NewRequest(http.MethodPut, "/_job_status/job-1", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.JobStatus(rec, req, "job-1")

	require.Equal(t, http.StatusOK, rec.Code)
	status, ok := tracker.Get("job-1")
	require.True(t, ok)
	assert.Equal(t, models.StatusRunning, status.Status)
	assert.Equal(t, "pid 123", status.RuntimeDetails)
}

func TestJobStatus_RequiresStatus(t *testing.T) {
	h := NewCallbackHandler(NewStatusTracker())
	req := httptest.NewRequest(http.MethodPut, "/_job_status/job-1", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	h.JobStatus(rec, req, "job-1")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestJobStatus_InvalidBody(t *testing.T) {
	h := NewCallbackHandler(NewStatusTracker())
	req := httptest.NewRequest(http.MethodPut, "/_job_status/job-1", bytes.NewBufferString("not json"))
	rec := httptest.NewRecorder()
	h.JobStatus(rec, req, "job-1")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
