package workerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudforge/jobbroker/internal/auth"
	"github.com/cloudforge/jobbroker/internal/store"
	"github.com/cloudforge/jobbroker/internal/store/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is a minimal store.Store stand-in; tests set only the function
// fields the handler under test actually calls.
type fakeStore struct {
	dequeueFunc                func(ctx context.Context, worker string, filter models.JobFilter) (*models.QueuedJob, error)
	getJobForWorkerFunc        func(ctx context.Context, jobID, hostname string) (*models.QueuedJob, error)
	updateJobStatusForWorker   func(ctx context.Context, jobID string, status models.JobStatus, hostname, runtimeDetails string) (*models.QueuedJob, error)
}

func (f *fakeStore) Initialize() (func(), error) { return nil, nil }
func (f *fakeStore) Create(ctx context.Context, s *models.SubmittedJob) (*models.QueuedJob, error) {
	panic("not implemented")
}
func (f *fakeStore) Delete(ctx context.Context, jobID string) error { panic("not implemented") }
func (f *fakeStore) Enqueue(ctx context.Context, s *models.SubmittedJob) (*models.QueuedJob, error) {
	panic("not implemented")
}
func (f *fakeStore) Peek(ctx context.Context, worker string, filter models.JobFilter) (*models.QueuedJob, error) {
	panic("not implemented")
}
func (f *fakeStore) Pop(ctx context.Context, worker, jobID string) (*models.QueuedJob, error) {
	panic("not implemented")
}
func (f *fakeStore) Dequeue(ctx context.Context, worker string, filter models.JobFilter) (*models.QueuedJob, error) {
	return f.dequeueFunc(ctx, worker, filter)
}
func (f *fakeStore) GetJob(ctx context.Context, jobID string) (*models.QueuedJob, error) {
	panic("not implemented")
}
func (f *fakeStore) GetJobForWorker(ctx context.Context, jobID, hostname string) (*models.QueuedJob, error) {
	return f.getJobForWorkerFunc(ctx, jobID, hostname)
}
func (f *fakeStore) UpdateJobStatusForWorker(ctx context.Context, jobID string, status models.JobStatus, hostname, runtimeDetails string) (*models.QueuedJob, error) {
	return f.updateJobStatusForWorker(ctx, jobID, status, hostname, runtimeDetails)
}
func (f *fakeStore) HandleTimeouts(ctx context.Context, maxRetries int) ([]models.QueuedJob, error) {
	panic("not implemented")
}

var _ store.Store = (*fakeStore)(nil)

func withPrincipal(r *http.Request, p *auth.Principal) *http.Request {
	return r.WithContext(auth.SetPrincipalContext(r.Context(), p))
}

func TestListJobs_RequiresMemoryParam(t *testing.T) {
	h := NewJobsHandler(&fakeStore{})
	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/jobs", nil), &auth.Principal{Hostname: "worker-a", Environment: "local"})

	rec := httptest.NewRecorder()
	h.ListJobs(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestListJobs_RejectsSemicolonInHostname(t *testing.T) {
	h := NewJobsHandler(&fakeStore{})
	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/jobs?memory=4", nil), &auth.Principal{Hostname: "bad;host", Environment: "local"})

	rec := httptest.NewRecorder()
	h.ListJobs(rec, req)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestListJobs_DefaultLimitDequeuesOnce(t *testing.T) {
	calls := 0
	fs := &fakeStore{
		dequeueFunc: func(ctx context.Context, worker string, filter models.JobFilter) (*models.QueuedJob, error) {
			calls++
			return &models.QueuedJob{ID: "job-1", Job: models.JobSpec{Meta: models.MetaSpec{JobID: "job-1"}}}, nil
		},
	}
	h := NewJobsHandler(fs)
	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/jobs?memory=4", nil), &auth.Principal{Hostname: "worker-a", Environment: "local"})

	rec := httptest.NewRecorder()
	h.ListJobs(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, calls)

	var body map[string]models.JobSpec
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Contains(t, body, "job-1")
}

func TestListJobs_LimitStopsEarlyWhenQueueDrains(t *testing.T) {
	calls := 0
	fs := &fakeStore{
		dequeueFunc: func(ctx context.Context, worker string, filter models.JobFilter) (*models.QueuedJob, error) {
			calls++
			if calls > 2 {
				return nil, store.ErrNotFound
			}
			id := "job-" + string(rune('0'+calls))
			return &models.QueuedJob{ID: id, Job: models.JobSpec{Meta: models.MetaSpec{JobID: id}}}, nil
		},
	}
	h := NewJobsHandler(fs)
	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/jobs?memory=4&limit=5", nil), &auth.Principal{Hostname: "worker-a", Environment: "local"})

	rec := httptest.NewRecorder()
	h.ListJobs(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, calls, "should stop dequeuing once the store reports no more jobs, without erroring")

	var body map[string]models.JobSpec
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Len(t, body, 2)
}

func TestGetStatus_NonLeaseHolderGetsNotFound(t *testing.T) {
	fs := &fakeStore{
		getJobForWorkerFunc: func(ctx context.Context, jobID, hostname string) (*models.QueuedJob, error) {
			return nil, store.ErrNotFound
		},
	}
	h := NewJobsHandler(fs)
	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/jobs/job-1/status", nil), &auth.Principal{Hostname: "worker-b"})

	rec := httptest.NewRecorder()
	h.GetStatus(rec, req, "job-1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPutStatus_RequiresStatusField(t *testing.T) {
	h := NewJobsHandler(&fakeStore{})
	req := withPrincipal(httptest.NewRequest(http.MethodPut, "/jobs/job-1/status", bytes.NewBufferString(`{}`)), &auth.Principal{Hostname: "worker-a"})

	rec := httptest.NewRecorder()
	h.PutStatus(rec, req, "job-1")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPutStatus_Success(t *testing.T) {
	var gotStatus models.JobStatus
	fs := &fakeStore{
		updateJobStatusForWorker: func(ctx context.Context, jobID string, status models.JobStatus, hostname, runtimeDetails string) (*models.QueuedJob, error) {
			gotStatus = status
			return &models.QueuedJob{ID: jobID, Status: status}, nil
		},
	}
	h := NewJobsHandler(fs)
	body, _ := json.Marshal(statusUpdateRequest{Status: models.StatusRunning})
	req := withPrincipal(httptest.NewRequest(http.MethodPut, "/jobs/job-1/status", bytes.NewReader(body)), &auth.Principal{Hostname: "worker-a"})

	rec := httptest.NewRecorder()
	h.PutStatus(rec, req, "job-1")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, models.StatusRunning, gotStatus)
}
