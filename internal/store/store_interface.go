package store

import (
	"context"

	"github.com/cloudforge/jobbroker/internal/store/models"
	"gorm.io/gorm"
)

var AppStore Store

// GetDB returns the database connection backing the active store, used by
// the transaction middleware to open per-request transactions.
func GetDB() *gorm.DB {
	if s, ok := AppStore.(interface{ GetDB() *gorm.DB }); ok {
		return s.GetDB()
	}
	return nil
}

// Store is the JobQueue contract. A single implementation backs both the
// Postgres (row-locked) and SQLite (mutex-guarded) deployment targets; see
// queue_store for both.
type Store interface {
	Initialize() (deferredFunc func(), err error)

	// Create persists a brand new queued job and returns its assigned id.
	Create(ctx context.Context, submitted *models.SubmittedJob) (*models.QueuedJob, error)

	// Delete removes a job row outright (used when the Submit API reports
	// the owning job record itself was deleted upstream).
	Delete(ctx context.Context, jobID string) error

	// Enqueue is an alias kept for symmetry with Create in the spec's
	// vocabulary; it is identical to Create.
	Enqueue(ctx context.Context, submitted *models.SubmittedJob) (*models.QueuedJob, error)

	// Peek returns the best-matching queued job for filter without claiming
	// it. Read-only.
	Peek(ctx context.Context, worker string, filter models.JobFilter) (*models.QueuedJob, error)

	// Pop atomically claims a specific job for worker, transitioning it from
	// queued to pulled and appending worker to its history. Returns
	// ErrConflict if the job is no longer available.
	Pop(ctx context.Context, worker, jobID string) (*models.QueuedJob, error)

	// Dequeue composes Peek+Pop, retrying on a race against another worker
	// until a job is claimed or none remain.
	Dequeue(ctx context.Context, worker string, filter models.JobFilter) (*models.QueuedJob, error)

	// GetJob fetches a job by id regardless of status.
	GetJob(ctx context.Context, jobID string) (*models.QueuedJob, error)

	// GetJobForWorker fetches a job by id and verifies hostname is the
	// current lease-holder (the tail of workers), returning ErrNotFound
	// otherwise so a non-lease-holder can't distinguish "not mine" from
	// "doesn't exist".
	GetJobForWorker(ctx context.Context, jobID, hostname string) (*models.QueuedJob, error)

	// UpdateJobStatusForWorker transitions a job to a new status, refreshing
	// last_updated. Only the current tail of workers (the lease-holder) may
	// transition a job. Returns ErrConflict if the job is already terminal.
	UpdateJobStatusForWorker(ctx context.Context, jobID string, status models.JobStatus, hostname, runtimeDetails string) (*models.QueuedJob, error)

	// HandleTimeouts scans for non-terminal jobs whose lease has expired and
	// either requeues or fails them, returning the jobs it touched.
	HandleTimeouts(ctx context.Context, maxRetries int) ([]models.QueuedJob, error)
}
