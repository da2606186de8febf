package queue_store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/catalystcommunity/app-utils-go/logging"
	"github.com/cloudforge/jobbroker/internal/config"
	"github.com/cloudforge/jobbroker/internal/store"
	"github.com/cloudforge/jobbroker/internal/store/models"
	"github.com/cloudforge/jobbroker/internal/tracker"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Create persists submitted as a new queued_jobs row, copying the
// filter-relevant hardware fields out of the embedded job spec into
// dedicated columns so they can be indexed (§4.2).
func (s QueueStore) Create(ctx context.Context, submitted *models.SubmittedJob) (*models.QueuedJob, error) {
	job := &models.QueuedJob{
		Status:         models.StatusQueued,
		Job:            submitted.Job,
		PathsUpload:    submitted.PathsUpload,
		Environment:    submitted.Environment,
		Group:          submitted.Group,
		Priority:       submitted.Priority,
		TimeoutSeconds: config.TimeoutFailure,
	}
	if job.Priority == 0 {
		job.Priority = 5
	}
	hw := submitted.Job.Hardware
	if hw.CPUCores > 0 {
		job.CPUCores = &hw.CPUCores
	}
	if hw.Memory > 0 {
		job.Memory = &hw.Memory
	}
	if hw.GPUMem > 0 {
		job.GPUMem = &hw.GPUMem
	}
	if hw.GPUModel != "" {
		job.GPUModel = &hw.GPUModel
	}
	if hw.GPUArchi != "" {
		job.GPUArchi = &hw.GPUArchi
	}

	if err := dbFromContext(ctx).Create(job).Error; err != nil {
		return nil, fmt.Errorf("creating queued job: %w", err)
	}
	return job, nil
}

// Enqueue is an alias for Create, kept for symmetry with the spec's
// vocabulary (§4.2).
func (s QueueStore) Enqueue(ctx context.Context, submitted *models.SubmittedJob) (*models.QueuedJob, error) {
	return s.Create(ctx, submitted)
}

// Delete removes a job row outright, used when the Submit API reports the
// owning submission record itself was deleted upstream (§4.2, JobDeleted).
func (s QueueStore) Delete(ctx context.Context, jobID string) error {
	result := dbFromContext(ctx).Delete(&models.QueuedJob{}, "id = ?", jobID)
	if result.Error != nil {
		return fmt.Errorf("deleting queued job %s: %w", jobID, result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Peek returns the best-matching queued job for filter without claiming it
// (§4.2). Read-only: no write, no transaction held open past the query.
func (s QueueStore) Peek(ctx context.Context, worker string, filter models.JobFilter) (*models.QueuedJob, error) {
	filter.Normalize()
	job, err := selectCandidate(dbFromContext(ctx), worker, filter, false, config.RetryDifferent)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("peeking queue: %w", err)
	}
	return job, nil
}

// Pop atomically claims jobID for worker: it must still be queued, it
// transitions to pulled, and worker is appended to its history (§4.2,
// invariants 1-2). Returns store.ErrConflict if the row was claimed first.
func (s QueueStore) Pop(ctx context.Context, worker, jobID string) (*models.QueuedJob, error) {
	var claimed *models.QueuedJob

	err := withLock(func() error {
		return dbFromContext(ctx).Transaction(func(tx *gorm.DB) error {
			q := tx.Model(&models.QueuedJob{})
			if !isSQLite {
				q = q.Clauses(clause.Locking{Strength: "UPDATE"})
			}

			var job models.QueuedJob
			if err := q.Where("id = ?", jobID).First(&job).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return store.ErrConflict
				}
				return err
			}
			if job.Status != models.StatusQueued {
				return store.ErrConflict
			}

			job.Workers = append(job.Workers, worker)
			job.Status = models.StatusPulled
			job.LastUpdated = time.Now().UTC()

			if err := tx.Model(&job).Select("Workers", "Status", "LastUpdated").Updates(map[string]interface{}{
				"workers":      job.Workers,
				"status":       job.Status,
				"last_updated": job.LastUpdated,
			}).Error; err != nil {
				return err
			}
			claimed = &job
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	tracker.Default.NotifyAsync(claimed.ID, claimed.Status, "")
	return claimed, nil
}

// Dequeue composes Peek and Pop, retrying on a lost race against another
// worker until a job is claimed or none remain eligible (§4.2). This is the
// only place Pop's store.ErrConflict is swallowed; every other caller sees
// it surface.
func (s QueueStore) Dequeue(ctx context.Context, worker string, filter models.JobFilter) (*models.QueuedJob, error) {
	filter.Normalize()
	for {
		candidate, err := s.Peek(ctx, worker, filter)
		if err != nil {
			return nil, err
		}

		job, err := s.Pop(ctx, worker, candidate.ID)
		if err == nil {
			return job, nil
		}
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		return nil, err
	}
}

// GetJob fetches a job by id regardless of status.
func (s QueueStore) GetJob(ctx context.Context, jobID string) (*models.QueuedJob, error) {
	var job models.QueuedJob
	if err := dbFromContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("getting job %s: %w", jobID, err)
	}
	return &job, nil
}

// GetJobForWorker fetches a job by id and verifies hostname is the current
// lease-holder (the tail of workers), returning store.ErrNotFound otherwise
// so a non-lease-holder can't distinguish "not mine" from "doesn't exist"
// (§7's PermissionDenied-surfaced-as-NotFound policy).
func (s QueueStore) GetJobForWorker(ctx context.Context, jobID, hostname string) (*models.QueuedJob, error) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !isLeaseHolder(job, hostname) {
		return nil, store.ErrNotFound
	}
	return job, nil
}

func isLeaseHolder(job *models.QueuedJob, hostname string) bool {
	if len(job.Workers) == 0 {
		return false
	}
	return job.Workers[len(job.Workers)-1] == hostname
}

// UpdateJobStatusForWorker transitions jobID to newStatus on behalf of
// hostname, refreshing last_updated and notifying the JobTracker (§4.2).
// Only the current lease-holder may transition a job; terminal statuses
// never transition again. If the tracker reports the submitter-side record
// is gone, the row is deleted and store.ErrJobDeleted is returned so the
// HTTP layer can translate it to 404.
func (s QueueStore) UpdateJobStatusForWorker(ctx context.Context, jobID string, newStatus models.JobStatus, hostname string, runtimeDetails string) (*models.QueuedJob, error) {
	var updated *models.QueuedJob

	err := withLock(func() error {
		return dbFromContext(ctx).Transaction(func(tx *gorm.DB) error {
			q := tx.Model(&models.QueuedJob{})
			if !isSQLite {
				q = q.Clauses(clause.Locking{Strength: "UPDATE"})
			}

			var job models.QueuedJob
			if err := q.Where("id = ?", jobID).First(&job).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return store.ErrNotFound
				}
				return err
			}
			if !isLeaseHolder(&job, hostname) {
				return store.ErrNotFound
			}
			if job.Status.IsTerminal() {
				return store.ErrConflict
			}

			job.Status = newStatus
			job.LastUpdated = time.Now().UTC()
			if err := tx.Model(&job).Select("Status", "LastUpdated").Updates(map[string]interface{}{
				"status":       job.Status,
				"last_updated": job.LastUpdated,
			}).Error; err != nil {
				return err
			}
			updated = &job
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if trackErr := tracker.Default.Notify(ctx, updated.ID, updated.Status, runtimeDetails); trackErr != nil {
		if errors.Is(trackErr, tracker.ErrJobDeleted) {
			if delErr := s.Delete(ctx, jobID); delErr != nil && !errors.Is(delErr, store.ErrNotFound) {
				return nil, delErr
			}
			return nil, store.ErrJobDeleted
		}
		// UpstreamError: logged here; the callback is not retried and the
		// status update itself still succeeds.
		logging.Log.WithError(trackErr).WithField("job_id", jobID).Warn("job tracker callback failed")
	}

	return updated, nil
}

// HandleTimeouts scans for non-terminal jobs whose lease has expired and
// either requeues or fails them (§4.6). Runs in a single transaction per
// sweep; the worker history is left intact on requeue so the
// no-retry-same-worker rule keeps steering the job away.
func (s QueueStore) HandleTimeouts(ctx context.Context, maxRetries int) ([]models.QueuedJob, error) {
	var touched []models.QueuedJob

	err := withLock(func() error {
		return dbFromContext(ctx).Transaction(func(tx *gorm.DB) error {
			cutoff := time.Now().UTC().Add(-time.Duration(config.TimeoutFailure) * time.Second)

			var stalled []models.QueuedJob
			q := tx.Model(&models.QueuedJob{})
			if !isSQLite {
				q = q.Clauses(clause.Locking{Strength: "UPDATE"})
			}
			if err := q.Where("status IN ?", nonTerminalStatuses).
				Where("last_updated < ?", cutoff).
				Find(&stalled).Error; err != nil {
				return err
			}

			for i := range stalled {
				job := &stalled[i]
				now := time.Now().UTC()
				if job.NumRetries < maxRetries {
					job.NumRetries++
					job.Status = models.StatusQueued
					job.LastUpdated = now
					if err := tx.Model(job).Select("NumRetries", "Status", "LastUpdated").Updates(map[string]interface{}{
						"num_retries":  job.NumRetries,
						"status":       job.Status,
						"last_updated": job.LastUpdated,
					}).Error; err != nil {
						return err
					}
					tracker.Default.NotifyAsync(job.ID, job.Status,
						fmt.Sprintf("timeout %d (workers tried: %s)", job.NumRetries, strings.Join(job.Workers, ";")))
				} else {
					job.Status = models.StatusError
					job.LastUpdated = now
					if err := tx.Model(job).Select("Status", "LastUpdated").Updates(map[string]interface{}{
						"status":       job.Status,
						"last_updated": job.LastUpdated,
					}).Error; err != nil {
						return err
					}
					tracker.Default.NotifyAsync(job.ID, job.Status, "max retries reached")
				}
				touched = append(touched, *job)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("handling timeouts: %w", err)
	}
	return touched, nil
}

var nonTerminalStatuses = []models.JobStatus{
	models.StatusPulled,
	models.StatusPreprocessing,
	models.StatusRunning,
	models.StatusPostprocessing,
}
