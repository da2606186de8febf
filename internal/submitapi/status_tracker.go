package submitapi

import (
	"sync"
	"time"

	"github.com/cloudforge/jobbroker/internal/store/models"
)

// SubmissionStatus is the last status the Worker API reported for a
// submitted job.
type SubmissionStatus struct {
	Status         models.JobStatus `json:"status"`
	RuntimeDetails string           `json:"runtime_details,omitempty"`
	LastUpdated    time.Time        `json:"last_updated"`
	Deleted        bool             `json:"deleted,omitempty"`
}

// StatusTracker records the status callbacks the Worker API's JobTracker
// sends. Durable persistence of submission metadata is an out-of-scope
// external collaborator (§1: "SQL persistence of user-side ... jobs
// metadata"); this in-memory map stands in for that collaborator just
// far enough to serve the callback contract §2 requires this service to
// expose.
type StatusTracker struct {
	mu    sync.RWMutex
	state map[string]SubmissionStatus
}

func NewStatusTracker() *StatusTracker {
	return &StatusTracker{state: make(map[string]SubmissionStatus)}
}

// Record stores a status callback for jobID.
func (t *StatusTracker) Record(jobID string, status models.JobStatus, runtimeDetails string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state[jobID] = SubmissionStatus{
		Status:         status,
		RuntimeDetails: runtimeDetails,
		LastUpdated:    time.Now().UTC(),
	}
}

// MarkDeleted records that the Worker API deleted the underlying queue row
// (the submission side returned 404 on a prior callback).
func (t *StatusTracker) MarkDeleted(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.state[jobID]
	s.Deleted = true
	s.LastUpdated = time.Now().UTC()
	t.state[jobID] = s
}

// Get returns the last known status for jobID, and whether one exists.
func (t *StatusTracker) Get(jobID string) (SubmissionStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.state[jobID]
	return s, ok
}
