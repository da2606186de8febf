// Package tracker implements the JobTracker: it notifies the Submit API of
// every status transition a queued job makes, so the user-facing system of
// record stays in sync with the worker-facing queue without polling it
// (§4.3). A 404 from the Submit API means the submission record itself is
// gone; the queue row should be deleted in response, which callers signal by
// checking ErrJobDeleted.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/catalystcommunity/app-utils-go/logging"
	"github.com/cloudforge/jobbroker/internal/config"
	"github.com/cloudforge/jobbroker/internal/store/models"
)

// ErrJobDeleted is returned by Notify when the Submit API reports (via 404)
// that the submission record backing a job no longer exists.
var ErrJobDeleted = errors.New("tracker: submission record no longer exists")

// ErrUpstream wraps any other non-2xx response or transport failure talking
// to the Submit API.
var ErrUpstream = errors.New("tracker: submit api callback failed")

// statusPayload is the body sent with PUT to the Submit API's status receiver.
type statusPayload struct {
	JobID          string          `json:"job_id"`
	Status         models.JobStatus `json:"status"`
	RuntimeDetails string          `json:"runtime_details,omitempty"`
}

// Tracker posts job status transitions to the Submit API.
type Tracker struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
}

// Default is the process-wide tracker, configured from the environment the
// same way the rest of the ambient stack is (internal/config).
var Default = New()

// New builds a Tracker from the current configuration.
func New() *Tracker {
	return &Tracker{
		Client:  &http.Client{Timeout: 10 * time.Second},
		BaseURL: config.UserfacingAPIURL,
		APIKey:  config.InternalAPIKey,
	}
}

// Notify posts a status transition synchronously and classifies the result.
func (t *Tracker) Notify(ctx context.Context, jobID string, status models.JobStatus, runtimeDetails string) error {
	if t.BaseURL == "" {
		return nil
	}

	body, err := json.Marshal(statusPayload{JobID: jobID, Status: status, RuntimeDetails: runtimeDetails})
	if err != nil {
		return fmt.Errorf("encoding status callback: %w", err)
	}

	url := t.BaseURL + "/_job_status/" + jobID
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: building request: %v", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", t.APIKey)

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrJobDeleted
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	default:
		return fmt.Errorf("%w: submit api returned %d", ErrUpstream, resp.StatusCode)
	}
}

// NotifyAsync fires Notify in the background, logging failures rather than
// surfacing them, for callers on a hot path (Pop, the timeout sweep) that
// must not block the queue critical section on an outbound HTTP call.
func (t *Tracker) NotifyAsync(jobID string, status models.JobStatus, runtimeDetails string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := t.Notify(ctx, jobID, status, runtimeDetails); err != nil && !errors.Is(err, ErrJobDeleted) {
			logging.Log.WithError(err).WithField("job_id", jobID).Warn("job tracker callback failed")
		}
	}()
}
