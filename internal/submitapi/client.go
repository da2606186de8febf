package submitapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudforge/jobbroker/internal/config"
	"github.com/cloudforge/jobbroker/internal/store/models"
)

// WorkerAPIClient posts materialized jobs to the Worker API's internal,
// API-key-gated "/_jobs" endpoint (§4.5 step 4).
type WorkerAPIClient struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
}

// NewWorkerAPIClient builds a client from the current configuration.
func NewWorkerAPIClient() *WorkerAPIClient {
	return &WorkerAPIClient{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		BaseURL:    config.WorkerAPIURL,
		APIKey:     config.InternalAPIKey,
	}
}

// Enqueue POSTs a SubmittedJob and returns the created QueuedJob the Worker
// API echoes back.
func (c *WorkerAPIClient) Enqueue(ctx context.Context, submitted *models.SubmittedJob) (*models.QueuedJob, error) {
	body, err := json.Marshal(submitted)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal submitted job: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/_jobs", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("worker api enqueue request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("worker api enqueue returned %d", resp.StatusCode)
	}

	var created models.QueuedJob
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("failed to decode worker api response: %w", err)
	}
	return &created, nil
}
