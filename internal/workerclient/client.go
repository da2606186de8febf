package workerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cloudforge/jobbroker/internal/store/models"
)

// Client is a reference Worker API client used by a worker process to pull
// jobs, report status, and exchange files via presigned/direct URLs.
type Client struct {
	HTTPClient  *http.Client
	BaseURL     string
	BearerToken string
	Retry       *RetryConfig
}

// NewClient builds a Client against baseURL, authenticating with bearerToken
// (a worker's Cognito-style JWT, per §6).
func NewClient(baseURL, bearerToken string) *Client {
	return &Client{
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
		BaseURL:     baseURL,
		BearerToken: bearerToken,
		Retry:       DefaultRetryConfig(),
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// PullJobs offers the host's hardware to the Worker API's GET /jobs, asking
// for up to limit eligible jobs in one call (§4.4, §11's multi-dequeue).
func (c *Client) PullJobs(ctx context.Context, environment models.Environment, offer *HardwareOffer, limit int) (map[string]models.JobSpec, error) {
	q := url.Values{}
	q.Set("environment", string(environment))
	q.Set("memory", strconv.FormatFloat(offer.MemoryGB, 'f', -1, 64))
	q.Set("cpu_cores", strconv.Itoa(offer.CPUCores))
	q.Set("limit", strconv.Itoa(limit))

	var jobs map[string]models.JobSpec
	err := RetryWithBackoff(ctx, c.Retry, "pull_jobs", func() error {
		req, err := c.newRequest(ctx, http.MethodGet, "/jobs?"+q.Encode(), nil)
		if err != nil {
			return err
		}
		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("pull jobs returned %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&jobs)
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// PutStatus implements PUT /jobs/{id}/status.
func (c *Client) PutStatus(ctx context.Context, jobID string, status models.JobStatus, runtimeDetails string) error {
	return RetryWithBackoff(ctx, c.Retry, "put_status", func() error {
		req, err := c.newRequest(ctx, http.MethodPut, "/jobs/"+jobID+"/status", map[string]string{
			"status":          string(status),
			"runtime_details": runtimeDetails,
		})
		if err != nil {
			return err
		}
		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil // job_deleted: nothing left to report against
		}
		if resp.StatusCode != http.StatusNoContent {
			return fmt.Errorf("put status returned %d", resp.StatusCode)
		}
		return nil
	})
}

// GetStatus implements GET /jobs/{id}/status.
func (c *Client) GetStatus(ctx context.Context, jobID string) (models.JobStatus, error) {
	var status models.JobStatus
	err := RetryWithBackoff(ctx, c.Retry, "get_status", func() error {
		req, err := c.newRequest(ctx, http.MethodGet, "/jobs/"+jobID+"/status", nil)
		if err != nil {
			return err
		}
		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("get status returned %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&status)
	})
	return status, err
}
