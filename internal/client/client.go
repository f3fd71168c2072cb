// File: internal/client/client.go

// Package client is a small HTTP client for the estimation service, used by
// the CLI and by other services that submit estimation jobs.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"sprint-estimator/internal/domain"
	"sprint-estimator/internal/domain/model"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultMaxAttempts  = 150 // five minutes at the default interval
)

type Client struct {
	baseURL   string
	http      *http.Client
	authToken string

	PollInterval time.Duration
	MaxAttempts  int
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:      baseURL,
		http:         &http.Client{Timeout: 30 * time.Second},
		PollInterval: defaultPollInterval,
		MaxAttempts:  defaultMaxAttempts,
	}
}

// Login exchanges the shared password for a session token. Not needed when
// the server runs with auth disabled.
func (c *Client) Login(ctx context.Context, password string) error {
	var out struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	if err := c.postJSON(ctx, "/api/auth/login", map[string]string{"password": password}, &out); err != nil {
		return err
	}
	c.authToken = out.Token
	return nil
}

// StartEstimation submits a job and returns its id. The server accepts the
// job unconditionally; failures surface later through polling.
func (c *Client) StartEstimation(ctx context.Context, req model.EstimationRequest) (string, error) {
	var out struct {
		Success bool   `json:"success"`
		JobID   string `json:"jobId"`
	}
	if err := c.postJSON(ctx, "/api/estimate/start", req, &out); err != nil {
		return "", err
	}
	if out.JobID == "" {
		return "", fmt.Errorf("start estimation: empty job id in response")
	}
	return out.JobID, nil
}

// PollJob polls until the job reaches a terminal state. Transient transport
// and decode failures count against the attempt budget instead of aborting;
// an exhausted budget returns domain.ErrPollTimeout.
func (c *Client) PollJob(ctx context.Context, jobID string) (*model.Job, error) {
	interval := c.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(interval):
			}
		}

		job, err := c.getJob(ctx, jobID)
		if err == domain.ErrJobNotFound {
			return nil, err
		}
		if err != nil {
			continue
		}
		if job.Status.Terminal() {
			return job, nil
		}
	}
	return nil, fmt.Errorf("%w: job %s after %d attempts", domain.ErrPollTimeout, jobID, attempts)
}

func (c *Client) getJob(ctx context.Context, jobID string) (*model.Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/estimate/status/"+jobID, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrJobNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status endpoint returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil || len(body) == 0 {
		return nil, fmt.Errorf("empty status response")
	}
	var envelope struct {
		Success  bool                    `json:"success"`
		Status   model.JobStatus         `json:"status"`
		Progress string                  `json:"progress"`
		Logs     []model.LogLine         `json:"logs"`
		Data     *model.EstimationResult `json:"data"`
		Error    string                  `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	if envelope.Status == "" {
		return nil, fmt.Errorf("status response missing status field")
	}
	return &model.Job{
		ID:       jobID,
		Status:   envelope.Status,
		Progress: envelope.Progress,
		Result:   envelope.Data,
		Error:    envelope.Error,
		Logs:     envelope.Logs,
	}, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("POST %s returned %d: %s", path, resp.StatusCode, data)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) setHeaders(req *http.Request) {
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
}
