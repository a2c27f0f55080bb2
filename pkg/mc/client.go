package mc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dc1-ops/nexus/pkg/types"
)

// Per-call deadlines. Relaunch gets longer because Mission Control has
// to pull the container image on the backup host before it answers.
const (
	defaultTimeout   = 5 * time.Second
	alertTimeout     = 10 * time.Second
	relaunchTimeout  = 15 * time.Second
	createJobTimeout = 10 * time.Second
)

// Client wraps the Mission Control HTTP API for easy component usage
type Client struct {
	baseURL    string
	agentID    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new Mission Control client
func NewClient(baseURL, agentID, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		agentID: agentID,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// AlertPayload is the body of POST /alerts
type AlertPayload struct {
	AgentID  string            `json:"agent_id"`
	Level    string            `json:"level"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata"`
}

// AuditEvent is the body of POST /security/audit
type AuditEvent struct {
	EventType string         `json:"event_type"`
	Severity  string         `json:"severity"`
	Details   map[string]any `json:"details"`
	Source    string         `json:"source"`
	Timestamp string         `json:"timestamp"`
}

// GPUMetrics is the body of GET /gpus/{id}/metrics
type GPUMetrics struct {
	Temperature *float64 `json:"temperature"`
}

// PostAlert delivers an alert to Mission Control. The message carries
// the source/title prefix; the agent id identifies this site agent.
func (c *Client) PostAlert(ctx context.Context, level types.Severity, message string, metadata map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, alertTimeout)
	defer cancel()

	if metadata == nil {
		metadata = map[string]string{}
	}

	payload := AlertPayload{
		AgentID:  c.agentID,
		Level:    string(level),
		Message:  message,
		Metadata: metadata,
	}

	return c.do(ctx, http.MethodPost, "/alerts", payload, nil)
}

// PostAudit appends an event to the Mission Control audit trail
func (c *Client) PostAudit(ctx context.Context, event AuditEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return c.do(ctx, http.MethodPost, "/security/audit", event, nil)
}

// GetGPU fetches the current status of a GPU
func (c *Client) GetGPU(ctx context.Context, gpuID string) (*types.GPUStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var status types.GPUStatus
	if err := c.do(ctx, http.MethodGet, "/gpus/"+gpuID, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetGPUMetrics fetches live metrics (temperature) for a GPU
func (c *Client) GetGPUMetrics(ctx context.Context, gpuID string) (*GPUMetrics, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var metrics GPUMetrics
	if err := c.do(ctx, http.MethodGet, "/gpus/"+gpuID+"/metrics", nil, &metrics); err != nil {
		return nil, err
	}
	return &metrics, nil
}

// GetJob fetches the current status of a job
func (c *Client) GetJob(ctx context.Context, jobID string) (*types.JobStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var job types.JobStatus
	if err := c.do(ctx, http.MethodGet, "/jobs/"+jobID, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// RelaunchJob asks Mission Control to restart a job on another GPU,
// resuming from the given checkpoint path (may be empty)
func (c *Client) RelaunchJob(ctx context.Context, jobID, targetGPU, checkpointPath string) error {
	ctx, cancel := context.WithTimeout(ctx, relaunchTimeout)
	defer cancel()

	body := map[string]string{
		"target":          targetGPU,
		"checkpoint_path": checkpointPath,
	}

	return c.do(ctx, http.MethodPost, "/jobs/"+jobID+"/relaunch", body, nil)
}

// NotifyJob sends a human-readable message to the job's tenant
func (c *Client) NotifyJob(ctx context.Context, jobID, message string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	body := map[string]string{"message": message}

	return c.do(ctx, http.MethodPost, "/jobs/"+jobID+"/notify", body, nil)
}

// DeleteJob removes a job record from Mission Control
func (c *Client) DeleteJob(ctx context.Context, jobID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return c.do(ctx, http.MethodDelete, "/jobs/"+jobID, nil, nil)
}

// CreateTestJob registers a disposable failover drill job on the given
// GPU and returns its id
func (c *Client) CreateTestJob(ctx context.Context, gpuID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, createJobTimeout)
	defer cancel()

	body := map[string]any{
		"type":   "failover_test",
		"gpu_id": gpuID,
		"test":   true,
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/jobs", body, &resp); err != nil {
		return "", err
	}

	if resp.ID == "" {
		resp.ID = "test-job"
	}
	return resp.ID, nil
}

// do performs one authenticated round trip and decodes the response
// into out when non-nil
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach mission control: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mission control returned status %d for %s %s", resp.StatusCode, method, path)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
