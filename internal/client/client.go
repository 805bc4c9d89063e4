package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"conveyor/internal/api"
	"conveyor/internal/config"
	"conveyor/internal/logging"
	"conveyor/internal/pipeline"
)

// Client talks to the pipeline API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New builds a client from config.
func New(cfg *config.Config, logger *slog.Logger) *Client {
	timeout := 30 * time.Second
	baseURL := ""
	if cfg != nil {
		baseURL = strings.TrimRight(cfg.Client.APIURL, "/")
		if cfg.Client.RequestTimeout > 0 {
			timeout = time.Duration(cfg.Client.RequestTimeout) * time.Second
		}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger(logger, "api-client"),
	}
}

// NewWithBaseURL builds a client against an explicit base URL. Used by tests
// and by callers that already resolved the endpoint.
func NewWithBaseURL(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logging.NewComponentLogger(logger, "api-client"),
	}
}

// ListConfigurations fetches all stored configurations.
func (c *Client) ListConfigurations(ctx context.Context) ([]pipeline.Configuration, error) {
	var resp api.ConfigurationListResponse
	if err := c.doJSON(ctx, http.MethodGet, api.RouteConfigurations, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Configurations, nil
}

// GetConfiguration fetches one configuration with its steps.
func (c *Client) GetConfiguration(ctx context.Context, configID string) (*pipeline.Configuration, error) {
	var resp api.ConfigurationResponse
	if err := c.doJSON(ctx, http.MethodGet, api.ConfigurationPath(configID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Configuration, nil
}

// CreateConfiguration submits a draft and returns the stored configuration
// with server-assigned identity, version, and timestamps.
func (c *Client) CreateConfiguration(ctx context.Context, draft api.ConfigurationDraft) (*pipeline.Configuration, error) {
	var resp api.ConfigurationResponse
	if err := c.doJSON(ctx, http.MethodPost, api.RouteConfigurations, draft, &resp); err != nil {
		return nil, err
	}
	return &resp.Configuration, nil
}

// StartExecution starts a new execution of a stored configuration.
func (c *Client) StartExecution(ctx context.Context, configID string) (string, error) {
	var resp api.ExecuteResponse
	req := api.ExecuteRequest{ConfigurationID: configID}
	if err := c.doJSON(ctx, http.MethodPost, api.RouteExecute, req, &resp); err != nil {
		return "", err
	}
	return resp.ExecutionID, nil
}

// GetExecution fetches the daemon's view of one execution.
func (c *Client) GetExecution(ctx context.Context, executionID string) (*api.ExecutionState, error) {
	var resp api.ExecutionState
	if err := c.doJSON(ctx, http.MethodGet, api.ExecutionPath(executionID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PauseExecution pauses a running execution.
func (c *Client) PauseExecution(ctx context.Context, executionID string) error {
	return c.doJSON(ctx, http.MethodPost, api.ExecutionActionPath(executionID, "pause"), nil, nil)
}

// ResumeExecution resumes a paused execution.
func (c *Client) ResumeExecution(ctx context.Context, executionID string) error {
	return c.doJSON(ctx, http.MethodPost, api.ExecutionActionPath(executionID, "resume"), nil, nil)
}

// StopExecution stops an execution.
func (c *Client) StopExecution(ctx context.Context, executionID string) error {
	return c.doJSON(ctx, http.MethodPost, api.ExecutionActionPath(executionID, "stop"), nil, nil)
}

// RunStep asks the executor to run a single step.
func (c *Client) RunStep(ctx context.Context, executionID, stepID string) error {
	return c.doJSON(ctx, http.MethodPost, api.StepRunPath(executionID, stepID), nil, nil)
}

// RunFromStep asks the executor to run from a step onward.
func (c *Client) RunFromStep(ctx context.Context, executionID, stepID string) error {
	return c.doJSON(ctx, http.MethodPost, api.StepRunFromPath(executionID, stepID), nil, nil)
}

// UpdateStepPayload persists a step payload on a stored configuration.
func (c *Client) UpdateStepPayload(ctx context.Context, configID, stepID string, payload pipeline.Payload) error {
	req := api.PayloadUpdateRequest{Payload: payload}
	return c.doJSON(ctx, http.MethodPut, api.StepPayloadPath(configID, stepID), req, nil)
}

// Status fetches daemon health.
func (c *Client) Status(ctx context.Context) (*api.StatusResponse, error) {
	var resp api.StatusResponse
	if err := c.doJSON(ctx, http.MethodGet, api.RouteStatus, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp, method, path)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response, method, path string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var envelope api.ErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && strings.TrimSpace(envelope.Error) != "" {
		return fmt.Errorf("%s %s: %s", method, path, envelope.Error)
	}
	return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
}
