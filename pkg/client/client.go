package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/terra-clan/simulex-engine/internal/auth"
	"github.com/terra-clan/simulex-engine/internal/dashboard"
	"github.com/terra-clan/simulex-engine/internal/models"
)

// Client is a Go SDK for the simulex-engine API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithToken sets the bearer token sent with every request
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// NewClient creates a new simulex-engine client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is a non-2xx response
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s - %s", e.StatusCode, e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the API
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Attempt is an open or finished task attempt
type Attempt struct {
	Result    *models.Result `json:"result"`
	Task      *models.Task   `json:"task,omitempty"`
	Resumed   bool           `json:"resumed"`
	TimeLimit int            `json:"timeLimit"`
	Remaining int            `json:"remaining"`
	Expired   bool           `json:"expired"`
	Finalized bool           `json:"finalized"`
}

// ResultListOptions filters ListResults
type ResultListOptions struct {
	SimulationID string
	Completed    *bool
}

// Me returns the authenticated user
func (c *Client) Me(ctx context.Context) (*auth.User, error) {
	var user auth.User
	if err := c.call(ctx, http.MethodGet, "/api/v1/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListRoles lists all roles
func (c *Client) ListRoles(ctx context.Context) ([]*models.Role, error) {
	var data struct {
		Roles []*models.Role `json:"roles"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/roles", nil, &data); err != nil {
		return nil, err
	}
	return data.Roles, nil
}

// ListSimulations lists active simulations, optionally of one role
func (c *Client) ListSimulations(ctx context.Context, roleID string) ([]*models.Simulation, error) {
	path := "/api/v1/simulations"
	if roleID != "" {
		path += "?role=" + url.QueryEscape(roleID)
	}

	var data struct {
		Simulations []*models.Simulation `json:"simulations"`
	}
	if err := c.call(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return data.Simulations, nil
}

// GetSimulation retrieves a simulation with its role
func (c *Client) GetSimulation(ctx context.Context, id string) (*models.Simulation, error) {
	var sim models.Simulation
	if err := c.call(ctx, http.MethodGet, "/api/v1/simulations/"+url.PathEscape(id), nil, &sim); err != nil {
		return nil, err
	}
	return &sim, nil
}

// ListTasks lists the tasks of a simulation in display order
func (c *Client) ListTasks(ctx context.Context, simulationID string) ([]*models.Task, error) {
	var data struct {
		Tasks []*models.Task `json:"tasks"`
	}
	path := fmt.Sprintf("/api/v1/simulations/%s/tasks", url.PathEscape(simulationID))
	if err := c.call(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return data.Tasks, nil
}

// OpenAttempt starts or resumes the caller's attempt at a task
func (c *Client) OpenAttempt(ctx context.Context, simulationID, taskID string) (*Attempt, error) {
	var a Attempt
	path := fmt.Sprintf("/api/v1/simulations/%s/tasks/%s/attempt", url.PathEscape(simulationID), url.PathEscape(taskID))
	if err := c.call(ctx, http.MethodPost, path, nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Submit finalizes an attempt with submission, which is encoded as JSON
func (c *Client) Submit(ctx context.Context, resultID string, submission interface{}) (*Attempt, error) {
	doc, err := models.NewDocument(submission)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal submission: %w", err)
	}

	body := struct {
		Submission models.Document `json:"submission"`
	}{Submission: doc}

	var a Attempt
	path := fmt.Sprintf("/api/v1/results/%s/submit", url.PathEscape(resultID))
	if err := c.call(ctx, http.MethodPost, path, body, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetResult retrieves one of the caller's results
func (c *Client) GetResult(ctx context.Context, resultID string) (*Attempt, error) {
	var a Attempt
	if err := c.call(ctx, http.MethodGet, "/api/v1/results/"+url.PathEscape(resultID), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListResults returns the caller's results, newest first
func (c *Client) ListResults(ctx context.Context, opts ResultListOptions) ([]*models.Result, error) {
	q := url.Values{}
	if opts.SimulationID != "" {
		q.Set("simulation", opts.SimulationID)
	}
	if opts.Completed != nil {
		q.Set("completed", fmt.Sprintf("%t", *opts.Completed))
	}

	path := "/api/v1/results"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var data struct {
		Results []*models.Result `json:"results"`
	}
	if err := c.call(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return data.Results, nil
}

// GetDashboard returns the caller's dashboard
func (c *Client) GetDashboard(ctx context.Context) (*dashboard.Dashboard, error) {
	var d dashboard.Dashboard
	if err := c.call(ctx, http.MethodGet, "/api/v1/dashboard", nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/health", nil, nil)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// call performs a request and decodes the envelope data into out
func (c *Client) call(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		if resp.StatusCode >= 400 {
			return &APIError{StatusCode: resp.StatusCode, Code: "http_error", Message: string(respBody)}
		}
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if resp.StatusCode >= 400 || !env.Success {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response data: %w", err)
	}
	return nil
}
