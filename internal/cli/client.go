package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, чтобы CLI не зависел от сервера) ---

// DeploymentResponse — deployment из API.
type DeploymentResponse struct {
	ID          string         `json:"id"`
	Module      string         `json:"module"`
	Description string         `json:"description,omitempty"`
	Status      string         `json:"status"`
	Steps       int            `json:"steps"`
	TimeoutSecs int            `json:"timeout_seconds"`
	Job         map[string]any `json:"job,omitempty"`
	StartedAt   string         `json:"started_at,omitempty"`
	FinishedAt  string         `json:"finished_at,omitempty"`
	DurationMs  int64          `json:"duration_ms,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   string         `json:"created_at"`
}

// StepResponse — запись шага из API.
type StepResponse struct {
	Index           int    `json:"index"`
	StackName       string `json:"stack_name"`
	RegionName      string `json:"region_name"`
	Phase           string `json:"phase"`
	Status          string `json:"status"`
	Polls           int    `json:"polls"`
	StackStatus     string `json:"stack_status,omitempty"`
	SignalAttempted bool   `json:"signal_attempted"`
	StartedAt       string `json:"started_at,omitempty"`
	FinishedAt      string `json:"finished_at,omitempty"`
	Error           string `json:"error,omitempty"`
}

// ListJobsOpts — параметры фильтрации deployments.
type ListJobsOpts struct {
	Status string
	Module string
	Limit  int
	Offset int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Cascade API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Jobs ---

// SubmitJob отправляет определение задания (JSON или YAML) как есть.
func (c *Client) SubmitJob(definition []byte, contentType string) (*DeploymentResponse, error) {
	resp, err := c.do(http.MethodPost, "/api/v1/jobs", contentType, bytes.NewReader(definition))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var d DeploymentResponse
	if err := c.decodeData(resp, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListJobs возвращает deployments с фильтрацией.
func (c *Client) ListJobs(opts ListJobsOpts) ([]DeploymentResponse, error) {
	params := url.Values{}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Module != "" {
		params.Set("module", opts.Module)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
	}

	var deployments []DeploymentResponse
	err := c.list("/api/v1/jobs", params, &deployments)
	return deployments, err
}

// GetJob возвращает deployment по ID.
func (c *Client) GetJob(id string) (*DeploymentResponse, error) {
	var d DeploymentResponse
	err := c.get("/api/v1/jobs/"+url.PathEscape(id), &d)
	return &d, err
}

// ListJobSteps возвращает записи шагов deployment.
func (c *Client) ListJobSteps(id string) ([]StepResponse, error) {
	var steps []StepResponse
	err := c.list("/api/v1/jobs/"+url.PathEscape(id)+"/steps", nil, &steps)
	return steps, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	resp, err := c.do(http.MethodGet, path, "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.decodeData(resp, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) decodeData(resp *http.Response, result any) error {
	if err := c.checkError(resp); err != nil {
		return err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	if er.Error.Field != "" {
		return fmt.Errorf("%s: %s (field %s)", er.Error.Code, er.Error.Message, er.Error.Field)
	}
	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
