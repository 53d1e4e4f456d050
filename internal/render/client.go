// Package render is the HTTP client for the remote video rendering service.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"video-ads/internal/apperr"
)

const (
	DefaultBaseURL     = "https://api.fast-wan.com"
	DefaultModel       = "wan-2.2"
	DefaultDuration    = 30
	DefaultAspectRatio = "16:9"
	MaxDuration        = 60

	serviceName = "Fast Wan"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether the job will not change status again.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is the renderer's view of one rendering job.
type Job struct {
	ID           string
	Status       Status
	Progress     *float64
	VideoURL     string
	ThumbnailURL string
	Duration     *float64
	Error        string
}

type SubmitRequest struct {
	Prompt      string
	Model       string
	Duration    float64
	AspectRatio string
}

type Options struct {
	BaseURL           string
	APIKey            string
	Model             string
	Timeout           time.Duration
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a client. It fails when no API key is configured.
func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, &apperr.ConfigurationError{Key: "FAST_WAN_API_KEY"}
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		model:      opts.Model,
		httpClient: httpClient,
		limiter:    limiter,
	}, nil
}

type submitBody struct {
	Prompt      string  `json:"prompt"`
	Model       string  `json:"model"`
	Duration    float64 `json:"duration"`
	AspectRatio string  `json:"aspect_ratio"`
}

type jobBody struct {
	JobID        string   `json:"job_id"`
	ID           string   `json:"id"`
	Status       string   `json:"status"`
	Progress     *float64 `json:"progress"`
	VideoURL     string   `json:"video_url"`
	ThumbnailURL string   `json:"thumbnail_url"`
	Duration     *float64 `json:"duration"`
	Error        string   `json:"error"`
}

func (b jobBody) job(fallbackID string) *Job {
	id := b.JobID
	if id == "" {
		id = b.ID
	}
	if id == "" {
		id = fallbackID
	}
	status := Status(strings.ToLower(b.Status))
	if status == "" {
		status = StatusPending
	}
	return &Job{
		ID:           id,
		Status:       status,
		Progress:     b.Progress,
		VideoURL:     b.VideoURL,
		ThumbnailURL: b.ThumbnailURL,
		Duration:     b.Duration,
		Error:        b.Error,
	}
}

// Submit starts a rendering job. Zero values in req fall back to the client defaults.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*Job, error) {
	body := submitBody{
		Prompt:      req.Prompt,
		Model:       req.Model,
		Duration:    req.Duration,
		AspectRatio: req.AspectRatio,
	}
	if body.Model == "" {
		body.Model = c.model
	}
	if body.Duration <= 0 {
		body.Duration = DefaultDuration
	}
	if body.AspectRatio == "" {
		body.AspectRatio = DefaultAspectRatio
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode submit request: %w", err)
	}

	var resp jobBody
	if err := c.do(ctx, http.MethodPost, "/v1/videos/generate", payload, &resp); err != nil {
		return nil, err
	}

	job := resp.job("")
	if job.ID == "" {
		return nil, &apperr.UpstreamError{Service: serviceName, StatusCode: http.StatusOK, Message: "response has no job id"}
	}
	return job, nil
}

// Status fetches the current state of a job.
func (c *Client) Status(ctx context.Context, jobID string) (*Job, error) {
	var resp jobBody
	if err := c.do(ctx, http.MethodGet, "/v1/videos/status/"+url.PathEscape(jobID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.job(jobID), nil
}

// Download fetches media bytes from a URL returned by the renderer. No
// credentials are sent.
func (c *Client) Download(ctx context.Context, mediaURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apperr.UpstreamError{Service: "Media download", Message: "request failed", Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &apperr.UpstreamError{Service: "Media download", StatusCode: res.StatusCode, Message: http.StatusText(res.StatusCode)}
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &apperr.UpstreamError{Service: "Media download", StatusCode: res.StatusCode, Message: "failed to read body", Err: err}
	}
	return data, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return &apperr.UpstreamError{Service: serviceName, Message: "request failed", Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return &apperr.UpstreamError{Service: serviceName, StatusCode: res.StatusCode, Message: "failed to read body", Err: err}
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &apperr.UpstreamError{Service: serviceName, StatusCode: res.StatusCode, Message: errorMessage(raw, res.StatusCode)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &apperr.UpstreamError{Service: serviceName, StatusCode: res.StatusCode, Message: "malformed response body", Err: err}
	}
	return nil
}

// errorMessage prefers the "error" field of a JSON error body over the status text.
func errorMessage(raw []byte, statusCode int) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return http.StatusText(statusCode)
}
