// Package telegram provides a minimal Telegram Bot API client: outbound
// method calls with retry, webhook management, and the slice of the update
// model that routing and filtering need.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.telegram.org"

// MetricsRecorder receives per-request API metrics. Optional.
type MetricsRecorder interface {
	RecordAPIRequest(method, status string, duration float64)
}

// Client calls the Telegram Bot API for a single bot token.
// It is safe for concurrent use.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	metrics    MetricsRecorder
}

// Options configures a Client. Zero values get sensible defaults.
type Options struct {
	// BaseURL overrides the Bot API host, mainly for tests.
	BaseURL string
	// Timeout bounds a single HTTP request.
	Timeout time.Duration
	// MaxRetries is the number of retries for transient failures.
	MaxRetries int
	// RetryDelay is the initial backoff delay.
	RetryDelay time.Duration
	// Metrics receives per-request metrics when non-nil.
	Metrics MetricsRecorder
}

// NewClient creates a Bot API client for the given token.
func NewClient(token string, opts Options) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return &Client{
		token:      token,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: opts.MaxRetries,
		retryDelay: retryDelay,
		metrics:    metricsOrNop(opts.Metrics),
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordAPIRequest(string, string, float64) {}

func metricsOrNop(m MetricsRecorder) MetricsRecorder {
	if m == nil {
		return nopMetrics{}
	}
	return m
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after,omitempty"`
	} `json:"parameters,omitempty"`
}

// Call invokes a Bot API method with the given params (marshaled to JSON)
// and returns the raw result. Transient failures (network errors, 5xx, 429)
// are retried with exponential backoff; other API errors are returned as
// *APIError without retry.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	var body []byte
	if params != nil {
		var err error
		body, err = json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal %s params: %w", method, err)
		}
	}

	start := time.Now()
	var result json.RawMessage
	err := retryWithBackoff(ctx, c.maxRetries, c.retryDelay, func() error {
		var attemptErr error
		result, attemptErr = c.doRequest(ctx, method, body)
		return attemptErr
	})

	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordAPIRequest(method, status, time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) doRequest(ctx context.Context, method string, body []byte) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)

	var reader io.Reader = http.NoBody
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return nil, permanent(fmt.Errorf("build %s request: %w", method, err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", method, err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(data, &apiResp); err != nil {
		// Invalid JSON from the remote side is worth one more try only if
		// the HTTP status also suggests a transient failure.
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%s: invalid response (status %d): %w", method, resp.StatusCode, err)
		}
		return nil, permanent(fmt.Errorf("%s: invalid response (status %d): %w", method, resp.StatusCode, err))
	}

	if !apiResp.OK {
		apiErr := &APIError{
			Method:      method,
			Code:        apiResp.ErrorCode,
			Description: apiResp.Description,
		}
		if apiResp.Parameters != nil {
			apiErr.RetryAfter = apiResp.Parameters.RetryAfter
		}
		if apiErr.IsPermanent() {
			return nil, permanent(apiErr)
		}
		return nil, apiErr
	}

	return apiResp.Result, nil
}

// Token returns the bot token the client was built with.
func (c *Client) Token() string {
	return c.token
}
