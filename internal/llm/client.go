// Package llm is a small client for OpenAI-compatible chat completion
// endpoints, plus helpers for pulling structured content out of replies.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/zulandar/takehome/internal/metrics"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 180 * time.Second
	// DefaultMaxRetries is the maximum number of retry attempts.
	DefaultMaxRetries = 3
	// DefaultBaseRetryDelay is the base delay for exponential backoff.
	DefaultBaseRetryDelay = 2 * time.Second
	// rateLimitBackoffMultiplier grows 429 backoff as 3^n.
	rateLimitBackoffMultiplier = 3
)

// ErrNoAPIKey is returned when a request is attempted without a key.
var ErrNoAPIKey = errors.New("llm: api key is not configured")

// Completer produces a chat completion.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Options configures a Client.
type Options struct {
	BaseURL           string
	APIKey            string
	Model             string
	Timeout           time.Duration
	MaxRetries        int
	BaseRetryDelay    time.Duration
	RequestsPerMinute int // 0 disables client-side rate limiting
	MaxTokens         int
	SiteURL           string // sent as HTTP-Referer (OpenRouter attribution)
	AppName           string // sent as X-Title
	HTTPClient        *http.Client
	Logger            zerolog.Logger
}

// Client talks to one OpenAI-compatible endpoint and model.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	model          string
	maxRetries     int
	baseRetryDelay time.Duration
	maxTokens      int
	siteURL        string
	appName        string
	limiter        *rate.Limiter
	logger         zerolog.Logger
}

// New creates a client. A missing API key is reported by Complete, so a
// server can start without credentials and fail individual jobs instead.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.BaseRetryDelay <= 0 {
		opts.BaseRetryDelay = DefaultBaseRetryDelay
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	c := &Client{
		httpClient:     hc,
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		apiKey:         opts.APIKey,
		model:          opts.Model,
		maxRetries:     opts.MaxRetries,
		baseRetryDelay: opts.BaseRetryDelay,
		maxTokens:      opts.MaxTokens,
		siteURL:        opts.SiteURL,
		appName:        opts.AppName,
		logger:         opts.Logger,
	}
	if opts.RequestsPerMinute > 0 {
		rps := float64(opts.RequestsPerMinute) / 60.0
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(1, opts.RequestsPerMinute/5))
	}
	return c
}

// Model returns the model name sent with every request.
func (c *Client) Model() string {
	return c.model
}

// Complete sends the messages and returns the assistant's reply with any
// reasoning tags removed. Rate limits and server errors are retried with
// exponential backoff.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("llm: rate limiter wait: %w", err)
		}
	}

	body := chatCompletionRequest{
		Model:       c.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		N:           1,
	}
	if body.MaxTokens == 0 {
		body.MaxTokens = c.maxTokens
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * c.baseRetryDelay
			var apiErr *APIError
			if errors.As(lastErr, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
				backoff = time.Duration(math.Pow(rateLimitBackoffMultiplier, float64(attempt))) * c.baseRetryDelay
			}
			c.logger.Warn().
				Int("attempt", attempt).
				Int("max_retries", c.maxRetries).
				Dur("backoff", backoff).
				Str("label", req.Label).
				Err(lastErr).
				Msg("retrying llm request")

			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		start := time.Now()
		content, err := c.do(ctx, body)
		metrics.ObserveLLM(c.model, statusLabel(err), time.Since(start))
		if err == nil {
			return content, nil
		}
		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.Retryable {
			return "", err
		}
	}
	return "", fmt.Errorf("llm: max retries exceeded: %w", lastErr)
}

func (c *Client) do(ctx context.Context, body chatCompletionRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("llm: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.siteURL != "" {
		httpReq.Header.Set("HTTP-Referer", c.siteURL)
	}
	if c.appName != "" {
		httpReq.Header.Set("X-Title", c.appName)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &APIError{Message: fmt.Sprintf("request failed: %v", err), Retryable: true}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Retryable: retryableStatus(resp.StatusCode)}
		var er errorResponse
		if json.Unmarshal(data, &er) == nil && er.Error.Message != "" {
			apiErr.Message = er.Error.Message
			apiErr.Type = er.Error.Type
		} else {
			apiErr.Message = truncate(string(data), 500)
		}
		return "", apiErr
	}

	var out chatCompletionResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("llm: parse response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("llm: no choices returned")
	}

	content := StripThinkTags(out.Choices[0].Message.Content)
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("llm: empty completion (finish_reason=%s)", out.Choices[0].FinishReason)
	}
	return content, nil
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func statusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode > 0 {
		return fmt.Sprintf("%d", apiErr.StatusCode)
	}
	return "error"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// APIError is a non-2xx answer or a transport failure.
type APIError struct {
	Message    string
	StatusCode int
	Type       string
	Retryable  bool
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("llm: API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("llm: API error: %s", e.Message)
}
