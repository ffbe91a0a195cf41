// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package openai asks an OpenAI vision model for a filename describing an
// image.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/anubhavitis/peeksy/internal/logging"
)

// Configuration constants for the OpenAI API.
const (
	// DefaultBaseURL is the base URL for the OpenAI API.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the default number of attempts for transient errors.
	DefaultMaxRetries = 3

	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 10 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 2 * 1024 * 1024

	// MaxImageSize is the largest image sent to the model.
	MaxImageSize = 20 * 1024 * 1024

	// UnknownName is returned when the model answers with nothing.
	UnknownName = "unknown-name"

	// SystemPrompt pins the reply format regardless of the user's prompt file.
	SystemPrompt = "You are a filename generation bot. You must return only a filename based on the attached image. " +
		"No explanations. No descriptions. No punctuation. No quotes. No code blocks. " +
		"Just a lowercase hyphenated filename of 3 to 8 words in plain text."
)

// Error variables for common OpenAI errors.
var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("OpenAI API key not configured")

	// ErrAuthFailed indicates an invalid or revoked API key.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrModelNotFound indicates the requested model does not exist.
	ErrModelNotFound = errors.New("model not found")

	// ErrImageTooLarge indicates the image exceeds MaxImageSize.
	ErrImageTooLarge = errors.New("image too large")
)

// APIError represents an error returned by the API.
type APIError struct {
	Code    string
	Type    string
	Message string
	Status  int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("OpenAI error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("OpenAI error (HTTP %d): %s", e.Status, e.Message)
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// ContentPart is one element of a multi-part user message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL carries an inline image.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// Message is a chat message. Content is a string or []ContentPart.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ChatRequest is the body of a chat completions call.
type ChatRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

// ChatResponse is the subset of the completion reply peeksy reads.
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// GetContent returns the content of the first choice, or empty string if none.
func (r *ChatResponse) GetContent() string {
	if len(r.Choices) > 0 {
		return r.Choices[0].Message.Content
	}
	return ""
}

type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client calls the chat completions endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a client for apiKey using model.
func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    DefaultBaseURL,
		model:      model,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		baseDelay:  retryBaseDelay,
		logger:     logging.Discard(),
	}
}

// WithBaseURL sets a custom base URL for the API.
func (c *Client) WithBaseURL(url string) *Client {
	if url != "" {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
	return c
}

// WithHTTPClient replaces the HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithMaxRetries sets the maximum number of attempts.
func (c *Client) WithMaxRetries(n int) *Client {
	if n < 1 {
		n = 1
	}
	c.maxRetries = n
	return c
}

// WithRetryDelay sets the base backoff delay.
func (c *Client) WithRetryDelay(d time.Duration) *Client {
	c.baseDelay = d
	return c
}

// WithRateLimit caps requests per minute. Zero or less disables the cap.
func (c *Client) WithRateLimit(perMinute int) *Client {
	if perMinute <= 0 {
		c.limiter = nil
		return c
	}
	c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	return c
}

// WithLogger sets the logger.
func (c *Client) WithLogger(l *slog.Logger) *Client {
	if l != nil {
		c.logger = l
	}
	return c
}

// Model returns the configured model.
func (c *Client) Model() string {
	return c.model
}

// IsConfigured returns true if the client has an API key.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// =============================================================================
// NAMING
// =============================================================================

// NameImage reads the image at path and asks the model for a filename,
// steered by prompt (the contents of the user's prompt file).
func (c *Client) NameImage(ctx context.Context, path, prompt string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if info.Size() > MaxImageSize {
		return "", fmt.Errorf("%w: %s is %d bytes", ErrImageTooLarge, filepath.Base(path), info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	req := ChatRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: []ContentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &ImageURL{URL: DataURL(path, data), Detail: "low"}},
			}},
		},
	}

	c.logger.Info("requesting name", "image", path, "model", c.model)
	resp, err := c.Chat(ctx, req)
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(resp.GetContent())
	if name == "" {
		return UnknownName, nil
	}
	return name, nil
}

// DataURL encodes data as a base64 data URL, typed from the bytes and
// falling back to the file extension.
func DataURL(path string, data []byte) string {
	mt := http.DetectContentType(data)
	if !strings.HasPrefix(mt, "image/") {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); strings.HasPrefix(byExt, "image/") {
			mt = byExt
		} else {
			mt = "image/png"
		}
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// =============================================================================
// TRANSPORT
// =============================================================================

// Chat performs a chat completion, retrying rate limits and server errors
// with exponential backoff.
func (c *Client) Chat(ctx context.Context, reqBody ChatRequest) (*ChatResponse, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if reqBody.Model == "" {
		reqBody.Model = c.model
	}
	url := c.baseURL + "/chat/completions"

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.calculateBackoff(attempt)):
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := c.doRequest(ctx, url, reqBody)
		if err == nil {
			return resp, nil
		}
		if !isRetryable(err) {
			return nil, err
		}
		c.logger.Warn("retrying OpenAI request", "attempt", attempt+1, "err", err)
		lastErr = err
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) doRequest(ctx context.Context, url string, reqBody ChatRequest) (*ChatResponse, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "peeksy")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	c.logger.Debug("OpenAI response", "status", resp.StatusCode, "duration", time.Since(start))

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, handleErrorResponse(resp.StatusCode, body)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &chatResp, nil
}

// readResponse reads the body, rejecting anything over MaxResponseSize.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

func handleErrorResponse(statusCode int, body []byte) error {
	var apiErr apiErrorResponse
	msg := strings.TrimSpace(string(body))
	code := ""
	typ := ""
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		msg, code, typ = apiErr.Error.Message, apiErr.Error.Code, apiErr.Error.Type
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrAuthFailed, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrModelNotFound, msg)
	case http.StatusTooManyRequests:
		// Exhausted quota is not worth retrying.
		if code == "insufficient_quota" {
			return &APIError{Code: code, Type: typ, Message: msg, Status: statusCode}
		}
		return fmt.Errorf("%w: %s", ErrRateLimited, msg)
	default:
		return &APIError{Code: code, Type: typ, Message: msg, Status: statusCode}
	}
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 && apiErr.Status < 600
	}
	return false
}

// calculateBackoff returns the delay to wait before the next attempt.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	delay := c.baseDelay * time.Duration(1<<uint(attempt-1))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}
