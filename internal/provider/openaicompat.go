// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// openaicompat.go - Client for OpenAI-compatible chat completion APIs.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/halcyonforge/loom/internal/model"
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// chatRequest is the OpenAI-style request body.
type chatRequest struct {
	Model       string              `json:"model"`
	Messages    []model.ChatMessage `json:"messages"`
	Temperature float64             `json:"temperature,omitempty"`
	TopP        float64             `json:"top_p,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Stop        []string            `json:"stop,omitempty"`
	Stream      bool                `json:"stream"`
}

// chatResponse is the non-streaming response body.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage model.Usage `json:"usage"`
}

// streamChunk is one SSE data payload.
type streamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Role    string `json:"role,omitempty"`
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// apiErrorBody is the error envelope shared by OpenAI-compatible vendors.
type apiErrorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// OpenAICompatClient talks to any OpenAI-compatible chat completions
// endpoint. Vendor differences are confined to base URL, auth header, and
// extra headers.
type OpenAICompatClient struct {
	name         string
	baseURL      string
	apiKey       string
	extraHeaders map[string]string
	maxRetries   int

	// limiter optionally throttles outgoing requests. Nil means unlimited.
	limiter *rate.Limiter

	logEnabled bool
}

// NewOpenAICompatClient creates a client for an arbitrary OpenAI-compatible
// vendor. baseURL must include the API prefix, e.g. ".../v1".
func NewOpenAICompatClient(name, baseURL, apiKey string) *OpenAICompatClient {
	return &OpenAICompatClient{
		name:       name,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     strings.TrimSpace(apiKey),
		maxRetries: DefaultMaxRetries,
	}
}

// Vendor presets. Each returns a ready client pointed at the vendor's
// public endpoint.

// NewOpenAI creates a client for api.openai.com.
func NewOpenAI(apiKey string) *OpenAICompatClient {
	return NewOpenAICompatClient("openai", "https://api.openai.com/v1", apiKey)
}

// NewOpenRouter creates a client for openrouter.ai. The referer headers are
// how OpenRouter attributes traffic.
func NewOpenRouter(apiKey string) *OpenAICompatClient {
	c := NewOpenAICompatClient("openrouter", "https://openrouter.ai/api/v1", apiKey)
	c.extraHeaders = map[string]string{
		"HTTP-Referer": "https://loom.halcyonforge.dev",
		"X-Title":      "loom",
	}
	return c
}

// NewGroq creates a client for api.groq.com.
func NewGroq(apiKey string) *OpenAICompatClient {
	return NewOpenAICompatClient("groq", "https://api.groq.com/openai/v1", apiKey)
}

// NewDeepSeek creates a client for api.deepseek.com.
func NewDeepSeek(apiKey string) *OpenAICompatClient {
	return NewOpenAICompatClient("deepseek", "https://api.deepseek.com/v1", apiKey)
}

// NewXAI creates a client for api.x.ai.
func NewXAI(apiKey string) *OpenAICompatClient {
	return NewOpenAICompatClient("xai", "https://api.x.ai/v1", apiKey)
}

// NewMistral creates a client for api.mistral.ai.
func NewMistral(apiKey string) *OpenAICompatClient {
	return NewOpenAICompatClient("mistral", "https://api.mistral.ai/v1", apiKey)
}

// WithBaseURL overrides the endpoint, e.g. for a proxy or test server.
func (c *OpenAICompatClient) WithBaseURL(url string) *OpenAICompatClient {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// WithMaxRetries sets the retry budget.
func (c *OpenAICompatClient) WithMaxRetries(n int) *OpenAICompatClient {
	c.maxRetries = n
	return c
}

// WithRateLimit throttles requests to rps per second with the given burst.
func (c *OpenAICompatClient) WithRateLimit(rps float64, burst int) *OpenAICompatClient {
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// WithLogging enables request/response diagnostics. Only method, path,
// status and duration are logged; never headers or bodies.
func (c *OpenAICompatClient) WithLogging(enabled bool) *OpenAICompatClient {
	c.logEnabled = enabled
	return c
}

// Name implements Adapter.
func (c *OpenAICompatClient) Name() string { return c.name }

// IsConfigured reports whether an API key is present.
func (c *OpenAICompatClient) IsConfigured() bool { return c.apiKey != "" }

func (c *OpenAICompatClient) logf(format string, args ...any) {
	if c.logEnabled {
		log.Printf("["+c.name+"] "+format, args...)
	}
}

func (c *OpenAICompatClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "loom/0.1.0")
	for k, v := range c.extraHeaders {
		req.Header.Set(k, v)
	}
}

// wait applies the optional rate limiter.
func (c *OpenAICompatClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// =============================================================================
// NON-STREAMING
// =============================================================================

// Chat implements Adapter. Transient failures retry with exponential
// backoff; 4xx responses map to sentinel errors and fail immediately.
func (c *OpenAICompatClient) Chat(ctx context.Context, req *Request) (*Response, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("%w: %s API key missing", ErrNotConfigured, c.name)
	}

	body := chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
		Stop:        req.Stop,
		Stream:      false,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return nil, err
			}
		}
		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		resp, err := c.doOnce(ctx, payload)
		if err == nil {
			return resp, nil
		}
		if !retryable(err) {
			return nil, err
		}
		c.logf("attempt %d failed: %v", attempt+1, err)
		lastErr = err
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *OpenAICompatClient) doOnce(ctx context.Context, payload []byte) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)

	start := time.Now()
	resp, err := sharedHTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	c.logf("POST /chat/completions: %d (%v)", resp.StatusCode, time.Since(start))

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFromResponse(resp.StatusCode, body)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	out := &Response{
		ID:    parsed.ID,
		Model: parsed.Model,
		Usage: parsed.Usage,
	}
	if len(parsed.Choices) > 0 {
		out.Content = parsed.Choices[0].Message.Content
		out.FinishReason = parsed.Choices[0].FinishReason
	}
	return out, nil
}

// errorFromResponse maps a non-OK body to a sentinel-wrapping APIError.
func (c *OpenAICompatClient) errorFromResponse(status int, body []byte) error {
	apiErr := &APIError{Vendor: c.name, Status: status, Message: string(body)}
	var envelope apiErrorBody
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}

	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrAuthFailed, apiErr.Message)
	case http.StatusPaymentRequired:
		return fmt.Errorf("%w: %s", ErrInsufficientCredits, apiErr.Message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrModelNotFound, apiErr.Message)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Message)
	default:
		return apiErr
	}
}

// =============================================================================
// STREAMING
// =============================================================================

// ChatStream implements Adapter. The SSE stream is read until [DONE], a
// finish reason, or EOF. A broken stream returns StreamError carrying the
// partial content; it is not retried, the caller owns resumption.
func (c *OpenAICompatClient) ChatStream(ctx context.Context, req *Request, fn StreamFunc) error {
	if !c.IsConfigured() {
		return fmt.Errorf("%w: %s API key missing", ErrNotConfigured, c.name)
	}
	if err := c.wait(ctx); err != nil {
		return err
	}

	body := chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
		Stop:        req.Stop,
		Stream:      true,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := sharedStreamingClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		return c.errorFromResponse(resp.StatusCode, errBody)
	}

	return c.processStream(ctx, resp.Body, fn)
}

func (c *OpenAICompatClient) processStream(ctx context.Context, body io.Reader, fn StreamFunc) error {
	reader := newSSEReader(body)
	var accumulated strings.Builder

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		data, err := reader.readEvent()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return &StreamError{Partial: accumulated.String(), Err: err}
		}
		if bytes.Equal(data, []byte("[DONE]")) {
			return nil
		}

		var chunk streamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			// Malformed events are skipped, not fatal.
			c.logf("skipping malformed stream event: %v", err)
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		accumulated.WriteString(choice.Delta.Content)
		fn(StreamChunk{
			Content:      choice.Delta.Content,
			Role:         choice.Delta.Role,
			Model:        chunk.Model,
			FinishReason: choice.FinishReason,
			Done:         choice.FinishReason != "",
		})
		if choice.FinishReason != "" {
			return nil
		}
	}
}
