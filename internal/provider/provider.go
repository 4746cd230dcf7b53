// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// provider.go - Adapter interface, shared request/response types, errors.
package provider

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/halcyonforge/loom/internal/model"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultTimeout bounds non-streaming requests.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the retry budget for transient failures.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay caps the backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize caps a non-streaming response body.
	MaxResponseSize = 10 * 1024 * 1024
)

// Shared pooled clients. The streaming client carries no timeout; streams
// are bounded by their context.
var (
	sharedHTTPClient = &http.Client{
		Transport: pooledTransport(),
		Timeout:   DefaultTimeout,
	}

	sharedStreamingClient = &http.Client{
		Transport: pooledTransport(),
	}
)

func pooledTransport() *http.Transport {
	return &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
}

// =============================================================================
// ADAPTER
// =============================================================================

// Request is a vendor-neutral chat completion request. Messages is the wire
// chat array produced by prompt assembly.
type Request struct {
	Model       string
	Messages    []model.ChatMessage
	Temperature float64
	TopP        float64
	MaxTokens   int
	Stop        []string
}

// Response is a completed, non-streaming chat result.
type Response struct {
	ID           string
	Model        string
	Content      string
	FinishReason string
	Usage        model.Usage
}

// StreamChunk is one delta of a streaming response.
type StreamChunk struct {
	Content      string
	Role         string
	Model        string
	FinishReason string
	Done         bool
}

// StreamFunc receives each chunk of a streaming response in order.
type StreamFunc func(chunk StreamChunk)

// Adapter is a chat completion backend.
type Adapter interface {
	// Name identifies the adapter for routing and diagnostics.
	Name() string

	// Chat performs a blocking completion.
	Chat(ctx context.Context, req *Request) (*Response, error)

	// ChatStream performs a streaming completion, invoking fn per chunk.
	ChatStream(ctx context.Context, req *Request, fn StreamFunc) error
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConfigured indicates a required API key or endpoint is missing.
	ErrNotConfigured = errors.New("provider not configured")

	// ErrAuthFailed indicates the API key was rejected.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates the vendor throttled the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrModelNotFound indicates the requested model does not exist.
	ErrModelNotFound = errors.New("model not found")

	// ErrInsufficientCredits indicates the account balance is exhausted.
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// APIError is a non-OK response from a vendor API.
type APIError struct {
	Vendor  string
	Code    string
	Message string
	Status  int
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s error [%s] (HTTP %d): %s", e.Vendor, e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("%s error (HTTP %d): %s", e.Vendor, e.Status, e.Message)
}

// StreamError is a streaming failure that preserves the content received
// before the connection broke.
type StreamError struct {
	Partial string
	Err     error
}

func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// retryable reports whether an error warrants another attempt. 5xx and rate
// limiting retry; 4xx and context cancellation do not.
func retryable(err error) bool {
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
	// Network-level failures are worth retrying.
	return true
}

// backoff returns the delay before retry attempt n (1-based).
func backoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

// sleepBackoff waits out the backoff for attempt or returns the context error.
func sleepBackoff(ctx context.Context, attempt int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(backoff(attempt)):
		return nil
	}
}

// readResponse reads a response body under the size cap.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}
