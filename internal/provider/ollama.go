// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ollama.go - Adapter for the local Ollama API (NDJSON streaming).
package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/halcyonforge/loom/internal/model"
)

// DefaultOllamaURL uses the explicit IPv4 loopback; "localhost" can resolve
// to IPv6 first on some platforms while Ollama binds only IPv4.
const DefaultOllamaURL = "http://127.0.0.1:11434"

// ErrOllamaNotRunning indicates the local Ollama daemon is unreachable.
var ErrOllamaNotRunning = errors.New("ollama is not running")

// OllamaClient talks to a local Ollama daemon via /api/chat.
type OllamaClient struct {
	baseURL string
	timeout time.Duration
}

// NewOllama creates a client for the default local endpoint.
func NewOllama() *OllamaClient {
	return &OllamaClient{
		baseURL: DefaultOllamaURL,
		timeout: 30 * time.Second,
	}
}

// WithBaseURL overrides the daemon endpoint.
func (c *OllamaClient) WithBaseURL(url string) *OllamaClient {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// Name implements Adapter.
func (c *OllamaClient) Name() string { return "ollama" }

// ollamaOptions carries the sampling parameters Ollama understands.
type ollamaOptions struct {
	Temperature float64  `json:"temperature,omitempty"`
	TopP        float64  `json:"top_p,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// ollamaChatRequest is the /api/chat request body. Ollama accepts the same
// role/content message shape as the OpenAI dialect for text content.
type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []model.ChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  *ollamaOptions      `json:"options,omitempty"`
}

// ollamaChatResponse is one NDJSON line of the /api/chat response.
type ollamaChatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason,omitempty"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
}

func (c *OllamaClient) buildRequest(req *Request, stream bool) ollamaChatRequest {
	out := ollamaChatRequest{
		Model:    req.Model,
		Messages: req.Messages,
		Stream:   stream,
	}
	if req.Temperature != 0 || req.TopP != 0 || req.MaxTokens != 0 || len(req.Stop) > 0 {
		out.Options = &ollamaOptions{
			Temperature: req.Temperature,
			TopP:        req.TopP,
			NumPredict:  req.MaxTokens,
			Stop:        req.Stop,
		}
	}
	return out
}

// Chat implements Adapter.
func (c *OllamaClient) Chat(ctx context.Context, req *Request) (*Response, error) {
	payload, err := json.Marshal(c.buildRequest(req, false))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.post(ctx, payload, sharedHTTPClient)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFromResponse(resp.StatusCode, body)
	}

	var parsed ollamaChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &Response{
		Model:        parsed.Model,
		Content:      parsed.Message.Content,
		FinishReason: parsed.DoneReason,
		Usage: model.Usage{
			PromptTokens:     parsed.PromptEvalCount,
			CompletionTokens: parsed.EvalCount,
			TotalTokens:      parsed.PromptEvalCount + parsed.EvalCount,
		},
	}, nil
}

// ChatStream implements Adapter. The response is NDJSON: one JSON object
// per line, final line carrying done=true and eval counts.
func (c *OllamaClient) ChatStream(ctx context.Context, req *Request, fn StreamFunc) error {
	payload, err := json.Marshal(c.buildRequest(req, true))
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.post(ctx, payload, sharedStreamingClient)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		return c.errorFromResponse(resp.StatusCode, body)
	}

	reader := bufio.NewReader(resp.Body)
	var accumulated strings.Builder
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err != nil {
			if errors.Is(err, io.EOF) && len(bytes.TrimSpace(line)) == 0 {
				return nil
			}
			if !errors.Is(err, io.EOF) {
				return &StreamError{Partial: accumulated.String(), Err: err}
			}
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var chunk ollamaChatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			// Malformed lines are skipped.
			continue
		}

		accumulated.WriteString(chunk.Message.Content)
		fn(StreamChunk{
			Content:      chunk.Message.Content,
			Role:         chunk.Message.Role,
			Model:        chunk.Model,
			FinishReason: chunk.DoneReason,
			Done:         chunk.Done,
		})
		if chunk.Done {
			return nil
		}
	}
}

func (c *OllamaClient) post(ctx context.Context, payload []byte, client *http.Client) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrOllamaNotRunning, err)
	}
	return resp, nil
}

func (c *OllamaClient) errorFromResponse(status int, body []byte) error {
	var envelope struct {
		Error string `json:"error"`
	}
	message := string(body)
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		message = envelope.Error
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrModelNotFound, message)
	}
	return &APIError{Vendor: "ollama", Status: status, Message: message}
}
