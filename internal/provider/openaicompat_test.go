// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonforge/loom/internal/model"
)

var ctx = context.Background()

func simpleRequest() *Request {
	return &Request{
		Model: "test-model",
		Messages: []model.ChatMessage{
			{Role: model.RoleSystem, Content: "be brief"},
			{Role: model.RoleUser, Content: "hello"},
		},
	}
}

func TestChat_Success(t *testing.T) {
	var gotAuth string
	var gotBody chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "cmpl-1",
			"model": "test-model",
			"choices": [{
				"message": {"role": "assistant", "content": "hi there"},
				"finish_reason": "stop"
			}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	client := NewOpenAICompatClient("test", server.URL, "sk-test").WithMaxRetries(1)
	resp, err := client.Chat(ctx, simpleRequest())
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "test-model", gotBody.Model)
	assert.False(t, gotBody.Stream)
	require.Len(t, gotBody.Messages, 2)

	assert.Equal(t, "hi there", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 12, resp.Usage.PromptTokens)
	assert.Equal(t, 3, resp.Usage.CompletionTokens)
}

func TestChat_NotConfigured(t *testing.T) {
	client := NewOpenAICompatClient("test", "http://unused", "")
	_, err := client.Chat(ctx, simpleRequest())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestChat_AuthFailureNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"code": "invalid_api_key", "message": "bad key"}}`))
	}))
	defer server.Close()

	client := NewOpenAICompatClient("test", server.URL, "sk-bad")
	_, err := client.Chat(ctx, simpleRequest())
	assert.ErrorIs(t, err, ErrAuthFailed)
	assert.Equal(t, int32(1), calls.Load(), "4xx must not retry")
}

func TestChat_RateLimitMapping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "slow down"}}`))
	}))
	defer server.Close()

	client := NewOpenAICompatClient("test", server.URL, "sk-test").WithMaxRetries(1)
	_, err := client.Chat(ctx, simpleRequest())
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestChat_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error": {"message": "transient"}}`))
			return
		}
		w.Write([]byte(`{
			"id": "cmpl-2", "model": "test-model",
			"choices": [{"message": {"role": "assistant", "content": "recovered"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2}
		}`))
	}))
	defer server.Close()

	client := NewOpenAICompatClient("test", server.URL, "sk-test")
	resp, err := client.Chat(ctx, simpleRequest())
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Content)
	assert.Equal(t, int32(2), calls.Load())
}

func TestChatStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"model\":\"test-model\",\"choices\":[{\"delta\":{\"role\":\"assistant\",\"content\":\"hel\"},\"finish_reason\":\"\"}]}\n\n"))
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"lo\"},\"finish_reason\":\"\"}]}\n\n"))
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"\"},\"finish_reason\":\"stop\"}]}\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer server.Close()

	client := NewOpenAICompatClient("test", server.URL, "sk-test")
	var content string
	var finish string
	err := client.ChatStream(ctx, simpleRequest(), func(chunk StreamChunk) {
		content += chunk.Content
		if chunk.Done {
			finish = chunk.FinishReason
		}
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", content)
	assert.Equal(t, "stop", finish)
}

func TestChatStream_SkipsMalformedEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data: this is not json\n\n"))
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"ok\"},\"finish_reason\":\"stop\"}]}\n\n"))
	}))
	defer server.Close()

	client := NewOpenAICompatClient("test", server.URL, "sk-test")
	var content string
	err := client.ChatStream(ctx, simpleRequest(), func(chunk StreamChunk) {
		content += chunk.Content
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", content)
}

func TestChatStream_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": {"message": "no such model"}}`))
	}))
	defer server.Close()

	client := NewOpenAICompatClient("test", server.URL, "sk-test")
	err := client.ChatStream(ctx, simpleRequest(), func(StreamChunk) {
		t.Fatal("no chunks expected")
	})
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestVendorPresets(t *testing.T) {
	assert.Equal(t, "openai", NewOpenAI("k").Name())
	assert.Equal(t, "groq", NewGroq("k").Name())
	assert.Equal(t, "deepseek", NewDeepSeek("k").Name())
	assert.Equal(t, "xai", NewXAI("k").Name())
	assert.Equal(t, "mistral", NewMistral("k").Name())

	or := NewOpenRouter("k")
	assert.Equal(t, "openrouter", or.Name())
	assert.NotEmpty(t, or.extraHeaders["HTTP-Referer"])
}
