// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestMessage_StreamingAccumulation(t *testing.T) {
	msg := NewAssistantMessage()
	require.True(t, msg.IsStreaming)

	msg.AppendChunk("Hello")
	msg.AppendChunk(", world")
	assert.Equal(t, "Hello, world", msg.DisplayContent())
	assert.Equal(t, "", msg.Content, "content merged only on finalize")

	stats := NewStatistics()
	stats.RecordFirstToken()
	stats.Finalize(3)
	msg.FinalizeStream(stats)

	assert.False(t, msg.IsStreaming)
	assert.Equal(t, "Hello, world", msg.Content)
	assert.Equal(t, 3, msg.TokenCount)
}

func TestMessage_IsEmpty(t *testing.T) {
	assert.True(t, NewUserMessage("").IsEmpty())
	assert.False(t, NewUserMessage("hi").IsEmpty())

	toolMsg := NewAssistantMessage()
	toolMsg.FinalizeStream(nil)
	toolMsg.ToolCalls = []ToolCall{{ID: "t1", Type: "function"}}
	assert.False(t, toolMsg.IsEmpty(), "tool calls alone make a message non-empty")
}

func TestMessage_Preview(t *testing.T) {
	msg := NewUserMessage("héllo wörld this is a long message")
	preview := msg.Preview(10)
	assert.Equal(t, "héllo w...", preview)
	assert.LessOrEqual(t, len([]rune(preview)), 10)
}

// =============================================================================
// CHAT TESTS
// =============================================================================

func TestChat_DetachLastMessage(t *testing.T) {
	chat := NewChat("Seraphina")
	chat.AddUserMessage("one")
	last := chat.AddUserMessage("two")

	detached := chat.DetachLastMessage()
	require.NotNil(t, detached)
	assert.Equal(t, last.ID, detached.ID)
	assert.Equal(t, 1, chat.MessageCount())

	chat.DetachLastMessage()
	assert.Nil(t, chat.DetachLastMessage())
}

func TestChat_PruneOldMessages(t *testing.T) {
	chat := NewChat("test")
	for i := 0; i < MaxMessages+5; i++ {
		chat.AddMessage(NewUserMessage("m"))
	}
	assert.Equal(t, MaxMessages, chat.MessageCount())
}

// =============================================================================
// WIRE FORMAT TESTS
// =============================================================================

func TestChatMessage_MarshalPlain(t *testing.T) {
	msg := ChatMessage{Role: RoleUser, Content: "hi", Name: "Anna"}
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"user","content":"hi","name":"Anna"}`, string(data))
}

func TestChatMessage_MarshalToolCallsOnly(t *testing.T) {
	msg := ChatMessage{
		Role: RoleAssistant,
		ToolCalls: []ToolCall{
			{ID: "t1", Type: "function", Function: FunctionCall{Name: "fn", Arguments: "{}"}},
		},
	}
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.NotContains(t, decoded, "content", "tool-call-only entries omit the content key")
	assert.Contains(t, decoded, "tool_calls")

	// With content present the key stays.
	msg.Content = "done"
	data, err = json.Marshal(msg)
	require.NoError(t, err)
	decoded = nil
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "content")
}

func TestChatMessage_MarshalMultiContent(t *testing.T) {
	msg := ChatMessage{
		Role: RoleUser,
		MultiContent: []ContentPart{
			{Type: PartTypeText, Text: "look at this"},
			{Type: PartTypeImageURL, ImageURL: &ImageURL{URL: "data:image/png;base64,AAAA", Detail: DetailAuto}},
		},
	}
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	parts, ok := decoded["content"].([]any)
	require.True(t, ok, "multimodal content must serialize as an array")
	assert.Len(t, parts, 2)
}

func TestChatMessage_UnmarshalRoundTrip(t *testing.T) {
	orig := ChatMessage{
		Role:       RoleTool,
		Content:    "result",
		ToolCallID: "call_1",
		ToolCalls:  []ToolCall{{ID: "call_1", Type: "function", Function: FunctionCall{Name: "fn", Arguments: "{}"}}},
	}
	data, err := json.Marshal(orig)
	require.NoError(t, err)

	var back ChatMessage
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, orig.Role, back.Role)
	assert.Equal(t, orig.Content, back.Content)
	assert.Equal(t, orig.ToolCallID, back.ToolCallID)
	require.Len(t, back.ToolCalls, 1)
	assert.Equal(t, "fn", back.ToolCalls[0].Function.Name)
}

func TestChatMessage_UnmarshalArrayContent(t *testing.T) {
	raw := `{"role":"user","content":[{"type":"text","text":"hi"},{"type":"image_url","image_url":{"url":"u"}}]}`
	var msg ChatMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	require.Len(t, msg.MultiContent, 2)
	assert.Equal(t, PartTypeText, msg.MultiContent[0].Type)
	assert.Equal(t, "u", msg.MultiContent[1].ImageURL.URL)
}
