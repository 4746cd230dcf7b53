// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// wire.go - The provider wire format: the chat array handed to vendor adapters.
package model

import "encoding/json"

// =============================================================================
// CONTENT PARTS
// =============================================================================

// ContentPartType identifies a typed content part in a multimodal message.
type ContentPartType string

const (
	PartTypeText     ContentPartType = "text"
	PartTypeImageURL ContentPartType = "image_url"
	PartTypeVideoURL ContentPartType = "video_url"
)

// ImageDetail controls the vendor-side image tokenization quality.
type ImageDetail string

const (
	DetailAuto ImageDetail = "auto"
	DetailLow  ImageDetail = "low"
	DetailHigh ImageDetail = "high"
)

// ImageURL is an inline or remote image reference in a content part.
type ImageURL struct {
	URL    string      `json:"url"`
	Detail ImageDetail `json:"detail,omitempty"`
}

// VideoURL is an inline or remote video reference in a content part.
type VideoURL struct {
	URL string `json:"url"`
}

// ContentPart is one typed element of a multimodal message content array.
type ContentPart struct {
	Type     ContentPartType `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *ImageURL       `json:"image_url,omitempty"`
	VideoURL *VideoURL       `json:"video_url,omitempty"`
}

// =============================================================================
// TOOL CALLS
// =============================================================================

// FunctionCall is the function name/arguments pair inside a tool call.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall is a single tool invocation emitted by (or replayed to) a model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// Usage reports token consumption for one request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// =============================================================================
// CHAT MESSAGE (WIRE FORMAT)
// =============================================================================

// ChatMessage is one entry of the wire-format chat array.
//
// Content carries plain text; MultiContent carries the typed part array for
// multimodal messages. When MultiContent is non-empty it wins and "content"
// is serialized as an array, mirroring the OpenAI chat schema.
type ChatMessage struct {
	Role         Role          `json:"role"`
	Content      string        `json:"content"`
	MultiContent []ContentPart `json:"-"`
	Name         string        `json:"name,omitempty"`
	ToolCalls    []ToolCall    `json:"tool_calls,omitempty"`
	ToolCallID   string        `json:"tool_call_id,omitempty"`
}

// MarshalJSON serializes content as a string or a typed part array.
func (m ChatMessage) MarshalJSON() ([]byte, error) {
	if len(m.MultiContent) > 0 {
		multi := struct {
			Role       Role          `json:"role"`
			Content    []ContentPart `json:"content"`
			Name       string        `json:"name,omitempty"`
			ToolCalls  []ToolCall    `json:"tool_calls,omitempty"`
			ToolCallID string        `json:"tool_call_id,omitempty"`
		}{m.Role, m.MultiContent, m.Name, m.ToolCalls, m.ToolCallID}
		return json.Marshal(multi)
	}
	// A tool-call-only entry must carry no content key at all; vendors
	// reject "" and null content alongside tool_calls.
	if m.Content == "" && len(m.ToolCalls) > 0 {
		bare := struct {
			Role       Role       `json:"role"`
			Name       string     `json:"name,omitempty"`
			ToolCalls  []ToolCall `json:"tool_calls"`
			ToolCallID string     `json:"tool_call_id,omitempty"`
		}{m.Role, m.Name, m.ToolCalls, m.ToolCallID}
		return json.Marshal(bare)
	}
	plain := struct {
		Role       Role       `json:"role"`
		Content    string     `json:"content"`
		Name       string     `json:"name,omitempty"`
		ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
		ToolCallID string     `json:"tool_call_id,omitempty"`
	}{m.Role, m.Content, m.Name, m.ToolCalls, m.ToolCallID}
	return json.Marshal(plain)
}

// UnmarshalJSON accepts both string and part-array content.
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role       Role            `json:"role"`
		Content    json.RawMessage `json:"content"`
		Name       string          `json:"name,omitempty"`
		ToolCalls  []ToolCall      `json:"tool_calls,omitempty"`
		ToolCallID string          `json:"tool_call_id,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Role = raw.Role
	m.Name = raw.Name
	m.ToolCalls = raw.ToolCalls
	m.ToolCallID = raw.ToolCallID
	m.Content = ""
	m.MultiContent = nil
	if len(raw.Content) == 0 || string(raw.Content) == "null" {
		return nil
	}
	if raw.Content[0] == '[' {
		return json.Unmarshal(raw.Content, &m.MultiContent)
	}
	return json.Unmarshal(raw.Content, &m.Content)
}
