// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// message.go - A single budget-tracked turn in the prompt tree.
package prompt

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"strings"

	"github.com/halcyonforge/loom/internal/model"
	"github.com/halcyonforge/loom/internal/tokens"
)

// debugLogging gates diagnostic output for the whole engine. It never
// affects control flow.
var debugLogging = false

// SetDebugLogging toggles engine-wide diagnostic logging.
func SetDebugLogging(enabled bool) {
	debugLogging = enabled
}

func debugf(format string, args ...any) {
	if debugLogging {
		log.Printf("[prompt] "+format, args...)
	}
}

// =============================================================================
// ITEM INTERFACE
// =============================================================================

// Item is a node of the prompt tree: either a *Message leaf or a nested
// *MessageCollection.
type Item interface {
	// Identifier returns the node's identifier, used for lookup, removal,
	// and budget tracing.
	Identifier() string

	// Tokens returns the node's current total token count.
	Tokens() int
}

// validItem reports whether item is one of the two concrete node types.
func validItem(item Item) bool {
	switch node := item.(type) {
	case *Message:
		return node != nil
	case *MessageCollection:
		return node != nil
	default:
		return false
	}
}

// =============================================================================
// TOOL INVOCATIONS
// =============================================================================

// ToolInvocation is the caller-facing shape of a tool call before it is
// transformed into the wire tool-call format.
type ToolInvocation struct {
	ID         string
	Name       string
	Parameters string
}

// =============================================================================
// MESSAGE
// =============================================================================

// ImageFetcher resolves a remote URL or data URI to raw bytes and a mime
// type. Fetch failures are absorbed by the caller: the media is simply not
// attached.
type ImageFetcher interface {
	Fetch(ctx context.Context, ref string) (data []byte, mimeType string, err error)
}

// Message is a single turn of the assembled prompt. Its token count always
// reflects the current content, name, and tool calls as measured by the
// injected counter; every mutating operation recounts synchronously.
type Message struct {
	role       model.Role
	content    string
	parts      []model.ContentPart
	identifier string
	name       string
	toolCalls  []model.ToolCall

	counter     tokens.Counter
	textTokens  int
	mediaTokens int
}

// NewMessage creates a message and computes its initial token count.
// An empty role defaults to system; empty content costs zero tokens without
// consulting the counter.
func NewMessage(ctx context.Context, counter tokens.Counter, role model.Role, content, identifier string) (*Message, error) {
	if role == "" {
		role = model.RoleSystem
	}
	m := &Message{
		role:       role,
		content:    content,
		identifier: identifier,
		counter:    counter,
	}
	if content != "" {
		if err := m.recount(ctx); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Identifier returns the message identifier.
func (m *Message) Identifier() string { return m.identifier }

// Role returns the message role.
func (m *Message) Role() model.Role { return m.role }

// Content returns the plain-text content. For multimodal messages this is
// the text portion only; see Parts.
func (m *Message) Content() string { return m.content }

// Parts returns the typed content parts, or nil for plain-text messages.
func (m *Message) Parts() []model.ContentPart { return m.parts }

// Name returns the attached speaker name, if any.
func (m *Message) Name() string { return m.name }

// ToolCalls returns the attached wire-format tool calls, if any.
func (m *Message) ToolCalls() []model.ToolCall { return m.toolCalls }

// Tokens returns the current token count.
func (m *Message) Tokens() int { return m.textTokens + m.mediaTokens }

// SetName attaches a speaker name and recounts.
func (m *Message) SetName(ctx context.Context, name string) error {
	prev := m.name
	m.name = name
	if err := m.recount(ctx); err != nil {
		m.name = prev
		return err
	}
	return nil
}

// SetToolCalls transforms invocations into the wire tool-call shape and
// recounts.
func (m *Message) SetToolCalls(ctx context.Context, invocations []ToolInvocation) error {
	calls := make([]model.ToolCall, 0, len(invocations))
	for _, inv := range invocations {
		calls = append(calls, model.ToolCall{
			ID:   inv.ID,
			Type: "function",
			Function: model.FunctionCall{
				Name:      inv.Name,
				Arguments: inv.Parameters,
			},
		})
	}
	prev := m.toolCalls
	m.toolCalls = calls
	if err := m.recount(ctx); err != nil {
		m.toolCalls = prev
		return err
	}
	return nil
}

// AddImage resolves ref to inline data, converts the content to a typed part
// array, and adds the image's token cost. All failures are soft: on fetch or
// cost-computation error the message is left unchanged or falls back to the
// flat per-image cost.
func (m *Message) AddImage(ctx context.Context, fetcher ImageFetcher, ref string, detail model.ImageDetail) {
	uri, data, ok := resolveMedia(ctx, fetcher, ref)
	if !ok {
		debugf("image fetch failed for %q, skipping attachment", m.identifier)
		return
	}

	cost := imageTokenCost(data, detail)
	m.toMultiContent()
	m.parts = append(m.parts, model.ContentPart{
		Type:     model.PartTypeImageURL,
		ImageURL: &model.ImageURL{URL: uri, Detail: detail},
	})
	m.mediaTokens += cost
}

// AddVideo resolves ref to inline data and adds a flat conservative token
// cost, since true duration is typically unknown. No compression is applied.
func (m *Message) AddVideo(ctx context.Context, fetcher ImageFetcher, ref string) {
	uri, _, ok := resolveMedia(ctx, fetcher, ref)
	if !ok {
		debugf("video fetch failed for %q, skipping attachment", m.identifier)
		return
	}

	m.toMultiContent()
	m.parts = append(m.parts, model.ContentPart{
		Type:     model.PartTypeVideoURL,
		VideoURL: &model.VideoURL{URL: uri},
	})
	m.mediaTokens += videoTokenCost
}

// appendContent extends the text content in place and recounts. Used by
// system-message squashing and prefix continuation.
func (m *Message) appendContent(ctx context.Context, text, separator string) error {
	prev := m.content
	if m.content == "" {
		m.content = text
	} else {
		m.content += separator + text
	}
	if len(m.parts) > 0 && m.parts[0].Type == model.PartTypeText {
		m.parts[0].Text = m.content
	}
	if err := m.recount(ctx); err != nil {
		m.content = prev
		return err
	}
	return nil
}

// setContent replaces the text content and recounts.
func (m *Message) setContent(ctx context.Context, text string) error {
	prev := m.content
	m.content = text
	if len(m.parts) > 0 && m.parts[0].Type == model.PartTypeText {
		m.parts[0].Text = text
	}
	if err := m.recount(ctx); err != nil {
		m.content = prev
		return err
	}
	return nil
}

// toMultiContent converts plain text content into a two-part structured
// array, the first part holding the existing text.
func (m *Message) toMultiContent() {
	if m.parts != nil {
		return
	}
	m.parts = []model.ContentPart{{Type: model.PartTypeText, Text: m.content}}
}

// recount recomputes textTokens over content, name, and tool calls. Media
// costs are tracked separately and unaffected.
func (m *Message) recount(ctx context.Context) error {
	total := 0

	if m.content != "" {
		n, err := m.counter.Count(ctx, m.content)
		if err != nil {
			return err
		}
		total += n
	}
	if m.name != "" {
		n, err := m.counter.Count(ctx, m.name)
		if err != nil {
			return err
		}
		total += n + tokens.PerName
	}
	if len(m.toolCalls) > 0 {
		encoded, err := json.Marshal(m.toolCalls)
		if err != nil {
			return err
		}
		n, err := m.counter.Count(ctx, string(encoded))
		if err != nil {
			return err
		}
		total += n
	}

	m.textTokens = total
	return nil
}

// chatEntry maps the message to its wire-format entry. Returns false when
// the message has neither content nor tool calls and must be skipped.
func (m *Message) chatEntry() (model.ChatMessage, bool) {
	hasText := m.content != ""
	for _, p := range m.parts {
		if p.Type != model.PartTypeText || p.Text != "" {
			hasText = true
			break
		}
	}
	if !hasText && len(m.toolCalls) == 0 {
		return model.ChatMessage{}, false
	}

	entry := model.ChatMessage{
		Role:      m.role,
		Name:      m.name,
		ToolCalls: m.toolCalls,
	}
	if len(m.parts) > 0 {
		entry.MultiContent = m.parts
	} else {
		entry.Content = m.content
	}
	if m.role == model.RoleTool {
		entry.ToolCallID = m.identifier
	}
	return entry, true
}

// =============================================================================
// MEDIA RESOLUTION
// =============================================================================

// resolveMedia turns ref into a data URI plus raw bytes. Data URIs are used
// as-is; anything else goes through the fetcher. Returns ok=false when the
// media cannot be resolved.
func resolveMedia(ctx context.Context, fetcher ImageFetcher, ref string) (uri string, data []byte, ok bool) {
	if strings.HasPrefix(ref, "data:") {
		payload := decodeDataURI(ref)
		if payload == nil {
			return "", nil, false
		}
		return ref, payload, true
	}

	if fetcher == nil {
		return "", nil, false
	}
	raw, mimeType, err := fetcher.Fetch(ctx, ref)
	if err != nil {
		return "", nil, false
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	encoded := base64.StdEncoding.EncodeToString(raw)
	return "data:" + mimeType + ";base64," + encoded, raw, true
}

// decodeDataURI extracts the payload bytes of a base64 data URI, or nil if
// malformed.
func decodeDataURI(uri string) []byte {
	idx := strings.Index(uri, ",")
	if idx < 0 {
		return nil
	}
	header, payload := uri[:idx], uri[idx+1:]
	if !strings.HasSuffix(header, ";base64") {
		return []byte(payload)
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil
	}
	return decoded
}
