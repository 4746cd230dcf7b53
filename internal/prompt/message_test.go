// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonforge/loom/internal/model"
	"github.com/halcyonforge/loom/internal/tokens"
)

// =============================================================================
// MOCK COLLABORATORS
// =============================================================================

// runeCounter counts one token per rune, giving tests exact control over
// message costs.
type runeCounter struct{}

func (runeCounter) Count(_ context.Context, text string) (int, error) {
	return len([]rune(text)), nil
}

// failCounter fails on every call; used to prove empty content skips the
// counter entirely.
type failCounter struct{}

func (failCounter) Count(context.Context, string) (int, error) {
	return 0, errors.New("counter must not be called")
}

// stubFetcher returns fixed bytes or an error.
type stubFetcher struct {
	data []byte
	mime string
	err  error
}

func (f *stubFetcher) Fetch(context.Context, string) ([]byte, string, error) {
	return f.data, f.mime, f.err
}

var ctx = context.Background()

func mustMessage(t *testing.T, role model.Role, content, identifier string) *Message {
	t.Helper()
	msg, err := NewMessage(ctx, runeCounter{}, role, content, identifier)
	require.NoError(t, err)
	return msg
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

func TestNewMessage_DefaultRole(t *testing.T) {
	msg := mustMessage(t, "", "hello", "greeting")
	assert.Equal(t, model.RoleSystem, msg.Role())
}

func TestNewMessage_EmptyContentSkipsCounter(t *testing.T) {
	msg, err := NewMessage(ctx, failCounter{}, model.RoleUser, "", "empty")
	require.NoError(t, err)
	assert.Equal(t, 0, msg.Tokens())
}

func TestNewMessage_CountsContent(t *testing.T) {
	msg := mustMessage(t, model.RoleUser, "abcde", "m")
	assert.Equal(t, 5, msg.Tokens())
}

// =============================================================================
// MUTATION AND RECOUNTING
// =============================================================================

func TestSetName_Recounts(t *testing.T) {
	msg := mustMessage(t, model.RoleUser, "abcde", "m")
	require.NoError(t, msg.SetName(ctx, "Anna"))
	// content(5) + name(4) + per-name overhead
	assert.Equal(t, 5+4+tokens.PerName, msg.Tokens())
}

func TestSetToolCalls_WireShapeAndRecount(t *testing.T) {
	msg := mustMessage(t, model.RoleAssistant, "", "m")
	require.NoError(t, msg.SetToolCalls(ctx, []ToolInvocation{
		{ID: "t1", Name: "fn", Parameters: "{}"},
	}))

	calls := msg.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "t1", calls[0].ID)
	assert.Equal(t, "function", calls[0].Type)
	assert.Equal(t, "fn", calls[0].Function.Name)
	assert.Equal(t, "{}", calls[0].Function.Arguments)
	assert.Greater(t, msg.Tokens(), 0, "tool calls must be counted")
}

// =============================================================================
// MEDIA ATTACHMENT
// =============================================================================

func TestAddImage_FetchFailureLeavesMessageUnchanged(t *testing.T) {
	msg := mustMessage(t, model.RoleUser, "abcde", "m")
	before := msg.Tokens()

	msg.AddImage(ctx, &stubFetcher{err: errors.New("boom")}, "https://example.com/a.png", model.DetailAuto)

	assert.Nil(t, msg.Parts())
	assert.Equal(t, before, msg.Tokens())
}

func TestAddImage_UndecodableDataFallsBackToBaseCost(t *testing.T) {
	msg := mustMessage(t, model.RoleUser, "abcde", "m")

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("not an image"))
	msg.AddImage(ctx, nil, uri, model.DetailAuto)

	parts := msg.Parts()
	require.Len(t, parts, 2)
	assert.Equal(t, model.PartTypeText, parts[0].Type)
	assert.Equal(t, "abcde", parts[0].Text)
	assert.Equal(t, model.PartTypeImageURL, parts[1].Type)
	assert.Equal(t, 5+imageBaseTokens, msg.Tokens())
}

func TestAddImage_FetchedBytesBecomeDataURI(t *testing.T) {
	msg := mustMessage(t, model.RoleUser, "look", "m")
	fetcher := &stubFetcher{data: []byte{1, 2, 3}, mime: "image/png"}

	msg.AddImage(ctx, fetcher, "https://example.com/a.png", model.DetailLow)

	parts := msg.Parts()
	require.Len(t, parts, 2)
	url := parts[1].ImageURL.URL
	assert.Contains(t, url, "data:image/png;base64,")
	assert.Equal(t, 4+imageBaseTokens, msg.Tokens(), "low detail costs the flat base")
}

func TestAddVideo_FlatCost(t *testing.T) {
	msg := mustMessage(t, model.RoleUser, "clip", "m")
	uri := "data:video/mp4;base64," + base64.StdEncoding.EncodeToString([]byte{9, 9})

	msg.AddVideo(ctx, nil, uri)

	parts := msg.Parts()
	require.Len(t, parts, 2)
	assert.Equal(t, model.PartTypeVideoURL, parts[1].Type)
	assert.Equal(t, 4+videoTokenCost, msg.Tokens())
}

// =============================================================================
// WIRE MAPPING
// =============================================================================

func TestChatEntry_ToolCallsAloneSurvive(t *testing.T) {
	msg := mustMessage(t, model.RoleAssistant, "", "m")
	require.NoError(t, msg.SetToolCalls(ctx, []ToolInvocation{{ID: "t1", Name: "fn", Parameters: "{}"}}))

	entry, ok := msg.chatEntry()
	require.True(t, ok, "tool calls alone satisfy the inclusion test")
	assert.Empty(t, entry.Content)
	require.Len(t, entry.ToolCalls, 1)

	// On the wire the empty content key must disappear entirely.
	data, err := json.Marshal(entry)
	require.NoError(t, err)
	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.NotContains(t, decoded, "content")
	assert.Contains(t, decoded, "tool_calls")
}

func TestChatEntry_EmptyIsSkipped(t *testing.T) {
	msg := mustMessage(t, model.RoleUser, "", "m")
	_, ok := msg.chatEntry()
	assert.False(t, ok)
}

func TestChatEntry_ToolRoleCarriesCallID(t *testing.T) {
	msg := mustMessage(t, model.RoleTool, "result", "call_42")
	entry, ok := msg.chatEntry()
	require.True(t, ok)
	assert.Equal(t, "call_42", entry.ToolCallID)
}
