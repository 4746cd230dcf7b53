// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonforge/loom/internal/model"
)

// bogusItem satisfies Item but is neither a message nor a collection.
type bogusItem struct{}

func (bogusItem) Identifier() string { return "bogus" }
func (bogusItem) Tokens() int        { return 0 }

func TestNewMessageCollection_RejectsForeignTypes(t *testing.T) {
	_, err := NewMessageCollection("test", bogusItem{})
	require.Error(t, err)
	var invalid *InvalidArgumentError
	assert.ErrorAs(t, err, &invalid)
}

func TestMessageCollection_AddRejectsNil(t *testing.T) {
	col, _ := NewMessageCollection("test")
	var msg *Message
	err := col.Add(msg)
	require.Error(t, err)
}

func TestMessageCollection_LookupIsNotRecursive(t *testing.T) {
	inner, _ := NewMessageCollection("inner", mustMessage(t, model.RoleUser, "deep", "deepMsg"))
	outer, _ := NewMessageCollection("outer", inner)

	assert.True(t, outer.HasItemWithIdentifier("inner"))
	assert.False(t, outer.HasItemWithIdentifier("deepMsg"), "lookup searches direct children only")
}

func TestMessageCollection_TokensRecursive(t *testing.T) {
	inner, _ := NewMessageCollection("inner",
		mustMessage(t, model.RoleUser, "abc", "a"),   // 3
		mustMessage(t, model.RoleUser, "abcd", "b"),  // 4
	)
	outer, _ := NewMessageCollection("outer",
		mustMessage(t, model.RoleSystem, "ab", "c"), // 2
		inner,
	)
	assert.Equal(t, 9, outer.Tokens())
}

func TestMessageCollection_FlattenDepthFirstOrder(t *testing.T) {
	inner, _ := NewMessageCollection("inner",
		mustMessage(t, model.RoleUser, "2", "m2"),
		mustMessage(t, model.RoleUser, "3", "m3"),
	)
	outer, _ := NewMessageCollection("outer",
		mustMessage(t, model.RoleUser, "1", "m1"),
		inner,
		mustMessage(t, model.RoleUser, "4", "m4"),
	)

	flat := outer.Flatten()
	require.Len(t, flat, 4)
	ids := []string{}
	for _, msg := range flat {
		ids = append(ids, msg.Identifier())
	}
	assert.Equal(t, []string{"m1", "m2", "m3", "m4"}, ids)
}

func TestMessageCollection_ChatSkipsEmptyEntries(t *testing.T) {
	col, _ := NewMessageCollection("test",
		mustMessage(t, model.RoleUser, "hello", "a"),
		mustMessage(t, model.RoleUser, "", "b"),
		mustMessage(t, model.RoleAssistant, "world", "c"),
	)

	chat := col.Chat()
	require.Len(t, chat, 2)
	assert.Equal(t, "hello", chat[0].Content)
	assert.Equal(t, "world", chat[1].Content)
}

func TestMessageCollection_InsertAtClampsBeyondEnd(t *testing.T) {
	col, _ := NewMessageCollection("test", mustMessage(t, model.RoleUser, "a", "a"))
	col.insertAt(mustMessage(t, model.RoleUser, "b", "b"), 99)
	require.Equal(t, 2, col.Len())
	assert.Equal(t, "b", col.Items()[1].Identifier())

	col.insertAt(mustMessage(t, model.RoleUser, "c", "c"), 0)
	assert.Equal(t, "c", col.Items()[0].Identifier())
}
