// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonforge/loom/internal/model"
)

func newStore(t *testing.T) *ChatStore {
	t.Helper()
	store, err := NewChatStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAppendLoad(t *testing.T) {
	store := newStore(t)

	id, err := store.Create("Anna")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, store.Append(id, model.NewUserMessage("hello")))
	reply := model.NewMessage(model.RoleAssistant, "hi there")
	reply.Source = "local"
	require.NoError(t, store.Append(id, reply))

	msgs, err := store.Load(id)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "local", msgs[1].Source)

	metas, err := store.List()
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, "Anna", metas[0].Character)
	assert.Equal(t, 2, metas[0].MessageCount)
}

func TestLoad_MissingChat(t *testing.T) {
	store := newStore(t)
	_, err := store.Load("no-such-chat")
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestAppend_UnknownChat(t *testing.T) {
	store := newStore(t)
	err := store.Append("no-such-chat", model.NewUserMessage("hi"))
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestLoad_SkipsCorruptedLines(t *testing.T) {
	store := newStore(t)
	id, err := store.Create("Anna")
	require.NoError(t, err)
	require.NoError(t, store.Append(id, model.NewUserMessage("first")))

	f, err := os.OpenFile(filepath.Join(store.BaseDir, id+".jsonl"), os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("{not json}\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, store.Append(id, model.NewUserMessage("second")))

	msgs, err := store.Load(id)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "second", msgs[1].Content)
}

func TestRewrite(t *testing.T) {
	store := newStore(t)
	id, err := store.Create("Anna")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(id, model.NewUserMessage("msg")))
	}

	msgs, err := store.Load(id)
	require.NoError(t, err)
	require.NoError(t, store.Rewrite(id, msgs[:1]))

	msgs, err = store.Load(id)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	meta, err := store.index.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 1, meta.MessageCount)
}

func TestDeleteAndSearch(t *testing.T) {
	store := newStore(t)

	annaID, err := store.Create("Anna")
	require.NoError(t, err)
	_, err = store.Create("Boris")
	require.NoError(t, err)

	found, err := store.Search("ann")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, annaID, found[0].ID)

	require.NoError(t, store.Delete(annaID))
	_, err = store.Load(annaID)
	assert.ErrorIs(t, err, ErrChatNotFound)

	metas, err := store.List()
	require.NoError(t, err)
	assert.Len(t, metas, 1)
}

func TestPrune(t *testing.T) {
	store := newStore(t)

	var ids []string
	for i := 0; i < 5; i++ {
		id, err := store.Create("Anna")
		require.NoError(t, err)
		ids = append(ids, id)
		// Spread the updated-at timestamps so ordering is deterministic.
		require.NoError(t, store.index.Upsert(ChatMeta{
			ID:        id,
			Character: "Anna",
			UpdatedAt: time.Now().Add(time.Duration(i) * time.Minute),
		}))
	}

	require.NoError(t, store.Prune(2))

	metas, err := store.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, ids[4], metas[0].ID, "newest chats survive")
	assert.Equal(t, ids[3], metas[1].ID)
}
