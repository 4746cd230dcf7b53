// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chats.go - JSONL chat transcript store.
package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/halcyonforge/loom/internal/model"
	"github.com/halcyonforge/loom/internal/util"
)

// ErrChatNotFound is returned when a chat does not exist.
// Check with errors.Is(err, ErrChatNotFound).
var ErrChatNotFound = &ChatError{Message: "chat not found"}

// ChatError is a chat persistence error.
type ChatError struct {
	Message string
}

func (e *ChatError) Error() string { return e.Message }

// Is supports errors.Is comparison by message.
func (e *ChatError) Is(target error) bool {
	t, ok := target.(*ChatError)
	return ok && e.Message == t.Message
}

// ChatMeta is the listing metadata for one chat.
type ChatMeta struct {
	ID           string    `json:"id"`
	Character    string    `json:"character"`
	MessageCount int       `json:"message_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// =============================================================================
// CHAT STORE
// =============================================================================

// ChatStore persists transcripts as JSONL files under BaseDir and keeps
// listing metadata in the sqlite index.
type ChatStore struct {
	// BaseDir holds the transcript files, default ~/.loom/chats.
	BaseDir string

	index *Index
}

// NewChatStore opens (or creates) a store rooted at baseDir, with its index
// database alongside the transcripts.
func NewChatStore(baseDir string) (*ChatStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	index, err := OpenIndex(filepath.Join(baseDir, "index.db"))
	if err != nil {
		return nil, err
	}
	return &ChatStore{BaseDir: baseDir, index: index}, nil
}

// Close releases the index database.
func (s *ChatStore) Close() error {
	return s.index.Close()
}

// Create starts a new empty chat for a character and returns its ID.
func (s *ChatStore) Create(character string) (string, error) {
	id := uuid.NewString()
	path := s.transcriptPath(id)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create transcript: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	if err := s.index.Upsert(ChatMeta{
		ID:        id,
		Character: character,
		UpdatedAt: time.Now(),
	}); err != nil {
		return "", err
	}
	return id, nil
}

// Append commits one message to a chat transcript.
func (s *ChatStore) Append(id string, msg *model.Message) error {
	meta, err := s.index.Get(id)
	if err != nil {
		return err
	}

	line, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	f, err := os.OpenFile(s.transcriptPath(id), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open transcript: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	if err := f.Sync(); err != nil {
		return err
	}

	meta.MessageCount++
	meta.UpdatedAt = time.Now()
	return s.index.Upsert(meta)
}

// Load reads a full transcript, oldest first. Corrupted lines are skipped.
func (s *ChatStore) Load(id string) ([]*model.Message, error) {
	f, err := os.Open(s.transcriptPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	defer f.Close()

	var msgs []*model.Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var msg model.Message
		if err := json.Unmarshal(line, &msg); err != nil {
			continue
		}
		msgs = append(msgs, &msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	return msgs, nil
}

// Rewrite replaces a chat's transcript wholesale, for edits and history
// pruning. The write is atomic; the index count is refreshed.
func (s *ChatStore) Rewrite(id string, msgs []*model.Message) error {
	meta, err := s.index.Get(id)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	for _, msg := range msgs {
		line, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if err := util.AtomicWriteFile(s.transcriptPath(id), buf.Bytes(), 0644); err != nil {
		return err
	}

	meta.MessageCount = len(msgs)
	meta.UpdatedAt = time.Now()
	return s.index.Upsert(meta)
}

// Delete removes a chat and its index row.
func (s *ChatStore) Delete(id string) error {
	if err := os.Remove(s.transcriptPath(id)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return s.index.Delete(id)
}

// List returns chat metadata, most recently updated first.
func (s *ChatStore) List() ([]ChatMeta, error) {
	return s.index.List()
}

// Search returns chats whose character name matches the query.
func (s *ChatStore) Search(query string) ([]ChatMeta, error) {
	return s.index.Search(query)
}

// Prune deletes the oldest chats beyond max. Zero means unlimited.
func (s *ChatStore) Prune(max int) error {
	if max <= 0 {
		return nil
	}
	metas, err := s.index.List()
	if err != nil {
		return err
	}
	for i := max; i < len(metas); i++ {
		if err := s.Delete(metas[i].ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *ChatStore) transcriptPath(id string) string {
	return filepath.Join(s.BaseDir, id+".jsonl")
}
