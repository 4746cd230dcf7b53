// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// index.go - sqlite chat index.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const indexSchema = `
CREATE TABLE IF NOT EXISTS chats (
	id            TEXT PRIMARY KEY,
	character     TEXT NOT NULL DEFAULT '',
	message_count INTEGER NOT NULL DEFAULT 0,
	updated_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chats_updated ON chats(updated_at DESC);
`

// Index is the sqlite-backed chat metadata index.
type Index struct {
	db *sql.DB
}

// OpenIndex opens the index database at path, creating the schema if needed.
func OpenIndex(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	// sqlite allows one writer; serialize through a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(indexSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Close releases the database handle.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Upsert inserts or replaces a chat's metadata row.
func (ix *Index) Upsert(meta ChatMeta) error {
	_, err := ix.db.Exec(`
		INSERT INTO chats (id, character, message_count, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			character = excluded.character,
			message_count = excluded.message_count,
			updated_at = excluded.updated_at`,
		meta.ID, meta.Character, meta.MessageCount, meta.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert chat %s: %w", meta.ID, err)
	}
	return nil
}

// Get returns one chat's metadata.
func (ix *Index) Get(id string) (ChatMeta, error) {
	row := ix.db.QueryRow(
		`SELECT id, character, message_count, updated_at FROM chats WHERE id = ?`, id)
	meta, err := scanMeta(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ChatMeta{}, ErrChatNotFound
	}
	return meta, err
}

// Delete removes a chat's metadata row. Deleting an absent row is not an
// error.
func (ix *Index) Delete(id string) error {
	_, err := ix.db.Exec(`DELETE FROM chats WHERE id = ?`, id)
	return err
}

// List returns all chats, most recently updated first.
func (ix *Index) List() ([]ChatMeta, error) {
	rows, err := ix.db.Query(
		`SELECT id, character, message_count, updated_at FROM chats ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMetas(rows)
}

// Search returns chats whose character name contains query
// (case-insensitive), most recently updated first.
func (ix *Index) Search(query string) ([]ChatMeta, error) {
	rows, err := ix.db.Query(
		`SELECT id, character, message_count, updated_at FROM chats
		 WHERE character LIKE '%' || ? || '%' ORDER BY updated_at DESC`, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMetas(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeta(row rowScanner) (ChatMeta, error) {
	var meta ChatMeta
	var updated time.Time
	if err := row.Scan(&meta.ID, &meta.Character, &meta.MessageCount, &updated); err != nil {
		return ChatMeta{}, err
	}
	meta.UpdatedAt = updated
	return meta, nil
}

func collectMetas(rows *sql.Rows) ([]ChatMeta, error) {
	var metas []ChatMeta
	for rows.Next() {
		meta, err := scanMeta(rows)
		if err != nil {
			return nil, err
		}
		metas = append(metas, meta)
	}
	return metas, rows.Err()
}
