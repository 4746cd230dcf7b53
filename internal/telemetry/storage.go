// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/halcyonforge/loom/internal/util"
)

// spendIDFormat is the timestamp prefix of session spend IDs and filenames.
const spendIDFormat = "20060102-150405"

// =============================================================================
// SPEND STORAGE
// =============================================================================

// Storage persists session spend records as JSON files, one per session.
type Storage struct {
	dir string
}

// NewStorage creates spend storage rooted at dir, defaulting to
// ~/.loom/spend when dir is empty.
func NewStorage(dir string) (*Storage, error) {
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(homeDir, ".loom", "spend")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return &Storage{dir: dir}, nil
}

// Save persists one session spend record.
func (s *Storage) Save(session *SessionSpend) error {
	if session == nil {
		return nil
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(s.dir, session.ID+".json")
	return util.AtomicWriteFile(path, data, 0644)
}

// Load retrieves one session spend record by ID.
func (s *Storage) Load(sessionID string) (*SessionSpend, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, sessionID+".json"))
	if err != nil {
		return nil, err
	}

	var session SessionSpend
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// List returns IDs of sessions whose timestamp prefix falls in [from, to],
// sorted ascending. Files without a parseable prefix are skipped.
func (s *Storage) List(from, to time.Time) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, entry := range entries {
		id, ok := spendIDFromName(entry)
		if !ok {
			continue
		}
		ts, err := parseSpendTimestamp(id)
		if err != nil {
			continue
		}
		if ts.Before(from) || ts.After(to) {
			continue
		}
		ids = append(ids, id)
	}

	sort.Strings(ids)
	return ids, nil
}

// Delete removes one session spend record.
func (s *Storage) Delete(sessionID string) error {
	return os.Remove(filepath.Join(s.dir, sessionID+".json"))
}

// DeleteBefore removes all spend records older than the cutoff.
func (s *Storage) DeleteBefore(before time.Time) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		id, ok := spendIDFromName(entry)
		if !ok {
			continue
		}
		ts, err := parseSpendTimestamp(id)
		if err != nil {
			continue
		}
		if ts.Before(before) {
			os.Remove(filepath.Join(s.dir, entry.Name()))
		}
	}

	return nil
}

// Count returns the number of stored spend records.
func (s *Storage) Count() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, entry := range entries {
		if _, ok := spendIDFromName(entry); ok {
			count++
		}
	}
	return count, nil
}

func spendIDFromName(entry os.DirEntry) (string, bool) {
	if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
		return "", false
	}
	return strings.TrimSuffix(entry.Name(), ".json"), true
}

// parseSpendTimestamp extracts the timestamp prefix of a spend ID
// (YYYYMMDD-HHMMSS-suffix).
func parseSpendTimestamp(id string) (time.Time, error) {
	prefix := id
	if parts := strings.SplitN(id, "-", 3); len(parts) >= 2 {
		prefix = parts[0] + "-" + parts[1]
	}
	return time.Parse(spendIDFormat, prefix)
}
