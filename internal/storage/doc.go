// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chats.
//
// Transcripts live as JSONL files, one message per line, appended as turns
// commit; a sqlite index carries the listing metadata (character, message
// count, updated-at) so listing and search never parse transcripts.
package storage
