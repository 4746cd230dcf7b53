// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides shared helpers for loom.
//
// It contains the small cross-cutting pieces the rest of the codebase leans
// on: width-aware string truncation and padding for terminal output, numeric
// formatting for tables, and crash-safe atomic file writes.
//
// # Usage
//
//	// Truncate long strings for display, accounting for wide runes.
//	display := util.TruncateWidth(longText, 50)
//
//	// Write files atomically to prevent data loss.
//	err := util.AtomicWriteFile(path, data, 0644)
package util
