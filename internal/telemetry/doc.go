// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry tracks token usage and spend per chat session.
//
// A Tracker accumulates per-source token counts and costs for the current
// session, keeps the most expensive requests, and persists finished sessions
// as JSON files under the data directory. Aggregation over stored sessions
// powers the spend report shown by the stats command.
package telemetry
