// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks the lifecycle of an interactive chat session.
//
// A Manager records activity timestamps, detects idle timeout, and drives
// periodic auto-save of unsaved chat state. Consumers register callbacks for
// timeout, the pre-timeout warning, and auto-save, then either poll Check
// from their own loop or let Run tick once per second until the context is
// cancelled.
package session
