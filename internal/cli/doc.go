// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the loom command-line interface: argument
// parsing, the interactive chat REPL, and the management commands for
// chats, configuration, presets, and spend reporting.
//
// Commands return errors instead of calling os.Exit; Run maps them to
// exit codes so main stays a one-liner.
package cli
