// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for loom.
//
// Configuration lives in ~/.loom/config.toml (JSON accepted as a fallback),
// with LOOM_* environment variables overriding file values and built-in
// defaults filling anything left unset. Numeric settings outside their valid
// range are clamped rather than rejected.
//
// The package also manages prompt presets: TOML character/prompt bundles
// under the preset directory, hot-reloaded through an fsnotify watcher.
package config
