// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider implements the vendor adapters that carry an assembled
// chat completion to an inference backend.
//
// Two wire dialects are supported: the OpenAI-compatible chat completions
// API (OpenAI, OpenRouter, Groq, DeepSeek, xAI, Mistral - SSE streaming) and
// the Ollama local API (NDJSON streaming). Both are exposed through the
// Adapter interface so the rest of the program never depends on a vendor.
//
// All requests honor context cancellation; streaming preserves partial
// content on failure via StreamError.
package provider
