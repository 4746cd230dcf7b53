// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats and messages.
//
// This package defines the core domain types used throughout the application:
// the persisted chat history shape, the streaming message accumulator, and the
// provider wire format.
//
// # Key Types
//
//   - Chat: container for a chat session with messages and metadata
//   - Message: single stored turn with role, content, attachments, tool calls
//   - ChatMessage: the wire-format entry handed to vendor adapters
//   - Role: message role enumeration (user, assistant, system, tool)
//
// # Usage
//
// Create a new chat and append turns:
//
//	chat := model.NewChat("Seraphina")
//	chat.AddUserMessage("Hello!")
package model
