// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt implements the prompt assembly and token-budget engine.
//
// The engine merges prompt fragments from unrelated subsystems (character
// card, world info, chat history, dialogue examples, injected extension
// content) into a single bounded-size, ordered chat array.
//
// # Key Types
//
//   - Message: a single budget-tracked turn with a live token count
//   - MessageCollection: a named, ordered tree of messages and collections
//   - ChatCompletion: the budget-enforcing orchestrator
//   - Source: the prompt fragments and settings feeding one generation
//
// # Budget model
//
// The budget (context size minus response size) decreases as content is
// committed and increases when content is freed. Any Add/Insert that would
// push the budget negative fails atomically with *TokenBudgetExceededError
// and leaves both budget and tree untouched.
//
// Higher-priority fixed-position content is always reserved or added first;
// variable-length droppable content (history, examples) is added last and is
// the only content ever silently truncated.
package prompt
