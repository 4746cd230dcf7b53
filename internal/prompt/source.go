// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// source.go - The prompt fragments and settings feeding one generation.
package prompt

import "github.com/halcyonforge/loom/internal/model"

// Default marker and separator text.
const (
	DefaultNewChatPrompt        = "[Start a new Chat]"
	DefaultNewExampleChatPrompt = "[Example Chat]"
	DefaultInjectionSeparator   = "\n"
)

// =============================================================================
// SOURCE FRAGMENTS
// =============================================================================

// Character carries the character-card fields that become mandatory prompt
// sections.
type Character struct {
	Name        string
	Description string
	Personality string
	Scenario    string
}

// Persona describes the active user persona.
type Persona struct {
	Name        string
	Description string
}

// PromptConfig is a user-defined ordered prompt (nsfw/jailbreak-style system
// prompts and custom entries), added in the user-specified order.
type PromptConfig struct {
	Identifier string
	Role       model.Role
	Content    string
	Enabled    bool
}

// Injection is an out-of-band prompt fragment spliced into chat history at
// an explicit depth. Depth 0 lands immediately before the newest history
// message; fragments at the same depth are grouped by Order descending, then
// by role (system, user, assistant), each role joined by the configured
// separator.
type Injection struct {
	Identifier string
	Role       model.Role
	Content    string
	Depth      int
	Order      int
}

// Anchor is position-aware extension content (author's note, memory or
// summary, vector-store retrieval results, data-bank content) spliced into a
// named existing collection at a relative child offset.
type Anchor struct {
	Identifier string
	Role       model.Role
	Content    string
	Target     string
	Offset     int
}

// ExampleTurn is one turn of a canned dialogue example. Example groups are
// atomic: a group is included only if all of it fits the budget.
type ExampleTurn struct {
	Role    model.Role
	Name    string
	Content string
}

// ControlPrompts are the fixed-position fragments that must always land at
// the very end of the assembled chat, immune to history truncation.
type ControlPrompts struct {
	ContinueNudge string
	Impersonate   string
	Quiet         string
}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings holds the per-generation knobs consulted by the pipeline. They
// are passed explicitly; the engine has no global settings object.
type Settings struct {
	// InjectionSeparator joins same-role fragments within one injection
	// depth group. Empty means DefaultInjectionSeparator.
	InjectionSeparator string

	// PinExamplesFirst populates dialogue examples before chat history, so
	// examples win when the budget is tight.
	PinExamplesFirst bool

	// Continue marks this generation as continuing the previous one.
	Continue bool

	// ContinuePrefill moves the newest history message into the control
	// prompts section when continuing, so it cannot be dropped.
	ContinuePrefill bool

	// AssistantPrefill is the vendor-conditional prefix for the detached
	// continuation message.
	AssistantPrefill string

	// GroupChat enables speaker names on history turns and the trailing
	// group nudge.
	GroupChat  bool
	GroupNudge string

	// NewChatPrompt overrides the synthetic start-of-chat marker text.
	NewChatPrompt string

	// NewExampleChatPrompt overrides the example-group marker text.
	NewExampleChatPrompt string

	// SquashSystemMessages merges adjacent unnamed system messages after
	// assembly.
	SquashSystemMessages bool

	// SendImages and SendVideos gate media attachment for vendors that
	// support multimodal content.
	SendImages bool
	SendVideos bool

	// ToolsSupported gates tool-call replay into history.
	ToolsSupported bool

	// ImageDetail is the requested image tokenization quality.
	ImageDetail model.ImageDetail
}

// separator returns the effective injection separator.
func (s Settings) separator() string {
	if s.InjectionSeparator == "" {
		return DefaultInjectionSeparator
	}
	return s.InjectionSeparator
}

// newChatPrompt returns the effective start-of-chat marker text.
func (s Settings) newChatPrompt() string {
	if s.NewChatPrompt == "" {
		return DefaultNewChatPrompt
	}
	return s.NewChatPrompt
}

// newExampleChatPrompt returns the effective example-group marker text.
func (s Settings) newExampleChatPrompt() string {
	if s.NewExampleChatPrompt == "" {
		return DefaultNewExampleChatPrompt
	}
	return s.NewExampleChatPrompt
}

// =============================================================================
// SOURCE
// =============================================================================

// Source aggregates every prompt fragment contributing to one generation:
// character data, world info, user prompts, extension content, history, and
// examples.
type Source struct {
	Character Character
	Persona   Persona

	// MainPrompt is the main system prompt. Its section is the anchor
	// target for extension content.
	MainPrompt string

	// World info rendered before and after the main prompt.
	WorldInfoBefore string
	WorldInfoAfter  string

	// OrderedPrompts are user-defined prompts added in the given order.
	OrderedPrompts []PromptConfig

	// Injections are depth-tagged fragments merged into chat history.
	Injections []Injection

	// Anchors are extension fragments spliced into named sections.
	Anchors []Anchor

	// History is the chat transcript, oldest first.
	History []*model.Message

	// ExampleGroups are canned dialogue examples, each group atomic.
	ExampleGroups [][]ExampleTurn

	Control  ControlPrompts
	Settings Settings
}
