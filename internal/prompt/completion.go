// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// completion.go - The budget-enforcing orchestrator for prompt assembly.
package prompt

import (
	"context"
	"log"

	"github.com/halcyonforge/loom/internal/model"
)

// Insertion positions for Insert.
const (
	// PositionStart inserts at the head of the target collection.
	PositionStart = 0
	// PositionEnd appends to the tail of the target collection.
	PositionEnd = -1
)

// Root collection identifier.
const rootIdentifier = "root"

// squashExcluded identifies system messages that must never be merged by
// SquashSystemMessages: chat markers and the group nudge.
var squashExcluded = map[string]bool{
	"newMainChat": true,
	"newChat":     true,
	"groupNudge":  true,
}

// =============================================================================
// CHAT COMPLETION
// =============================================================================

// ChatCompletion owns a token budget and the root message collection. All
// insertion and removal goes through it so the budget stays consistent: the
// budget decreases as content is added, increases when content is freed, and
// any add that would push it negative is rejected atomically.
//
// One instance serves one generation request.
type ChatCompletion struct {
	tokenBudget int
	messages    *MessageCollection
	logEnabled  bool

	// overriddenPrompts records identifiers whose content was overridden by
	// an external source. Informational only.
	overriddenPrompts []string
}

// NewChatCompletion creates an orchestrator with an empty root collection
// and a zero budget.
func NewChatCompletion() *ChatCompletion {
	root, _ := NewMessageCollection(rootIdentifier)
	return &ChatCompletion{messages: root}
}

// SetLogging toggles diagnostic logging for this instance.
func (c *ChatCompletion) SetLogging(enabled bool) {
	c.logEnabled = enabled
}

// Log writes a diagnostic line when logging is enabled. It never affects
// control flow.
func (c *ChatCompletion) Log(format string, args ...any) {
	if c.logEnabled {
		log.Printf("[prompt] "+format, args...)
	}
}

// =============================================================================
// BUDGET
// =============================================================================

// SetTokenBudget sets the budget to contextSize minus responseSize. The
// result may be negative at set time; only Add and Insert validate.
func (c *ChatCompletion) SetTokenBudget(contextSize, responseSize int) {
	c.Log("context size: %d, response size: %d", contextSize, responseSize)
	c.tokenBudget = contextSize - responseSize
	c.Log("token budget: %d", c.tokenBudget)
}

// TokenBudget returns the remaining budget.
func (c *ChatCompletion) TokenBudget() int {
	return c.tokenBudget
}

// CanAfford reports whether the item fits the remaining budget.
func (c *ChatCompletion) CanAfford(item Item) bool {
	return c.tokenBudget-item.Tokens() >= 0
}

// CanAffordAll reports whether all items fit the remaining budget together.
func (c *ChatCompletion) CanAffordAll(items []Item) bool {
	total := 0
	for _, item := range items {
		total += item.Tokens()
	}
	return c.tokenBudget-total >= 0
}

// ReserveBudget decrements the budget without attaching content. Used to
// pre-reserve space for fixed overhead or for content that is appended later.
func (c *ChatCompletion) ReserveBudget(toks int) {
	c.decreaseBudget(toks)
}

// ReserveBudgetFor reserves the item's current token count.
func (c *ChatCompletion) ReserveBudgetFor(item Item) {
	c.decreaseBudget(item.Tokens())
}

// FreeBudget returns previously reserved tokens to the budget.
func (c *ChatCompletion) FreeBudget(toks int) {
	c.increaseBudget(toks)
}

// FreeBudgetFor returns the item's current token count to the budget.
func (c *ChatCompletion) FreeBudgetFor(item Item) {
	c.increaseBudget(item.Tokens())
}

func (c *ChatCompletion) decreaseBudget(toks int) {
	c.tokenBudget -= toks
	c.Log("budget -%d -> %d", toks, c.tokenBudget)
}

func (c *ChatCompletion) increaseBudget(toks int) {
	c.tokenBudget += toks
	c.Log("budget +%d -> %d", toks, c.tokenBudget)
}

// =============================================================================
// TREE OPERATIONS
// =============================================================================

// Add validates affordability, then places the item at position (replacing
// any existing child there) or appends when position is negative or beyond
// the end. On success the budget is decremented by the item's token count.
//
// A failed call leaves both budget and tree exactly as they were.
func (c *ChatCompletion) Add(item Item, position int) error {
	if !validItem(item) {
		return &InvalidArgumentError{Reason: "Add accepts only messages and collections"}
	}
	if !c.CanAfford(item) {
		return &TokenBudgetExceededError{
			Identifier: item.Identifier(),
			Tokens:     item.Tokens(),
			Budget:     c.tokenBudget,
		}
	}

	if position >= 0 && position < len(c.messages.items) {
		c.messages.items[position] = item
	} else {
		c.messages.items = append(c.messages.items, item)
	}
	c.decreaseBudget(item.Tokens())
	return nil
}

// Insert validates affordability and places msg inside the named child
// collection at index (PositionStart, PositionEnd, or a numeric index within
// the child's own children). The budget is decremented on success.
func (c *ChatCompletion) Insert(msg *Message, identifier string, index int) error {
	target, err := c.collection(identifier)
	if err != nil {
		return err
	}
	if !c.CanAfford(msg) {
		return &TokenBudgetExceededError{
			Identifier: msg.Identifier(),
			Tokens:     msg.Tokens(),
			Budget:     c.tokenBudget,
		}
	}

	target.insertAt(msg, index)
	c.decreaseBudget(msg.Tokens())
	return nil
}

// InsertAtStart inserts msg at the head of the named collection.
func (c *ChatCompletion) InsertAtStart(msg *Message, identifier string) error {
	return c.Insert(msg, identifier, PositionStart)
}

// InsertAtEnd appends msg to the tail of the named collection.
func (c *ChatCompletion) InsertAtEnd(msg *Message, identifier string) error {
	return c.Insert(msg, identifier, PositionEnd)
}

// RemoveLastFrom pops the last child from the named collection and returns
// its tokens to the budget. An empty collection is a logged no-op.
func (c *ChatCompletion) RemoveLastFrom(identifier string) error {
	target, err := c.collection(identifier)
	if err != nil {
		return err
	}
	removed := target.removeLast()
	if removed == nil {
		c.Log("collection %q is empty, nothing to remove", identifier)
		return nil
	}
	c.increaseBudget(removed.Tokens())
	return nil
}

// collection resolves a direct child collection of the root by identifier.
func (c *ChatCompletion) collection(identifier string) (*MessageCollection, error) {
	item := c.messages.ItemByIdentifier(identifier)
	target, ok := item.(*MessageCollection)
	if !ok {
		return nil, &IdentifierNotFoundError{Identifier: identifier}
	}
	return target, nil
}

// HasCollection reports whether a named child collection exists at the root.
func (c *ChatCompletion) HasCollection(identifier string) bool {
	_, err := c.collection(identifier)
	return err == nil
}

// TrackOverriddenPrompt records that a prompt's content came from an
// external override. Informational only.
func (c *ChatCompletion) TrackOverriddenPrompt(identifier string) {
	c.overriddenPrompts = append(c.overriddenPrompts, identifier)
}

// OverriddenPrompts returns the recorded override identifiers.
func (c *ChatCompletion) OverriddenPrompts() []string {
	return c.overriddenPrompts
}

// =============================================================================
// OUTPUT
// =============================================================================

// Flatten returns the depth-first sequence of message leaves.
func (c *ChatCompletion) Flatten() []*Message {
	return c.messages.Flatten()
}

// Chat returns the wire-format chat array for the assembled tree.
func (c *ChatCompletion) Chat() []model.ChatMessage {
	return c.messages.Chat()
}

// SquashSystemMessages merges consecutive unnamed system-role messages in
// the flattened list into single messages joined by newlines, excluding chat
// markers and the group nudge. Messages with neither content nor tool calls
// are dropped before merging. The pass is idempotent.
func (c *ChatCompletion) SquashSystemMessages(ctx context.Context) error {
	flat := c.messages.Flatten()
	squashed := make([]*Message, 0, len(flat))

	var prev *Message
	for _, msg := range flat {
		if msg.Content() == "" && len(msg.Parts()) == 0 && len(msg.ToolCalls()) == 0 {
			continue
		}
		if prev != nil && squashable(prev) && squashable(msg) {
			if err := prev.appendContent(ctx, msg.Content(), "\n"); err != nil {
				return err
			}
			continue
		}
		squashed = append(squashed, msg)
		prev = msg
	}

	root, _ := NewMessageCollection(rootIdentifier)
	for _, msg := range squashed {
		root.items = append(root.items, msg)
	}
	c.messages = root
	return nil
}

// squashable reports whether a message may participate in a merge: a plain,
// unnamed system message outside the exclusion set.
func squashable(m *Message) bool {
	return m.Role() == model.RoleSystem &&
		m.Name() == "" &&
		len(m.ToolCalls()) == 0 &&
		len(m.Parts()) == 0 &&
		!squashExcluded[m.Identifier()]
}
