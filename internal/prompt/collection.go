// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// collection.go - Named, ordered container of messages and nested collections.
package prompt

import (
	"fmt"

	"github.com/halcyonforge/loom/internal/model"
)

// =============================================================================
// MESSAGE COLLECTION
// =============================================================================

// MessageCollection is a named, ordered container of Message leaves and
// nested collections. Child order is insertion order and is semantically
// meaningful: the flattened chat array preserves it depth-first.
type MessageCollection struct {
	identifier string
	items      []Item
}

// NewMessageCollection creates a collection with the given children.
// Every child must be a *Message or *MessageCollection.
func NewMessageCollection(identifier string, items ...Item) (*MessageCollection, error) {
	c := &MessageCollection{identifier: identifier}
	for _, item := range items {
		if err := c.Add(item); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Identifier returns the collection identifier.
func (c *MessageCollection) Identifier() string { return c.identifier }

// Len returns the number of direct children.
func (c *MessageCollection) Len() int { return len(c.items) }

// Items returns the direct children in order.
func (c *MessageCollection) Items() []Item { return c.items }

// Add appends an item to the end of the collection.
func (c *MessageCollection) Add(item Item) error {
	if !validItem(item) {
		return &InvalidArgumentError{
			Reason: fmt.Sprintf("collection %q accepts only messages and collections, got %T", c.identifier, item),
		}
	}
	c.items = append(c.items, item)
	return nil
}

// ItemByIdentifier returns the direct child with the given identifier, or
// nil. The search is not recursive.
func (c *MessageCollection) ItemByIdentifier(identifier string) Item {
	for _, item := range c.items {
		if item.Identifier() == identifier {
			return item
		}
	}
	return nil
}

// HasItemWithIdentifier reports whether a direct child has the identifier.
func (c *MessageCollection) HasItemWithIdentifier(identifier string) bool {
	return c.ItemByIdentifier(identifier) != nil
}

// Tokens returns the recursive sum of all descendant message token counts.
func (c *MessageCollection) Tokens() int {
	total := 0
	for _, item := range c.items {
		total += item.Tokens()
	}
	return total
}

// Flatten returns the fully expanded, depth-first ordered sequence of
// Message leaves.
func (c *MessageCollection) Flatten() []*Message {
	var out []*Message
	for _, item := range c.items {
		switch node := item.(type) {
		case *Message:
			out = append(out, node)
		case *MessageCollection:
			out = append(out, node.Flatten()...)
		}
	}
	return out
}

// Chat maps each leaf with non-empty content or tool calls into its
// wire-format entry. Entries with neither are silently skipped.
func (c *MessageCollection) Chat() []model.ChatMessage {
	leaves := c.Flatten()
	out := make([]model.ChatMessage, 0, len(leaves))
	for _, msg := range leaves {
		entry, ok := msg.chatEntry()
		if !ok {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// insertAt places msg at index within the collection's own children.
// Negative index means append; an index beyond the end appends.
func (c *MessageCollection) insertAt(msg *Message, index int) {
	if index < 0 || index >= len(c.items) {
		c.items = append(c.items, msg)
		return
	}
	c.items = append(c.items, nil)
	copy(c.items[index+1:], c.items[index:])
	c.items[index] = msg
}

// removeLast pops and returns the last child, or nil if empty.
func (c *MessageCollection) removeLast() Item {
	if len(c.items) == 0 {
		return nil
	}
	last := c.items[len(c.items)-1]
	c.items = c.items[:len(c.items)-1]
	return last
}
