// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tokens provides pluggable token counting for prompt budgeting.
package tokens

import (
	"context"

	"github.com/halcyonforge/loom/internal/model"
)

// Message overhead constants for the OpenAI chat format.
//
// Every message follows {"role": ..., "content": ...} which carries a fixed
// per-message overhead, names cost one extra token, and every reply is primed
// with a small fixed allowance.
const (
	PerMessage   = 3
	PerName      = 1
	ReplyPriming = 3
)

// Counter maps text to a token count. Implementations must be deterministic
// for identical input under a fixed encoding.
type Counter interface {
	Count(ctx context.Context, text string) (int, error)
}

// CountMessages returns the total token count for a wire-format chat array,
// including per-message and per-name overhead plus reply priming.
func CountMessages(ctx context.Context, c Counter, messages []model.ChatMessage) (int, error) {
	total := 0
	for _, msg := range messages {
		total += PerMessage
		n, err := c.Count(ctx, string(msg.Role))
		if err != nil {
			return 0, err
		}
		total += n

		if msg.Content != "" {
			n, err = c.Count(ctx, msg.Content)
			if err != nil {
				return 0, err
			}
			total += n
		}
		for _, part := range msg.MultiContent {
			if part.Type != model.PartTypeText {
				continue
			}
			n, err = c.Count(ctx, part.Text)
			if err != nil {
				return 0, err
			}
			total += n
		}

		if msg.Name != "" {
			total += PerName
			n, err = c.Count(ctx, msg.Name)
			if err != nil {
				return 0, err
			}
			total += n
		}
	}
	return total + ReplyPriming, nil
}
