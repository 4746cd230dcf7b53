// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tokens

import "context"

// HeuristicCounter estimates tokens with the ~4 characters per token rule.
// Used when no tokenizer is available for the selected model family.
type HeuristicCounter struct{}

// Count returns a rough token estimate for text.
func (HeuristicCounter) Count(_ context.Context, text string) (int, error) {
	return (len(text) + 3) / 4, nil
}
