// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tokens

import (
	"context"
	"fmt"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// defaultEncoding is the fallback BPE encoding when a model is unknown.
// cl100k_base is used by GPT-4 era models and is a reasonable approximation
// for most other vendors.
const defaultEncoding = "cl100k_base"

// TiktokenCounter counts tokens with a tiktoken BPE encoding.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter creates a counter for the given model name, falling back
// to cl100k_base when the model has no registered encoding.
func NewTiktokenCounter(modelName string) (*TiktokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(modelName)
	if err != nil {
		enc, err = tiktoken.GetEncoding(defaultEncoding)
		if err != nil {
			return nil, fmt.Errorf("tokens: get fallback encoding: %w", err)
		}
	}
	return &TiktokenCounter{enc: enc}, nil
}

// Count returns the number of BPE tokens in text.
func (t *TiktokenCounter) Count(_ context.Context, text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	return len(t.enc.Encode(text, nil, nil)), nil
}
