// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package router maps configured generation sources to provider adapters
// and carries the per-source cost tables.
//
// Routing is explicit: the user picks a source (config or command), the
// router resolves it to an adapter plus model. No content inspection.
package router

import "fmt"

// ============================================================================
// SOURCE TYPE
// ============================================================================

// Source identifies where a generation runs. Ordered roughly by cost:
// Local < Auto < Budget < Balanced < Frontier.
type Source int

const (
	// SourceLocal is local Ollama inference (free).
	SourceLocal Source = iota
	// SourceAuto is OpenRouter auto-routing (OpenRouter picks the model).
	SourceAuto
	// SourceBudget is a cheap cloud model class (haiku/mini class).
	SourceBudget
	// SourceBalanced is a mid-range cloud model class.
	SourceBalanced
	// SourceFrontier is a top-end cloud model class.
	SourceFrontier
)

// allSources enumerates every valid source, in order.
var allSources = []Source{SourceLocal, SourceAuto, SourceBudget, SourceBalanced, SourceFrontier}

// String returns the human-readable name of the source.
func (s Source) String() string {
	switch s {
	case SourceLocal:
		return "Local"
	case SourceAuto:
		return "Auto"
	case SourceBudget:
		return "Budget"
	case SourceBalanced:
		return "Balanced"
	case SourceFrontier:
		return "Frontier"
	default:
		return fmt.Sprintf("Source(%d)", s)
	}
}

// Tag returns the lowercase config tag for the source.
func (s Source) Tag() string {
	switch s {
	case SourceLocal:
		return "local"
	case SourceAuto:
		return "auto"
	case SourceBudget:
		return "budget"
	case SourceBalanced:
		return "balanced"
	case SourceFrontier:
		return "frontier"
	default:
		return "unknown"
	}
}

// ParseSource resolves a config tag to a Source.
func ParseSource(tag string) (Source, error) {
	for _, s := range allSources {
		if s.Tag() == tag {
			return s, nil
		}
	}
	return SourceLocal, fmt.Errorf("unknown source %q", tag)
}

// IsLocal reports whether the source runs on this machine.
func (s Source) IsLocal() bool {
	return s == SourceLocal
}

// IsPaid reports whether the source incurs API costs.
func (s Source) IsPaid() bool {
	return s != SourceLocal
}

// ============================================================================
// COST TABLES
// ============================================================================

// InputCostPer1K returns the cost per 1K prompt tokens in cents.
//
// Pricing as of 2025:
//   - Local: free
//   - Auto (OpenRouter average): $0.3/M = 0.03 cents/1K
//   - Budget class: $0.25/M = 0.025 cents/1K
//   - Balanced class: $3/M = 0.3 cents/1K
//   - Frontier class: $15/M = 1.5 cents/1K
func (s Source) InputCostPer1K() float64 {
	switch s {
	case SourceLocal:
		return 0.0
	case SourceAuto:
		return 0.03
	case SourceBudget:
		return 0.025
	case SourceBalanced:
		return 0.3
	case SourceFrontier:
		return 1.5
	default:
		return 0.0
	}
}

// OutputCostPer1K returns the cost per 1K completion tokens in cents.
func (s Source) OutputCostPer1K() float64 {
	switch s {
	case SourceLocal:
		return 0.0
	case SourceAuto:
		return 0.15
	case SourceBudget:
		return 0.125
	case SourceBalanced:
		return 1.5
	case SourceFrontier:
		return 7.5
	default:
		return 0.0
	}
}

// CalculateCostCents returns the total cost of a request in cents.
func (s Source) CalculateCostCents(inputTokens, outputTokens int) float64 {
	inputCost := (float64(inputTokens) / 1000.0) * s.InputCostPer1K()
	outputCost := (float64(outputTokens) / 1000.0) * s.OutputCostPer1K()
	return inputCost + outputCost
}
