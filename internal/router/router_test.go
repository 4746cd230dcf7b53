// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonforge/loom/internal/provider"
)

func TestParseSource(t *testing.T) {
	for _, s := range allSources {
		parsed, err := ParseSource(s.Tag())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := ParseSource("mainframe")
	assert.Error(t, err)
}

func TestSourceCosts(t *testing.T) {
	assert.Zero(t, SourceLocal.CalculateCostCents(100000, 100000))

	// 1M in + 1M out on the frontier class: 1500 + 7500 cents.
	assert.InDelta(t, 9000.0, SourceFrontier.CalculateCostCents(1_000_000, 1_000_000), 0.001)

	// Cost ordering holds for any nonzero usage.
	prev := -1.0
	for _, s := range []Source{SourceLocal, SourceBudget, SourceAuto, SourceBalanced, SourceFrontier} {
		cost := s.CalculateCostCents(1000, 1000)
		assert.GreaterOrEqual(t, cost, prev, s.String())
		prev = cost
	}
}

func TestSourcePredicates(t *testing.T) {
	assert.True(t, SourceLocal.IsLocal())
	assert.False(t, SourceLocal.IsPaid())
	assert.True(t, SourceAuto.IsPaid())
	assert.False(t, SourceFrontier.IsLocal())
}

func TestRouterResolve(t *testing.T) {
	r := New()
	r.Bind(SourceLocal, provider.NewOllama(), "llama3")
	r.Bind(SourceAuto, provider.NewOpenRouter("sk-test"), "openrouter/auto")
	r.SetDefault(SourceAuto)

	binding, err := r.Resolve(SourceLocal)
	require.NoError(t, err)
	assert.Equal(t, "ollama", binding.Adapter.Name())
	assert.Equal(t, "llama3", binding.Model)

	binding, err = r.ResolveDefault()
	require.NoError(t, err)
	assert.Equal(t, "openrouter/auto", binding.Model)

	_, err = r.Resolve(SourceFrontier)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")

	assert.Equal(t, []Source{SourceLocal, SourceAuto}, r.Sources())
}

func TestRouterResolveTag(t *testing.T) {
	r := New()
	r.Bind(SourceBudget, provider.NewGroq("k"), "llama-3.1-8b-instant")

	src, binding, err := r.ResolveTag("budget")
	require.NoError(t, err)
	assert.Equal(t, SourceBudget, src)
	assert.Equal(t, "groq", binding.Adapter.Name())

	_, _, err = r.ResolveTag("bogus")
	assert.Error(t, err)
}
