// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonforge/loom/internal/model"
)

func historyFixture(contents ...string) []historyEntry {
	entries := make([]historyEntry, len(contents))
	for i, content := range contents {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		entries[i] = historyEntry{identifier: content, role: role, content: content}
	}
	return entries
}

func contentsOf(entries []historyEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.content
	}
	return out
}

func TestMergeInjections_DepthZeroPrecedesNewest(t *testing.T) {
	history := historyFixture("m1", "m2", "m3")
	merged := mergeInjections(history, []Injection{
		{Identifier: "debug-note", Role: model.RoleSystem, Content: "note", Depth: 0},
	}, "\n")

	assert.Equal(t, []string{"m1", "m2", "note", "m3"}, contentsOf(merged))
	assert.Equal(t, "debug-note", merged[2].identifier)
}

func TestMergeInjections_DeepDepthLandsBeforeHistory(t *testing.T) {
	history := historyFixture("m1", "m2")
	merged := mergeInjections(history, []Injection{
		{Identifier: "lore", Content: "lore", Depth: 10},
	}, "\n")

	assert.Equal(t, []string{"lore", "m1", "m2"}, contentsOf(merged))
}

func TestMergeInjections_EmptyHistory(t *testing.T) {
	merged := mergeInjections(nil, []Injection{
		{Identifier: "a", Content: "shallow", Depth: 0},
		{Identifier: "b", Content: "deep", Depth: 2},
	}, "\n")

	// Deeper injections come earlier in chronological order.
	assert.Equal(t, []string{"deep", "shallow"}, contentsOf(merged))
}

func TestMergeInjections_SameDepthRoleJoin(t *testing.T) {
	history := historyFixture("m1", "m2")
	merged := mergeInjections(history, []Injection{
		{Identifier: "s1", Role: model.RoleSystem, Content: "alpha", Depth: 0, Order: 100},
		{Identifier: "s2", Role: model.RoleSystem, Content: "beta", Depth: 0, Order: 100},
		{Identifier: "u1", Role: model.RoleUser, Content: "gamma", Depth: 0, Order: 100},
	}, " | ")

	require.Equal(t, []string{"m1", "alpha | beta", "gamma", "m2"}, contentsOf(merged))
	assert.Equal(t, model.RoleSystem, merged[1].role)
	assert.Equal(t, model.RoleUser, merged[2].role)
}

func TestMergeInjections_OrderGroupsDescending(t *testing.T) {
	history := historyFixture("m1")
	merged := mergeInjections(history, []Injection{
		{Identifier: "low", Role: model.RoleSystem, Content: "low", Depth: 0, Order: 10},
		{Identifier: "high", Role: model.RoleSystem, Content: "high", Depth: 0, Order: 200},
	}, "\n")

	// Higher order comes first within the depth slot.
	assert.Equal(t, []string{"high", "low", "m1"}, contentsOf(merged))
}

func TestMergeInjections_MultiDepthMultiOrderInterleaving(t *testing.T) {
	history := historyFixture("m1", "m2", "m3", "m4")
	merged := mergeInjections(history, []Injection{
		{Identifier: "d0-sys", Role: model.RoleSystem, Content: "d0-sys", Depth: 0, Order: 100},
		{Identifier: "d0-asst", Role: model.RoleAssistant, Content: "d0-asst", Depth: 0, Order: 100},
		{Identifier: "d2-hi", Role: model.RoleSystem, Content: "d2-hi", Depth: 2, Order: 200},
		{Identifier: "d2-lo", Role: model.RoleUser, Content: "d2-lo", Depth: 2, Order: 50},
	}, "\n")

	assert.Equal(t, []string{
		"m1",
		"d2-hi", "d2-lo",
		"m2", "m3",
		"d0-sys", "d0-asst",
		"m4",
	}, contentsOf(merged))
}

func TestMergeInjections_EmptyContentIgnored(t *testing.T) {
	history := historyFixture("m1")
	merged := mergeInjections(history, []Injection{
		{Identifier: "empty", Content: "", Depth: 0},
	}, "\n")
	assert.Equal(t, []string{"m1"}, contentsOf(merged))
}
