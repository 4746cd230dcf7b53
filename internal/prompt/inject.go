// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// inject.go - Depth-based merging of out-of-band fragments into history.
package prompt

import (
	"sort"
	"strings"

	"github.com/halcyonforge/loom/internal/model"
)

// historyEntry is one slot of the (injection-merged) chat history sequence
// before conversion into budget-tracked messages.
type historyEntry struct {
	identifier  string
	role        model.Role
	name        string
	content     string
	attachments []model.Attachment
	toolCalls   []model.ToolCall
}

// injectRoleOrder fixes the within-group role ordering: system, user,
// assistant.
var injectRoleOrder = []model.Role{model.RoleSystem, model.RoleUser, model.RoleAssistant}

// mergeInjections splices depth-tagged fragments into the chronological
// history sequence. Depth d places a fragment so that exactly d history
// messages separate it from the very end: depth 0 sits immediately before
// the newest message. Depths beyond the history length land before the
// entire history, deeper depths earlier.
func mergeInjections(history []historyEntry, injections []Injection, separator string) []historyEntry {
	if len(injections) == 0 {
		return history
	}

	groups, maxDepth := buildDepthGroups(injections, separator)

	// Walk newest-to-oldest, emitting each depth's synthetic messages right
	// after the depth-th newest history message, then restore chronological
	// order with a final reversal.
	reversed := make([]historyEntry, 0, len(history)+len(injections))
	for d := 0; d < len(history) || d <= maxDepth; d++ {
		if d < len(history) {
			reversed = append(reversed, history[len(history)-1-d])
		}
		group := groups[d]
		for i := len(group) - 1; i >= 0; i-- {
			reversed = append(reversed, group[i])
		}
	}

	out := make([]historyEntry, len(reversed))
	for i, entry := range reversed {
		out[len(reversed)-1-i] = entry
	}
	return out
}

// buildDepthGroups collapses injections into per-depth synthetic entries in
// chronological order: order groups descending, roles in fixed order within
// each group, same-role content joined by separator.
func buildDepthGroups(injections []Injection, separator string) (map[int][]historyEntry, int) {
	byDepth := make(map[int][]Injection)
	maxDepth := 0
	for _, inj := range injections {
		if inj.Content == "" {
			continue
		}
		depth := inj.Depth
		if depth < 0 {
			depth = 0
		}
		byDepth[depth] = append(byDepth[depth], inj)
		if depth > maxDepth {
			maxDepth = depth
		}
	}

	groups := make(map[int][]historyEntry, len(byDepth))
	for depth, list := range byDepth {
		orders := distinctOrdersDescending(list)
		var entries []historyEntry
		for _, order := range orders {
			for _, role := range injectRoleOrder {
				entry, ok := joinRoleGroup(list, order, role, separator)
				if ok {
					entries = append(entries, entry)
				}
			}
		}
		groups[depth] = entries
	}
	return groups, maxDepth
}

// distinctOrdersDescending returns the distinct Order values, highest first.
func distinctOrdersDescending(list []Injection) []int {
	seen := make(map[int]bool)
	var orders []int
	for _, inj := range list {
		if !seen[inj.Order] {
			seen[inj.Order] = true
			orders = append(orders, inj.Order)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(orders)))
	return orders
}

// joinRoleGroup joins the content of all fragments matching order and role.
// The synthetic entry takes the first fragment's identifier. A missing role
// defaults to system, matching message construction.
func joinRoleGroup(list []Injection, order int, role model.Role, separator string) (historyEntry, bool) {
	var parts []string
	identifier := ""
	for _, inj := range list {
		injRole := inj.Role
		if injRole == "" {
			injRole = model.RoleSystem
		}
		if inj.Order != order || injRole != role {
			continue
		}
		if identifier == "" {
			identifier = inj.Identifier
		}
		parts = append(parts, inj.Content)
	}
	if len(parts) == 0 {
		return historyEntry{}, false
	}
	return historyEntry{
		identifier: identifier,
		role:       role,
		content:    strings.Join(parts, separator),
	}, true
}
