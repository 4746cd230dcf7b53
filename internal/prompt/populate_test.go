// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonforge/loom/internal/model"
)

// thirtyTokenHistory builds n history messages of exactly 30 tokens each
// under the rune counter, oldest first, alternating user/assistant.
func thirtyTokenHistory(n int) []*model.Message {
	msgs := make([]*model.Message, n)
	for i := 0; i < n; i++ {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		msg := model.NewMessage(role, strings.Repeat(string(rune('a'+i)), 30))
		msgs[i] = msg
	}
	return msgs
}

func populated(t *testing.T, budget int, src *Source) *ChatCompletion {
	t.Helper()
	c := NewChatCompletion()
	c.SetTokenBudget(budget, 0)
	require.NoError(t, Populate(ctx, c, runeCounter{}, nil, src))
	return c
}

func chatContents(c *ChatCompletion) []string {
	chat := c.Chat()
	out := make([]string, len(chat))
	for i, entry := range chat {
		out[i] = entry.Content
	}
	return out
}

// =============================================================================
// HISTORY TRUNCATION
// =============================================================================

func TestPopulate_HistoryDropScenario(t *testing.T) {
	// 100 usable tokens after reply priming; 5 messages of 30 tokens each.
	src := &Source{History: thirtyTokenHistory(5)}
	c := populated(t, 103, src)

	chat := c.Chat()
	// The start marker (18 tokens) is reserved first, leaving 82 for
	// history: only the 2 newest fit, the 3 oldest are silently absent.
	require.Len(t, chat, 3)
	assert.Equal(t, DefaultNewChatPrompt, chat[0].Content)
	assert.Equal(t, strings.Repeat("d", 30), chat[1].Content)
	assert.Equal(t, strings.Repeat("e", 30), chat[2].Content)
}

func TestPopulate_MarkerSurvivesTruncation(t *testing.T) {
	// Without the reservation, history would consume the whole budget and
	// the marker would be silently dropped.
	src := &Source{History: thirtyTokenHistory(4)}
	c := populated(t, 103, src)

	contents := chatContents(c)
	require.NotEmpty(t, contents)
	assert.Equal(t, DefaultNewChatPrompt, contents[0], "marker precedes surviving history")
}

func TestPopulate_MarkerAloneUnaffordable(t *testing.T) {
	// Budget below the marker's own cost: nothing is inserted, no error.
	src := &Source{History: thirtyTokenHistory(2)}
	c := populated(t, 13, src)

	assert.Empty(t, c.Chat())
}

func TestPopulate_HistoryKeptChronological(t *testing.T) {
	src := &Source{History: thirtyTokenHistory(3)}
	c := populated(t, 10000, src)

	contents := chatContents(c)
	require.Len(t, contents, 4)
	assert.Equal(t, DefaultNewChatPrompt, contents[0], "marker precedes history")
	assert.Equal(t, strings.Repeat("a", 30), contents[1])
	assert.Equal(t, strings.Repeat("b", 30), contents[2])
	assert.Equal(t, strings.Repeat("c", 30), contents[3])
}

func TestPopulate_TruncationMonotonicity(t *testing.T) {
	history := thirtyTokenHistory(6)
	prev := 0
	for _, budget := range []int{43, 73, 103, 133, 403} {
		src := &Source{History: history}
		c := populated(t, budget, src)

		count := 0
		for _, entry := range c.Chat() {
			if entry.Content != DefaultNewChatPrompt {
				count++
			}
		}
		assert.GreaterOrEqual(t, count, prev, "budget %d", budget)
		prev = count
	}
	assert.Equal(t, 6, prev, "large budget keeps everything")
}

// =============================================================================
// INJECTION DEPTHS
// =============================================================================

func TestPopulate_InjectionDepthZeroScenario(t *testing.T) {
	src := &Source{
		History: thirtyTokenHistory(3),
		Injections: []Injection{
			{Identifier: "debug-note", Role: model.RoleSystem, Content: "debug-note", Depth: 0},
		},
	}
	c := populated(t, 10000, src)

	contents := chatContents(c)
	require.Len(t, contents, 5)
	assert.Equal(t, "debug-note", contents[3], "depth 0 sits immediately before the newest message")
	assert.Equal(t, strings.Repeat("c", 30), contents[4])
}

// =============================================================================
// MANDATORY SECTIONS AND FAILURE POLICY
// =============================================================================

func TestPopulate_MandatoryOverflowIsFatal(t *testing.T) {
	src := &Source{MainPrompt: strings.Repeat("x", 50)}
	c := NewChatCompletion()
	c.SetTokenBudget(10, 0)

	err := Populate(ctx, c, runeCounter{}, nil, src)
	require.Error(t, err)
	var exceeded *TokenBudgetExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, IdentifierMain, exceeded.Identifier)
}

func TestPopulate_SectionOrder(t *testing.T) {
	src := &Source{
		MainPrompt:      "main",
		WorldInfoBefore: "before",
		WorldInfoAfter:  "after",
		Character: Character{
			Description: "desc",
			Personality: "pers",
			Scenario:    "scen",
		},
		Persona: Persona{Description: "persona"},
	}
	c := populated(t, 10000, src)

	contents := chatContents(c)
	require.GreaterOrEqual(t, len(contents), 8)
	assert.Equal(t, []string{"before", "main", "after", "desc", "pers", "scen", "persona"}, contents[:7])
}

func TestPopulate_OrderedPromptsRespectEnabled(t *testing.T) {
	src := &Source{
		OrderedPrompts: []PromptConfig{
			{Identifier: "jailbreak", Role: model.RoleSystem, Content: "jb", Enabled: true},
			{Identifier: "disabled", Role: model.RoleSystem, Content: "nope", Enabled: false},
		},
	}
	c := populated(t, 10000, src)

	contents := chatContents(c)
	assert.Contains(t, contents, "jb")
	assert.NotContains(t, contents, "nope")
}

// =============================================================================
// CONTROL PROMPTS
// =============================================================================

func TestPopulate_ControlPromptsAlwaysLast(t *testing.T) {
	// Quiet prompt costs 10; it is reserved before history so a greedy
	// history cannot starve it out.
	src := &Source{
		History: thirtyTokenHistory(5),
		Control: ControlPrompts{Quiet: strings.Repeat("q", 10)},
	}
	c := populated(t, 113, src)

	contents := chatContents(c)
	require.NotEmpty(t, contents)
	assert.Equal(t, strings.Repeat("q", 10), contents[len(contents)-1], "quiet prompt lands last")

	historyCount := 0
	for _, content := range contents {
		if strings.HasPrefix(content, "a") || strings.HasPrefix(content, "b") ||
			strings.HasPrefix(content, "c") || strings.HasPrefix(content, "d") ||
			strings.HasPrefix(content, "e") {
			historyCount++
		}
	}
	assert.Equal(t, 3, historyCount, "history still truncates around the reservation")
}

func TestPopulate_ControlReservationOverflowIsFatal(t *testing.T) {
	src := &Source{
		Control: ControlPrompts{Quiet: strings.Repeat("q", 50)},
	}
	c := NewChatCompletion()
	c.SetTokenBudget(20, 0)

	err := Populate(ctx, c, runeCounter{}, nil, src)
	require.Error(t, err)
	var exceeded *TokenBudgetExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, IdentifierControlPrompts, exceeded.Identifier)
}

func TestPopulate_ContinuationPrefill(t *testing.T) {
	history := thirtyTokenHistory(2)
	src := &Source{
		History: history,
		Settings: Settings{
			Continue:         true,
			ContinuePrefill:  true,
			AssistantPrefill: "> ",
		},
	}
	c := populated(t, 10000, src)

	contents := chatContents(c)
	last := contents[len(contents)-1]
	assert.Equal(t, "> "+strings.Repeat("b", 30), last, "detached newest turn lands last with prefill")

	for _, content := range contents[:len(contents)-1] {
		assert.NotEqual(t, strings.Repeat("b", 30), content, "newest turn no longer in droppable history")
	}
}

// =============================================================================
// DIALOGUE EXAMPLES
// =============================================================================

func TestPopulate_ExampleGroupsAreAtomic(t *testing.T) {
	src := &Source{
		ExampleGroups: [][]ExampleTurn{
			{
				{Role: model.RoleUser, Content: strings.Repeat("u", 10)},
				{Role: model.RoleAssistant, Content: strings.Repeat("a", 10)},
			},
			{
				{Role: model.RoleUser, Content: strings.Repeat("v", 50)},
				{Role: model.RoleAssistant, Content: strings.Repeat("b", 50)},
			},
		},
		Settings: Settings{NewExampleChatPrompt: "[ex]"},
	}
	c := populated(t, 103, src)

	contents := chatContents(c)
	assert.Contains(t, contents, strings.Repeat("u", 10))
	assert.Contains(t, contents, strings.Repeat("a", 10))
	assert.NotContains(t, contents, strings.Repeat("v", 50), "a group that does not fully fit is dropped whole")
	assert.NotContains(t, contents, strings.Repeat("b", 50))
}

func TestPopulate_PinExamplesFirst(t *testing.T) {
	exampleTurn := strings.Repeat("e", 47)
	historyMsg := strings.Repeat("h", 50)
	base := func(pin bool) *Source {
		return &Source{
			History: []*model.Message{model.NewMessage(model.RoleUser, historyMsg)},
			ExampleGroups: [][]ExampleTurn{
				{{Role: model.RoleUser, Content: exampleTurn}},
			},
			Settings: Settings{
				PinExamplesFirst:     pin,
				NewExampleChatPrompt: "[e]",
			},
		}
	}

	pinned := populated(t, 63, base(true))
	assert.Contains(t, chatContents(pinned), exampleTurn, "pinned examples win the budget")
	assert.NotContains(t, chatContents(pinned), historyMsg)

	unpinned := populated(t, 63, base(false))
	assert.Contains(t, chatContents(unpinned), historyMsg, "history wins when examples are not pinned")
	assert.NotContains(t, chatContents(unpinned), exampleTurn)
}

// =============================================================================
// ANCHORS AND GROUP CHAT
// =============================================================================

func TestPopulate_AnchorSplicesIntoMain(t *testing.T) {
	src := &Source{
		MainPrompt: "main",
		Anchors: []Anchor{
			{Identifier: "authorsNote", Role: model.RoleSystem, Content: "note", Target: IdentifierMain, Offset: 1},
		},
	}
	c := populated(t, 10000, src)

	contents := chatContents(c)
	require.GreaterOrEqual(t, len(contents), 2)
	assert.Equal(t, "main", contents[0])
	assert.Equal(t, "note", contents[1], "anchored content follows the main prompt")
}

func TestPopulate_AnchorWithMissingTargetSkipped(t *testing.T) {
	src := &Source{
		Anchors: []Anchor{
			{Identifier: "memory", Content: "remember", Target: IdentifierMain},
		},
	}
	c := populated(t, 10000, src)
	assert.NotContains(t, chatContents(c), "remember")
}

func TestPopulate_GroupChat(t *testing.T) {
	history := []*model.Message{
		model.NewMessage(model.RoleUser, "hello there"),
	}
	history[0].Name = "Anna"
	src := &Source{
		History: history,
		Settings: Settings{
			GroupChat:  true,
			GroupNudge: "[nudge]",
		},
	}
	c := populated(t, 10000, src)

	chat := c.Chat()
	require.GreaterOrEqual(t, len(chat), 3)
	assert.Equal(t, "[nudge]", chat[len(chat)-1].Content, "group nudge trails history")

	found := false
	for _, entry := range chat {
		if entry.Name == "Anna" {
			found = true
		}
	}
	assert.True(t, found, "speaker names attach in group chats")
}

// =============================================================================
// SQUASHING VIA SETTINGS
// =============================================================================

func TestPopulate_SquashSetting(t *testing.T) {
	src := &Source{
		MainPrompt: "main",
		Character:  Character{Description: "desc"},
		Settings:   Settings{SquashSystemMessages: true},
	}
	c := populated(t, 10000, src)

	contents := chatContents(c)
	assert.Contains(t, contents[0], "main\ndesc", "adjacent system sections merge")
	assert.Contains(t, contents[len(contents)-1], DefaultNewChatPrompt, "markers survive squashing")
}
