// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// populate.go - The ordered prompt population pipeline.
package prompt

import (
	"context"
	"fmt"

	"github.com/halcyonforge/loom/internal/model"
	"github.com/halcyonforge/loom/internal/tokens"
)

// Section identifiers used by the pipeline.
const (
	IdentifierWorldInfoBefore  = "worldInfoBefore"
	IdentifierMain             = "main"
	IdentifierWorldInfoAfter   = "worldInfoAfter"
	IdentifierCharDescription  = "charDescription"
	IdentifierCharPersonality  = "charPersonality"
	IdentifierScenario         = "scenario"
	IdentifierPersona          = "personaDescription"
	IdentifierDialogueExamples = "dialogueExamples"
	IdentifierChatHistory      = "chatHistory"
	IdentifierControlPrompts   = "controlPrompts"

	identifierNewChat       = "newChat"
	identifierNewMainChat   = "newMainChat"
	identifierGroupNudge    = "groupNudge"
	identifierContinue      = "continuation"
	identifierContinueNudge = "continueNudge"
	identifierImpersonate   = "impersonate"
	identifierQuiet         = "quietPrompt"
)

// Populate runs the full population pipeline against c. The budget must be
// set beforehand via SetTokenBudget.
//
// Mandatory content that does not fit fails hard with
// *TokenBudgetExceededError; chat history and dialogue examples are the only
// content ever silently truncated.
func Populate(ctx context.Context, c *ChatCompletion, counter tokens.Counter, fetcher ImageFetcher, src *Source) error {
	settings := src.Settings

	// Reply priming overhead: every reply is primed with a fixed allowance.
	c.ReserveBudget(tokens.ReplyPriming)

	// Fixed-position mandatory sections, in this exact order. Each is
	// optional; absence means skip, unaffordability means abort.
	sections := []struct {
		identifier string
		content    string
	}{
		{IdentifierWorldInfoBefore, src.WorldInfoBefore},
		{IdentifierMain, src.MainPrompt},
		{IdentifierWorldInfoAfter, src.WorldInfoAfter},
		{IdentifierCharDescription, src.Character.Description},
		{IdentifierCharPersonality, src.Character.Personality},
		{IdentifierScenario, src.Character.Scenario},
		{IdentifierPersona, src.Persona.Description},
	}
	for _, section := range sections {
		if section.content == "" {
			continue
		}
		if err := addSection(ctx, c, counter, section.identifier, model.RoleSystem, section.content); err != nil {
			return err
		}
	}

	// Control prompts are reserved before history so history cannot starve
	// them out; they are appended at the very end.
	controlCol, reserved, err := reserveControlPrompts(ctx, c, counter, src)
	if err != nil {
		return err
	}

	// User-defined ordered prompts, in the user-specified order.
	for _, cfg := range src.OrderedPrompts {
		if !cfg.Enabled || cfg.Content == "" {
			continue
		}
		if err := addSection(ctx, c, counter, cfg.Identifier, cfg.Role, cfg.Content); err != nil {
			return err
		}
	}

	// Position-aware extension content spliced into existing sections.
	for _, anchor := range src.Anchors {
		if anchor.Content == "" {
			continue
		}
		target := anchor.Target
		if target == "" {
			target = IdentifierMain
		}
		if !c.HasCollection(target) {
			c.Log("anchor %q skipped: target %q not present", anchor.Identifier, target)
			continue
		}
		msg, err := NewMessage(ctx, counter, anchor.Role, anchor.Content, anchor.Identifier)
		if err != nil {
			return err
		}
		if err := c.Insert(msg, target, anchor.Offset); err != nil {
			return err
		}
	}

	// History and example containers hold fixed positions in the final
	// order regardless of which is populated first.
	examplesCol, _ := NewMessageCollection(IdentifierDialogueExamples)
	historyCol, _ := NewMessageCollection(IdentifierChatHistory)
	if err := c.Add(examplesCol, -1); err != nil {
		return err
	}
	if err := c.Add(historyCol, -1); err != nil {
		return err
	}

	populateHistory := func() error {
		return populateChatHistory(ctx, c, counter, fetcher, controlCol, src, &reserved)
	}
	populateExamples := func() error {
		return populateDialogueExamples(ctx, c, counter, src)
	}
	if settings.PinExamplesFirst {
		err = firstOf(populateExamples, populateHistory)
	} else {
		err = firstOf(populateHistory, populateExamples)
	}
	if err != nil {
		return err
	}

	// Free the reservation and attach the control prompts at the very end.
	c.FreeBudget(reserved)
	if err := c.Add(controlCol, -1); err != nil {
		return err
	}

	if settings.SquashSystemMessages {
		if err := c.SquashSystemMessages(ctx); err != nil {
			return err
		}
	}
	return nil
}

func firstOf(steps ...func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// addSection wraps a single prompt in a named collection and commits it.
func addSection(ctx context.Context, c *ChatCompletion, counter tokens.Counter, identifier string, role model.Role, content string) error {
	msg, err := NewMessage(ctx, counter, role, content, identifier)
	if err != nil {
		return err
	}
	col, err := NewMessageCollection(identifier, msg)
	if err != nil {
		return err
	}
	return c.Add(col, -1)
}

// =============================================================================
// CONTROL PROMPTS
// =============================================================================

// reserveControlPrompts builds the always-kept tail collection and reserves
// its budget up front. The reservation is treated as mandatory: if it pushes
// the budget negative, population aborts.
func reserveControlPrompts(ctx context.Context, c *ChatCompletion, counter tokens.Counter, src *Source) (*MessageCollection, int, error) {
	col, _ := NewMessageCollection(IdentifierControlPrompts)

	controls := []struct {
		identifier string
		content    string
		enabled    bool
	}{
		{identifierContinueNudge, src.Control.ContinueNudge, src.Settings.Continue && !src.Settings.ContinuePrefill},
		{identifierImpersonate, src.Control.Impersonate, src.Control.Impersonate != ""},
		{identifierQuiet, src.Control.Quiet, src.Control.Quiet != ""},
	}
	for _, ctrl := range controls {
		if !ctrl.enabled || ctrl.content == "" {
			continue
		}
		msg, err := NewMessage(ctx, counter, model.RoleSystem, ctrl.content, ctrl.identifier)
		if err != nil {
			return nil, 0, err
		}
		if err := col.Add(msg); err != nil {
			return nil, 0, err
		}
	}

	reserved := col.Tokens()
	c.ReserveBudget(reserved)
	if c.TokenBudget() < 0 {
		c.FreeBudget(reserved)
		return nil, 0, &TokenBudgetExceededError{
			Identifier: IdentifierControlPrompts,
			Tokens:     reserved,
			Budget:     c.TokenBudget(),
		}
	}
	return col, reserved, nil
}

// =============================================================================
// CHAT HISTORY
// =============================================================================

// populateChatHistory fills the chatHistory collection newest-to-oldest,
// stopping at the first unaffordable message. Older messages are silently
// dropped.
func populateChatHistory(ctx context.Context, c *ChatCompletion, counter tokens.Counter, fetcher ImageFetcher, controlCol *MessageCollection, src *Source, reserved *int) error {
	settings := src.Settings
	entries := historyEntries(src)

	// Prefix continuation: the newest message moves into the always-kept
	// control section so the budget loop cannot drop it.
	if settings.Continue && settings.ContinuePrefill && len(entries) > 0 {
		last := entries[len(entries)-1]
		entries = entries[:len(entries)-1]

		content := last.content
		if settings.AssistantPrefill != "" {
			content = settings.AssistantPrefill + content
		}
		msg, err := NewMessage(ctx, counter, model.RoleAssistant, content, identifierContinue)
		if err != nil {
			return err
		}
		if err := controlCol.Add(msg); err != nil {
			return err
		}
		c.ReserveBudgetFor(msg)
		*reserved += msg.Tokens()
		if c.TokenBudget() < 0 {
			return &TokenBudgetExceededError{
				Identifier: identifierContinue,
				Tokens:     msg.Tokens(),
				Budget:     c.TokenBudget(),
			}
		}
	}

	// Injections are merged into the remaining history sequence before the
	// budget loop so their position survives truncation decisions.
	entries = mergeInjections(entries, src.Injections, settings.separator())

	// The start-of-chat marker is reserved ahead of the budget loop; a
	// tight budget drops history messages before it drops the marker.
	marker, err := NewMessage(ctx, counter, model.RoleSystem, settings.newChatPrompt(), identifierNewChat)
	if err != nil {
		return err
	}
	markerReserved := c.CanAfford(marker)
	if markerReserved {
		c.ReserveBudgetFor(marker)
	} else {
		c.Log("chat marker skipped: unaffordable")
	}

	for i := len(entries) - 1; i >= 0; i-- {
		msg, err := messageFromEntry(ctx, counter, fetcher, entries[i], settings)
		if err != nil {
			return err
		}
		if !c.CanAfford(msg) {
			c.Log("history cut at %q: %d messages dropped", msg.Identifier(), i+1)
			break
		}
		if err := c.InsertAtStart(msg, IdentifierChatHistory); err != nil {
			return err
		}
	}

	// The marker precedes whatever history survived.
	if markerReserved {
		c.FreeBudgetFor(marker)
		if err := c.InsertAtStart(marker, IdentifierChatHistory); err != nil {
			return err
		}
	}

	if settings.GroupChat && settings.GroupNudge != "" {
		nudge, err := NewMessage(ctx, counter, model.RoleSystem, settings.GroupNudge, identifierGroupNudge)
		if err != nil {
			return err
		}
		if c.CanAfford(nudge) {
			if err := c.InsertAtEnd(nudge, IdentifierChatHistory); err != nil {
				return err
			}
		} else {
			c.Log("group nudge skipped: unaffordable")
		}
	}
	return nil
}

// historyEntries converts the stored transcript into pipeline entries,
// oldest first.
func historyEntries(src *Source) []historyEntry {
	entries := make([]historyEntry, 0, len(src.History))
	for i, msg := range src.History {
		entry := historyEntry{
			identifier:  fmt.Sprintf("chatHistory-%d", i),
			role:        msg.Role,
			content:     msg.Content,
			attachments: msg.Attachments,
		}
		if msg.Role == model.RoleTool && msg.ToolCallID != "" {
			// Tool results carry their call ID as identifier so the wire
			// mapping can emit tool_call_id.
			entry.identifier = msg.ToolCallID
		}
		if src.Settings.GroupChat && msg.Name != "" {
			entry.name = msg.Name
		}
		if src.Settings.ToolsSupported {
			entry.toolCalls = msg.ToolCalls
		}
		entries = append(entries, entry)
	}
	return entries
}

// messageFromEntry builds a budget-tracked message from a pipeline entry,
// attaching media and tool calls where supported.
func messageFromEntry(ctx context.Context, counter tokens.Counter, fetcher ImageFetcher, entry historyEntry, settings Settings) (*Message, error) {
	msg, err := NewMessage(ctx, counter, entry.role, entry.content, entry.identifier)
	if err != nil {
		return nil, err
	}
	if entry.name != "" {
		if err := msg.SetName(ctx, entry.name); err != nil {
			return nil, err
		}
	}
	if len(entry.toolCalls) > 0 {
		invocations := make([]ToolInvocation, 0, len(entry.toolCalls))
		for _, call := range entry.toolCalls {
			invocations = append(invocations, ToolInvocation{
				ID:         call.ID,
				Name:       call.Function.Name,
				Parameters: call.Function.Arguments,
			})
		}
		if err := msg.SetToolCalls(ctx, invocations); err != nil {
			return nil, err
		}
	}
	for _, attachment := range entry.attachments {
		switch attachment.Kind {
		case model.AttachmentImage:
			if settings.SendImages {
				msg.AddImage(ctx, fetcher, attachment.URL, settings.ImageDetail)
			}
		case model.AttachmentVideo:
			if settings.SendVideos {
				msg.AddVideo(ctx, fetcher, attachment.URL)
			}
		}
	}
	return msg, nil
}

// =============================================================================
// DIALOGUE EXAMPLES
// =============================================================================

// populateDialogueExamples appends example groups in order. Each group is
// atomic: a marker plus all of its turns are included only when the entire
// group is affordable, and population stops at the first group that does
// not fit.
func populateDialogueExamples(ctx context.Context, c *ChatCompletion, counter tokens.Counter, src *Source) error {
	for groupIdx, group := range src.ExampleGroups {
		if len(group) == 0 {
			continue
		}

		marker, err := NewMessage(ctx, counter, model.RoleSystem, src.Settings.newExampleChatPrompt(), identifierNewMainChat)
		if err != nil {
			return err
		}
		groupMsgs := []*Message{marker}
		for turnIdx, turn := range group {
			identifier := fmt.Sprintf("dialogueExamples-%d-%d", groupIdx, turnIdx)
			msg, err := NewMessage(ctx, counter, turn.Role, turn.Content, identifier)
			if err != nil {
				return err
			}
			if turn.Name != "" {
				if err := msg.SetName(ctx, turn.Name); err != nil {
					return err
				}
			}
			groupMsgs = append(groupMsgs, msg)
		}

		items := make([]Item, len(groupMsgs))
		for i, msg := range groupMsgs {
			items[i] = msg
		}
		if !c.CanAffordAll(items) {
			c.Log("example group %d dropped: unaffordable", groupIdx)
			break
		}
		for _, msg := range groupMsgs {
			if err := c.InsertAtEnd(msg, IdentifierDialogueExamples); err != nil {
				return err
			}
		}
	}
	return nil
}
