// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared lipgloss styles for loom CLI output.
//
// ANSI-256 colors keep output consistent across terminals; when colors
// are disabled the profile collapses to Ascii and styles render plain.
package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// TitleStyle renders command and section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	// PromptStyle renders the REPL input prompt.
	PromptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("45"))

	// LabelStyle renders field labels in key/value listings.
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(20)

	// ValueStyle renders field values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	// SuccessStyle renders success markers.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	// ErrorStyle renders error markers.
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	// WarningStyle renders warnings.
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	// InfoStyle renders informational notes and inline stats.
	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75"))

	// DimStyle renders de-emphasized detail text.
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	// SeparatorStyle renders horizontal rules.
	SeparatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	// LocalStyle highlights free local sources in spend output.
	LocalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	// PaidStyle highlights paid sources in spend output.
	PaidStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))
)

func init() {
	applyColorProfile()
}

// applyColorProfile syncs lipgloss with the detected color capability.
func applyColorProfile() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// RenderSeparator returns a horizontal rule of the given width.
func RenderSeparator(width int) string {
	if width <= 0 {
		width = DefaultTerminalWidth
	}
	return SeparatorStyle.Render(strings.Repeat("─", width))
}

// RenderLabel formats a label/value pair for aligned listings.
func RenderLabel(label, value string) string {
	return LabelStyle.Render(label) + " " + ValueStyle.Render(value)
}

// RenderSourceTag styles a source tag green for local, amber for paid.
func RenderSourceTag(tag string, local bool) string {
	if local {
		return LocalStyle.Render(tag)
	}
	return PaidStyle.Render(tag)
}
