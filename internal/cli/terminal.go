// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - TTY detection, terminal sizing, and color capability
// probing for the loom CLI.
package cli

import (
	"os"
	"strings"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const (
	// DefaultTerminalWidth is assumed when the terminal cannot be queried.
	DefaultTerminalWidth = 80

	// MinTerminalWidth is the floor for layout calculations.
	MinTerminalWidth = 40
)

// IsStdoutTTY reports whether stdout is attached to a terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// IsStdinTTY reports whether stdin is attached to a terminal.
func IsStdinTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// CanPrompt reports whether interactive input is possible. The chat REPL
// requires both ends of the terminal.
func CanPrompt() bool {
	return IsStdinTTY() && IsStdoutTTY()
}

// GetTerminalWidth returns the current terminal width, clamped to
// MinTerminalWidth, or DefaultTerminalWidth when stdout is not a TTY.
func GetTerminalWidth() int {
	if !IsStdoutTTY() {
		return DefaultTerminalWidth
	}
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	return width
}

var (
	colorsOnce    sync.Once
	colorsEnabled bool
)

// ColorsEnabled reports whether styled output should be emitted. NO_COLOR
// always wins; FORCE_COLOR overrides TTY detection; the ui.color config
// value is applied by the caller before styles are used.
func ColorsEnabled() bool {
	colorsOnce.Do(func() {
		if os.Getenv("NO_COLOR") != "" {
			colorsEnabled = false
			return
		}
		if os.Getenv("FORCE_COLOR") != "" {
			colorsEnabled = true
			return
		}
		colorsEnabled = IsStdoutTTY()
	})
	return colorsEnabled
}

// ForceColors overrides color detection. Used by the --no-color flag and
// the ui.color = "always" / "never" settings.
func ForceColors(enabled bool) {
	colorsOnce.Do(func() {})
	colorsEnabled = enabled
	applyColorProfile()
}

// GetColorProfile returns the termenv profile to render with. Ascii
// disables all styling.
func GetColorProfile() termenv.Profile {
	if !ColorsEnabled() {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}

// WrapText wraps text at word boundaries to the given width. Words longer
// than the width are broken mid-word.
func WrapText(text string, width int) string {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	var out strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString(wrapLine(line, width))
	}
	return out.String()
}

func wrapLine(line string, width int) string {
	words := strings.Fields(line)
	if len(words) == 0 {
		return line
	}

	var out strings.Builder
	lineLen := 0
	for _, word := range words {
		for len(word) > width {
			if lineLen > 0 {
				out.WriteString("\n")
				lineLen = 0
			}
			out.WriteString(word[:width] + "\n")
			word = word[width:]
		}
		if lineLen == 0 {
			out.WriteString(word)
			lineLen = len(word)
		} else if lineLen+1+len(word) <= width {
			out.WriteString(" " + word)
			lineLen += 1 + len(word)
		} else {
			out.WriteString("\n" + word)
			lineLen = len(word)
		}
	}
	return out.String()
}
