// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// args.go - Flag and positional argument parsing for loom subcommands.
//
// Supports --flag value, --flag=value, short -f aliases, and bare
// boolean flags. The first positional argument is the subcommand.
package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// boolFlags are flags that never consume a value argument.
var boolFlags = map[string]bool{
	"--quiet":    true,
	"-q":         true,
	"--verbose":  true,
	"-v":         true,
	"--json":     true,
	"--confirm":  true,
	"--no-color": true,
	"--help":     true,
	"-h":         true,
}

// shortAliases maps short flags to their canonical long form.
var shortAliases = map[string]string{
	"-q": "--quiet",
	"-v": "--verbose",
	"-h": "--help",
	"-m": "--model",
	"-s": "--source",
	"-p": "--preset",
}

// ArgParser parses the arguments that follow a command name.
type ArgParser struct {
	flags       map[string]string
	positionals []string
	raw         []string
}

// NewArgParser parses args into flags and positionals.
func NewArgParser(args []string) *ArgParser {
	p := &ArgParser{
		flags: make(map[string]string),
		raw:   args,
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if canonical, ok := shortAliases[arg]; ok {
			arg = canonical
		}

		switch {
		case strings.HasPrefix(arg, "--") && strings.Contains(arg, "="):
			name, value, _ := strings.Cut(arg, "=")
			p.flags[strings.TrimPrefix(name, "--")] = value

		case strings.HasPrefix(arg, "-"):
			name := strings.TrimLeft(arg, "-")
			if !boolFlags[arg] && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				i++
				p.flags[name] = args[i]
			} else {
				p.flags[name] = "true"
			}

		default:
			p.positionals = append(p.positionals, args[i])
		}
	}

	return p
}

// Subcommand returns the first positional argument, or "".
func (p *ArgParser) Subcommand() string {
	if len(p.positionals) == 0 {
		return ""
	}
	return p.positionals[0]
}

// Flag returns the value of a named flag and whether it was present.
func (p *ArgParser) Flag(name string) (string, bool) {
	v, ok := p.flags[name]
	return v, ok
}

// FlagOrDefault returns the flag value or def when absent.
func (p *ArgParser) FlagOrDefault(name, def string) string {
	if v, ok := p.flags[name]; ok {
		return v
	}
	return def
}

// FlagInt parses a named flag as an integer.
func (p *ArgParser) FlagInt(name string) (int, bool, error) {
	v, ok := p.flags[name]
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, true, fmt.Errorf("flag --%s: expected integer, got %q", name, v)
	}
	return n, true, nil
}

// FlagIntOrDefault parses a named flag as an integer, falling back to def
// when the flag is absent or malformed.
func (p *ArgParser) FlagIntOrDefault(name string, def int) int {
	n, ok, err := p.FlagInt(name)
	if !ok || err != nil {
		return def
	}
	return n
}

// BoolFlag reports whether a flag is present and truthy.
func (p *ArgParser) BoolFlag(name string) bool {
	v, ok := p.flags[name]
	if !ok {
		return false
	}
	return v == "true" || v == "1" || v == "yes"
}

// HasFlag reports whether a flag was present at all.
func (p *ArgParser) HasFlag(name string) bool {
	_, ok := p.flags[name]
	return ok
}

// Positional returns the positional at index, or "".
func (p *ArgParser) Positional(index int) string {
	if index < 0 || index >= len(p.positionals) {
		return ""
	}
	return p.positionals[index]
}

// PositionalCount returns the number of positional arguments.
func (p *ArgParser) PositionalCount() int {
	return len(p.positionals)
}

// JoinPositionalsFrom joins positionals starting at index with spaces.
// Used for free-text arguments like a one-shot prompt.
func (p *ArgParser) JoinPositionalsFrom(index int) string {
	if index < 0 || index >= len(p.positionals) {
		return ""
	}
	return strings.Join(p.positionals[index:], " ")
}

// Raw returns the original argument slice.
func (p *ArgParser) Raw() []string {
	return p.raw
}
