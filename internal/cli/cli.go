// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Top-level command dispatch for loom.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/halcyonforge/loom/internal/config"
)

// Version information (can be overridden at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

const usageText = `loom - a multi-provider LLM chat client

Loom assembles prompts from character cards, presets, world info,
injections, and chat history under a strict token budget, then routes
them to a local or cloud model by cost tier.

Usage:
  loom                         Start interactive chat (default)
  loom chat                    Start interactive chat
  loom ask "question"          One-shot question, answer to stdout
  loom chats [subcommand]      Manage saved chats
  loom config [subcommand]     Show and edit configuration
  loom presets                 List available prompt presets
  loom stats [--days N]        Show spend and savings report
  loom version                 Show version information
  loom help                    Show this help

Chat flags:
  -s, --source TAG     Route to a source tier: local, auto, budget,
                       balanced, frontier (default from config)
  -m, --model NAME     Override the bound model for this session
  -p, --preset NAME    Use a named prompt preset
  --chat ID            Resume a saved chat
  -q, --quiet          Suppress routing and stats lines

Chats subcommands:
  loom chats list              List saved chats (default)
  loom chats show <id>         Print a chat transcript
  loom chats search <query>    Search chats by character or id
  loom chats delete <id> --confirm
                               Delete a chat

Config subcommands:
  loom config show             Show effective configuration
  loom config get <key>        Read one value (dot notation)
  loom config set <key> <val>  Write one value and save
  loom config keys             List all settable keys
  loom config path             Print the config file path

Interactive commands (during chat):
  /help            Show commands
  /clear           Clear conversation history
  /source [tag]    Show or switch source tier
  /model [name]    Show or switch model
  /preset [name]   Show or switch preset
  /status          Show session status
  /history         Show conversation history
  /quit            Exit (also Ctrl+D)

Environment:
  LOOM_SOURCE, LOOM_OLLAMA_URL, LOOM_OPENROUTER_KEY, ... override
  config values; NO_COLOR disables styled output.

Version: %s
`

// PrintUsage prints the usage text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version details.
func PrintVersion() {
	fmt.Printf("loom version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
	fmt.Printf("  Go version: %s\n", runtime.Version())
}

// Run dispatches a command line and returns the process exit code.
func Run(args []string) int {
	cmd, rest := splitCommand(args)
	parser := NewArgParser(rest)

	if parser.BoolFlag("no-color") {
		ForceColors(false)
	}

	var err error
	switch cmd {
	case "", "chat":
		err = withConfig(func(cfg *config.Config) error {
			return HandleChat(cfg, parser)
		})

	case "ask":
		err = withConfig(func(cfg *config.Config) error {
			return HandleAsk(cfg, parser)
		})

	case "chats":
		err = withConfig(func(cfg *config.Config) error {
			return HandleChats(cfg, parser)
		})

	case "config":
		err = HandleConfig(parser)

	case "presets":
		err = withConfig(func(cfg *config.Config) error {
			return HandlePresets(cfg, parser)
		})

	case "stats":
		err = withConfig(func(cfg *config.Config) error {
			return HandleStats(cfg, parser)
		})

	case "version", "-v", "--version":
		PrintVersion()

	case "help", "-h", "--help":
		PrintUsage()

	default:
		fmt.Fprintf(os.Stderr, "%s unknown command %q (see: loom help)\n",
			ErrorStyle.Render("[Error]"), cmd)
		return ExitUsageError
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		if _, ok := err.(*UsageError); ok {
			fmt.Fprintln(os.Stderr, DimStyle.Render("Run 'loom help' for usage."))
		}
		return GetExitCode(err)
	}
	return ExitSuccess
}

// splitCommand separates the command word from its arguments. A leading
// flag means no command was given and chat is implied.
func splitCommand(args []string) (string, []string) {
	if len(args) == 0 {
		return "", nil
	}
	if strings.HasPrefix(args[0], "-") {
		switch args[0] {
		case "-v", "--version", "-h", "--help":
			return args[0], args[1:]
		}
		return "", args
	}
	return strings.ToLower(args[0]), args[1:]
}

// withConfig loads configuration and applies UI color settings before
// invoking the handler.
func withConfig(fn func(cfg *config.Config) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	config.SetGlobal(cfg)

	switch cfg.UI.Color {
	case "always":
		ForceColors(true)
	case "never":
		ForceColors(false)
	}

	return fn(cfg)
}
