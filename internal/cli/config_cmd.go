// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - The "loom config" command: show, get, set, keys, path.
package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/halcyonforge/loom/internal/config"
)

// HandleConfig dispatches config subcommands. It loads config itself so
// that a broken config file can still be inspected and repaired.
func HandleConfig(parser *ArgParser) error {
	switch parser.Subcommand() {
	case "", "show":
		return configShow()
	case "get":
		key := parser.Positional(1)
		if key == "" {
			return NewUsageError("config get", "missing key (see: loom config keys)")
		}
		return configGet(key)
	case "set":
		key, value := parser.Positional(1), parser.Positional(2)
		if key == "" || value == "" {
			return NewUsageError("config set", "usage: loom config set <key> <value>")
		}
		return configSet(key, value)
	case "keys":
		return configKeys()
	case "path":
		return configPath()
	default:
		return NewUsageError("config", "unknown subcommand %q", parser.Subcommand())
	}
}

func configShow() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	keys := config.GetAllKeys()
	sort.Strings(keys)

	fmt.Println()
	fmt.Println(TitleStyle.Render("loom configuration"))
	fmt.Println(RenderSeparator(50))

	lastSection := ""
	for _, key := range keys {
		section, _, _ := strings.Cut(key, ".")
		if section != lastSection {
			if lastSection != "" {
				fmt.Println()
			}
			lastSection = section
		}

		value, err := cfg.Get(key)
		if err != nil {
			continue
		}

		display := fmt.Sprintf("%v", value)
		// Never print secrets.
		if strings.HasSuffix(key, "api_key") && display != "" {
			display = "[REDACTED]"
		}
		if display == "" {
			display = DimStyle.Render("(unset)")
		}
		fmt.Println(RenderLabel(key, display))
	}
	fmt.Println()
	return nil
}

func configGet(key string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	value, err := cfg.Get(key)
	if err != nil {
		return err
	}
	fmt.Printf("%v\n", value)
	return nil
}

func configSet(key, value string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	cfg.Clamp()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("rejected: %w", err)
	}
	if err := config.Save(cfg); err != nil {
		return err
	}

	display := value
	if strings.HasSuffix(key, "api_key") {
		display = "[REDACTED]"
	}
	fmt.Printf("%s %s = %s\n", SuccessStyle.Render("[OK]"), key, display)
	return nil
}

func configKeys() error {
	keys := config.GetAllKeys()
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Println(key)
	}
	return nil
}

func configPath() error {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

// HandlePresets lists available prompt presets or shows one.
func HandlePresets(cfg *config.Config, parser *ArgParser) error {
	dir, err := cfg.PresetDir()
	if err != nil {
		return err
	}
	presets, err := config.LoadPresets(dir)
	if err != nil {
		return err
	}

	if name := parser.Subcommand(); name != "" && name != "list" {
		p, ok := presets.Get(name)
		if !ok {
			return fmt.Errorf("preset %q not found", name)
		}
		src := p.ToSource()
		fmt.Println()
		fmt.Println(TitleStyle.Render("Preset " + p.Name()))
		fmt.Println(RenderSeparator(40))
		fmt.Println(RenderLabel("Character:", src.Character.Name))
		fmt.Println(RenderLabel("Persona:", src.Persona.Name))
		fmt.Println(RenderLabel("Prompts:", fmt.Sprintf("%d", len(src.OrderedPrompts))))
		fmt.Println(RenderLabel("Examples:", fmt.Sprintf("%d groups", len(src.ExampleGroups))))
		fmt.Println()
		return nil
	}

	names := presets.Names()
	if len(names) == 0 {
		fmt.Println(DimStyle.Render("[No presets in " + presets.Dir() + "]"))
		return nil
	}
	fmt.Println(TitleStyle.Render("Presets") + " " + DimStyle.Render("("+presets.Dir()+")"))
	for _, name := range names {
		fmt.Println("  " + ValueStyle.Render(name))
	}
	return nil
}
