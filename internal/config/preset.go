// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/halcyonforge/loom/internal/model"
	"github.com/halcyonforge/loom/internal/prompt"
)

// =============================================================================
// PRESET
// =============================================================================

// Preset is a prompt bundle loaded from a TOML file: character card, main
// prompt, world info, user-defined prompts, and assembly settings. The file
// name (without extension) is the preset name.
type Preset struct {
	Character PresetCharacter `toml:"character"`
	Persona   PresetPersona   `toml:"persona"`

	MainPrompt      string `toml:"main_prompt"`
	WorldInfoBefore string `toml:"world_info_before"`
	WorldInfoAfter  string `toml:"world_info_after"`

	Prompts []PresetPrompt `toml:"prompts"`

	Settings PresetSettings `toml:"settings"`

	// name is set from the filename on load.
	name string
}

// PresetCharacter is the character card section of a preset.
type PresetCharacter struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Personality string `toml:"personality"`
	Scenario    string `toml:"scenario"`
}

// PresetPersona is the user persona section of a preset.
type PresetPersona struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
}

// PresetPrompt is one user-defined ordered prompt.
type PresetPrompt struct {
	Identifier string `toml:"identifier"`
	Role       string `toml:"role"`
	Content    string `toml:"content"`
	Enabled    bool   `toml:"enabled"`
}

// PresetSettings are the assembly settings stored with a preset. Unset
// fields fall back to the config-level prompt defaults.
type PresetSettings struct {
	Separator            string `toml:"separator"`
	PinExamplesFirst     bool   `toml:"pin_examples_first"`
	SquashSystemMessages bool   `toml:"squash_system_messages"`
	GroupChat            bool   `toml:"group_chat"`
	GroupNudge           string `toml:"group_nudge"`
}

// Name returns the preset's name.
func (p *Preset) Name() string {
	return p.name
}

// ToSource builds the prompt source for one generation from this preset.
// History, examples, injections, and control prompts are filled in by the
// caller per request.
func (p *Preset) ToSource() prompt.Source {
	src := prompt.Source{
		Character: prompt.Character{
			Name:        p.Character.Name,
			Description: p.Character.Description,
			Personality: p.Character.Personality,
			Scenario:    p.Character.Scenario,
		},
		Persona: prompt.Persona{
			Name:        p.Persona.Name,
			Description: p.Persona.Description,
		},
		MainPrompt:      p.MainPrompt,
		WorldInfoBefore: p.WorldInfoBefore,
		WorldInfoAfter:  p.WorldInfoAfter,
		Settings: prompt.Settings{
			InjectionSeparator:   p.Settings.Separator,
			PinExamplesFirst:     p.Settings.PinExamplesFirst,
			SquashSystemMessages: p.Settings.SquashSystemMessages,
			GroupChat:            p.Settings.GroupChat,
			GroupNudge:           p.Settings.GroupNudge,
		},
	}

	for _, pc := range p.Prompts {
		src.OrderedPrompts = append(src.OrderedPrompts, prompt.PromptConfig{
			Identifier: pc.Identifier,
			Role:       parseRole(pc.Role),
			Content:    pc.Content,
			Enabled:    pc.Enabled,
		})
	}

	return src
}

// parseRole maps a preset role string to a model role, defaulting unknown
// or empty values to system.
func parseRole(s string) model.Role {
	r := model.Role(strings.ToLower(s))
	if !r.Valid() {
		return model.RoleSystem
	}
	return r
}

// =============================================================================
// PRESET STORE
// =============================================================================

// Presets holds the loaded preset set, reloadable from its directory.
type Presets struct {
	mu      sync.RWMutex
	dir     string
	presets map[string]*Preset
}

// LoadPresets scans dir for *.toml presets. The directory is created if
// missing so a fresh install starts with an empty store.
func LoadPresets(dir string) (*Presets, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create preset directory: %w", err)
	}

	p := &Presets{dir: dir, presets: make(map[string]*Preset)}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload re-reads every preset file in the directory. Files that fail to
// parse are skipped with a warning so one bad preset cannot take down the
// rest.
func (p *Presets) Reload() error {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return fmt.Errorf("failed to read preset directory: %w", err)
	}

	loaded := make(map[string]*Preset)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}

		preset, err := loadPresetFile(filepath.Join(p.dir, entry.Name()))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping preset %s: %v\n", entry.Name(), err)
			continue
		}
		loaded[preset.name] = preset
	}

	p.mu.Lock()
	p.presets = loaded
	p.mu.Unlock()
	return nil
}

func loadPresetFile(path string) (*Preset, error) {
	var preset Preset
	if _, err := toml.DecodeFile(path, &preset); err != nil {
		return nil, err
	}
	preset.name = strings.TrimSuffix(filepath.Base(path), ".toml")
	return &preset, nil
}

// Get returns the named preset, or false if it does not exist.
func (p *Presets) Get(name string) (*Preset, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	preset, ok := p.presets[name]
	return preset, ok
}

// Names returns the loaded preset names, sorted.
func (p *Presets) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.presets))
	for name := range p.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dir returns the preset directory.
func (p *Presets) Dir() string {
	return p.dir
}
