// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/halcyonforge/loom/internal/router"
	"github.com/halcyonforge/loom/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete loom configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// DefaultSource is the source tag used when no source is given on the
	// command line: local, auto, budget, balanced, frontier.
	DefaultSource string `toml:"default_source" json:"default_source"`

	Budget    BudgetConfig             `toml:"budget" json:"budget"`
	Providers ProvidersConfig          `toml:"providers" json:"providers"`
	Sources   map[string]SourceConfig  `toml:"sources" json:"sources"`
	Prompt    PromptConfig             `toml:"prompt" json:"prompt"`
	Session   SessionConfig            `toml:"session" json:"session"`
	Storage   StorageConfig            `toml:"storage" json:"storage"`
	UI        UIConfig                 `toml:"ui" json:"ui"`
}

// BudgetConfig sets the token budget for prompt assembly.
type BudgetConfig struct {
	// ContextTokens is the model context window size.
	ContextTokens int `toml:"context_tokens" json:"context_tokens"`
	// ResponseTokens is the completion reservation subtracted from context.
	ResponseTokens int `toml:"response_tokens" json:"response_tokens"`
}

// ProvidersConfig holds per-vendor connection settings.
type ProvidersConfig struct {
	Ollama     OllamaConfig `toml:"ollama" json:"ollama"`
	OpenRouter VendorConfig `toml:"openrouter" json:"openrouter"`
	OpenAI     VendorConfig `toml:"openai" json:"openai"`
	Groq       VendorConfig `toml:"groq" json:"groq"`
	DeepSeek   VendorConfig `toml:"deepseek" json:"deepseek"`
	XAI        VendorConfig `toml:"xai" json:"xai"`
	Mistral    VendorConfig `toml:"mistral" json:"mistral"`
}

// OllamaConfig configures the local Ollama server.
type OllamaConfig struct {
	URL   string `toml:"url" json:"url"`
	Model string `toml:"model" json:"model"`
}

// VendorConfig configures one OpenAI-compatible cloud vendor.
type VendorConfig struct {
	APIKey string `toml:"api_key" json:"api_key"`
	Model  string `toml:"model" json:"model"`
	// BaseURL overrides the vendor's default endpoint.
	BaseURL string `toml:"base_url" json:"base_url"`
	// RPS throttles outgoing requests; 0 disables the limiter.
	RPS float64 `toml:"rps" json:"rps"`
}

// SourceConfig binds a source tag to a vendor and model.
type SourceConfig struct {
	Vendor string `toml:"vendor" json:"vendor"`
	Model  string `toml:"model" json:"model"`
}

// PromptConfig holds default prompt-assembly settings.
type PromptConfig struct {
	// Separator joins same-role injection fragments within a depth group.
	Separator string `toml:"separator" json:"separator"`
	// PinExamplesFirst populates dialogue examples before chat history.
	PinExamplesFirst bool `toml:"pin_examples_first" json:"pin_examples_first"`
	// SquashSystemMessages merges adjacent unnamed system messages.
	SquashSystemMessages bool `toml:"squash_system_messages" json:"squash_system_messages"`
	// PresetDir is where prompt presets live (empty = ~/.loom/presets).
	PresetDir string `toml:"preset_dir" json:"preset_dir"`
	// Preset is the name of the active preset.
	Preset string `toml:"preset" json:"preset"`
}

// SessionConfig configures the interactive session manager.
type SessionConfig struct {
	// TimeoutSecs is the idle timeout before the REPL ends the session.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// AutoSave enables periodic persistence of the active chat.
	AutoSave bool `toml:"auto_save" json:"auto_save"`
	// AutoSaveIntervalSecs is the minimum time between auto-saves.
	AutoSaveIntervalSecs int `toml:"auto_save_interval_secs" json:"auto_save_interval_secs"`
}

// StorageConfig configures chat and spend persistence.
type StorageConfig struct {
	// DataDir is the root data directory (empty = ~/.loom).
	DataDir string `toml:"data_dir" json:"data_dir"`
	// KeepChats caps the number of stored chats; 0 means unlimited.
	KeepChats int `toml:"keep_chats" json:"keep_chats"`
	// SpendRetentionDays is how long spend records are kept.
	SpendRetentionDays int `toml:"spend_retention_days" json:"spend_retention_days"`
}

// UIConfig configures terminal output.
type UIConfig struct {
	// Color is "auto", "always", or "never".
	Color string `toml:"color" json:"color"`
	// ShowCost prints per-request cost after each reply.
	ShowCost bool `toml:"show_cost" json:"show_cost"`
	// ShowTokens prints token counts after each reply.
	ShowTokens bool `toml:"show_tokens" json:"show_tokens"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version:       "1.0.0",
		DefaultSource: "local",

		Budget: BudgetConfig{
			ContextTokens:  8192,
			ResponseTokens: 1024,
		},

		Providers: ProvidersConfig{
			Ollama: OllamaConfig{
				URL:   "http://127.0.0.1:11434",
				Model: "qwen3:8b",
			},
			OpenRouter: VendorConfig{Model: "openrouter/auto"},
			OpenAI:     VendorConfig{Model: "gpt-4o-mini"},
			Groq:       VendorConfig{Model: "llama-3.3-70b-versatile"},
			DeepSeek:   VendorConfig{Model: "deepseek-chat"},
			XAI:        VendorConfig{Model: "grok-3-mini"},
			Mistral:    VendorConfig{Model: "mistral-small-latest"},
		},

		Sources: map[string]SourceConfig{
			"local":    {Vendor: "ollama"},
			"auto":     {Vendor: "openrouter", Model: "openrouter/auto"},
			"budget":   {Vendor: "openrouter", Model: "anthropic/claude-3.5-haiku"},
			"balanced": {Vendor: "openrouter", Model: "anthropic/claude-sonnet-4"},
			"frontier": {Vendor: "openrouter", Model: "anthropic/claude-opus-4"},
		},

		Prompt: PromptConfig{
			Separator:            "\n",
			PinExamplesFirst:     false,
			SquashSystemMessages: false,
		},

		Session: SessionConfig{
			TimeoutSecs:          1800,
			AutoSave:             true,
			AutoSaveIntervalSecs: 30,
		},

		Storage: StorageConfig{
			KeepChats:          0,
			SpendRetentionDays: 90,
		},

		UI: UIConfig{
			Color:      "auto",
			ShowCost:   true,
			ShowTokens: false,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the loom configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".loom"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions fixes permissions on config files. API keys live
// in the config, so anything other than 0600 is tightened.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}

	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s). TOML is tried first,
// then JSON, then built-in defaults. Environment overrides apply last, and
// the result is always clamped and validated.
func Load() (*Config, error) {
	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			return LoadFromPath(tomlPath)
		}
	}

	if jsonPath, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			return LoadFromPath(jsonPath)
		}
	}

	cfg := Default()
	return finalize(cfg)
}

// LoadFromPath loads configuration from a specific file path with full
// validation. Files ending in .json decode as JSON, everything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := &Config{}

	if strings.HasSuffix(path, ".json") {
		if err := loadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := loadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finalize(cfg)
}

// finalize applies env overrides, defaults, clamping, and validation.
func finalize(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	cfg.Clamp()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

func loadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# loom configuration file")
	fmt.Fprintln(file, "# Generated by loom - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// SaveJSON saves the configuration to a JSON file atomically.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// =============================================================================
// DEFAULTS AND CLAMPING
// =============================================================================

// SetDefaults fills zero-value fields from the built-in defaults.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.DefaultSource == "" {
		c.DefaultSource = defaults.DefaultSource
	}

	if c.Budget.ContextTokens == 0 {
		c.Budget.ContextTokens = defaults.Budget.ContextTokens
	}
	if c.Budget.ResponseTokens == 0 {
		c.Budget.ResponseTokens = defaults.Budget.ResponseTokens
	}

	if c.Providers.Ollama.URL == "" {
		c.Providers.Ollama.URL = defaults.Providers.Ollama.URL
	}
	if c.Providers.Ollama.Model == "" {
		c.Providers.Ollama.Model = defaults.Providers.Ollama.Model
	}
	if c.Providers.OpenRouter.Model == "" {
		c.Providers.OpenRouter.Model = defaults.Providers.OpenRouter.Model
	}
	if c.Providers.OpenAI.Model == "" {
		c.Providers.OpenAI.Model = defaults.Providers.OpenAI.Model
	}

	if c.Sources == nil {
		c.Sources = make(map[string]SourceConfig)
	}
	for tag, binding := range defaults.Sources {
		if _, ok := c.Sources[tag]; !ok {
			c.Sources[tag] = binding
		}
	}

	if c.Prompt.Separator == "" {
		c.Prompt.Separator = defaults.Prompt.Separator
	}

	if c.Session.TimeoutSecs == 0 {
		c.Session.TimeoutSecs = defaults.Session.TimeoutSecs
	}
	if c.Session.AutoSaveIntervalSecs == 0 {
		c.Session.AutoSaveIntervalSecs = defaults.Session.AutoSaveIntervalSecs
	}

	if c.Storage.SpendRetentionDays == 0 {
		c.Storage.SpendRetentionDays = defaults.Storage.SpendRetentionDays
	}

	if c.UI.Color == "" {
		c.UI.Color = defaults.UI.Color
	}
}

// Clamp forces numeric settings into their valid ranges. Out-of-range values
// are adjusted silently rather than rejected.
func (c *Config) Clamp() {
	c.Budget.ContextTokens = clampInt(c.Budget.ContextTokens, 512, 2_000_000)
	c.Budget.ResponseTokens = clampInt(c.Budget.ResponseTokens, 16, c.Budget.ContextTokens/2)

	c.Session.TimeoutSecs = clampInt(c.Session.TimeoutSecs, 60, 86400)
	c.Session.AutoSaveIntervalSecs = clampInt(c.Session.AutoSaveIntervalSecs, 5, 3600)

	if c.Storage.KeepChats < 0 {
		c.Storage.KeepChats = 0
	}
	c.Storage.SpendRetentionDays = clampInt(c.Storage.SpendRetentionDays, 1, 3650)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// knownVendors are the vendor names source bindings may reference.
var knownVendors = map[string]bool{
	"ollama": true, "openrouter": true, "openai": true,
	"groq": true, "deepseek": true, "xai": true, "mistral": true,
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if _, err := router.ParseSource(c.DefaultSource); err != nil {
		errs = append(errs, ValidationError{
			Field:   "default_source",
			Message: fmt.Sprintf("invalid source '%s', must be one of: local, auto, budget, balanced, frontier", c.DefaultSource),
		})
	}

	for tag, binding := range c.Sources {
		if _, err := router.ParseSource(tag); err != nil {
			errs = append(errs, ValidationError{
				Field:   "sources." + tag,
				Message: "unknown source tag",
			})
		}
		if !knownVendors[strings.ToLower(binding.Vendor)] {
			errs = append(errs, ValidationError{
				Field:   "sources." + tag + ".vendor",
				Message: fmt.Sprintf("unknown vendor '%s'", binding.Vendor),
			})
		}
	}

	if c.Providers.Ollama.URL != "" {
		if _, err := url.Parse(c.Providers.Ollama.URL); err != nil {
			errs = append(errs, ValidationError{
				Field:   "providers.ollama.url",
				Message: fmt.Sprintf("invalid URL: %v", err),
			})
		}
	}

	validColors := map[string]bool{"auto": true, "always": true, "never": true}
	if !validColors[strings.ToLower(c.UI.Color)] {
		errs = append(errs, ValidationError{
			Field:   "ui.color",
			Message: fmt.Sprintf("invalid value '%s', must be one of: auto, always, never", c.UI.Color),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies LOOM_* environment variable overrides.
//
// Supported variables:
//   - LOOM_SOURCE: overrides default_source
//   - LOOM_OLLAMA_URL, LOOM_OLLAMA_MODEL
//   - LOOM_OPENROUTER_KEY, LOOM_OPENAI_KEY, LOOM_GROQ_KEY,
//     LOOM_DEEPSEEK_KEY, LOOM_XAI_KEY, LOOM_MISTRAL_KEY
//   - LOOM_CONTEXT_TOKENS, LOOM_RESPONSE_TOKENS
//   - LOOM_DATA_DIR
//   - LOOM_COLOR (auto/always/never); NO_COLOR forces "never"
func (c *Config) ApplyEnvOverrides() {
	if src := os.Getenv("LOOM_SOURCE"); src != "" {
		c.DefaultSource = src
	}

	if ollamaURL := os.Getenv("LOOM_OLLAMA_URL"); ollamaURL != "" {
		c.Providers.Ollama.URL = ollamaURL
	}
	if model := os.Getenv("LOOM_OLLAMA_MODEL"); model != "" {
		c.Providers.Ollama.Model = model
	}

	for env, field := range map[string]*VendorConfig{
		"LOOM_OPENROUTER_KEY": &c.Providers.OpenRouter,
		"LOOM_OPENAI_KEY":     &c.Providers.OpenAI,
		"LOOM_GROQ_KEY":       &c.Providers.Groq,
		"LOOM_DEEPSEEK_KEY":   &c.Providers.DeepSeek,
		"LOOM_XAI_KEY":        &c.Providers.XAI,
		"LOOM_MISTRAL_KEY":    &c.Providers.Mistral,
	} {
		if key := os.Getenv(env); key != "" {
			field.APIKey = key
		}
	}

	if v := os.Getenv("LOOM_CONTEXT_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Budget.ContextTokens = n
		}
	}
	if v := os.Getenv("LOOM_RESPONSE_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Budget.ResponseTokens = n
		}
	}

	if dir := os.Getenv("LOOM_DATA_DIR"); dir != "" {
		c.Storage.DataDir = dir
	}

	if color := os.Getenv("LOOM_COLOR"); color != "" {
		c.UI.Color = color
	}
	if _, noColor := os.LookupEnv("NO_COLOR"); noColor {
		c.UI.Color = "never"
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation
// (e.g. "budget.context_tokens").
func (c *Config) Get(key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return nil, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})

		if !field.IsValid() {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			return field.Interface(), nil
		}

		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return nil, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return nil, fmt.Errorf("invalid key: %s", key)
}

// Set sets a configuration value using dot notation
// (e.g. "budget.context_tokens").
func (c *Config) Set(key string, value interface{}) error {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})

		if !field.IsValid() {
			return fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			if !field.CanSet() {
				return fmt.Errorf("cannot set field: %s", key)
			}
			return setFieldValue(field, value)
		}

		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go
// field equivalent. Acronym-cased fields (UI, RPS) match through EqualFold.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}

	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} with string
// conversion for the scalar kinds the config uses.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(strVal == "1" || lower == "true" || lower == "yes")
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}

	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all scalar configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"default_source",
		"budget.context_tokens",
		"budget.response_tokens",
		"providers.ollama.url",
		"providers.ollama.model",
		"providers.openrouter.api_key",
		"providers.openrouter.model",
		"providers.openrouter.base_url",
		"providers.openrouter.rps",
		"providers.openai.api_key",
		"providers.openai.model",
		"providers.openai.base_url",
		"providers.openai.rps",
		"providers.groq.api_key",
		"providers.groq.model",
		"providers.deepseek.api_key",
		"providers.deepseek.model",
		"providers.xai.api_key",
		"providers.xai.model",
		"providers.mistral.api_key",
		"providers.mistral.model",
		"prompt.separator",
		"prompt.pin_examples_first",
		"prompt.squash_system_messages",
		"prompt.preset_dir",
		"prompt.preset",
		"session.timeout_secs",
		"session.auto_save",
		"session.auto_save_interval_secs",
		"storage.data_dir",
		"storage.keep_chats",
		"storage.spend_retention_days",
		"ui.color",
		"ui.show_cost",
		"ui.show_tokens",
	}
}

// DataDir returns the effective data directory.
func (c *Config) DataDir() (string, error) {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir, nil
	}
	return ConfigDir()
}

// PresetDir returns the effective preset directory.
func (c *Config) PresetDir() (string, error) {
	if c.Prompt.PresetDir != "" {
		return c.Prompt.PresetDir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "presets"), nil
}

// Clone creates a deep copy of the configuration. The Sources map is copied
// so callers cannot mutate shared state through the clone.
func (c *Config) Clone() *Config {
	clone := *c

	if c.Sources != nil {
		clone.Sources = make(map[string]SourceConfig, len(c.Sources))
		for k, v := range c.Sources {
			clone.Sources[k] = v
		}
	}

	return &clone
}

// String returns a JSON representation for display, with API keys redacted
// so the output is safe to log.
func (c *Config) String() string {
	safe := c.Clone()

	for _, vendor := range []*VendorConfig{
		&safe.Providers.OpenRouter, &safe.Providers.OpenAI,
		&safe.Providers.Groq, &safe.Providers.DeepSeek,
		&safe.Providers.XAI, &safe.Providers.Mistral,
	} {
		if vendor.APIKey != "" {
			vendor.APIKey = "[REDACTED]"
		}
	}

	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance, loading it on first
// access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg, _ = finalize(Default())
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state between tests.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
