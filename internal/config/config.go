// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for multichat.
//
// Configuration lives in TOML with sensible defaults, environment variable
// overrides, and validation.
//
// Configuration file location:
//   - ~/.multichat/config.toml
//   - Built-in defaults
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete multichat configuration.
type Config struct {
	// Provider selects the chat backend and credentials.
	Provider ProviderConfig `toml:"provider"`

	// Prompt controls prompt assembly.
	Prompt PromptConfig `toml:"prompt"`

	// Attachments controls file ingestion limits.
	Attachments AttachmentConfig `toml:"attachments"`

	// Storage controls on-disk persistence locations.
	Storage StorageConfig `toml:"storage"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// ProviderConfig contains chat provider configuration.
type ProviderConfig struct {
	// Kind is the provider family: "gemini" or "openai".
	// Empty means the user must pick one at startup.
	Kind string `toml:"kind"`
	// Model is the model identifier sent with every request.
	Model string `toml:"model"`
	// APIKey is the provider API key.
	APIKey string `toml:"api_key"`
	// BaseURL overrides the provider's default endpoint (empty = default).
	BaseURL string `toml:"base_url"`
}

// PromptConfig contains prompt assembly configuration.
type PromptConfig struct {
	// CustomInstruction is prepended to prompts in normal mode when enabled.
	CustomInstruction string `toml:"custom_instruction"`
	// CustomEnabled gates CustomInstruction without clearing the text.
	CustomEnabled bool `toml:"custom_enabled"`
	// HistoryWindow is how many recent messages are replayed as context.
	HistoryWindow int `toml:"history_window"`
}

// AttachmentConfig contains file ingestion configuration.
type AttachmentConfig struct {
	// MaxFileSizeMB is the per-file ceiling in megabytes.
	MaxFileSizeMB int `toml:"max_file_size_mb"`
}

// StorageConfig contains persistence locations.
type StorageConfig struct {
	// ConversationPath is the conversation database file
	// (empty = ~/.multichat/conversation.db).
	ConversationPath string `toml:"conversation_path"`
	// TranscriptDir is where /savecon writes by default
	// (empty = ~/.multichat/transcripts).
	TranscriptDir string `toml:"transcript_dir"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme"`
	// CompactMode uses a more compact UI layout
	CompactMode bool `toml:"compact_mode"`
	// ShowTimestamps displays message timestamps in the transcript view
	ShowTimestamps bool `toml:"show_timestamps"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Kind:  "",
			Model: "",
		},
		Prompt: PromptConfig{
			HistoryWindow: 6,
		},
		Attachments: AttachmentConfig{
			MaxFileSizeMB: 10,
		},
		UI: UIConfig{
			Theme:          "dark",
			ShowTimestamps: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// Dir returns the multichat configuration directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".multichat"), nil
}

// Path returns the path to the TOML config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureDir ensures the config directory exists.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// Config files hold API keys and should be owner read/write only.
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

// Load loads configuration from the default config file, falling back to
// defaults when no file exists. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		cfg.SetDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with owner-only
// permissions.
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

	fmt.Fprintln(file, "# multichat configuration file")
	fmt.Fprintln(file, "# Generated by multichat - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
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

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	validKinds := map[string]bool{"": true, "gemini": true, "openai": true}
	if !validKinds[strings.ToLower(c.Provider.Kind)] {
		errs = append(errs, ValidationError{
			Field:   "provider.kind",
			Message: fmt.Sprintf("invalid kind '%s', must be one of: gemini, openai", c.Provider.Kind),
		})
	}

	if c.Provider.BaseURL != "" {
		u, err := url.Parse(c.Provider.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "provider.base_url",
				Message: fmt.Sprintf("invalid URL '%s'", c.Provider.BaseURL),
			})
		}
	}

	if c.Prompt.HistoryWindow < 0 {
		errs = append(errs, ValidationError{
			Field:   "prompt.history_window",
			Message: "must be non-negative",
		})
	}

	if c.Attachments.MaxFileSizeMB < 1 || c.Attachments.MaxFileSizeMB > 100 {
		errs = append(errs, ValidationError{
			Field:   "attachments.max_file_size_mb",
			Message: fmt.Sprintf("must be 1-100, got %d", c.Attachments.MaxFileSizeMB),
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Prompt.HistoryWindow == 0 {
		c.Prompt.HistoryWindow = defaults.Prompt.HistoryWindow
	}
	if c.Attachments.MaxFileSizeMB == 0 {
		c.Attachments.MaxFileSizeMB = defaults.Attachments.MaxFileSizeMB
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}

	if dir, err := Dir(); err == nil {
		if c.Storage.ConversationPath == "" {
			c.Storage.ConversationPath = filepath.Join(dir, "conversation.db")
		}
		if c.Storage.TranscriptDir == "" {
			c.Storage.TranscriptDir = filepath.Join(dir, "transcripts")
		}
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - MULTICHAT_PROVIDER: overrides provider.kind
//   - MULTICHAT_MODEL: overrides provider.model
//   - MULTICHAT_API_KEY: overrides provider.api_key
//   - MULTICHAT_BASE_URL: overrides provider.base_url
//   - MULTICHAT_THEME: overrides ui.theme
//   - GEMINI_API_KEY / OPENAI_API_KEY: provider.api_key fallback for the
//     matching kind when no explicit key is set
func (c *Config) ApplyEnvOverrides() {
	if kind := os.Getenv("MULTICHAT_PROVIDER"); kind != "" {
		c.Provider.Kind = strings.ToLower(kind)
	}
	if model := os.Getenv("MULTICHAT_MODEL"); model != "" {
		c.Provider.Model = model
	}
	if key := os.Getenv("MULTICHAT_API_KEY"); key != "" {
		c.Provider.APIKey = key
	}
	if base := os.Getenv("MULTICHAT_BASE_URL"); base != "" {
		c.Provider.BaseURL = base
	}
	if theme := os.Getenv("MULTICHAT_THEME"); theme != "" {
		c.UI.Theme = strings.ToLower(theme)
	}

	if c.Provider.APIKey == "" {
		switch strings.ToLower(c.Provider.Kind) {
		case "gemini":
			c.Provider.APIKey = os.Getenv("GEMINI_API_KEY")
		case "openai":
			c.Provider.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a string representation of the config for debugging.
// The API key is redacted so it never lands in logs or error output.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Provider.APIKey != "" {
		safe.Provider.APIKey = "[REDACTED]"
	}
	var sb strings.Builder
	encoder := toml.NewEncoder(&sb)
	if err := encoder.Encode(safe); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return sb.String()
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
			cfg.SetDefaults()
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
