// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for peeksy.
//
// Configuration file locations (in order of precedence):
//   - <config dir>/peeksy/config.toml
//   - <config dir>/peeksy/peeksy_config.json (flat legacy layout accepted)
//   - Built-in defaults
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

	"github.com/BurntSushi/toml"

	"github.com/anubhavitis/peeksy/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete peeksy configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	OpenAI OpenAIConfig `toml:"openai" json:"openai"`
	Auth   AuthConfig   `toml:"auth" json:"auth"`
	Daemon DaemonConfig `toml:"daemon" json:"daemon"`
	Log    LogConfig    `toml:"log" json:"log"`
	UI     UIConfig     `toml:"ui" json:"ui"`
}

// OpenAIConfig holds the settings the renamer needs to call the model.
type OpenAIConfig struct {
	APIKey         string `toml:"api_key" json:"api_key"`
	PromptFilePath string `toml:"prompt_file_path" json:"prompt_file_path"`
	Model          string `toml:"model" json:"model"`
	// BaseURL is only overridden for proxies and tests.
	BaseURL string `toml:"base_url" json:"base_url"`
}

// AuthConfig points at the hosted auth provider.
type AuthConfig struct {
	URL     string `toml:"url" json:"url"`
	AnonKey string `toml:"anon_key" json:"anon_key"`
	// SessionFile is where the signed-in session is persisted (encrypted).
	SessionFile string `toml:"session_file" json:"session_file"`
}

// DaemonConfig controls the screenshot watcher.
type DaemonConfig struct {
	// ScreenshotDir overrides the directory reported by macOS.
	ScreenshotDir string `toml:"screenshot_dir" json:"screenshot_dir"`
	// MaxAgeSecs is how old a new screenshot may be and still get renamed.
	MaxAgeSecs int `toml:"max_age_secs" json:"max_age_secs"`
	// RequestsPerMinute caps model calls (0 = unlimited).
	RequestsPerMinute int `toml:"requests_per_minute" json:"requests_per_minute"`
	// Concurrency is the number of parallel renames for batch commands.
	Concurrency int `toml:"concurrency" json:"concurrency"`
}

// LogConfig controls the file and console loggers.
type LogConfig struct {
	Level string `toml:"level" json:"level"`
	Dir   string `toml:"dir" json:"dir"`
}

// UIConfig holds terminal UI preferences.
type UIConfig struct {
	Theme string `toml:"theme" json:"theme"`
}

// legacyFile is the flat layout written by earlier peeksy releases.
type legacyFile struct {
	OpenAIAPIKey         *string `json:"openai_api_key"`
	OpenAIPromptFilePath *string `json:"openai_prompt_file_path"`
	OpenAIModel          *string `json:"openai_model"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	// DefaultModel is the model used when none is configured.
	DefaultModel = "gpt-4o"

	// DefaultMaxAgeSecs matches the window macOS needs to finish writing a capture.
	DefaultMaxAgeSecs = 60

	configVersion = "1"
)

// Default returns a new Config with default values.
func Default() *Config {
	return &Config{
		Version: configVersion,
		OpenAI: OpenAIConfig{
			Model: DefaultModel,
		},
		Daemon: DaemonConfig{
			MaxAgeSecs:        DefaultMaxAgeSecs,
			RequestsPerMinute: 20,
			Concurrency:       4,
		},
		Log: LogConfig{
			Level: "info",
		},
		UI: UIConfig{
			Theme: "auto",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the peeksy configuration directory. PEEKSY_HOME overrides
// the platform default (~/Library/Application Support/peeksy on macOS).
func ConfigDir() (string, error) {
	if dir := os.Getenv("PEEKSY_HOME"); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not determine config directory: %w", err)
	}
	return filepath.Join(base, "peeksy"), nil
}

func pathInConfigDir(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) { return pathInConfigDir("config.toml") }

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) { return pathInConfigDir("peeksy_config.json") }

// DefaultPromptPath returns where the default prompt file lives.
func DefaultPromptPath() (string, error) { return pathInConfigDir("prompt.txt") }

// PIDPath returns the daemon pid file path.
func PIDPath() (string, error) { return pathInConfigDir("peeksy.pid") }

// HistoryPath returns the rename history database path.
func HistoryPath() (string, error) { return pathInConfigDir("history.db") }

// SessionKeyPath returns the file holding the session encryption key.
func SessionKeyPath() (string, error) { return pathInConfigDir("session.key") }

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// LogDir returns the configured log directory, defaulting to the config dir.
func (c *Config) LogDir() (string, error) {
	if c.Log.Dir != "" {
		return c.Log.Dir, nil
	}
	return ConfigDir()
}

// SessionPath returns the configured session file path.
func (c *Config) SessionPath() (string, error) {
	if c.Auth.SessionFile != "" {
		return c.Auth.SessionFile, nil
	}
	return pathInConfigDir("session.json")
}

// ensureSecurePermissions tightens config files to 0600; they hold API keys.
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

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	return load(true)
}

// LoadForEdit is Load without environment overrides, for commands that
// save the result back to disk.
func LoadForEdit() (*Config, error) {
	return load(false)
}

func load(withEnv bool) (*Config, error) {
	cfg := Default()
	var loadErr error

	loaded := false
	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
				cfg = Default()
			} else {
				loaded = true
			}
		}
	}

	if !loaded {
		if jsonPath, err := ConfigPathJSON(); err == nil {
			if _, statErr := os.Stat(jsonPath); statErr == nil {
				if err := LoadJSON(cfg, jsonPath); err != nil {
					loadErr = errors.Join(loadErr, fmt.Errorf("failed to load JSON config: %w", err))
					cfg = Default()
				}
			}
		}
	}

	if err := cfg.finish(withEnv); err != nil {
		return nil, err
	}
	return cfg, loadErr
}

func (c *Config) finish(withEnv bool) error {
	if withEnv {
		c.ApplyEnvOverrides()
	}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file. Both the nested layout and
// the flat openai_* layout are understood; flat keys win when both exist.
func LoadJSON(cfg *Config, path string) error {
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

	var legacy legacyFile
	if err := json.Unmarshal(data, &legacy); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	if legacy.OpenAIAPIKey != nil {
		cfg.OpenAI.APIKey = *legacy.OpenAIAPIKey
	}
	if legacy.OpenAIPromptFilePath != nil {
		cfg.OpenAI.PromptFilePath = *legacy.OpenAIPromptFilePath
	}
	if legacy.OpenAIModel != nil {
		cfg.OpenAI.Model = *legacy.OpenAIModel
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
	var buf strings.Builder
	buf.WriteString("# peeksy configuration file\n")
	buf.WriteString("# Edit with `peeksy edit-config` or `peeksy config set <key> <value>`\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
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
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}

	if c.Daemon.MaxAgeSecs <= 0 {
		errs = append(errs, ValidationError{Field: "daemon.max_age_secs", Message: "must be positive"})
	}
	if c.Daemon.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{Field: "daemon.requests_per_minute", Message: "cannot be negative"})
	}
	if c.Daemon.Concurrency < 1 || c.Daemon.Concurrency > 32 {
		errs = append(errs, ValidationError{Field: "daemon.concurrency", Message: "must be between 1 and 32"})
	}

	for field, raw := range map[string]string{"auth.url": c.Auth.URL, "openai.base_url": c.OpenAI.BaseURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("invalid URL '%s'", raw)})
		}
	}

	switch strings.ToLower(c.UI.Theme) {
	case "auto", "dark", "light":
	default:
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills zero values with defaults. The prompt file path falls
// back to the file written by Setup.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = d.OpenAI.Model
	}
	if c.OpenAI.PromptFilePath == "" {
		if p, err := DefaultPromptPath(); err == nil {
			c.OpenAI.PromptFilePath = p
		}
	}
	if c.Daemon.MaxAgeSecs == 0 {
		c.Daemon.MaxAgeSecs = d.Daemon.MaxAgeSecs
	}
	if c.Daemon.Concurrency == 0 {
		c.Daemon.Concurrency = d.Daemon.Concurrency
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
}

// ErrNotReady is returned by Ready when a required OpenAI setting is missing.
var ErrNotReady = errors.New("peeksy is not configured")

// Ready reports whether everything the renamer needs is set, naming the
// first missing setting.
func (c *Config) Ready() error {
	switch {
	case strings.TrimSpace(c.OpenAI.APIKey) == "":
		return fmt.Errorf("%w: OpenAI API key is not set", ErrNotReady)
	case strings.TrimSpace(c.OpenAI.PromptFilePath) == "":
		return fmt.Errorf("%w: OpenAI prompt file path is not set", ErrNotReady)
	case strings.TrimSpace(c.OpenAI.Model) == "":
		return fmt.Errorf("%w: OpenAI model is not set", ErrNotReady)
	}
	return nil
}

// AuthConfigured reports whether the auth provider endpoint and key are set.
func (c *Config) AuthConfigured() bool {
	return c.Auth.URL != "" && c.Auth.AnonKey != ""
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - PEEKSY_OPENAI_API_KEY (falls back to OPENAI_API_KEY)
//   - PEEKSY_OPENAI_MODEL
//   - PEEKSY_PROMPT_FILE
//   - PEEKSY_SUPABASE_URL (falls back to VITE_SUPABASE_URL)
//   - PEEKSY_SUPABASE_ANON_KEY (falls back to VITE_SUPABASE_ANON_KEY)
//   - PEEKSY_SCREENSHOT_DIR
//   - PEEKSY_LOG_LEVEL
func (c *Config) ApplyEnvOverrides() {
	if key := firstEnv("PEEKSY_OPENAI_API_KEY", "OPENAI_API_KEY"); key != "" {
		c.OpenAI.APIKey = key
	}
	if model := os.Getenv("PEEKSY_OPENAI_MODEL"); model != "" {
		c.OpenAI.Model = model
	}
	if prompt := os.Getenv("PEEKSY_PROMPT_FILE"); prompt != "" {
		c.OpenAI.PromptFilePath = prompt
	}
	if u := firstEnv("PEEKSY_SUPABASE_URL", "VITE_SUPABASE_URL"); u != "" {
		c.Auth.URL = u
	}
	if key := firstEnv("PEEKSY_SUPABASE_ANON_KEY", "VITE_SUPABASE_ANON_KEY"); key != "" {
		c.Auth.AnonKey = key
	}
	if dir := os.Getenv("PEEKSY_SCREENSHOT_DIR"); dir != "" {
		c.Daemon.ScreenshotDir = dir
	}
	if level := os.Getenv("PEEKSY_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "openai.model").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "openai.model").
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("field '%s' is a section, not a value", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})
	var result strings.Builder
	for _, part := range parts {
		result.WriteString(strings.ToUpper(part[:1]))
		result.WriteString(strings.ToLower(part[1:]))
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
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
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
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

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"openai.api_key",
		"openai.prompt_file_path",
		"openai.model",
		"openai.base_url",
		"auth.url",
		"auth.anon_key",
		"auth.session_file",
		"daemon.screenshot_dir",
		"daemon.max_age_secs",
		"daemon.requests_per_minute",
		"daemon.concurrency",
		"log.level",
		"log.dir",
		"ui.theme",
	}
}

// IsSecretKey reports whether a key holds a credential that should be masked
// when displayed.
func IsSecretKey(key string) bool {
	switch key {
	case "openai.api_key", "auth.anon_key":
		return true
	}
	return false
}
