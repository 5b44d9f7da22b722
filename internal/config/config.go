// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/crmchat/internal/util"
)

// EnvPrefix is prepended to every environment override (CRMCHAT_BACKEND_BASE_URL, ...).
const EnvPrefix = "CRMCHAT_"

// DefaultWelcome is the assistant greeting shown when a conversation starts.
const DefaultWelcome = "👋 Hello! I'm your **Odoo 16 CRM Assistant**.\n\n" +
	"I can help you with:\n" +
	"- 📚 **CRM questions** — leads, pipeline, activities, teams\n" +
	"- 🔍 **Data queries** — search, create, and update Odoo records\n" +
	"- ⚙️ **Workflows** — lead qualification, follow-ups, onboarding\n\n" +
	"How can I help you today?"

// DefaultFallbackError is shown when the backend could not be reached at all.
const DefaultFallbackError = "Failed to get a response. Please try again."

// Session store kinds.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete crmchat configuration.
type Config struct {
	Backend BackendConfig `toml:"backend" json:"backend" yaml:"backend" envPrefix:"BACKEND_"`
	Session SessionConfig `toml:"session" json:"session" yaml:"session" envPrefix:"SESSION_"`
	UI      UIConfig      `toml:"ui" json:"ui" yaml:"ui" envPrefix:"UI_"`
	Log     LogConfig     `toml:"log" json:"log" yaml:"log" envPrefix:"LOG_"`
}

// BackendConfig describes where the chat endpoint lives.
type BackendConfig struct {
	// BaseURL is the scheme and host of the assistant service.
	BaseURL string `toml:"base_url" json:"base_url" yaml:"base_url" env:"BASE_URL"`
	// ChatPath is appended to BaseURL for every exchange.
	ChatPath string `toml:"chat_path" json:"chat_path" yaml:"chat_path" env:"CHAT_PATH"`
	// TimeoutSecs bounds a single exchange. 0 waits indefinitely.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs" yaml:"timeout_secs" env:"TIMEOUT_SECS"`
	// MaxResponseBytes caps how much of a response body is read.
	MaxResponseBytes int64 `toml:"max_response_bytes" json:"max_response_bytes" yaml:"max_response_bytes" env:"MAX_RESPONSE_BYTES"`
}

// SessionConfig selects where the session identifier is persisted.
type SessionConfig struct {
	// Store is one of "file", "sqlite" or "memory".
	Store string `toml:"store" json:"store" yaml:"store" env:"STORE"`
	// Path is the backing file for the file and sqlite stores.
	// Empty means a store-specific file under ~/.crmchat.
	Path string `toml:"path" json:"path" yaml:"path" env:"PATH"`
	// Key is the storage key the identifier is kept under.
	Key string `toml:"key" json:"key" yaml:"key" env:"KEY"`
}

// UIConfig contains front-end settings.
type UIConfig struct {
	Theme         string `toml:"theme" json:"theme" yaml:"theme" env:"THEME"`
	Welcome       string `toml:"welcome" json:"welcome" yaml:"welcome" env:"WELCOME"`
	WordWrap      int    `toml:"word_wrap" json:"word_wrap" yaml:"word_wrap" env:"WORD_WRAP"`
	ConfirmClear  bool   `toml:"confirm_clear" json:"confirm_clear" yaml:"confirm_clear" env:"CONFIRM_CLEAR"`
	FallbackError string `toml:"fallback_error" json:"fallback_error" yaml:"fallback_error" env:"FALLBACK_ERROR"`
	MaxInputLines int    `toml:"max_input_lines" json:"max_input_lines" yaml:"max_input_lines" env:"MAX_INPUT_LINES"`
	// Transcript, when set, receives an HTML rendering of the conversation on exit.
	Transcript string `toml:"transcript" json:"transcript" yaml:"transcript" env:"TRANSCRIPT"`
	// TrustedHTML keeps raw HTML in assistant replies instead of sanitizing it.
	TrustedHTML bool `toml:"trusted_html" json:"trusted_html" yaml:"trusted_html" env:"TRUSTED_HTML"`
}

// LogConfig controls the zerolog output.
type LogConfig struct {
	Level string `toml:"level" json:"level" yaml:"level" env:"LEVEL"`
	// File is the log destination. "-" writes to stderr.
	File   string `toml:"file" json:"file" yaml:"file" env:"FILE"`
	Format string `toml:"format" json:"format" yaml:"format" env:"FORMAT"`
}

// Endpoint joins BaseURL and ChatPath.
func (b BackendConfig) Endpoint() string {
	return strings.TrimRight(b.BaseURL, "/") + b.ChatPath
}

// Timeout is the per-exchange deadline. Zero means none.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSecs) * time.Second
}

// Default returns a new Config with default values.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:          "http://localhost:8000",
			ChatPath:         "/chat",
			TimeoutSecs:      0,
			MaxResponseBytes: 10 * 1024 * 1024,
		},
		Session: SessionConfig{
			Store: StoreFile,
			Key:   "crm_session_id",
		},
		UI: UIConfig{
			Theme:         "auto",
			Welcome:       DefaultWelcome,
			WordWrap:      80,
			ConfirmClear:  true,
			FallbackError: DefaultFallbackError,
			MaxInputLines: 6,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the crmchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".crmchat"), nil
}

func configPath(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) { return configPath("config.toml") }

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) { return configPath("config.json") }

// ConfigPathYAML returns the path to the YAML config file.
func ConfigPathYAML() (string, error) { return configPath("config.yaml") }

// DefaultLogPath returns ~/.crmchat/crmchat.log.
func DefaultLogPath() (string, error) { return configPath("crmchat.log") }

// DefaultStorePath returns the default backing file for a session store kind.
func DefaultStorePath(store string) (string, error) {
	switch store {
	case StoreSQLite:
		return configPath("session.db")
	default:
		return configPath("session.json")
	}
}

// ensureSecurePermissions tightens config files to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from path, or from the first of
// ~/.crmchat/config.toml, config.json, config.yaml that exists when path is
// empty. Environment overrides are applied after the file, then defaults are
// filled and the result is validated.
func Load(path string) (*Config, error) {
	if path != "" {
		return LoadFromPath(path)
	}

	cfg := Default()
	for _, candidate := range []func() (string, error){ConfigPathTOML, ConfigPathJSON, ConfigPathYAML} {
		p, err := candidate()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(p); statErr != nil {
			continue
		}
		if err := loadFile(cfg, p); err != nil {
			return nil, err
		}
		break
	}
	return finish(cfg)
}

// LoadFromPath loads configuration from a specific file with full validation.
// The format is chosen by extension; anything unrecognised is read as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := loadFile(cfg, path); err != nil {
		return nil, err
	}
	return finish(cfg)
}

func loadFile(cfg *Config, path string) error {
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = LoadJSON(cfg, path)
	case ".yaml", ".yml":
		err = LoadYAML(cfg, path)
	default:
		err = LoadTOML(cfg, path)
	}
	if err != nil {
		return fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return nil
}

func finish(cfg *Config) (*Config, error) {
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func readSecure(path string) ([]byte, error) {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	data, err := readSecure(path)
	if err != nil {
		return err
	}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := readSecure(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadYAML decodes a YAML file over cfg.
func LoadYAML(cfg *Config, path string) error {
	data, err := readSecure(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode YAML file: %w", err)
	}
	return nil
}

// ApplyEnvOverrides applies CRMCHAT_* environment variables on top of the
// loaded values. Unset variables leave fields untouched.
func (c *Config) ApplyEnvOverrides() error {
	return env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix})
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

// SaveTOML writes cfg as TOML with a header comment.
// SECURITY: Config files are written 0600.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# crmchat configuration file")
	fmt.Fprintln(&buf, "# Environment variables prefixed with "+EnvPrefix+" override these values.")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
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
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	u, err := url.Parse(c.Backend.BaseURL)
	switch {
	case err != nil:
		errs = append(errs, ValidationError{"backend.base_url", fmt.Sprintf("invalid URL: %v", err)})
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, ValidationError{"backend.base_url", fmt.Sprintf("unsupported scheme '%s', must be http or https", u.Scheme)})
	case u.Host == "":
		errs = append(errs, ValidationError{"backend.base_url", "missing host"})
	}

	if !strings.HasPrefix(c.Backend.ChatPath, "/") {
		errs = append(errs, ValidationError{"backend.chat_path", "must start with '/'"})
	}
	if c.Backend.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{"backend.timeout_secs", "cannot be negative"})
	}
	if c.Backend.MaxResponseBytes <= 0 {
		errs = append(errs, ValidationError{"backend.max_response_bytes", "must be positive"})
	}

	switch c.Session.Store {
	case StoreFile, StoreSQLite, StoreMemory:
	default:
		errs = append(errs, ValidationError{"session.store", fmt.Sprintf("invalid store '%s', must be one of: file, sqlite, memory", c.Session.Store)})
	}
	if strings.TrimSpace(c.Session.Key) == "" {
		errs = append(errs, ValidationError{"session.key", "cannot be empty"})
	}

	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		errs = append(errs, ValidationError{"ui.theme", fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme)})
	}
	if c.UI.WordWrap < 20 {
		errs = append(errs, ValidationError{"ui.word_wrap", "must be at least 20"})
	}
	if c.UI.MaxInputLines < 1 || c.UI.MaxInputLines > 40 {
		errs = append(errs, ValidationError{"ui.max_input_lines", "must be between 1 and 40"})
	}

	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		errs = append(errs, ValidationError{"log.level", fmt.Sprintf("invalid level '%s'", c.Log.Level)})
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, ValidationError{"log.format", fmt.Sprintf("invalid format '%s', must be json or console", c.Log.Format)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills zero-value fields from Default.
// Booleans are left alone; a file that says false means false.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = d.Backend.BaseURL
	}
	if c.Backend.ChatPath == "" {
		c.Backend.ChatPath = d.Backend.ChatPath
	}
	if c.Backend.MaxResponseBytes == 0 {
		c.Backend.MaxResponseBytes = d.Backend.MaxResponseBytes
	}

	if c.Session.Store == "" {
		c.Session.Store = d.Session.Store
	}
	c.Session.Store = strings.ToLower(c.Session.Store)
	if c.Session.Key == "" {
		c.Session.Key = d.Session.Key
	}
	if c.Session.Path == "" && c.Session.Store != StoreMemory {
		if p, err := DefaultStorePath(c.Session.Store); err == nil {
			c.Session.Path = p
		}
	}

	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	c.UI.Theme = strings.ToLower(c.UI.Theme)
	if c.UI.Welcome == "" {
		c.UI.Welcome = d.UI.Welcome
	}
	if c.UI.WordWrap == 0 {
		c.UI.WordWrap = d.UI.WordWrap
	}
	if c.UI.FallbackError == "" {
		c.UI.FallbackError = d.UI.FallbackError
	}
	if c.UI.MaxInputLines == 0 {
		c.UI.MaxInputLines = d.UI.MaxInputLines
	}

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Log.File == "" {
		if p, err := DefaultLogPath(); err == nil {
			c.Log.File = p
		}
	}
}

// =============================================================================
// GET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "backend.base_url").
func (c *Config) Get(key string) (interface{}, error) {
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

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
		if field.Kind() != reflect.Struct {
			return nil, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return nil, fmt.Errorf("invalid key: %s", key)
}

// Set assigns a string value using dot notation, converting to the field type.
func (c *Config) Set(key, value string) error {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return fmt.Errorf("key must be section.field, got %q", key)
	}

	section := reflect.ValueOf(c).Elem().FieldByNameFunc(func(name string) bool {
		return strings.EqualFold(name, normalizeFieldName(parts[0]))
	})
	if !section.IsValid() || section.Kind() != reflect.Struct {
		return fmt.Errorf("unknown section: %s", parts[0])
	}
	field := section.FieldByNameFunc(func(name string) bool {
		return strings.EqualFold(name, normalizeFieldName(parts[1]))
	})
	if !field.IsValid() || !field.CanSet() {
		return fmt.Errorf("unknown field: %s", key)
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value: %v", err)
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value: %v", err)
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("cannot set %s of kind %s", key, field.Kind())
	}
	return nil
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
// Lookups compare case-insensitively, so base_url still finds BaseURL.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(part[:1]))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// Keys returns every configuration key in dot notation.
func Keys() []string {
	return []string{
		"backend.base_url",
		"backend.chat_path",
		"backend.timeout_secs",
		"backend.max_response_bytes",
		"session.store",
		"session.path",
		"session.key",
		"ui.theme",
		"ui.welcome",
		"ui.word_wrap",
		"ui.confirm_clear",
		"ui.fallback_error",
		"ui.max_input_lines",
		"ui.transcript",
		"ui.trusted_html",
		"log.level",
		"log.file",
		"log.format",
	}
}

// String renders the configuration as TOML for display.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return buf.String()
}
