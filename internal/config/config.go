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

	"github.com/jeranaias/aichat-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete aichat configuration.
type Config struct {
	API     APIConfig     `toml:"api" json:"api"`
	Network NetworkConfig `toml:"network" json:"network"`
	UI      UIConfig      `toml:"ui" json:"ui"`
	Log     LogConfig     `toml:"log" json:"log"`
}

// APIConfig holds the OpenAI-compatible endpoint settings.
type APIConfig struct {
	// BaseURL is the API root, e.g. https://api.openai.com/v1.
	BaseURL string `toml:"base_url" json:"base_url"`

	// APIKey is sent as a bearer token. Never logged.
	APIKey string `toml:"api_key" json:"api_key"`

	// Model is the selected model id. Empty until a model list was fetched.
	Model string `toml:"model" json:"model"`
}

// NetworkConfig holds request deadlines.
type NetworkConfig struct {
	ListTimeoutSecs   int `toml:"list_timeout_secs" json:"list_timeout_secs"`
	StreamTimeoutSecs int `toml:"stream_timeout_secs" json:"stream_timeout_secs"`
}

// UIConfig holds panel settings.
type UIConfig struct {
	// PumpIntervalMs is how often the panel drains pending stream events.
	PumpIntervalMs int `toml:"pump_interval_ms" json:"pump_interval_ms"`

	// Theme is "auto", "dark" or "light".
	Theme string `toml:"theme" json:"theme"`
}

// LogConfig holds log file settings.
type LogConfig struct {
	Level string `toml:"level" json:"level"`

	// Path overrides ~/.aichat/aichat.log.
	Path string `toml:"path" json:"path"`
}

// Default values.
const (
	DefaultBaseURL           = "https://api.openai.com/v1"
	DefaultListTimeoutSecs   = 15
	DefaultStreamTimeoutSecs = 60
	DefaultPumpIntervalMs    = 100
	DefaultTheme             = "auto"
	DefaultLogLevel          = "info"
)

// Default returns a new Config with default values.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: DefaultBaseURL,
		},
		Network: NetworkConfig{
			ListTimeoutSecs:   DefaultListTimeoutSecs,
			StreamTimeoutSecs: DefaultStreamTimeoutSecs,
		},
		UI: UIConfig{
			PumpIntervalMs: DefaultPumpIntervalMs,
			Theme:          DefaultTheme,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// ListTimeout returns the model-list deadline.
func (c *Config) ListTimeout() time.Duration {
	return time.Duration(c.Network.ListTimeoutSecs) * time.Second
}

// StreamTimeout returns the chat-stream deadline.
func (c *Config) StreamTimeout() time.Duration {
	return time.Duration(c.Network.StreamTimeoutSecs) * time.Second
}

// PumpInterval returns the panel's event drain period.
func (c *Config) PumpInterval() time.Duration {
	return time.Duration(c.UI.PumpIntervalMs) * time.Millisecond
}

// Missing returns the keys that must be set before a request can be sent.
func (c *Config) Missing() []string {
	var missing []string
	if strings.TrimSpace(c.API.BaseURL) == "" {
		missing = append(missing, "api.base_url")
	}
	if strings.TrimSpace(c.API.APIKey) == "" {
		missing = append(missing, "api.api_key")
	}
	return missing
}

// IsComplete returns true if the base URL and API key are both set.
func (c *Config) IsComplete() bool {
	return len(c.Missing()) == 0
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the aichat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".aichat"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ensureSecurePermissions tightens a config file holding an API key to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0o600 {
		if err := os.Chmod(path, 0o600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads the configuration from the default path.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from path. A missing file yields the
// defaults. Environment overrides are applied last.
func LoadFromPath(path string) (*Config, error) {
	cfg, err := LoadStored(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes the TOML file at path into cfg. Keys absent from the file
// keep their current values.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default path.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to path with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# aichat configuration file")
	fmt.Fprintln(&buf, "# Generated by aichat - edit with care")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// EncodeTOML renders cfg as TOML with the API key redacted.
func EncodeTOML(cfg *Config) (string, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg.Redacted()); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.String(), nil
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
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks value ranges. An empty base URL or key is not an error
// here; see Missing.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		switch {
		case err != nil:
			errs = append(errs, ValidationError{"api.base_url", fmt.Sprintf("invalid URL: %v", err)})
		case u.Scheme != "http" && u.Scheme != "https":
			errs = append(errs, ValidationError{"api.base_url", "scheme must be http or https"})
		case u.Host == "":
			errs = append(errs, ValidationError{"api.base_url", "missing host"})
		}
	}
	if strings.ContainsAny(c.API.APIKey, "\r\n") {
		errs = append(errs, ValidationError{"api.api_key", "must be a single line"})
	}

	if c.Network.ListTimeoutSecs < 1 || c.Network.ListTimeoutSecs > 600 {
		errs = append(errs, ValidationError{"network.list_timeout_secs", "must be between 1 and 600"})
	}
	if c.Network.StreamTimeoutSecs < 1 || c.Network.StreamTimeoutSecs > 3600 {
		errs = append(errs, ValidationError{"network.stream_timeout_secs", "must be between 1 and 3600"})
	}

	if c.UI.PumpIntervalMs < 10 || c.UI.PumpIntervalMs > 1000 {
		errs = append(errs, ValidationError{"ui.pump_interval_ms", "must be between 10 and 1000"})
	}
	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		errs = append(errs, ValidationError{"ui.theme", fmt.Sprintf("unknown theme %q (auto, dark, light)", c.UI.Theme)})
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{"log.level", fmt.Sprintf("unknown level %q (debug, info, warn, error)", c.Log.Level)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Network.ListTimeoutSecs == 0 {
		c.Network.ListTimeoutSecs = d.Network.ListTimeoutSecs
	}
	if c.Network.StreamTimeoutSecs == 0 {
		c.Network.StreamTimeoutSecs = d.Network.StreamTimeoutSecs
	}
	if c.UI.PumpIntervalMs == 0 {
		c.UI.PumpIntervalMs = d.UI.PumpIntervalMs
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	c.API.BaseURL = strings.TrimSpace(c.API.BaseURL)
	c.API.APIKey = strings.TrimSpace(c.API.APIKey)
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// envOverrides maps environment variables to the fields they override.
var envOverrides = []struct {
	name  string
	field func(*Config) *string
}{
	{"AICHAT_API_URL", func(c *Config) *string { return &c.API.BaseURL }},
	{"AICHAT_API_KEY", func(c *Config) *string { return &c.API.APIKey }},
	{"AICHAT_MODEL", func(c *Config) *string { return &c.API.Model }},
	{"AICHAT_LOG_LEVEL", func(c *Config) *string { return &c.Log.Level }},
}

// ApplyEnvOverrides applies environment variable overrides:
//   - AICHAT_API_URL: overrides api.base_url
//   - AICHAT_API_KEY: overrides api.api_key
//   - AICHAT_MODEL: overrides api.model
//   - AICHAT_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	for _, o := range envOverrides {
		if v := os.Getenv(o.name); v != "" {
			*o.field(c) = v
		}
	}
}

// WithoutEnvOverrides returns a copy of c fit for writing to disk. Fields
// that still hold their environment override take the value from stored
// instead, so overrides such as AICHAT_API_KEY never reach the file.
func (c *Config) WithoutEnvOverrides(stored *Config) *Config {
	out := c.Clone()
	if stored == nil {
		stored = Default()
	}
	for _, o := range envOverrides {
		v := os.Getenv(o.name)
		if v != "" && *o.field(out) == v {
			*o.field(out) = *o.field(stored)
		}
	}
	return out
}

// LoadStored loads the file at path without environment overrides. A
// missing file yields the defaults.
func LoadStored(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}
	return cfg, nil
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Keys returns every configuration key in dot notation.
func Keys() []string {
	return []string{
		"api.base_url",
		"api.api_key",
		"api.model",
		"network.list_timeout_secs",
		"network.stream_timeout_secs",
		"ui.pump_interval_ms",
		"ui.theme",
		"log.level",
		"log.path",
	}
}

// Get retrieves a configuration value using dot notation (e.g. "api.model").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
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

// normalizeFieldName converts a snake_case or kebab-case name to its Go field
// equivalent ("base_url" -> "BaseUrl"; matched case-insensitively).
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

func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strings.TrimSpace(strVal), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) && val.Kind() != reflect.String {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Redacted returns a copy with the API key masked.
func (c *Config) Redacted() *Config {
	safe := c.Clone()
	if safe.API.APIKey != "" {
		safe.API.APIKey = "[REDACTED]"
	}
	return safe
}

// String returns a JSON rendering for debugging. The API key is redacted.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c.Redacted(), "", "  ")
	return string(data)
}
