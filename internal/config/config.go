// Package config loads kwatch settings from YAML files and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	kwerrors "github.com/Aman-CERP/kwatch/internal/errors"
)

// Backend names accepted in watch.backend.
const (
	BackendFSNotify = "fsnotify"
	BackendPoll     = "poll"
)

// Config is the complete kwatch configuration.
type Config struct {
	Version int         `yaml:"version"`
	Watch   WatchConfig `yaml:"watch"`
	React   ReactConfig `yaml:"react"`
	Log     LogConfig   `yaml:"log"`
}

// WatchConfig selects what is watched and how.
type WatchConfig struct {
	// Paths are watch entries. Empty means the current directory.
	Paths []string `yaml:"paths"`
	// Exclude lists paths skipped during resolution (exact canonical match).
	Exclude []string `yaml:"exclude"`
	// Backend is "fsnotify" or "poll".
	Backend string `yaml:"backend"`
	// PollInterval is the scan period of the poll backend, e.g. "500ms".
	PollInterval string `yaml:"poll_interval"`
}

// ReactConfig describes the reaction to a change.
type ReactConfig struct {
	// Wait blocks the loop until the command exits.
	Wait bool `yaml:"wait"`
	// Coalesce reacts once per ready batch of events.
	Coalesce bool `yaml:"coalesce"`
	// Command is the reaction argv, used when none is given on the command line.
	Command []string `yaml:"command"`
}

// LogConfig configures diagnostics.
type LogConfig struct {
	Level     string `yaml:"level"`
	File      string `yaml:"file"`
	MaxSizeMB int    `yaml:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files"`
}

// NewConfig returns a Config with default values.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Watch: WatchConfig{
			Backend:      BackendFSNotify,
			PollInterval: "500ms",
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  3,
		},
	}
}

// GetUserConfigPath returns the path to the user configuration file,
// following the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/kwatch/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/kwatch/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "kwatch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "kwatch", "config.yaml")
	}
	return filepath.Join(home, ".config", "kwatch", "config.yaml")
}

// Load loads configuration for a project directory. It applies, in order of
// increasing precedence:
//  1. Defaults
//  2. User config (~/.config/kwatch/config.yaml)
//  3. Project config (.kwatch.yaml or .kwatch.yml in dir)
//  4. Environment variables (KWATCH_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	for _, name := range []string{".kwatch.yaml", ".kwatch.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			if err := cfg.loadYAML(path); err != nil {
				return nil, err
			}
			break
		}
	}

	return cfg.finish()
}

// LoadFile loads defaults, then the given file, then environment overrides.
// Unlike Load, a missing file is an error.
func LoadFile(path string) (*Config, error) {
	if !fileExists(path) {
		return nil, kwerrors.New(kwerrors.ErrCodeConfigNotFound, "config file not found", nil).
			WithPath(path)
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	return cfg.finish()
}

func (c *Config) finish() (*Config, error) {
	if err := c.applyEnvOverrides(); err != nil {
		return nil, err
	}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, kwerrors.ConfigError("invalid configuration", err)
	}
	return c, nil
}

// loadYAML parses path and merges its non-zero values into c.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return kwerrors.ConfigError("failed to read config file", err).WithPath(path)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return kwerrors.ConfigError("failed to parse config file", err).WithPath(path)
	}
	var switches reactSwitches
	if err := yaml.Unmarshal(data, &switches); err != nil {
		return kwerrors.ConfigError("failed to parse config file", err).WithPath(path)
	}

	c.mergeWith(&parsed)
	switches.applyTo(&c.React)
	return nil
}

// reactSwitches records which react booleans a file sets, so a later layer
// can turn off what an earlier one turned on.
type reactSwitches struct {
	React struct {
		Wait     *bool `yaml:"wait"`
		Coalesce *bool `yaml:"coalesce"`
	} `yaml:"react"`
}

func (s reactSwitches) applyTo(r *ReactConfig) {
	if s.React.Wait != nil {
		r.Wait = *s.React.Wait
	}
	if s.React.Coalesce != nil {
		r.Coalesce = *s.React.Coalesce
	}
}

// mergeWith merges non-zero values from other into c. Excludes accumulate
// across layers; every other list replaces the previous one. The react
// booleans are applied by reactSwitches instead.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if len(other.Watch.Paths) > 0 {
		c.Watch.Paths = other.Watch.Paths
	}
	if len(other.Watch.Exclude) > 0 {
		c.Watch.Exclude = append(c.Watch.Exclude, other.Watch.Exclude...)
	}
	if other.Watch.Backend != "" {
		c.Watch.Backend = other.Watch.Backend
	}
	if other.Watch.PollInterval != "" {
		c.Watch.PollInterval = other.Watch.PollInterval
	}

	if len(other.React.Command) > 0 {
		c.React.Command = other.React.Command
	}

	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.File != "" {
		c.Log.File = other.Log.File
	}
	if other.Log.MaxSizeMB != 0 {
		c.Log.MaxSizeMB = other.Log.MaxSizeMB
	}
	if other.Log.MaxFiles != 0 {
		c.Log.MaxFiles = other.Log.MaxFiles
	}
}

// applyEnvOverrides applies KWATCH_* variables. Booleans accept anything
// strconv.ParseBool does, so KWATCH_WAIT=0 can switch off a file setting.
func (c *Config) applyEnvOverrides() error {
	for _, b := range []struct {
		key string
		dst *bool
	}{
		{"KWATCH_WAIT", &c.React.Wait},
		{"KWATCH_COALESCE", &c.React.Coalesce},
	} {
		v := os.Getenv(b.key)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return kwerrors.ConfigError(fmt.Sprintf("%s must be a boolean", b.key), err).
				WithDetail("value", v)
		}
		*b.dst = parsed
	}

	if v := os.Getenv("KWATCH_BACKEND"); v != "" {
		c.Watch.Backend = v
	}
	if v := os.Getenv("KWATCH_POLL_INTERVAL"); v != "" {
		c.Watch.PollInterval = v
	}
	if v := os.Getenv("KWATCH_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("KWATCH_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	return nil
}

// PollIntervalDuration returns the parsed poll interval.
func (c *Config) PollIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.Watch.PollInterval)
	if err != nil {
		return 0
	}
	return d
}

// Normalize canonicalizes values that are matched case-insensitively.
func (c *Config) Normalize() {
	c.Watch.Backend = strings.ToLower(strings.TrimSpace(c.Watch.Backend))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
}

// Validate checks the configuration values. Call Normalize first.
func (c *Config) Validate() error {
	switch c.Watch.Backend {
	case BackendFSNotify, BackendPoll:
	default:
		return fmt.Errorf("watch.backend must be '%s' or '%s', got %q", BackendFSNotify, BackendPoll, c.Watch.Backend)
	}

	d, err := time.ParseDuration(c.Watch.PollInterval)
	if err != nil {
		return fmt.Errorf("watch.poll_interval is not a duration: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("watch.poll_interval must be positive, got %s", c.Watch.PollInterval)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("log.level must be 'debug', 'info', 'warn', or 'error', got %q", c.Log.Level)
	}

	if c.Log.MaxSizeMB < 0 {
		return fmt.Errorf("log.max_size_mb must be non-negative, got %d", c.Log.MaxSizeMB)
	}
	if c.Log.MaxFiles < 0 {
		return fmt.Errorf("log.max_files must be non-negative, got %d", c.Log.MaxFiles)
	}
	return nil
}

// ValidateCommand checks that a reaction command was given.
func ValidateCommand(command []string) error {
	if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
		return kwerrors.New(kwerrors.ErrCodeNoCommand, "no command", nil).
			WithSuggestion("usage: kwatch [-w] [-c] [-d path] [-x exclude] -- command [args...]")
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
