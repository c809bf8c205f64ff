// Package config loads pagescope configuration from a dnsmasq-style file:
// one "option value" pair per line, # comments, and [command] sections whose
// options override globals for that command.
package config

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the loaded configuration: global options plus per-command
// overrides. Values are kept as strings; typed access goes through the
// Get* helpers and the Schema.
type Config struct {
	Global   map[string]string
	Commands map[string]map[string]string
	// Warnings collects schema issues found while loading.
	Warnings []string
}

// New returns an empty configuration.
func New() *Config {
	return &Config{
		Global:   make(map[string]string),
		Commands: make(map[string]map[string]string),
	}
}

// Load reads the configuration from the default path. A missing file is not
// an error; it yields an empty configuration.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the configuration from path.
//
// The final path component must not be a symlink; the config loader refuses
// to follow one rather than read whatever it points at.
func LoadFromPath(path string) (*Config, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("symlink not allowed in config path: %s", path)
	}

	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	return LoadFromReader(f)
}

// LoadFromReader parses configuration text from r and validates it against
// the default schema, recording issues as warnings rather than failing.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := New()
	scanner := bufio.NewScanner(r)

	section := ""
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.Trim(line, "[]")
			if cfg.Commands[section] == nil {
				cfg.Commands[section] = make(map[string]string)
			}
			continue
		}

		key, value, _ := strings.Cut(line, " ")
		value = strings.TrimSpace(value)
		if section == "" {
			cfg.Global[key] = value
		} else {
			cfg.Commands[section][key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	for _, issue := range DefaultSchema().Validate(cfg) {
		cfg.warnf("%s", issue)
	}
	return cfg, nil
}

func (c *Config) warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.Warnings = append(c.Warnings, msg)
	slog.Warn("[config] " + msg)
}

// HasWarnings reports whether loading produced schema warnings.
func (c *Config) HasWarnings() bool { return len(c.Warnings) > 0 }

// GetGlobalOption returns a global option value.
func (c *Config) GetGlobalOption(key string) (string, bool) {
	v, ok := c.Global[key]
	return v, ok
}

// GetCommandOption returns a command-scoped option, falling back to the
// global value when the command section does not set it.
func (c *Config) GetCommandOption(command, key string) (string, bool) {
	if opts, ok := c.Commands[command]; ok {
		if v, ok := opts[key]; ok {
			return v, true
		}
	}
	return c.GetGlobalOption(key)
}

// SetGlobalOption sets a global option value.
func (c *Config) SetGlobalOption(key, value string) {
	c.Global[key] = value
}

// SetCommandOption sets a command-scoped option value.
func (c *Config) SetCommandOption(command, key, value string) {
	if c.Commands[command] == nil {
		c.Commands[command] = make(map[string]string)
	}
	c.Commands[command][key] = value
}

// GetString returns the global value for key, or "" when unset.
func (c *Config) GetString(key string) string {
	v, _ := c.GetGlobalOption(key)
	return v
}

// GetStringDefault returns the global value for key, or fallback when unset.
func (c *Config) GetStringDefault(key, fallback string) string {
	v, ok := c.GetGlobalOption(key)
	if !ok {
		return fallback
	}
	return v
}

// GetBool returns the global value for key as a bool; unset or unparseable
// values are false.
func (c *Config) GetBool(key string) bool {
	v, ok := c.GetGlobalOption(key)
	if !ok {
		return false
	}
	b, err := parseBool(v)
	if err != nil {
		return false
	}
	return b
}

// GetInt returns the global value for key as an int; unset or unparseable
// values are 0.
func (c *Config) GetInt(key string) int {
	v, ok := c.GetGlobalOption(key)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// GetIntDefault returns the global value for key as an int, or fallback when
// unset or unparseable.
func (c *Config) GetIntDefault(key string, fallback int) int {
	v, ok := c.GetGlobalOption(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// GetDuration returns the global value for key as a time.Duration; unset or
// unparseable values are 0.
func (c *Config) GetDuration(key string) time.Duration {
	v, ok := c.GetGlobalOption(key)
	if !ok {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

// GetWithEnv returns the value for key, letting the environment variable
// override the config when set (even to the empty string).
func (c *Config) GetWithEnv(key, envVar string) string {
	if envVar != "" {
		if v, ok := os.LookupEnv(envVar); ok {
			return v
		}
	}
	return c.GetString(key)
}

// parseBool accepts true/false, yes/no, on/off, 1/0 (case-insensitive).
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value: %s", s)
	}
}
