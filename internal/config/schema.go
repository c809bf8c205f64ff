package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
)

// OptionType is the declared value type of a configuration option.
type OptionType string

const (
	TypeString   OptionType = "string"
	TypeBool     OptionType = "bool"
	TypeInt      OptionType = "int"
	TypeDuration OptionType = "duration"
)

// Option declares one configuration option: its key, type, default,
// description, owning section ("" for global), and optional environment
// variable override.
type Option struct {
	Key         string
	Type        OptionType
	Default     string
	Description string
	Section     string
	EnvVar      string
}

// Schema is the set of declared options. It drives validation (unknown keys
// warn, with a closest-match suggestion), typed resolution, and the config
// reference shown by the config command.
type Schema struct {
	options   []*Option
	global    map[string]*Option
	bySection map[string]map[string]*Option
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{
		global:    make(map[string]*Option),
		bySection: make(map[string]map[string]*Option),
	}
}

// Register adds an option. A duplicate key in the same section overwrites the
// earlier registration.
func (s *Schema) Register(opt Option) {
	ref := &opt
	s.options = append(s.options, ref)
	if opt.Section == "" {
		s.global[opt.Key] = ref
		return
	}
	if s.bySection[opt.Section] == nil {
		s.bySection[opt.Section] = make(map[string]*Option)
	}
	s.bySection[opt.Section][opt.Key] = ref
}

// RegisterAll adds each option in opts.
func (s *Schema) RegisterAll(opts []Option) {
	for _, opt := range opts {
		s.Register(opt)
	}
}

// Lookup returns the option for key in section ("" for global), or nil.
func (s *Schema) Lookup(section, key string) *Option {
	if section == "" {
		return s.global[key]
	}
	if sec, ok := s.bySection[section]; ok {
		return sec[key]
	}
	return nil
}

// Known reports whether key is declared for section. Global keys are valid
// inside command sections, where they act as per-command overrides.
func (s *Schema) Known(section, key string) bool {
	if section != "" {
		if sec, ok := s.bySection[section]; ok && sec[key] != nil {
			return true
		}
	}
	return s.global[key] != nil
}

// Sections returns the sorted names of all declared command sections.
func (s *Schema) Sections() []string {
	out := make([]string, 0, len(s.bySection))
	for sec := range s.bySection {
		out = append(out, sec)
	}
	sort.Strings(out)
	return out
}

// GlobalOptions returns the declared global options in registration order.
func (s *Schema) GlobalOptions() []Option {
	var out []Option
	for _, o := range s.options {
		if o.Section == "" {
			out = append(out, *o)
		}
	}
	return out
}

// SectionOptions returns the declared options for one section.
func (s *Schema) SectionOptions(section string) []Option {
	var out []Option
	for _, o := range s.options {
		if o.Section == section {
			out = append(out, *o)
		}
	}
	return out
}

// Resolve returns the effective value for a global key: environment variable
// first, then the config value, then the schema default.
func (s *Schema) Resolve(c *Config, key string) string {
	opt := s.Lookup("", key)
	if opt != nil && opt.EnvVar != "" {
		if v, ok := os.LookupEnv(opt.EnvVar); ok {
			return v
		}
	}
	if v, ok := c.GetGlobalOption(key); ok {
		return v
	}
	if opt != nil {
		return opt.Default
	}
	return ""
}

// Closest returns the declared key nearest to key within section, or "" when
// nothing is close enough to suggest. A match costs at most two edits.
func (s *Schema) Closest(section, key string) string {
	const maxDistance = 2
	best, bestDist := "", maxDistance+1
	consider := func(candidate string) {
		if d := levenshtein.ComputeDistance(key, candidate); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	if section != "" {
		for k := range s.bySection[section] {
			consider(k)
		}
	}
	for k := range s.global {
		consider(k)
	}
	return best
}

// Validate checks a loaded Config against the schema and returns sorted,
// human-readable issues: unknown keys (with suggestions) and type mismatches.
func (s *Schema) Validate(c *Config) []string {
	var issues []string

	unknown := func(section, key, value string) string {
		where := "global option"
		if section != "" {
			where = fmt.Sprintf("option for command %q", section)
		}
		msg := fmt.Sprintf("unknown %s: %q (value: %q)", where, key, value)
		if hint := s.Closest(section, key); hint != "" {
			msg += fmt.Sprintf(" (did you mean %q?)", hint)
		}
		return msg
	}

	for key, value := range c.Global {
		opt := s.Lookup("", key)
		if opt == nil {
			issues = append(issues, unknown("", key, value))
			continue
		}
		if err := checkType(opt.Type, value); err != nil {
			issues = append(issues, fmt.Sprintf("global option %q: %v", key, err))
		}
	}

	for section, opts := range c.Commands {
		for key, value := range opts {
			if !s.Known(section, key) {
				issues = append(issues, unknown(section, key, value))
				continue
			}
			opt := s.Lookup(section, key)
			if opt == nil {
				opt = s.Lookup("", key)
			}
			if opt != nil {
				if err := checkType(opt.Type, value); err != nil {
					issues = append(issues, fmt.Sprintf("option %q in [%s]: %v", key, section, err))
				}
			}
		}
	}

	sort.Strings(issues)
	return issues
}

func checkType(t OptionType, value string) error {
	switch t {
	case TypeString, "":
		return nil
	case TypeBool:
		if _, err := parseBool(value); err != nil {
			return fmt.Errorf("expected bool, got %q", value)
		}
	case TypeInt:
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("expected int, got %q", value)
		}
	case TypeDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("expected duration, got %q", value)
		}
	default:
		return fmt.Errorf("unknown option type %q", t)
	}
	return nil
}

// FormatHelp renders the full option reference, globals first, then each
// section.
func (s *Schema) FormatHelp() string {
	var b strings.Builder

	if globals := s.GlobalOptions(); len(globals) > 0 {
		b.WriteString("Global Options:\n")
		for _, o := range globals {
			writeOptionHelp(&b, o)
		}
	}
	for _, sec := range s.Sections() {
		opts := s.SectionOptions(sec)
		if len(opts) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n[%s] Options:\n", sec)
		for _, o := range opts {
			writeOptionHelp(&b, o)
		}
	}
	return b.String()
}

func writeOptionHelp(b *strings.Builder, o Option) {
	fmt.Fprintf(b, "  %-25s %s", o.Key, o.Description)
	extra := make([]string, 0, 3)
	if o.Type != "" && o.Type != TypeString {
		extra = append(extra, fmt.Sprintf("type: %s", o.Type))
	}
	if o.Default != "" {
		extra = append(extra, fmt.Sprintf("default: %s", o.Default))
	}
	if o.EnvVar != "" {
		extra = append(extra, fmt.Sprintf("env: %s", o.EnvVar))
	}
	if len(extra) > 0 {
		fmt.Fprintf(b, " (%s)", strings.Join(extra, ", "))
	}
	b.WriteString("\n")
}

// DefaultSchema declares every known pagescope option. It is the single
// source of truth for option names, types, defaults, and env overrides.
func DefaultSchema() *Schema {
	s := NewSchema()
	s.RegisterAll([]Option{
		{Key: "color", Type: TypeString, Default: "auto", Description: "Color mode: auto, always, never", EnvVar: "PAGESCOPE_COLOR"},

		{Key: "log.level", Type: TypeString, Default: "warn", Description: "Log level: debug, info, warn, error", EnvVar: "PAGESCOPE_LOG_LEVEL"},
		{Key: "log.file", Type: TypeString, Default: "", Description: "Log file path (JSON output)", EnvVar: "PAGESCOPE_LOG_FILE"},
		{Key: "log.max-size-mb", Type: TypeInt, Default: "10", Description: "Max log file size in MB before rotation"},
		{Key: "log.max-files", Type: TypeInt, Default: "5", Description: "Max number of rotated log backup files"},
		{Key: "log.buffer-size", Type: TypeInt, Default: "1000", Description: "In-memory log buffer size (entries)"},

		{Key: "history.limit", Type: TypeInt, Default: "0", Description: "Max retained console history entries (0 = unbounded)"},

		{Key: "browser.url", Type: TypeString, Default: "", Description: "DevTools control URL of a running browser", EnvVar: "PAGESCOPE_BROWSER_URL"},

		{Key: "scrape.raw-base", Type: TypeString, Default: "", Description: "Override base URL for raw file fetching"},
		{Key: "scrape.timeout", Type: TypeDuration, Default: "", Description: "Deadline per fetch request (unset = none)"},
		{Key: "scrape.max-file-chars", Type: TypeInt, Default: "4000", Description: "Display cap for fetched file content, in characters"},
		{Key: "scrape.max-text-chars", Type: TypeInt, Default: "2000", Description: "Display cap for page text extraction, in characters"},
		{Key: "scrape.max-links", Type: TypeInt, Default: "50", Description: "Max links reported by page link extraction"},
	})
	s.RegisterAll([]Option{
		{Key: "target", Section: "console", Type: TypeString, Default: "", Description: "Target URL validated at console start"},
		{Key: "plain", Section: "console", Type: TypeBool, Default: "false", Description: "Force the plain line-reader loop"},

		{Key: "target", Section: "eval", Type: TypeString, Default: "", Description: "Target URL loaded before evaluating"},
	})
	return s
}
