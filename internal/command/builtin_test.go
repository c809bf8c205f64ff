package command

import (
	"bytes"
	"flag"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pagescope/pagescope/internal/config"
)

func TestHelpCommandListsCommands(t *testing.T) {
	t.Parallel()
	registry := NewRegistry()
	helpCmd := NewHelpCommand(registry)
	registry.Register(helpCmd)
	registry.Register(NewVersionCommand("test"))
	registry.Register(NewConsoleCommand(config.New()))

	var stdout, stderr bytes.Buffer
	if err := helpCmd.Execute(nil, &stdout, &stderr); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	out := stdout.String()
	for _, want := range []string{
		"pagescope - inspect and mutate web pages from your terminal",
		"Usage: pagescope <command> [options] [args...]",
		"Available commands:",
		"console",
		"help",
		"version",
		"Use 'pagescope help <command>'",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("help output missing %q:\n%s", want, out)
		}
	}
}

func TestHelpCommandSpecificCommand(t *testing.T) {
	t.Parallel()
	registry := NewRegistry()
	helpCmd := NewHelpCommand(registry)
	registry.Register(helpCmd)
	registry.Register(NewConsoleCommand(config.New()))

	var stdout, stderr bytes.Buffer
	if err := helpCmd.Execute([]string{"console"}, &stdout, &stderr); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	out := stdout.String()
	for _, want := range []string{
		"Command: console",
		"Usage: console [options]",
		"Flags:",
		"-target",
		"-plain",
		"-e",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("command help missing %q:\n%s", want, out)
		}
	}
}

func TestHelpCommandUnknown(t *testing.T) {
	t.Parallel()
	registry := NewRegistry()
	helpCmd := NewHelpCommand(registry)
	registry.Register(helpCmd)

	var stdout, stderr bytes.Buffer
	err := helpCmd.Execute([]string{"bogus"}, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(stderr.String(), "Unknown command: bogus") {
		t.Errorf("stderr missing unknown-command line: %s", stderr.String())
	}
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()
	cmd := NewVersionCommand("1.2.3")

	var stdout, stderr bytes.Buffer
	if err := cmd.Execute(nil, &stdout, &stderr); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := stdout.String(); got != "pagescope version 1.2.3\n" {
		t.Errorf("unexpected version output: %q", got)
	}

	if err := cmd.Execute([]string{"extra"}, &stdout, &stderr); err == nil {
		t.Error("expected error when arguments are passed")
	}
}

func TestConfigCommandGet(t *testing.T) {
	t.Parallel()
	cfg := config.New()
	cfg.SetGlobalOption("color", "never")
	cmd := NewConfigCommand(cfg, filepath.Join(t.TempDir(), "config"))

	var stdout, stderr bytes.Buffer
	if err := cmd.Execute([]string{"color"}, &stdout, &stderr); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(stdout.String(), "color: never") {
		t.Errorf("unexpected get output: %q", stdout.String())
	}
}

func TestConfigCommandGetSchemaDefault(t *testing.T) {
	t.Parallel()
	cmd := NewConfigCommand(config.New(), filepath.Join(t.TempDir(), "config"))

	// Unset key with a schema default resolves to the default.
	var stdout, stderr bytes.Buffer
	if err := cmd.Execute([]string{"log.level"}, &stdout, &stderr); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(stdout.String(), "log.level: warn") {
		t.Errorf("expected schema default, got: %q", stdout.String())
	}
}

func TestConfigCommandGetUnknown(t *testing.T) {
	t.Parallel()
	cmd := NewConfigCommand(config.New(), filepath.Join(t.TempDir(), "config"))

	var stdout, stderr bytes.Buffer
	if err := cmd.Execute([]string{"no.such.key"}, &stdout, &stderr); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(stdout.String(), "Configuration key 'no.such.key' not found") {
		t.Errorf("unexpected output: %q", stdout.String())
	}
}

func TestConfigCommandSetPersists(t *testing.T) {
	t.Parallel()
	cfg := config.New()
	path := filepath.Join(t.TempDir(), "config")
	cmd := NewConfigCommand(cfg, path)

	var stdout, stderr bytes.Buffer
	if err := cmd.Execute([]string{"color", "always"}, &stdout, &stderr); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(stdout.String(), "Set configuration: color = always") {
		t.Errorf("unexpected set output: %q", stdout.String())
	}
	if v, _ := cfg.GetGlobalOption("color"); v != "always" {
		t.Errorf("in-memory config not updated, got %q", v)
	}

	reloaded, err := config.LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if v, _ := reloaded.GetGlobalOption("color"); v != "always" {
		t.Errorf("persisted config missing value, got %q", v)
	}
}

func TestConfigCommandValidate(t *testing.T) {
	t.Parallel()
	cfg := config.New()
	cmd := NewConfigCommand(cfg, filepath.Join(t.TempDir(), "config"))

	var stdout, stderr bytes.Buffer
	if err := cmd.Execute([]string{"validate"}, &stdout, &stderr); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(stdout.String(), "Configuration is valid.") {
		t.Errorf("unexpected validate output: %q", stdout.String())
	}

	cfg.SetGlobalOption("colr", "always")
	cfg.SetGlobalOption("log.max-files", "many")
	stdout.Reset()
	if err := cmd.Execute([]string{"validate"}, &stdout, &stderr); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "2 issue(s)") {
		t.Errorf("expected two validation issues, got: %q", out)
	}
	if !strings.Contains(out, `did you mean "color"?`) {
		t.Errorf("expected suggestion for misspelled key, got: %q", out)
	}
	if !strings.Contains(out, `expected int, got "many"`) {
		t.Errorf("expected type issue, got: %q", out)
	}
}

func TestConfigCommandSchema(t *testing.T) {
	t.Parallel()
	cmd := NewConfigCommand(config.New(), filepath.Join(t.TempDir(), "config"))

	var stdout, stderr bytes.Buffer
	if err := cmd.Execute([]string{"schema"}, &stdout, &stderr); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	out := stdout.String()
	for _, want := range []string{"color", "log.level", "browser.url", "scrape.timeout"} {
		if !strings.Contains(out, want) {
			t.Errorf("schema output missing %q", want)
		}
	}
}

func TestConfigCommandShowAll(t *testing.T) {
	t.Parallel()
	cfg := config.New()
	cfg.SetGlobalOption("color", "never")
	cfg.Commands["console"] = map[string]string{"plain": "true"}
	cmd := NewConfigCommand(cfg, filepath.Join(t.TempDir(), "config"))

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	cmd.SetupFlags(fs)
	if err := fs.Parse([]string{"--all"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	var stdout, stderr bytes.Buffer
	if err := cmd.Execute(fs.Args(), &stdout, &stderr); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	out := stdout.String()
	for _, want := range []string{"Global configuration:", "color: never", "[console]", "plain: true"} {
		if !strings.Contains(out, want) {
			t.Errorf("show-all output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigCommandUsage(t *testing.T) {
	t.Parallel()
	cmd := NewConfigCommand(config.New(), filepath.Join(t.TempDir(), "config"))

	var stdout, stderr bytes.Buffer
	if err := cmd.Execute(nil, &stdout, &stderr); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(stdout.String(), "Configuration management:") {
		t.Errorf("unexpected usage output: %q", stdout.String())
	}
}

func TestConfigCommandTooManyArgs(t *testing.T) {
	t.Parallel()
	cmd := NewConfigCommand(config.New(), filepath.Join(t.TempDir(), "config"))

	var stdout, stderr bytes.Buffer
	if err := cmd.Execute([]string{"a", "b", "c"}, &stdout, &stderr); err == nil {
		t.Fatal("expected error for too many arguments")
	}
}
