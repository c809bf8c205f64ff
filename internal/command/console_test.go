package command

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pagescope/pagescope/internal/config"
)

func testContext() (context.Context, context.CancelFunc) {
	return context.WithCancel(context.Background())
}

// parseConsole builds a console command with parsed flags, wired for
// scripted execution without signal handling.
func parseConsole(t *testing.T, cfg *config.Config, argv ...string) *ConsoleCommand {
	t.Helper()
	cmd := NewConsoleCommand(cfg)
	cmd.ctxFactory = testContext
	cmd.stdin = strings.NewReader("")
	fs := flag.NewFlagSet("console", flag.ContinueOnError)
	cmd.SetupFlags(fs)
	if err := fs.Parse(argv); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return cmd
}

func TestConsoleCommandRunsScriptedLines(t *testing.T) {
	cmd := parseConsole(t, config.New(), "-plain", "-e", "status", "-e", "exit", "-e", "history")

	var stdout, stderr bytes.Buffer
	if err := cmd.Execute(nil, &stdout, &stderr); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	out := stdout.String()
	for _, want := range []string{
		"> status",
		"engine:   embedded sandbox",
		"target:   (none)",
		"> exit",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	// exit stops the -e sequence before later lines run.
	if strings.Contains(out, "> history") {
		t.Errorf("line after exit should not dispatch:\n%s", out)
	}
}

func TestConsoleCommandReadsStdinInPlainMode(t *testing.T) {
	cmd := parseConsole(t, config.New(), "-plain")
	cmd.stdin = strings.NewReader("status\nhistory\nexit\n")

	var stdout, stderr bytes.Buffer
	if err := cmd.Execute(nil, &stdout, &stderr); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	out := stdout.String()
	for _, want := range []string{"> status", "> history", "  1  status", "> exit"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConsoleCommandTargetFlag(t *testing.T) {
	cmd := parseConsole(t, config.New(),
		"-plain", "-target", "https://github.com/octo/demo", "-e", "exit")

	var stdout, stderr bytes.Buffer
	if err := cmd.Execute(nil, &stdout, &stderr); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	out := stdout.String()
	if !strings.Contains(out, "target set: https://github.com/octo/demo (repository octo/demo)") {
		t.Errorf("target flag not validated at startup:\n%s", out)
	}
}

func TestConsoleCommandConfigSection(t *testing.T) {
	cfg := config.New()
	cfg.Commands["console"] = map[string]string{
		"target": "https://github.com/a/b",
		"plain":  "true",
	}
	cmd := parseConsole(t, cfg)
	cmd.stdin = strings.NewReader("exit\n")

	var stdout, stderr bytes.Buffer
	if err := cmd.Execute(nil, &stdout, &stderr); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	out := stdout.String()
	if !strings.Contains(out, "target set: https://github.com/a/b (repository a/b)") {
		t.Errorf("config section target not applied:\n%s", out)
	}
}

func TestConsoleCommandFlagBeatsConfigSection(t *testing.T) {
	cfg := config.New()
	cfg.Commands["console"] = map[string]string{"target": "https://github.com/a/b"}
	cmd := parseConsole(t, cfg,
		"-plain", "-target", "https://github.com/c/d", "-e", "exit")

	var stdout, stderr bytes.Buffer
	if err := cmd.Execute(nil, &stdout, &stderr); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	out := stdout.String()
	if !strings.Contains(out, "target set: https://github.com/c/d (repository c/d)") {
		t.Errorf("flag should win over config section:\n%s", out)
	}
	if strings.Contains(out, "github.com/a/b") {
		t.Errorf("config target should not be used when the flag is set:\n%s", out)
	}
}

func TestConsoleCommandEvalLine(t *testing.T) {
	cmd := parseConsole(t, config.New(), "-plain", "-e", "eval 6*7", "-e", "exit")

	var stdout, stderr bytes.Buffer
	if err := cmd.Execute(nil, &stdout, &stderr); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(stdout.String(), "42") {
		t.Errorf("eval result missing:\n%s", stdout.String())
	}
}

func TestConsoleCommandScriptConsoleOutput(t *testing.T) {
	cmd := parseConsole(t, config.New(),
		"-plain", "-e", "eval console.log('ping from page')", "-e", "exit")

	var stdout, stderr bytes.Buffer
	if err := cmd.Execute(nil, &stdout, &stderr); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(stdout.String(), "ping from page") {
		t.Errorf("script console output not routed to the output log:\n%s", stdout.String())
	}
}

func TestConsoleCommandRejectsArgs(t *testing.T) {
	cmd := parseConsole(t, config.New())

	var stdout, stderr bytes.Buffer
	err := cmd.Execute([]string{"stray"}, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected error for positional arguments")
	}
	if !strings.Contains(err.Error(), "unexpected arguments") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConsoleCommandInvalidLogLevel(t *testing.T) {
	cmd := parseConsole(t, config.New(), "-log-level", "chatty")

	var stdout, stderr bytes.Buffer
	err := cmd.Execute(nil, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected error for invalid log level")
	}
	if !strings.Contains(err.Error(), "invalid log level: chatty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConsoleCommandWritesLogFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "session.log")
	cmd := parseConsole(t, config.New(),
		"-plain", "-log-file", logPath, "-log-level", "info",
		"-target", "https://github.com/octo/demo", "-e", "exit")

	var stdout, stderr bytes.Buffer
	if err := cmd.Execute(nil, &stdout, &stderr); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"target validated"`) {
		t.Errorf("expected target validation in log file, got: %s", data)
	}
}

func TestConsoleCommandConfigFlagLoadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config")
	content := "color never\n\n[console]\nplain true\ntarget https://github.com/x/y\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	// The preloaded config is ignored once -config names a file.
	preloaded := config.New()
	preloaded.Commands["console"] = map[string]string{"target": "https://github.com/wrong/repo"}
	cmd := parseConsole(t, preloaded, "-config", path)
	cmd.stdin = strings.NewReader("exit\n")

	var stdout, stderr bytes.Buffer
	if err := cmd.Execute(nil, &stdout, &stderr); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	out := stdout.String()
	if !strings.Contains(out, "target set: https://github.com/x/y (repository x/y)") {
		t.Errorf("config file target not applied:\n%s", out)
	}
	if strings.Contains(out, "wrong/repo") {
		t.Errorf("preloaded config should be ignored:\n%s", out)
	}
}

func TestConsoleCommandCancelledContext(t *testing.T) {
	cmd := parseConsole(t, config.New(), "-plain")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cmd.ctxFactory = func() (context.Context, context.CancelFunc) {
		return ctx, func() {}
	}
	cmd.stdin = strings.NewReader("status\nexit\n")

	var stdout, stderr bytes.Buffer
	err := cmd.Execute(nil, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected context error")
	}
}
