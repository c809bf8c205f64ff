package command

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/pagescope/pagescope/internal/config"
	"github.com/pagescope/pagescope/internal/console"
)

// EvalCommand evaluates a single script against a page and prints the result.
type EvalCommand struct {
	*BaseCommand
	target        string
	browser       string
	logPath       string
	logLevel      string
	logBufferSize int
	configPath    string
	config        *config.Config
	ctxFactory    func() (context.Context, context.CancelFunc)
}

// NewEvalCommand creates a new eval command.
func NewEvalCommand(cfg *config.Config) *EvalCommand {
	return &EvalCommand{
		BaseCommand: NewBaseCommand(
			"eval",
			"Evaluate a script against a page and print the result",
			"eval [options] <script>",
		),
		config: cfg,
	}
}

// SetupFlags configures the flags for the eval command.
func (c *EvalCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.target, "target", "", "URL to load before evaluating")
	fs.StringVar(&c.browser, "browser", "", "DevTools control URL of a running browser (default: embedded sandbox)")
	fs.StringVar(&c.logPath, "log-file", "", "Path to log file (JSON output)")
	fs.StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.IntVar(&c.logBufferSize, "log-buffer", 0, "Size of in-memory log buffer")
	fs.StringVar(&c.configPath, "config", "", "Path to configuration file")
}

// Execute evaluates the script formed by joining the positional arguments.
// The result value goes to stdout; script console output goes to stderr so
// stdout stays pipeable.
func (c *EvalCommand) Execute(args []string, stdout, stderr io.Writer) error {
	source := strings.TrimSpace(strings.Join(args, " "))
	if source == "" {
		return fmt.Errorf("no script to evaluate")
	}

	factory := c.ctxFactory
	if factory == nil {
		factory = signalContext
	}
	ctx, cancel := factory()
	defer cancel()

	cfg, err := effectiveConfig(c.config, c.configPath)
	if err != nil {
		return err
	}

	lc, err := resolveLogConfig(c.logPath, c.logLevel, c.logBufferSize, cfg)
	if err != nil {
		return err
	}
	defer lc.close()
	slog.SetDefault(lc.newRecorder().Logger())

	evaluator, err := buildEvaluator(ctx, c.browser, cfg, slog.Default(), func(level, line string) {
		fmt.Fprintf(stderr, "console.%s: %s\n", level, line)
	})
	if err != nil {
		return err
	}
	defer func() { _ = evaluator.Close() }()

	target := c.target
	if target == "" {
		target, _ = cfg.GetCommandOption("eval", "target")
	}
	if target != "" {
		if err := evaluator.Navigate(ctx, target); err != nil {
			return err
		}
	}

	res, err := evaluator.Evaluate(ctx, source)
	if err != nil {
		return err
	}
	if res.Thrown {
		return fmt.Errorf("%s", res.Message)
	}
	if res.Undefined {
		fmt.Fprintln(stdout, "undefined")
		return nil
	}
	fmt.Fprintln(stdout, console.FormatValue(res.Value))
	return nil
}
