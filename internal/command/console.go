package command

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/pagescope/pagescope/internal/config"
	"github.com/pagescope/pagescope/internal/console"
	"github.com/pagescope/pagescope/internal/gitraw"
	"github.com/pagescope/pagescope/internal/inspect"
)

// lineFlags collects repeatable -e flags in submission order.
type lineFlags []string

func (l *lineFlags) String() string { return strings.Join(*l, "; ") }

func (l *lineFlags) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// ConsoleCommand opens the interactive page console.
type ConsoleCommand struct {
	*BaseCommand
	target        string
	browser       string
	open          bool
	plain         bool
	lines         lineFlags
	logPath       string
	logLevel      string
	logBufferSize int
	configPath    string
	config        *config.Config
	stdin         io.Reader
	// ctxFactory creates the execution context. If nil, the command uses
	// signal.NotifyContext so SIGINT/SIGTERM cancel in-flight evaluation and
	// fetches. Tests set this to avoid signal handling races.
	ctxFactory func() (context.Context, context.CancelFunc)
}

// NewConsoleCommand creates a new console command.
func NewConsoleCommand(cfg *config.Config) *ConsoleCommand {
	return &ConsoleCommand{
		BaseCommand: NewBaseCommand(
			"console",
			"Open the interactive page console",
			"console [options]",
		),
		config: cfg,
		stdin:  os.Stdin,
	}
}

// SetupFlags configures the flags for the console command.
func (c *ConsoleCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.target, "target", "", "URL validated as the scrape target at startup")
	fs.StringVar(&c.browser, "browser", "", "DevTools control URL of a running browser (default: embedded sandbox)")
	fs.BoolVar(&c.open, "open", false, "Navigate to the target after validating it")
	fs.BoolVar(&c.plain, "plain", false, "Force the plain line-reader loop (no interactive prompt)")
	fs.Var(&c.lines, "e", "Console line to run before reading input (repeatable)")
	fs.StringVar(&c.logPath, "log-file", "", "Path to log file (JSON output)")
	fs.StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.IntVar(&c.logBufferSize, "log-buffer", 0, "Size of in-memory log buffer")
	fs.StringVar(&c.configPath, "config", "", "Path to configuration file")
}

// Execute runs the console until exit, EOF, or a termination signal.
func (c *ConsoleCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
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
	recorder := lc.newRecorder()
	logger := recorder.Logger()
	slog.SetDefault(logger)

	// The sink closes over con so script console output lands in the output
	// log once the console exists; nothing evaluates before then.
	var con *console.Console
	evaluator, err := buildEvaluator(ctx, c.browser, cfg, logger, func(level, line string) {
		if con == nil {
			return
		}
		switch level {
		case "warn":
			con.Output().Append(console.SeverityWarning, line)
		case "error":
			con.Output().Append(console.SeverityError, line)
		default:
			con.Output().Append(console.SeverityRaw, line)
		}
	})
	if err != nil {
		return err
	}
	defer func() { _ = evaluator.Close() }()

	con = console.New(console.Options{
		Evaluator:    evaluator,
		Raw:          newRawClient(cfg, logger),
		Output:       stdout,
		Styles:       console.NewStyles(resolveColor(cfg, stdout)),
		Logger:       logger,
		HistoryLimit: cfg.GetInt("history.limit"),
		FetchTimeout: fetchTimeout(cfg),
		Limits: console.Limits{
			MaxFileChars: cfg.GetInt("scrape.max-file-chars"),
			MaxTextChars: cfg.GetInt("scrape.max-text-chars"),
			MaxLinks:     cfg.GetInt("scrape.max-links"),
		},
		ClearScreen: isTerminal(stdout),
	})
	con.Open()
	defer con.Close()

	target := c.target
	if target == "" {
		target, _ = cfg.GetCommandOption("console", "target")
	}
	if target != "" {
		con.Dispatch(ctx, "target "+target)
	}
	if c.open {
		con.Dispatch(ctx, "open")
	}
	for _, line := range c.lines {
		if !con.Dispatch(ctx, line) {
			return nil
		}
	}

	repl := console.NewREPL(con)
	if c.plainMode(cfg) {
		return repl.RunPlain(ctx, c.stdin)
	}
	return repl.Run(ctx)
}

// plainMode reports whether to skip the interactive prompt: the -plain flag
// or the [console] plain config option.
func (c *ConsoleCommand) plainMode(cfg *config.Config) bool {
	if c.plain {
		return true
	}
	v, _ := cfg.GetCommandOption("console", "plain")
	switch strings.ToLower(v) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

// signalContext is the default execution context: cancelled on SIGINT or
// SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// effectiveConfig returns the config to run with: the explicitly requested
// file when -config was given, the preloaded one otherwise, never nil.
func effectiveConfig(cfg *config.Config, path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	if cfg == nil {
		cfg = config.New()
	}
	return cfg, nil
}

// buildEvaluator picks the inspected-context backend: a live browser page
// when a DevTools control URL is configured, the embedded sandbox otherwise.
func buildEvaluator(ctx context.Context, browserFlag string, cfg *config.Config, logger *slog.Logger, sink inspect.ConsoleSink) (inspect.Evaluator, error) {
	controlURL := browserFlag
	if controlURL == "" {
		controlURL = config.DefaultSchema().Resolve(cfg, "browser.url")
	}
	if controlURL != "" {
		return inspect.ConnectBrowser(ctx, controlURL, logger)
	}
	return inspect.NewSandbox(inspect.WithLogger(logger), inspect.WithConsoleSink(sink))
}

// newRawClient builds the raw-file client, honoring a configured alternate
// base host.
func newRawClient(cfg *config.Config, logger *slog.Logger) *gitraw.Client {
	opts := []gitraw.Option{gitraw.WithLogger(logger)}
	if base := config.DefaultSchema().Resolve(cfg, "scrape.raw-base"); base != "" {
		opts = append(opts, gitraw.WithBaseURL(base))
	}
	return gitraw.New(opts...)
}

func fetchTimeout(cfg *config.Config) time.Duration {
	return cfg.GetDuration("scrape.timeout")
}

// resolveColor decides styled output: the color option (always/never/auto,
// env PAGESCOPE_COLOR) with auto meaning "stdout is a terminal and NO_COLOR
// is unset".
func resolveColor(cfg *config.Config, out io.Writer) bool {
	switch strings.ToLower(config.DefaultSchema().Resolve(cfg, "color")) {
	case "always":
		return true
	case "never":
		return false
	}
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	return isTerminal(out)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
