package console

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"

	"github.com/pagescope/pagescope/internal/gitraw"
	"github.com/pagescope/pagescope/internal/inspect"
)

// Limits are the display caps for scrape output. Zero fields fall back to
// the defaults below.
type Limits struct {
	MaxFileChars int
	MaxTextChars int
	MaxLinks     int
}

const (
	defaultMaxFileChars = 4000
	defaultMaxTextChars = 2000
	defaultMaxLinks     = 50
)

func (l Limits) withDefaults() Limits {
	if l.MaxFileChars <= 0 {
		l.MaxFileChars = defaultMaxFileChars
	}
	if l.MaxTextChars <= 0 {
		l.MaxTextChars = defaultMaxTextChars
	}
	if l.MaxLinks <= 0 {
		l.MaxLinks = defaultMaxLinks
	}
	return l
}

// Options assembles a Console. Evaluator is required; everything else has a
// usable default.
type Options struct {
	Evaluator    inspect.Evaluator
	Raw          *gitraw.Client
	Output       io.Writer
	Styles       *Styles
	Logger       *slog.Logger
	Bus          *Bus
	HistoryLimit int
	FetchTimeout time.Duration // per scrape fetch; 0 means none
	Limits       Limits
	ClearScreen  bool // emit an ANSI clear on the clear command
}

// Console wires the dispatcher, handlers, history, output log, status
// flags, and event bus around one Evaluator. One Console serves one
// session; methods are driven from the session's input loop.
type Console struct {
	session   string
	evaluator inspect.Evaluator
	raw       *gitraw.Client
	history   *History
	output    *OutputLog
	flags     *StatusFlags
	bus       *Bus
	badge     *Badge
	logger    *slog.Logger
	limits    Limits
	timeout   time.Duration
	clearTerm bool
	out       io.Writer

	target *url.URL
	repo   gitraw.Repo
	isRepo bool
}

// New builds a Console. The badge consumer starts immediately; the panel
// counts as open once Open is called.
func New(opts Options) *Console {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bus := opts.Bus
	if bus == nil {
		bus = NewBus(logger)
	}
	raw := opts.Raw
	if raw == nil {
		raw = gitraw.New(gitraw.WithLogger(logger))
	}
	out := opts.Output
	if out == nil {
		out = io.Discard
	}
	c := &Console{
		session:   uuid.NewString(),
		evaluator: opts.Evaluator,
		raw:       raw,
		history:   NewHistory(opts.HistoryLimit),
		output:    NewOutputLog(out, opts.Styles),
		flags:     &StatusFlags{},
		bus:       bus,
		logger:    logger,
		limits:    opts.Limits.withDefaults(),
		timeout:   opts.FetchTimeout,
		clearTerm: opts.ClearScreen,
		out:       out,
	}
	c.badge = WatchBadge(bus)
	return c
}

// Session returns the console's session id.
func (c *Console) Session() string { return c.session }

// History exposes the recall buffer (the prompt seeds from it).
func (c *Console) History() *History { return c.history }

// Output exposes the display log.
func (c *Console) Output() *OutputLog { return c.output }

// Flags exposes the operation status flags.
func (c *Console) Flags() *StatusFlags { return c.flags }

// Badge exposes the folded badge state.
func (c *Console) Badge() *Badge { return c.badge }

// Target returns the validated target, or nil before any validation.
func (c *Console) Target() *url.URL { return c.target }

// Open announces the panel on the bus.
func (c *Console) Open() {
	c.logger.Info("console opened", "session", c.session)
	c.bus.Publish(Event{Type: EventPanelOpened, Session: c.session})
}

// Close announces the panel closed and stops the badge consumer.
func (c *Console) Close() {
	c.bus.Publish(Event{Type: EventPanelClosed, Session: c.session})
	c.badge.Stop()
	c.logger.Info("console closed", "session", c.session)
}

// Dispatch runs one submitted line to completion: echo, history, classify,
// handle, render. The returned bool is false when the line asks to leave
// the console. Handler failures (returned errors and panics alike) render
// as one error line and never escape; the loop always comes back ready.
func (c *Console) Dispatch(ctx context.Context, line string) (cont bool) {
	cont = true
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return cont
	}

	c.output.Append(SeverityInput, "> "+trimmed)
	c.history.Add(trimmed)

	inv := Classify(trimmed)
	c.logger.Debug("dispatch", "kind", inv.Kind.String(), "session", c.session)

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("handler panicked", "kind", inv.Kind.String(), "panic", r)
			c.output.Appendf(SeverityError, "Error: %v", r)
		}
	}()

	var err error
	switch inv.Kind {
	case KindHelp:
		c.handleHelp()
	case KindClear:
		c.handleClear()
	case KindTarget:
		err = c.handleTarget(inv.Args)
	case KindOpen:
		err = c.handleOpen(ctx, inv.Args)
	case KindEval, KindScript:
		err = c.handleEval(ctx, inv.Script)
	case KindDOM:
		err = c.handleDOM(ctx, inv.Args)
	case KindScrape:
		err = c.handleScrape(ctx, inv.Args)
	case KindStatus:
		c.handleStatus()
	case KindHistory:
		c.handleHistory()
	case KindExit:
		cont = false
	}
	if err != nil {
		c.output.Append(SeverityError, "Error: "+err.Error())
	}
	return cont
}

// beginOp raises op's status flag and publishes operation-started; the
// returned cleanup reverses both and is deferred by every operation
// handler, so flags drop on success, handled error, and panic alike.
func (c *Console) beginOp(op Op) func() {
	lower := c.flags.Begin(op)
	c.bus.Publish(Event{Type: EventOperationStarted, Op: op.String(), Session: c.session})
	return func() {
		lower()
		c.bus.Publish(Event{Type: EventOperationEnded, Op: op.String(), Session: c.session})
	}
}

// suggestFor returns a did-you-mean candidate within edit distance 2, or "".
func suggestFor(input string, options []string) string {
	const maxDistance = 2
	best, bestDist := "", maxDistance+1
	for _, opt := range options {
		d := levenshtein.ComputeDistance(strings.ToLower(input), opt)
		if d < bestDist {
			best, bestDist = opt, d
		}
	}
	if bestDist > maxDistance {
		return ""
	}
	return best
}
