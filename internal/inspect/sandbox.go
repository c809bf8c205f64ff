package inspect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"
	gojaurl "github.com/dop251/goja_nodejs/url"
	"golang.org/x/net/html"
)

// ConsoleSink receives console.* output produced by evaluated scripts.
// level is one of "log", "warn", or "error".
type ConsoleSink func(level, line string)

// Sandbox evaluates scripts in an embedded runtime against a document
// fetched over HTTP and parsed locally. It is the fallback engine when no
// browser is attached: scripts see document, location, and window globals
// backed by the parsed tree plus a synchronous fetch, and mutations are
// visible to later evaluations.
//
// All methods are safe for concurrent use; the runtime itself is not, so a
// mutex serializes evaluations.
type Sandbox struct {
	mu     sync.Mutex
	vm     *goja.Runtime
	doc    *document
	client *http.Client
	logger *slog.Logger
}

// SandboxOption configures a Sandbox.
type SandboxOption func(*sandboxConfig)

type sandboxConfig struct {
	client  *http.Client
	logger  *slog.Logger
	console ConsoleSink
}

// WithHTTPClient sets the client used to fetch documents on Navigate.
func WithHTTPClient(client *http.Client) SandboxOption {
	return func(c *sandboxConfig) { c.client = client }
}

// WithLogger sets the structured logger for sandbox internals.
func WithLogger(logger *slog.Logger) SandboxOption {
	return func(c *sandboxConfig) { c.logger = logger }
}

// WithConsoleSink routes script console output to sink instead of the logger.
func WithConsoleSink(sink ConsoleSink) SandboxOption {
	return func(c *sandboxConfig) { c.console = sink }
}

// NewSandbox builds a runtime with the console and url modules enabled and
// an empty document installed.
func NewSandbox(opts ...SandboxOption) (*Sandbox, error) {
	cfg := sandboxConfig{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.console == nil {
		logger := cfg.logger
		cfg.console = func(level, line string) {
			logger.Info("script console output", "level", level, "line", line)
		}
	}

	vm := goja.New()

	registry := require.NewRegistry()
	registry.RegisterNativeModule(console.ModuleName, console.RequireWithPrinter(printerFunc(cfg.console)))
	registry.Enable(vm)
	console.Enable(vm)
	gojaurl.Enable(vm)

	s := &Sandbox{
		vm:     vm,
		client: cfg.client,
		logger: cfg.logger,
	}
	s.installFetch()
	if err := s.setDocument(blankDocument(), nil); err != nil {
		return nil, err
	}
	return s, nil
}

// printerFunc adapts a ConsoleSink to the console module's Printer.
type printerFunc ConsoleSink

func (p printerFunc) Log(s string)   { p("log", s) }
func (p printerFunc) Warn(s string)  { p("warn", s) }
func (p printerFunc) Error(s string) { p("error", s) }

func blankDocument() *html.Node {
	root, err := html.Parse(strings.NewReader(""))
	if err != nil {
		// Parsing the empty string cannot fail; the parser synthesizes
		// the html/head/body skeleton.
		panic(err)
	}
	return root
}

func (s *Sandbox) setDocument(root *html.Node, u *url.URL) error {
	doc := newDocument(s.vm, root, u)
	doc.install()
	s.doc = doc
	return nil
}

// SetDocumentHTML parses markup and installs it as the current document.
// base, when non-empty, becomes the document URL.
func (s *Sandbox) SetDocumentHTML(markup, base string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return fmt.Errorf("parse document: %w", err)
	}
	var u *url.URL
	if base != "" {
		u, err = url.Parse(base)
		if err != nil {
			return fmt.Errorf("parse document url: %w", err)
		}
	}
	return s.setDocument(root, u)
}

// Evaluate runs source and reports the completion value. A thrown exception
// or a syntax error surfaces in the Result, never as a Go error; the error
// return is reserved for failures of the engine itself, such as cancellation.
func (s *Sandbox) Evaluate(ctx context.Context, source string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		s.vm.Interrupt(context.Cause(ctx))
	})
	defer func() {
		if !stop() {
			s.vm.ClearInterrupt()
		}
	}()

	value, err := s.vm.RunString(source)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			if cause := context.Cause(ctx); cause != nil {
				return Result{}, fmt.Errorf("evaluate: %w", cause)
			}
			return Result{}, fmt.Errorf("evaluate: %w", err)
		}
		var exc *goja.Exception
		if errors.As(err, &exc) {
			return Result{Thrown: true, Message: exc.Value().String()}, nil
		}
		// Compile errors reach here; report them like a thrown exception,
		// the same shape a page evaluation produces.
		return Result{Thrown: true, Message: err.Error()}, nil
	}
	if value == nil || goja.IsUndefined(value) {
		return Result{Undefined: true}, nil
	}
	return Result{Value: value.Export()}, nil
}

// Navigate fetches rawURL, parses the response as HTML, and installs it as
// the current document.
func (s *Sandbox) Navigate(ctx context.Context, rawURL string) error {
	root, finalURL, err := fetchDocument(ctx, s.client, rawURL)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Debug("sandbox navigated", "url", finalURL.String())
	return s.setDocument(root, finalURL)
}

// Location reports the current document URL.
func (s *Sandbox) Location() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil || s.doc.url == nil {
		return "about:blank"
	}
	return s.doc.url.String()
}

// Describe identifies the engine for status output.
func (s *Sandbox) Describe() string {
	return "embedded sandbox"
}

// Close releases the runtime. Evaluations racing with Close are interrupted.
func (s *Sandbox) Close() error {
	s.vm.Interrupt(errors.New("engine closed"))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vm.ClearInterrupt()
	return nil
}
