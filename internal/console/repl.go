package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/elk-language/go-prompt"
	istrings "github.com/elk-language/go-prompt/strings"
	"golang.org/x/term"

	"github.com/pagescope/pagescope/internal/argv"
)

// REPL drives a Console from an input stream. On a real terminal Run
// starts an interactive prompt with completion and in-session history;
// otherwise it reads plain lines, so piped input behaves like a script.
type REPL struct {
	console *Console
	prefix  string
}

func NewREPL(c *Console) *REPL {
	return &REPL{console: c, prefix: "pagescope> "}
}

// Run reads commands from stdin until exit, EOF, or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return r.RunPrompt(ctx)
	}
	return r.RunPlain(ctx, os.Stdin)
}

// RunPlain dispatches newline-delimited commands from in. It returns nil
// when the console asks to exit or in is exhausted, and the context error
// when ctx is cancelled between lines.
func (r *REPL) RunPlain(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	// Pasted scripts can exceed the default token size.
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if !r.console.Dispatch(ctx, sc.Text()) {
			return nil
		}
	}
	return sc.Err()
}

// RunPrompt runs the interactive prompt until the console asks to exit.
// Extra options are appended after the defaults so tests can redirect the
// prompt's reader and writer.
func (r *REPL) RunPrompt(ctx context.Context, extra ...prompt.Option) error {
	r.printBanner()

	var done bool
	executor := func(line string) {
		if !r.console.Dispatch(ctx, line) {
			done = true
		}
	}

	options := []prompt.Option{
		prompt.WithPrefix(r.prefix),
		prompt.WithCompleter(r.completer),
		prompt.WithInputTextColor(prompt.Green),
		prompt.WithPrefixTextColor(prompt.Cyan),
		prompt.WithSuggestionTextColor(prompt.Yellow),
		prompt.WithSuggestionBGColor(prompt.Black),
		prompt.WithSelectedSuggestionTextColor(prompt.Black),
		prompt.WithSelectedSuggestionBGColor(prompt.Cyan),
		prompt.WithDescriptionTextColor(prompt.White),
		prompt.WithDescriptionBGColor(prompt.Black),
		prompt.WithSelectedDescriptionTextColor(prompt.White),
		prompt.WithSelectedDescriptionBGColor(prompt.Blue),
		// The executor runs first on a break line, so done is already set
		// when Dispatch decided to stop; the keyword check covers the rest.
		prompt.WithExitChecker(func(in string, breakline bool) bool {
			if done || ctx.Err() != nil {
				return true
			}
			if !breakline {
				return false
			}
			word := strings.TrimSpace(in)
			return word == "exit" || word == "quit"
		}),
	}
	if history := r.console.history.Chronological(); len(history) > 0 {
		options = append(options, prompt.WithHistory(history))
	}
	options = append(options, extra...)

	prompt.New(executor, options...).Run()
	return ctx.Err()
}

func (r *REPL) printBanner() {
	w := &syncWriter{Writer: r.console.out}
	fmt.Fprintln(w, "pagescope console")
	fmt.Fprintf(w, "session %s, engine %s\n", r.console.session, r.console.evaluator.Describe())
	fmt.Fprintln(w, "Type 'help' for available commands, 'exit' to quit.")
}

// completer suggests the word under the cursor: command keywords in the
// first position, sub-operation keywords after dom and scrape. The
// replacement range is the current token so accepting a suggestion
// rewrites exactly that token.
func (r *REPL) completer(document prompt.Document) ([]prompt.Suggest, istrings.RuneNumber, istrings.RuneNumber) {
	completed, cur := argv.BeforeCursor(document.TextBeforeCursor())
	suggestions := suggestionsFor(completed, cur.Text)
	return suggestions, istrings.RuneNumber(cur.Start), istrings.RuneNumber(cur.End)
}

var commandSuggestions = []prompt.Suggest{
	{Text: "help", Description: "show the command list"},
	{Text: "clear", Description: "clear the output log and screen"},
	{Text: "target", Description: "validate a URL as the scrape target"},
	{Text: "open", Description: "point the inspected page at a URL"},
	{Text: "eval", Description: "evaluate script in the inspected page"},
	{Text: "dom", Description: "mutate the inspected page's DOM"},
	{Text: "scrape", Description: "fetch repository files or page content"},
	{Text: "status", Description: "show session, engine, target, and flags"},
	{Text: "history", Description: "list submitted commands"},
	{Text: "exit", Description: "leave the console"},
}

var domSuggestions = []prompt.Suggest{
	{Text: "set", Description: "set textContent on selector matches"},
	{Text: "html", Description: "set innerHTML on selector matches"},
	{Text: "attr", Description: "set an attribute on selector matches"},
	{Text: "replace", Description: "replace literal text under document.body"},
}

var scrapeSuggestions = []prompt.Suggest{
	{Text: "github", Description: "fetch raw files from the target repository"},
	{Text: "page", Description: "extract content from the inspected page"},
}

var scrapeGitHubSuggestions = []prompt.Suggest{
	{Text: "readme", Description: "fetch the repository README"},
	{Text: "files", Description: "probe for well-known repository files"},
}

var scrapePageSuggestions = []prompt.Suggest{
	{Text: "text", Description: "visible text, truncated"},
	{Text: "links", Description: "anchor hrefs and labels"},
	{Text: "meta", Description: "title, description, and og: tags"},
}

func suggestionsFor(completed []string, prefix string) []prompt.Suggest {
	var pool []prompt.Suggest
	switch {
	case len(completed) == 0:
		pool = commandSuggestions
	case len(completed) == 1 && completed[0] == "dom":
		pool = domSuggestions
	case len(completed) == 1 && completed[0] == "scrape":
		pool = scrapeSuggestions
	case len(completed) == 2 && completed[0] == "scrape" && completed[1] == "github":
		pool = scrapeGitHubSuggestions
	case len(completed) == 2 && completed[0] == "scrape" && completed[1] == "page":
		pool = scrapePageSuggestions
	default:
		return nil
	}
	if prefix == "" {
		return pool
	}
	out := make([]prompt.Suggest, 0, len(pool))
	for _, s := range pool {
		if strings.HasPrefix(s.Text, prefix) {
			out = append(out, s)
		}
	}
	return out
}
