// Package console implements the interactive page console: a command
// dispatcher over a fixed set of handlers, an append-only output log, a
// history buffer with recall, operation status flags, and the event bus that
// feeds the open/busy badge. Script-like input is forwarded to an
// inspect.Evaluator; everything else is handled locally.
package console

import (
	"strings"

	"github.com/pagescope/pagescope/internal/argv"
)

// Kind enumerates the command families the dispatcher routes between.
type Kind int

const (
	// KindScript is the fallthrough family: the whole line is script source.
	KindScript Kind = iota
	KindHelp
	KindClear
	KindTarget
	KindOpen
	KindEval
	KindDOM
	KindScrape
	KindStatus
	KindHistory
	KindExit
)

func (k Kind) String() string {
	switch k {
	case KindScript:
		return "script"
	case KindHelp:
		return "help"
	case KindClear:
		return "clear"
	case KindTarget:
		return "target"
	case KindOpen:
		return "open"
	case KindEval:
		return "eval"
	case KindDOM:
		return "dom"
	case KindScrape:
		return "scrape"
	case KindStatus:
		return "status"
	case KindHistory:
		return "history"
	case KindExit:
		return "exit"
	}
	return "unknown"
}

// Invocation is a classified command line. Args holds the tokens after the
// keyword; Script holds the verbatim source for Eval and Script kinds.
type Invocation struct {
	Kind   Kind
	Args   []string
	Script string
	Line   string
}

// Classify resolves a submitted line into its command family. The first
// token, lowercased, selects the family; an unrecognized first token makes
// the whole line script source. Eval keeps the remainder of the line after
// the keyword verbatim, so quoting inside script source is untouched.
func Classify(line string) Invocation {
	trimmed := strings.TrimSpace(line)
	inv := Invocation{Kind: KindScript, Script: trimmed, Line: trimmed}
	if trimmed == "" {
		return inv
	}

	var first argv.Token
	for tok := range argv.Tokens(trimmed) {
		first = tok
		break
	}
	rest := restAfter(trimmed, first)

	switch strings.ToLower(first.Text) {
	case "help":
		inv.Kind = KindHelp
	case "clear":
		inv.Kind = KindClear
	case "target":
		inv.Kind = KindTarget
	case "open":
		inv.Kind = KindOpen
	case "eval", "exec", "run":
		inv.Kind = KindEval
		inv.Script = rest
	case "dom":
		inv.Kind = KindDOM
	case "scrape":
		inv.Kind = KindScrape
	case "status":
		inv.Kind = KindStatus
	case "history":
		inv.Kind = KindHistory
	case "exit", "quit":
		inv.Kind = KindExit
	default:
		return inv
	}

	if inv.Kind != KindEval {
		inv.Script = ""
		if rest != "" {
			inv.Args = argv.Parse(rest)
		}
	}
	return inv
}

// restAfter returns the line content after tok, trimmed. Token spans are in
// runes, matching the tokenizer.
func restAfter(line string, tok argv.Token) string {
	runes := []rune(line)
	if tok.End >= len(runes) {
		return ""
	}
	return strings.TrimSpace(string(runes[tok.End:]))
}
