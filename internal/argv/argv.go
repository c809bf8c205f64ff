// Package argv tokenizes console input lines using POSIX-like quoting.
//
// Rules:
//   - Unquoted spaces and tabs split tokens.
//   - Single quotes preserve their contents literally until the closing quote.
//   - Double quotes preserve contents; backslash escapes only " and \ inside.
//   - Outside quotes, a backslash escapes the following rune.
//   - No environment expansion, globbing, or comment handling.
//
// Tokens carry rune-index spans so completion can replace the word under the
// cursor in place.
package argv

import (
	"iter"
	"unicode/utf8"
)

// Token is one parsed argument with its logical text and rune-index bounds in
// the source string. Start is the index of the content (after an opening
// quote, if any); End is exclusive.
type Token struct {
	Text   string
	Start  int
	End    int
	Quote  rune
	Quoted bool
}

// Parse collects the token texts of line into a slice.
func Parse(line string) []string {
	out := make([]string, 0, 4)
	for tok := range Tokens(line) {
		out = append(out, tok.Text)
	}
	return out
}

// Tokens yields the tokens of line in order. An unterminated quote runs to the
// end of input rather than erroring; the console treats what the user typed as
// what they meant.
func Tokens(line string) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		sc := scanner{src: line}
		for {
			tok, ok := sc.next()
			if !ok {
				return
			}
			if !yield(tok) {
				return
			}
		}
	}
}

// BeforeCursor tokenizes the text before the cursor and returns the completed
// tokens plus the token under the cursor (possibly empty, positioned at the
// end of the text).
func BeforeCursor(text string) (completed []string, current Token) {
	end := utf8.RuneCountInString(text)
	for tok := range Tokens(text) {
		if tok.End == end {
			return completed, tok
		}
		completed = append(completed, tok.Text)
	}
	return completed, Token{Start: end, End: end}
}

type scanner struct {
	src string
	off int // byte offset
	pos int // rune index
}

func (sc *scanner) next() (Token, bool) {
	var (
		buf      []rune
		start    = -1
		quote    rune
		quoted   bool
		inSingle bool
		inDouble bool
		esc      bool
	)

	put := func(at int, r rune) {
		if start < 0 {
			start = at
		}
		buf = append(buf, r)
	}

	for sc.off < len(sc.src) {
		r, size := utf8.DecodeRuneInString(sc.src[sc.off:])
		at := sc.pos
		sc.off += size
		sc.pos++

		if esc {
			esc = false
			if inDouble && r != '"' && r != '\\' {
				put(at-1, '\\')
			}
			put(at, r)
			continue
		}

		switch r {
		case '\\':
			if inSingle {
				put(at, r)
				continue
			}
			esc = true
		case '\'':
			switch {
			case inDouble:
				put(at, r)
			case inSingle:
				inSingle = false
			case len(buf) == 0 && start < 0:
				inSingle, quoted, quote = true, true, r
				start = at + 1
			default:
				put(at, r)
			}
		case '"':
			switch {
			case inSingle:
				put(at, r)
			case inDouble:
				inDouble = false
			case len(buf) == 0 && start < 0:
				inDouble, quoted, quote = true, true, r
				start = at + 1
			default:
				put(at, r)
			}
		case ' ', '\t', '\n':
			if inSingle || inDouble {
				put(at, r)
				continue
			}
			if start >= 0 {
				return Token{Text: string(buf), Start: start, End: at, Quote: quote, Quoted: quoted}, true
			}
		default:
			put(at, r)
		}
	}

	// Trailing escape: keep the backslash literal.
	if esc {
		put(sc.pos-1, '\\')
	}
	if start >= 0 || inSingle || inDouble {
		if start < 0 {
			start = sc.pos
		}
		return Token{Text: string(buf), Start: start, End: sc.pos, Quote: quote, Quoted: quoted}, true
	}
	return Token{}, false
}
