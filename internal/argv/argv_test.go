package argv

import (
	"strings"
	"testing"
)

// tokCase drives every test in this file: one input, the expected argument
// list, and optionally the expected token stream with spans and the
// BeforeCursor result.
type tokCase struct {
	name string
	in   string

	wantArgs []string

	wantCompleted []string
	wantCurrent   *Token

	wantTokens []Token
}

var tokCases = []tokCase{
	{
		name:        "empty input",
		in:          "",
		wantArgs:    []string{},
		wantCurrent: &Token{Text: "", Start: 0, End: 0},
	},
	{
		name:          "simple words",
		in:            "dom set h1",
		wantArgs:      []string{"dom", "set", "h1"},
		wantCompleted: []string{"dom", "set"},
		wantCurrent:   &Token{Text: "h1", Start: 8, End: 10},
		wantTokens: []Token{
			{Text: "dom", Start: 0, End: 3},
			{Text: "set", Start: 4, End: 7},
			{Text: "h1", Start: 8, End: 10},
		},
	},
	{
		name:          "collapsed whitespace",
		in:            "  a   b\tc ",
		wantArgs:      []string{"a", "b", "c"},
		wantCompleted: []string{"a", "b", "c"},
		wantCurrent:   &Token{Text: "", Start: 10, End: 10},
	},
	{
		name:     "single quotes preserve spaces",
		in:       "'a b' c",
		wantArgs: []string{"a b", "c"},
		wantTokens: []Token{
			{Text: "a b", Start: 1, End: 5, Quote: '\'', Quoted: true},
			{Text: "c", Start: 6, End: 7},
		},
	},
	{
		name:     "double quotes preserve spaces",
		in:       `dom set h1 "Hello World"`,
		wantArgs: []string{"dom", "set", "h1", "Hello World"},
	},
	{
		name:     "escaped double quote inside double quotes",
		in:       `"a\"b"`,
		wantArgs: []string{`a"b`},
	},
	{
		name:     "escaped backslash inside double quotes",
		in:       `"a\\b"`,
		wantArgs: []string{`a\b`},
	},
	{
		name:     "backslash literal before other runes in double quotes",
		in:       `"a\nb"`,
		wantArgs: []string{`a\nb`},
	},
	{
		name:     "single quotes are fully literal",
		in:       `'a\"b'`,
		wantArgs: []string{`a\"b`},
	},
	{
		name:     "backslash escapes whitespace outside quotes",
		in:       `a\ b c`,
		wantArgs: []string{"a b", "c"},
	},
	{
		name:     "quote mid-token is literal",
		in:       "it's fine",
		wantArgs: []string{"it's", "fine"},
	},
	{
		name:     "empty quoted token survives",
		in:       `a "" b`,
		wantArgs: []string{"a", "", "b"},
	},
	{
		name:     "unterminated double quote runs to end",
		in:       `dom html p "<b>x`,
		wantArgs: []string{"dom", "html", "p", "<b>x"},
	},
	{
		name:     "unterminated single quote runs to end",
		in:       "eval 'oops",
		wantArgs: []string{"eval", "oops"},
	},
	{
		name:     "trailing backslash stays literal",
		in:       `a\`,
		wantArgs: []string{`a\`},
	},
	{
		name:     "selector with attribute quoting",
		in:       `dom attr 'a[href="#top"]' class nav`,
		wantArgs: []string{"dom", "attr", `a[href="#top"]`, "class", "nav"},
	},
	{
		name:          "cursor inside current word",
		in:            "scrape git",
		wantArgs:      []string{"scrape", "git"},
		wantCompleted: []string{"scrape"},
		wantCurrent:   &Token{Text: "git", Start: 7, End: 10},
	},
	{
		name:          "cursor after closing quote",
		in:            `target "https://x.test"`,
		wantArgs:      []string{"target", "https://x.test"},
		wantCompleted: []string{"target"},
		wantCurrent:   &Token{Text: "https://x.test", Start: 8, End: 23, Quote: '"', Quoted: true},
	},
	{
		name:     "multibyte runes keep rune spans",
		in:       "héllo wörld",
		wantArgs: []string{"héllo", "wörld"},
		wantTokens: []Token{
			{Text: "héllo", Start: 0, End: 5},
			{Text: "wörld", Start: 6, End: 11},
		},
	},
}

func TestParse(t *testing.T) {
	for _, tc := range tokCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Parse(tc.in)
			if strings.Join(got, "\x00") != strings.Join(tc.wantArgs, "\x00") {
				t.Errorf("Parse(%q) = %q, want %q", tc.in, got, tc.wantArgs)
			}
		})
	}
}

func TestTokensSpans(t *testing.T) {
	for _, tc := range tokCases {
		if tc.wantTokens == nil {
			continue
		}
		t.Run(tc.name, func(t *testing.T) {
			var got []Token
			for tok := range Tokens(tc.in) {
				got = append(got, tok)
			}
			if len(got) != len(tc.wantTokens) {
				t.Fatalf("Tokens(%q) yielded %d tokens, want %d: %+v", tc.in, len(got), len(tc.wantTokens), got)
			}
			for i, want := range tc.wantTokens {
				if got[i] != want {
					t.Errorf("token %d = %+v, want %+v", i, got[i], want)
				}
			}
		})
	}
}

func TestBeforeCursor(t *testing.T) {
	for _, tc := range tokCases {
		if tc.wantCurrent == nil {
			continue
		}
		t.Run(tc.name, func(t *testing.T) {
			completed, current := BeforeCursor(tc.in)
			if strings.Join(completed, "\x00") != strings.Join(tc.wantCompleted, "\x00") {
				t.Errorf("completed = %q, want %q", completed, tc.wantCompleted)
			}
			if current != *tc.wantCurrent {
				t.Errorf("current = %+v, want %+v", current, *tc.wantCurrent)
			}
		})
	}
}

func TestTokensEarlyStop(t *testing.T) {
	seen := 0
	for range Tokens("a b c d") {
		seen++
		if seen == 2 {
			break
		}
	}
	if seen != 2 {
		t.Fatalf("expected early break after 2 tokens, saw %d", seen)
	}
}
