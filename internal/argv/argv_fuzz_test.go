package argv

import (
	"testing"
	"unicode/utf8"
)

// FuzzTokenParity checks that Parse, Tokens, and BeforeCursor agree on any
// input: token spans stay in bounds and strictly ordered, and the completed
// prefix plus the token under the cursor reassembles the argument list.
func FuzzTokenParity(f *testing.F) {
	// Seed corpus with interesting edge cases
	for _, s := range []string{
		"", " ", "\t\n\t", "a", "a b", " a  b\t c\n",
		"'single quoted'",
		"\"double quoted\"",
		"a\\ b",       // escaped space
		"a\\\nb",      // escaped newline joins the token
		"\"a\\\n b\"", // backslash before newline inside double quotes
		"'a\\b'\"c\\$`\"\\\nX\"",
		"π '漢字' \"🐱\"",
		"\\", // trailing backslash
		`a "" b`,
		"eval 'oops",
	} {
		f.Add(s)
	}
	for _, tc := range tokCases {
		f.Add(tc.in)
	}

	f.Fuzz(func(t *testing.T, s string) {
		end := utf8.RuneCountInString(s)

		args := Parse(s)
		var texts []string
		prev := 0
		for tok := range Tokens(s) {
			texts = append(texts, tok.Text)
			if tok.Start < 0 || tok.End < tok.Start || tok.End > end {
				t.Fatalf("token span out of bounds: %+v input=%q", tok, s)
			}
			if tok.Start < prev {
				t.Fatalf("token spans overlap: %+v starts before %d, input=%q", tok, prev, s)
			}
			prev = tok.End
		}
		if !slicesEqual(args, texts) {
			t.Fatalf("Parse and Tokens disagree\nargs=%#v\ntexts=%#v\ninput=%q", args, texts, s)
		}

		// BeforeCursor splits the same token stream: either the cursor sits
		// on the final token, or past it on whitespace with an empty,
		// zero-width placeholder.
		completed, current := BeforeCursor(s)
		switch {
		case len(args) == len(completed):
			if current.Text != "" || current.Start != current.End {
				t.Fatalf("expected empty cursor token, got %+v input=%q", current, s)
			}
		case len(args) == len(completed)+1:
			if args[len(args)-1] != current.Text {
				t.Fatalf("cursor token mismatch: args=%#v current=%+v input=%q", args, current, s)
			}
		default:
			t.Fatalf("completed/args size mismatch: args=%#v completed=%#v input=%q", args, completed, s)
		}
	})
}

func slicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
