package console

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		line   string
		kind   Kind
		args   []string
		script string
	}{
		{name: "help", line: "help", kind: KindHelp},
		{name: "help uppercase", line: "HELP", kind: KindHelp},
		{name: "clear padded", line: "  clear  ", kind: KindClear},
		{name: "target with url", line: "target https://example.com", kind: KindTarget, args: []string{"https://example.com"}},
		{name: "open bare", line: "open", kind: KindOpen},
		{name: "open with url", line: "open https://example.com", kind: KindOpen, args: []string{"https://example.com"}},
		{name: "eval keeps source verbatim", line: "eval 1 + 1", kind: KindEval, script: "1 + 1"},
		{name: "exec alias", line: "exec document.title", kind: KindEval, script: "document.title"},
		{name: "run alias", line: "run foo()", kind: KindEval, script: "foo()"},
		{name: "eval preserves inner spacing", line: "eval  'a b'   + 1", kind: KindEval, script: "'a b'   + 1"},
		{name: "eval without source", line: "eval", kind: KindEval, script: ""},
		{name: "dom tokenizes args", line: "dom set h1 Hello", kind: KindDOM, args: []string{"set", "h1", "Hello"}},
		{name: "dom respects quoting", line: `dom set h1 "Hello World"`, kind: KindDOM, args: []string{"set", "h1", "Hello World"}},
		{name: "scrape", line: "scrape github readme", kind: KindScrape, args: []string{"github", "readme"}},
		{name: "status", line: "status", kind: KindStatus},
		{name: "history", line: "history", kind: KindHistory},
		{name: "exit", line: "exit", kind: KindExit},
		{name: "quit alias", line: "quit", kind: KindExit},
		{name: "unknown word is script", line: "document.title", kind: KindScript, script: "document.title"},
		{name: "expression is script", line: "1 + 1", kind: KindScript, script: "1 + 1"},
		{name: "near-keyword is script", line: "evaluate x", kind: KindScript, script: "evaluate x"},
		{name: "empty line is empty script", line: "", kind: KindScript, script: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			inv := Classify(tc.line)
			require.Equal(t, tc.kind, inv.Kind)
			require.Equal(t, tc.args, inv.Args)
			require.Equal(t, tc.script, inv.Script)
		})
	}
}

func TestClassifyKeepsQuotesInsideEvalSource(t *testing.T) {
	t.Parallel()
	inv := Classify(`eval document.querySelector('h1').textContent = "x y"`)
	require.Equal(t, KindEval, inv.Kind)
	require.Equal(t, `document.querySelector('h1').textContent = "x y"`, inv.Script)
	require.Nil(t, inv.Args)
}
