package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rivo/uniseg"

	"github.com/pagescope/pagescope/internal/gitraw"
)

// Sentinel errors for precondition failures; tests assert on these.
var (
	ErrEmptyScript  = errors.New("no script to evaluate")
	ErrNoTarget     = errors.New("no validated target; set one with 'target <url>'")
	ErrNotARepo     = errors.New("validated target is not a github.com repository")
	ErrBadScheme    = errors.New("target must use http or https")
	ErrMissingArgs  = errors.New("missing arguments")
	ErrUnknownSubOp = errors.New("unknown sub-command")
)

const truncationMarker = "… [truncated]"

// handleEval relays script source through the evaluator and renders exactly
// one outcome line: exception (transport broke), error (script threw),
// pretty-printed value, or the literal undefined.
func (c *Console) handleEval(ctx context.Context, source string) error {
	if strings.TrimSpace(source) == "" {
		return ErrEmptyScript
	}
	done := c.beginOp(OpExec)
	defer done()

	res, err := c.evaluator.Evaluate(ctx, source)
	switch {
	case err != nil:
		c.output.Append(SeverityException, "Uncaught: "+err.Error())
	case res.Thrown:
		c.output.Append(SeverityError, res.Message)
	case res.Undefined:
		c.output.Append(SeverityRaw, "undefined")
	default:
		c.output.Append(SeverityRaw, FormatValue(res.Value))
	}
	return nil
}

// FormatValue pretty-prints an evaluation result. Values that defeat JSON
// (functions, cycles) fall back to Go formatting.
func FormatValue(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

var domSubOps = []string{"set", "html", "attr", "replace"}

// handleDOM builds the mutation script for one dom sub-operation and
// reports the affected count.
func (c *Console) handleDOM(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: usage: dom {set|html|attr|replace} ...", ErrMissingArgs)
	}
	sub := strings.ToLower(args[0])
	rest := args[1:]

	var script, noun, zeroMsg string
	switch sub {
	case "set":
		if len(rest) < 2 {
			return fmt.Errorf("%w: usage: dom set <selector> <text>", ErrMissingArgs)
		}
		script = domSetScript(rest[0], strings.Join(rest[1:], " "))
		noun, zeroMsg = "element", "no elements matched"
	case "html":
		if len(rest) < 2 {
			return fmt.Errorf("%w: usage: dom html <selector> <markup>", ErrMissingArgs)
		}
		script = domHTMLScript(rest[0], strings.Join(rest[1:], " "))
		noun, zeroMsg = "element", "no elements matched"
	case "attr":
		if len(rest) < 3 {
			return fmt.Errorf("%w: usage: dom attr <selector> <name> <value>", ErrMissingArgs)
		}
		script = domAttrScript(rest[0], rest[1], strings.Join(rest[2:], " "))
		noun, zeroMsg = "element", "no elements matched"
	case "replace":
		if len(rest) < 2 {
			return fmt.Errorf("%w: usage: dom replace <old> <new>", ErrMissingArgs)
		}
		script = domReplaceScript(rest[0], rest[1])
		noun, zeroMsg = "occurrence", "text not found"
	default:
		if hint := suggestFor(sub, domSubOps); hint != "" {
			return fmt.Errorf("%w: dom %s (did you mean %q?)", ErrUnknownSubOp, sub, hint)
		}
		return fmt.Errorf("%w: dom %s", ErrUnknownSubOp, sub)
	}

	done := c.beginOp(OpDOM)
	defer done()

	res, err := c.evaluator.Evaluate(ctx, script)
	switch {
	case err != nil:
		c.output.Append(SeverityException, "Uncaught: "+err.Error())
	case res.Thrown:
		c.output.Append(SeverityError, res.Message)
	default:
		count := countOf(res.Value)
		if count == 0 {
			c.output.Append(SeverityWarning, zeroMsg)
		} else {
			c.output.Appendf(SeveritySuccess, "%s: %d %s", pastTense(sub), count, plural(noun, count))
		}
	}
	return nil
}

func pastTense(sub string) string {
	switch sub {
	case "set":
		return "text set"
	case "html":
		return "markup set"
	case "attr":
		return "attribute set"
	case "replace":
		return "replaced"
	}
	return sub
}

func plural(noun string, n int64) string {
	if n == 1 {
		return noun
	}
	return noun + "s"
}

// countOf coerces the numeric count a generated script returns. Evaluators
// surface numbers as int64 or float64 depending on the backend.
func countOf(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	}
	return 0
}

var (
	scrapeFamilies = []string{"github", "page"}
	pageSubOps     = []string{"text", "links", "meta"}
)

// handleScrape routes the scrape families. Every form hard-requires a
// validated target before any network or evaluator call.
func (c *Console) handleScrape(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: usage: scrape {github|page} ...", ErrMissingArgs)
	}
	if c.target == nil {
		return ErrNoTarget
	}
	family := strings.ToLower(args[0])
	switch family {
	case "github":
		return c.scrapeGitHub(ctx, args[1:])
	case "page":
		return c.scrapePage(ctx, args[1:])
	default:
		if hint := suggestFor(family, scrapeFamilies); hint != "" {
			return fmt.Errorf("%w: scrape %s (did you mean %q?)", ErrUnknownSubOp, family, hint)
		}
		return fmt.Errorf("%w: scrape %s", ErrUnknownSubOp, family)
	}
}

func (c *Console) scrapeGitHub(ctx context.Context, args []string) error {
	if !c.isRepo {
		return ErrNotARepo
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: usage: scrape github {readme|files|<path>}", ErrMissingArgs)
	}

	done := c.beginOp(OpScrape)
	defer done()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	switch strings.ToLower(args[0]) {
	case "files":
		hits := c.raw.ProbeWellKnown(ctx, c.repo)
		if len(hits) == 0 {
			c.output.Appendf(SeverityWarning, "no well-known files found in %s", c.repo)
			return nil
		}
		c.output.Appendf(SeverityInfo, "%s has:", c.repo)
		for _, hit := range hits {
			c.output.Appendf(SeverityRaw, "  %s (%s)", hit.Path, hit.Branch)
		}
		return nil
	case "readme":
		return c.fetchRepoFile(ctx, "README.md")
	default:
		return c.fetchRepoFile(ctx, args[0])
	}
}

func (c *Console) fetchRepoFile(ctx context.Context, path string) error {
	file, err := c.raw.FetchFile(ctx, c.repo, path)
	if err != nil {
		if errors.Is(err, gitraw.ErrNotFound) {
			c.output.Appendf(SeverityError, "%s not found in %s (tried main, master)", path, c.repo)
			return nil
		}
		return err
	}
	content, truncated := truncateClusters(file.Content, c.limits.MaxFileChars)
	if truncated || file.Truncated {
		content += truncationMarker
	}
	c.output.Appendf(SeverityInfo, "--- %s@%s %s ---", file.Repo, file.Branch, file.Path)
	c.output.Append(SeverityRaw, content)
	c.output.Append(SeverityInfo, "--- end ---")
	return nil
}

func (c *Console) scrapePage(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: usage: scrape page {text|links|meta}", ErrMissingArgs)
	}
	sub := strings.ToLower(args[0])
	var script string
	switch sub {
	case "text":
		script = pageTextScript(c.limits.MaxTextChars)
	case "links":
		script = pageLinksScript(c.limits.MaxLinks)
	case "meta":
		script = pageMetaScript()
	default:
		if hint := suggestFor(sub, pageSubOps); hint != "" {
			return fmt.Errorf("%w: scrape page %s (did you mean %q?)", ErrUnknownSubOp, sub, hint)
		}
		return fmt.Errorf("%w: scrape page %s", ErrUnknownSubOp, sub)
	}

	done := c.beginOp(OpScrape)
	defer done()

	res, err := c.evaluator.Evaluate(ctx, script)
	switch {
	case err != nil:
		c.output.Append(SeverityException, "Uncaught: "+err.Error())
		return nil
	case res.Thrown:
		c.output.Append(SeverityError, res.Message)
		return nil
	}

	obj, _ := res.Value.(map[string]any)
	switch sub {
	case "text":
		c.renderPageText(obj)
	case "links":
		c.renderPageLinks(obj)
	case "meta":
		c.renderPageMeta(obj)
	}
	return nil
}

func (c *Console) renderPageText(obj map[string]any) {
	text, _ := obj["text"].(string)
	if text == "" {
		c.output.Append(SeverityWarning, "page has no visible text")
		return
	}
	c.output.Append(SeverityRaw, text)
	if truncated, _ := obj["truncated"].(bool); truncated {
		c.output.Appendf(SeverityInfo, "(text capped at %d characters, %d total)", c.limits.MaxTextChars, countOf(obj["total"]))
	}
}

func (c *Console) renderPageLinks(obj map[string]any) {
	links, _ := obj["links"].([]any)
	if len(links) == 0 {
		c.output.Append(SeverityWarning, "no links found")
		return
	}
	for i, raw := range links {
		link, _ := raw.(map[string]any)
		href, _ := link["href"].(string)
		text, _ := link["text"].(string)
		if text == "" {
			c.output.Appendf(SeverityRaw, "%2d. %s", i+1, href)
			continue
		}
		c.output.Appendf(SeverityRaw, "%2d. %s (%s)", i+1, text, href)
	}
	if total := countOf(obj["total"]); total > int64(len(links)) {
		c.output.Appendf(SeverityInfo, "(showing %d of %d links)", len(links), total)
	}
}

func (c *Console) renderPageMeta(obj map[string]any) {
	if title, _ := obj["title"].(string); title != "" {
		c.output.Appendf(SeverityRaw, "title: %s", title)
	}
	meta, _ := obj["meta"].([]any)
	if len(meta) == 0 {
		c.output.Append(SeverityWarning, "no named meta tags found")
		return
	}
	for _, raw := range meta {
		tag, _ := raw.(map[string]any)
		key, _ := tag["key"].(string)
		content, _ := tag["content"].(string)
		c.output.Appendf(SeverityRaw, "%s: %s", key, content)
	}
}

// handleTarget is the explicit validation action. Failure keeps the
// previous target untouched.
func (c *Console) handleTarget(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: usage: target <url>", ErrMissingArgs)
	}
	u, err := url.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w (got %q)", ErrBadScheme, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid url: missing host")
	}
	c.target = u
	c.repo, c.isRepo = gitraw.RepoFromURL(u)
	c.logger.Info("target validated", "target", u.String(), "repository", c.isRepo, "session", c.session)
	if c.isRepo {
		c.output.Appendf(SeveritySuccess, "target set: %s (repository %s)", u, c.repo)
	} else {
		c.output.Appendf(SeveritySuccess, "target set: %s", u)
	}
	return nil
}

// handleOpen points the inspected context at a URL: the argument if given,
// otherwise the validated target.
func (c *Console) handleOpen(ctx context.Context, args []string) error {
	var dest string
	switch {
	case len(args) > 0:
		dest = args[0]
	case c.target != nil:
		dest = c.target.String()
	default:
		return fmt.Errorf("%w: usage: open [url] (or validate a target first)", ErrMissingArgs)
	}
	if err := c.evaluator.Navigate(ctx, dest); err != nil {
		return err
	}
	c.output.Appendf(SeveritySuccess, "opened %s", c.evaluator.Location())
	return nil
}

func (c *Console) handleStatus() {
	exec, dom, scrape := c.flags.Snapshot()
	c.output.Appendf(SeverityInfo, "session:  %s", c.session)
	c.output.Appendf(SeverityInfo, "engine:   %s", c.evaluator.Describe())
	if loc := c.evaluator.Location(); loc != "" {
		c.output.Appendf(SeverityInfo, "location: %s", loc)
	}
	if c.target != nil {
		c.output.Appendf(SeverityInfo, "target:   %s", c.target)
	} else {
		c.output.Append(SeverityInfo, "target:   (none)")
	}
	c.output.Appendf(SeverityInfo, "badge:    %s", c.badge.State())
	c.output.Appendf(SeverityInfo, "ops:      exec=%s dom=%s scrape=%s",
		activeWord(exec), activeWord(dom), activeWord(scrape))
}

func activeWord(b bool) string {
	if b {
		return "active"
	}
	return "idle"
}

func (c *Console) handleHistory() {
	entries := c.history.Chronological()
	if len(entries) == 0 {
		c.output.Append(SeverityInfo, "history is empty")
		return
	}
	for i, entry := range entries {
		c.output.Appendf(SeverityRaw, "%3d  %s", i+1, entry)
	}
}

var helpText = []struct{ usage, desc string }{
	{"help", "show this command list"},
	{"clear", "clear the output log and screen"},
	{"target <url>", "validate a URL as the scrape target"},
	{"open [url]", "point the inspected page at a URL (default: target)"},
	{"eval <script>", "evaluate script in the inspected page (also: exec, run)"},
	{"dom set <sel> <text>", "set textContent on every selector match"},
	{"dom html <sel> <markup>", "set innerHTML on every selector match"},
	{"dom attr <sel> <name> <value>", "set an attribute on every selector match"},
	{"dom replace <old> <new>", "replace literal text under document.body"},
	{"scrape github {readme|files|<path>}", "fetch raw files from the target repository"},
	{"scrape page {text|links|meta}", "extract content from the inspected page"},
	{"status", "show session, engine, target, badge, and flags"},
	{"history", "list submitted commands"},
	{"exit", "leave the console (also: quit)"},
	{"<anything else>", "evaluated as script in the inspected page"},
}

func (c *Console) handleHelp() {
	for _, entry := range helpText {
		c.output.Appendf(SeverityRaw, "  %-36s %s", entry.usage, entry.desc)
	}
}

func (c *Console) handleClear() {
	c.output.Clear()
	if c.clearTerm {
		_, _ = c.out.Write([]byte("\x1b[2J\x1b[H"))
	}
}

// truncateClusters cuts s at max user-perceived characters (grapheme
// clusters), never splitting a cluster.
func truncateClusters(s string, max int) (string, bool) {
	if max <= 0 {
		return s, false
	}
	gr := uniseg.NewGraphemes(s)
	count := 0
	for gr.Next() {
		count++
		if count > max {
			start, _ := gr.Positions()
			return s[:start], true
		}
	}
	return s, false
}
