package console

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pagescope/pagescope/internal/gitraw"
	"github.com/pagescope/pagescope/internal/inspect"
)

// newScrapeConsole stands up an httptest raw host serving the given
// branch-qualified paths for octo/demo, and a Console whose client points
// at it. The returned counter tracks every request the host saw.
func newScrapeConsole(t *testing.T, files map[string]string, opts Options) (*Console, *atomic.Int64) {
	t.Helper()
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		key := strings.TrimPrefix(r.URL.Path, "/octo/demo/")
		content, ok := files[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(content))
	}))
	t.Cleanup(srv.Close)

	opts.Raw = gitraw.New(
		gitraw.WithBaseURL(srv.URL),
		gitraw.WithHTTPClient(srv.Client()),
		gitraw.WithLogger(quietLogger()),
	)
	if opts.Evaluator == nil {
		opts.Evaluator = &inspect.Fake{}
	}
	opts.Output = &bytes.Buffer{}
	opts.Logger = quietLogger()
	c := New(opts)
	t.Cleanup(c.Close)

	require.True(t, c.Dispatch(context.Background(), "target https://github.com/octo/demo"))
	return c, &requests
}

func TestScrapeGitHubReadmeFallsBackToMaster(t *testing.T) {
	t.Parallel()
	c, requests := newScrapeConsole(t, map[string]string{
		"master/README.md": "# Demo\nHello.",
	}, Options{})

	require.True(t, c.Dispatch(context.Background(), "scrape github readme"))

	header := findLine(t, c, "--- octo/demo@master README.md ---")
	require.Equal(t, SeverityInfo, header.Severity)
	body := findLine(t, c, "# Demo")
	require.Equal(t, SeverityRaw, body.Severity)
	require.Equal(t, "# Demo\nHello.", body.Text)
	findLine(t, c, "--- end ---")
	// One miss on main, one hit on master.
	require.Equal(t, int64(2), requests.Load())
}

func TestScrapeGitHubFetchesArbitraryPath(t *testing.T) {
	t.Parallel()
	c, requests := newScrapeConsole(t, map[string]string{
		"main/docs/guide.md": "guide body",
	}, Options{})

	require.True(t, c.Dispatch(context.Background(), "scrape github docs/guide.md"))

	findLine(t, c, "--- octo/demo@main docs/guide.md ---")
	findLine(t, c, "guide body")
	require.Equal(t, int64(1), requests.Load())
}

func TestScrapeGitHubTruncatesLongFiles(t *testing.T) {
	t.Parallel()
	c, _ := newScrapeConsole(t, map[string]string{
		"main/README.md": "abcdefghijklmnopqrstuvwxy",
	}, Options{Limits: Limits{MaxFileChars: 10}})

	require.True(t, c.Dispatch(context.Background(), "scrape github readme"))

	body := findLine(t, c, "abcdefghij")
	require.Equal(t, "abcdefghij… [truncated]", body.Text)
}

func TestScrapeGitHubFilesListsProbeHits(t *testing.T) {
	t.Parallel()
	c, _ := newScrapeConsole(t, map[string]string{
		"main/README.md":  "readme",
		"master/Makefile": "all:",
	}, Options{})

	require.True(t, c.Dispatch(context.Background(), "scrape github files"))

	heading := findLine(t, c, "octo/demo has:")
	require.Equal(t, SeverityInfo, heading.Severity)
	findLine(t, c, "  README.md (main)")
	findLine(t, c, "  Makefile (master)")

	// Hits come back in the fixed probe order, README.md before Makefile.
	texts := outputTexts(c)
	readmeAt, makefileAt := -1, -1
	for i, text := range texts {
		switch text {
		case "  README.md (main)":
			readmeAt = i
		case "  Makefile (master)":
			makefileAt = i
		}
	}
	require.Less(t, readmeAt, makefileAt)
}

func TestScrapeGitHubFilesNoneFound(t *testing.T) {
	t.Parallel()
	c, requests := newScrapeConsole(t, nil, Options{})

	require.True(t, c.Dispatch(context.Background(), "scrape github files"))

	line := findLine(t, c, "no well-known files found in octo/demo")
	require.Equal(t, SeverityWarning, line.Severity)
	// Every well-known path probed on both branches.
	require.Equal(t, int64(2*len(gitraw.WellKnownFiles)), requests.Load())
}

func TestScrapeGitHubReadmeNotFound(t *testing.T) {
	t.Parallel()
	c, _ := newScrapeConsole(t, nil, Options{})

	require.True(t, c.Dispatch(context.Background(), "scrape github readme"))

	line := findLine(t, c, "README.md not found in octo/demo (tried main, master)")
	require.Equal(t, SeverityError, line.Severity)
	for _, text := range outputTexts(c) {
		require.False(t, strings.HasPrefix(text, "Error:"), "unexpected error line %q", text)
	}
}

func TestScrapeGitHubRejectsNonRepoTarget(t *testing.T) {
	t.Parallel()
	c, requests := newScrapeConsole(t, map[string]string{
		"main/README.md": "readme",
	}, Options{})
	ctx := context.Background()

	require.True(t, c.Dispatch(ctx, "target https://example.com/page"))
	ch, cancel := c.bus.Subscribe(8)
	defer cancel()

	require.True(t, c.Dispatch(ctx, "scrape github readme"))

	findLine(t, c, "Error: validated target is not a github.com repository")
	require.Empty(t, drainEvents(ch))
	require.Equal(t, int64(0), requests.Load())
}

func TestScrapeGitHubEmitsOpEvents(t *testing.T) {
	t.Parallel()
	c, _ := newScrapeConsole(t, map[string]string{
		"main/README.md": "readme",
	}, Options{})
	ch, cancel := c.bus.Subscribe(8)
	defer cancel()

	require.True(t, c.Dispatch(context.Background(), "scrape github readme"))

	events := drainEvents(ch)
	require.Len(t, events, 2)
	require.Equal(t, EventOperationStarted, events[0].Type)
	require.Equal(t, OpScrape.String(), events[0].Op)
	require.Equal(t, EventOperationEnded, events[1].Type)
	require.False(t, c.Flags().Active(OpScrape))
}
