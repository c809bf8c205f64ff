package inspect

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// maxDocumentBytes caps how much of a response the sandbox will parse.
const maxDocumentBytes = 8 << 20

// fetchDocument retrieves rawURL and parses the body as HTML, decoding
// legacy charsets from the Content-Type header or a meta tag. The returned
// URL reflects any redirects the client followed.
func fetchDocument(ctx context.Context, client *http.Client, rawURL string) (*html.Node, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, fmt.Errorf("fetch %s: unexpected status %s", rawURL, resp.Status)
	}

	body := io.LimitReader(resp.Body, maxDocumentBytes)
	decoded, err := charset.NewReader(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", rawURL, err)
	}
	root, err := html.Parse(decoded)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}

	finalURL := resp.Request.URL
	if finalURL == nil {
		finalURL, _ = url.Parse(rawURL)
	}
	return root, finalURL, nil
}
