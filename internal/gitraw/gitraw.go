// Package gitraw fetches raw file content from a GitHub-style raw host.
//
// Repositories rarely advertise their default branch, so every fetch tries
// the conventional branch names in order ("main", then "master") and reports
// which one answered.
package gitraw

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the public raw-content host for github.com repositories.
const DefaultBaseURL = "https://raw.githubusercontent.com"

// maxFileBytes bounds how much of a raw file is read.
const maxFileBytes = 2 << 20

// branches are the default branch names tried in order.
var branches = [...]string{"main", "master"}

// WellKnownFiles is the fixed probe set used to sketch a repository's shape
// without a directory-listing API.
var WellKnownFiles = []string{
	"README.md",
	"LICENSE",
	"package.json",
	"go.mod",
	"Cargo.toml",
	"pyproject.toml",
	"Makefile",
	"Dockerfile",
	".gitignore",
}

// ErrNotFound reports that a path was absent on every default branch.
var ErrNotFound = errors.New("file not found on any default branch")

// Repo identifies a repository by its owner and name.
type Repo struct {
	Owner string
	Name  string
}

func (r Repo) String() string { return r.Owner + "/" + r.Name }

// RepoFromURL extracts owner/name from a github.com repository URL. The
// second return is false when the URL is not a github.com repository.
func RepoFromURL(u *url.URL) (Repo, bool) {
	if u == nil {
		return Repo{}, false
	}
	host := strings.ToLower(u.Hostname())
	if host != "github.com" && host != "www.github.com" {
		return Repo{}, false
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 || segments[0] == "" || segments[1] == "" {
		return Repo{}, false
	}
	return Repo{Owner: segments[0], Name: strings.TrimSuffix(segments[1], ".git")}, true
}

// File is a successfully fetched raw file.
type File struct {
	Repo      Repo
	Path      string
	Branch    string
	Content   string
	Truncated bool // content hit the byte guard
}

// ProbeHit records one well-known file that answered, and on which branch.
type ProbeHit struct {
	Path   string
	Branch string
}

// Client fetches raw files. The zero value is not usable; call New.
type Client struct {
	base   string
	client *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at an alternate raw host.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.base = strings.TrimRight(base, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.client = client }
}

// WithTimeout sets a per-request timeout. Zero means none.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.client.Timeout = timeout }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New builds a Client for the public raw host unless options say otherwise.
func New(opts ...Option) *Client {
	c := &Client{
		base:   DefaultBaseURL,
		client: &http.Client{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchFile retrieves path from repo, trying each default branch in order.
// A non-success status or transport failure on one branch falls through to
// the next; exhaustion returns an error wrapping ErrNotFound.
func (c *Client) FetchFile(ctx context.Context, repo Repo, path string) (*File, error) {
	path = strings.TrimPrefix(path, "/")
	for _, branch := range branches {
		content, truncated, err := c.fetchBranch(ctx, repo, branch, path)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("fetch %s/%s: %w", repo, path, ctx.Err())
			}
			c.logger.Debug("raw fetch miss", "repo", repo.String(), "branch", branch, "path", path, "error", err)
			continue
		}
		return &File{Repo: repo, Path: path, Branch: branch, Content: content, Truncated: truncated}, nil
	}
	return nil, fmt.Errorf("fetch %s/%s: %w", repo, path, ErrNotFound)
}

// Probe checks each path individually with the usual branch fallback and
// returns the ones that answered. Individual failures are not reported.
func (c *Client) Probe(ctx context.Context, repo Repo, paths []string) []ProbeHit {
	var hits []ProbeHit
	for _, path := range paths {
		if ctx.Err() != nil {
			return hits
		}
		file, err := c.FetchFile(ctx, repo, path)
		if err != nil {
			continue
		}
		hits = append(hits, ProbeHit{Path: file.Path, Branch: file.Branch})
	}
	return hits
}

// ProbeWellKnown probes the fixed WellKnownFiles set.
func (c *Client) ProbeWellKnown(ctx context.Context, repo Repo) []ProbeHit {
	return c.Probe(ctx, repo, WellKnownFiles)
}

func (c *Client) fetchBranch(ctx context.Context, repo Repo, branch, path string) (string, bool, error) {
	rawURL := fmt.Sprintf("%s/%s/%s/%s/%s", c.base, repo.Owner, repo.Name, branch, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", false, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", false, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", false, fmt.Errorf("unexpected status %s", resp.Status)
	}

	// Read one byte past the guard so truncation is detectable.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFileBytes+1))
	if err != nil {
		return "", false, err
	}
	if len(body) > maxFileBytes {
		return string(body[:maxFileBytes]), true, nil
	}
	return string(body), false, nil
}
