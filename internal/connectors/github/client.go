package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// Client wraps go-github with pacing and error mapping.
type Client struct {
	gh       *gh.Client
	throttle *throttle
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	baseURL    string
	perSecond  float64
	httpClient *http.Client
}

// WithBaseURL points the client at a GitHub Enterprise or test server.
func WithBaseURL(u string) ClientOption {
	return func(o *clientOptions) { o.baseURL = u }
}

// WithRequestsPerSecond overrides the proactive throttle.
func WithRequestsPerSecond(r float64) ClientOption {
	return func(o *clientOptions) { o.perSecond = r }
}

// WithHTTPClient replaces the HTTP client. The token is then not applied.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) { o.httpClient = c }
}

// NewClient creates a GitHub API client. An empty token yields an
// unauthenticated client.
func NewClient(ctx context.Context, token string, opts ...ClientOption) (*Client, error) {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	hc := o.httpClient
	if hc == nil {
		if token != "" {
			ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
			hc = oauth2.NewClient(ctx, ts)
		} else {
			hc = &http.Client{}
		}
		hc.Timeout = DefaultTimeout
	}

	client := gh.NewClient(hc)
	if o.baseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(o.baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("github: parse base url: %w", err)
		}
		client.BaseURL = base
	}

	return &Client{gh: client, throttle: newThrottle(o.perSecond)}, nil
}

// GetRepository fetches a single repository.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*gh.Repository, error) {
	return call(ctx, c, "get repo", func() (*gh.Repository, *gh.Response, error) {
		return c.gh.Repositories.Get(ctx, owner, repo)
	})
}

// GetTree fetches the whole tree at ref.
func (c *Client) GetTree(ctx context.Context, owner, repo, ref string) (*gh.Tree, error) {
	return call(ctx, c, "get tree", func() (*gh.Tree, *gh.Response, error) {
		return c.gh.Git.GetTree(ctx, owner, repo, ref, true)
	})
}

// GetBlob fetches a blob by its SHA.
func (c *Client) GetBlob(ctx context.Context, owner, repo, sha string) (*gh.Blob, error) {
	return call(ctx, c, "get blob", func() (*gh.Blob, *gh.Response, error) {
		return c.gh.Git.GetBlob(ctx, owner, repo, sha)
	})
}

// Quota returns the rate limit state from the last response.
func (c *Client) Quota() gh.Rate {
	return c.throttle.snapshot()
}

// WaitForReset sleeps until the reported quota window resets.
func (c *Client) WaitForReset(ctx context.Context) error {
	return c.throttle.sleepUntil(ctx, c.throttle.snapshot().Reset.Time)
}

// call paces fn, records the quota it reports and maps its error.
func call[T any](ctx context.Context, c *Client, op string, fn func() (T, *gh.Response, error)) (T, error) {
	var zero T
	if err := c.throttle.wait(ctx); err != nil {
		return zero, fmt.Errorf("%s: %w", op, err)
	}
	v, resp, err := fn()
	c.throttle.observe(resp)
	if err != nil {
		return zero, mapError(op, err)
	}
	return v, nil
}

func mapError(op string, err error) error {
	var rl *gh.RateLimitError
	if errors.As(err, &rl) {
		return &RateLimitError{ResetAt: rl.Rate.Reset.Time, Limit: rl.Rate.Limit}
	}

	var resp *gh.ErrorResponse
	if errors.As(err, &resp) && resp.Response != nil {
		apiErr := &APIError{StatusCode: resp.Response.StatusCode, Message: resp.Message}
		if resp.Response.Request != nil {
			apiErr.URL = resp.Response.Request.URL.Path
		}
		return apiErr
	}
	return fmt.Errorf("%s: %w", op, err)
}
