// Package transport implements the catalog, BOM and supplier ports against
// a JSON REST catalog service. Requests are throttled client-side and
// non-2xx responses are mapped to errors.APIError so callers can tell rate
// limits, missing items and upstream outages apart.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/agentstation/bomsync/pkg/constants"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/logging"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// Client performs authenticated, rate-limited JSON requests.
type Client struct {
	baseURL  *url.URL
	upstream string
	http     *http.Client
	auth     Authenticator
	limiter  *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithAuth sets the authenticator.
func WithAuth(a Authenticator) Option {
	return func(c *Client) {
		if a != nil {
			c.auth = a
		}
	}
}

// WithAPIKey authenticates with a Bearer token when key is non-empty.
func WithAPIKey(key *string) Option {
	return func(c *Client) {
		c.auth = authFor(key)
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithRateLimit bounds the request rate. A non-positive rps disables the limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// WithUpstream names the upstream in errors and logs.
func WithUpstream(name string) Option {
	return func(c *Client) {
		c.upstream = name
	}
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &errors.ValidationError{
			Field:   "baseURL",
			Value:   baseURL,
			Message: "must be an absolute URL",
		}
	}
	c := &Client{
		baseURL:  u,
		upstream: "catalog-service",
		http:     &http.Client{Timeout: DefaultHTTPTimeout},
		auth:     NoAuth{},
		limiter:  rate.NewLimiter(rate.Limit(constants.DefaultRequestsPerSecond), constants.BurstSize),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// endpoint joins escaped path segments onto the base URL.
func (c *Client) endpoint(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return c.baseURL.JoinPath(escaped...).String()
}

// Do sends a JSON request and decodes a JSON response into out, if non-nil.
func (c *Client) Do(ctx context.Context, method, endpoint string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.WrapResource("throttle", "request", method+" "+endpoint, err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.WrapParse("json", "request", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return errors.WrapResource("create", "request", method+" "+endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.auth.Apply(req)

	logging.FromContext(ctx).Debug().
		Str("method", method).
		Str("url", endpoint).
		Msg("Calling catalog service")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &errors.APIError{
			Upstream:   c.upstream,
			StatusCode: http.StatusServiceUnavailable,
			Message:    "request failed",
			Endpoint:   endpoint,
			Err:        err,
		}
	}
	return c.decode(ctx, resp, endpoint, out)
}
