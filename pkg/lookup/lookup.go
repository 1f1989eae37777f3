// Package lookup checks candidate e-mail addresses against a remote user
// directory.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-formstate/pkg/validation"
)

// DefaultBaseURL is the public directory the demo form queries.
const DefaultBaseURL = "https://jsonplaceholder.typicode.com/users"

// ErrUnavailable wraps every failure to obtain a verdict: transport errors,
// non-2xx responses and malformed payloads.
var ErrUnavailable = errors.New("lookup: directory unavailable")

// EmailLookup reports whether an address is already taken.
type EmailLookup interface {
	LookupEmail(ctx context.Context, candidate string) (taken bool, err error)
}

// Func adapts a function into an EmailLookup.
type Func func(ctx context.Context, candidate string) (bool, error)

// LookupEmail delegates to the underlying function.
func (fn Func) LookupEmail(ctx context.Context, candidate string) (bool, error) {
	return fn(ctx, candidate)
}

// HTTPClient queries `<base>?email=<candidate>` and treats a non-empty JSON
// array as "taken".
type HTTPClient struct {
	base    string
	client  *http.Client
	logger  *zap.Logger
	maxBody int64
	group   singleflight.Group
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		if client != nil {
			c.client = client
		}
	}
}

// WithTimeout sets the http.Client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.client = &http.Client{Timeout: d, Transport: c.client.Transport}
		}
	}
}

// WithLogger routes request diagnostics to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *HTTPClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewHTTPClient builds a client for base; an empty base selects
// DefaultBaseURL.
func NewHTTPClient(base string, opts ...Option) (*HTTPClient, error) {
	if strings.TrimSpace(base) == "" {
		base = DefaultBaseURL
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("lookup: parse base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("lookup: unsupported scheme %q", parsed.Scheme)
	}

	c := &HTTPClient{
		base:    parsed.String(),
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  zap.NewNop(),
		maxBody: 1 << 20,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// LookupEmail implements EmailLookup. Concurrent lookups of the same
// candidate share one request.
func (c *HTTPClient) LookupEmail(ctx context.Context, candidate string) (bool, error) {
	ch := c.group.DoChan(candidate, func() (any, error) {
		return c.fetch(context.WithoutCancel(ctx), candidate)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		if res.Shared {
			c.logger.Debug("email lookup shared", zap.String("email", candidate))
		}
		return res.Val.(bool), nil
	case <-ctx.Done():
		return false, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
	}
}

func (c *HTTPClient) fetch(ctx context.Context, candidate string) (bool, error) {
	reqURL, err := url.Parse(c.base)
	if err != nil {
		return false, fmt.Errorf("%w: parse url: %w", ErrUnavailable, err)
	}
	q := reqURL.Query()
	q.Set("email", candidate)
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return false, fmt.Errorf("%w: request: %w", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: do request: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	var payload []json.RawMessage
	if err := json.NewDecoder(io.LimitReader(resp.Body, c.maxBody)).Decode(&payload); err != nil {
		return false, fmt.Errorf("%w: decode: %w", ErrUnavailable, err)
	}
	if payload == nil {
		return false, fmt.Errorf("%w: response is not a JSON array", ErrUnavailable)
	}

	c.logger.Debug("email lookup",
		zap.String("email", candidate),
		zap.Int("matches", len(payload)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return len(payload) > 0, nil
}

// EmailAvailable builds the async check that fails with takenMsg when the
// address is already in use. Empty values are not looked up. Lookup errors
// surface as collaborator failures carrying unavailableMsg.
func EmailAvailable(l EmailLookup, takenMsg, unavailableMsg string) validation.AsyncCheck {
	return validation.AsyncCheck{
		Name:               "emailAvailable",
		UnavailableMessage: unavailableMsg,
		Fn: func(ctx context.Context, value any) (string, error) {
			candidate, _ := value.(string)
			candidate = strings.TrimSpace(candidate)
			if candidate == "" || l == nil {
				return "", nil
			}
			taken, err := l.LookupEmail(ctx, candidate)
			if err != nil {
				return "", err
			}
			if taken {
				return takenMsg, nil
			}
			return "", nil
		},
	}
}
