// Package postgrest implements the backend contracts against a hosted
// PostgREST endpoint (tables, views and RPC functions under /rest/v1).
package postgrest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/ratelimit"
	"resty.dev/v3"

	"github.com/starford/vouch/internal/backend"
)

const restPrefix = "/rest/v1"

// Config holds connection settings.
type Config struct {
	URL               string
	APIKey            string
	RequestsPerSecond int
	Timeout           time.Duration
}

// Client is a PostgREST backed backend.Backend.
type Client struct {
	rl   ratelimit.Limiter
	http *resty.Client
}

var _ backend.Backend = (*Client)(nil)

// New creates a client. A zero RequestsPerSecond disables rate limiting.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")+restPrefix).
		SetTimeout(timeout).
		// Failures surface to the caller; the taxonomy store does not retry.
		SetRetryCount(0).
		SetHeader("apikey", cfg.APIKey).
		SetHeader("Accept", "application/json").
		SetAuthToken(cfg.APIKey)

	rl := ratelimit.NewUnlimited()
	if cfg.RequestsPerSecond > 0 {
		rl = ratelimit.New(cfg.RequestsPerSecond)
	}
	return &Client{rl: rl, http: httpClient}
}

// request returns a rate limited request bound to ctx.
func (c *Client) request(ctx context.Context) *resty.Request {
	c.rl.Take()
	return c.http.R().SetContext(ctx)
}

func checkResponse(op string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("postgrest: %s: %w", op, err)
	}
	if resp.IsError() {
		return fmt.Errorf("postgrest: %s: HTTP %d: %s", op, resp.StatusCode(), resp.String())
	}
	return nil
}

// Ping requests the API root.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.request(ctx).Get("/")
	return checkResponse("ping", resp, err)
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.http.Close()
}

// quote wraps a filter value in double quotes so reserved characters
// (commas, parentheses, dots) are taken literally.
func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}

func inList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quote(v)
	}
	return "in.(" + strings.Join(quoted, ",") + ")"
}
