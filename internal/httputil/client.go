package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pdiddy/paper-reconciler/pkg/types"
)

// StatusError reports a non-200 response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.Code)
}

// Client issues rate-limited GET requests with retry.
type Client struct {
	HTTP       *http.Client
	Limiter    *Limiter
	UserAgent  string
	MaxRetries int
}

// NewClient builds a Client from cfg.
func NewClient(cfg types.HTTPConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		HTTP:      &http.Client{Timeout: timeout},
		Limiter:   NewLimiter(cfg.RequestsPerSecond, 1),
		UserAgent: cfg.UserAgent,
	}
}

// Get waits for the host's rate limit and fetches url. The caller closes
// the body. Non-200 responses are returned as *StatusError with the body
// already closed.
func (c *Client) Get(ctx context.Context, url, accept string) (*http.Response, error) {
	if err := c.Limiter.Wait(ctx, url); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := DoWithRetry(ctx, c.HTTP, req, c.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}
	return resp, nil
}

// GetBytes fetches url and returns the whole body.
func (c *Client) GetBytes(ctx context.Context, url, accept string) ([]byte, error) {
	resp, err := c.Get(ctx, url, accept)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	return data, nil
}
