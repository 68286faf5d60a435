package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client wraps an HTTP client with a bounded per-request timeout. Every
// non-2xx response is reported as an error; there are no retries.
type Client struct {
	rc *resty.Client
}

// New builds a client with the given timeout.
func New(timeout time.Duration) *Client {
	rc := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0)
	return &Client{rc: rc}
}

// Get fetches the URL and returns the response body.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.rc.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("get %s: unexpected status %d", url, resp.StatusCode())
	}
	return resp.Body(), nil
}
