// Package blob downloads uploaded files from object storage over HTTP.
package blob

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client fetches files with a request timeout and a hard size ceiling.
type Client struct {
	http     *http.Client
	maxBytes int64
}

// NewClient creates a download client.
func NewClient(timeout time.Duration, maxBytes int64) *Client {
	if timeout <= 0 {
		timeout = time.Minute
	}
	if maxBytes <= 0 {
		maxBytes = 256 * 1024 * 1024
	}
	return &Client{
		http:     &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Fetch downloads the file body. Oversized files fail rather than truncate:
// a partial file would parse to wrong counts.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: unexpected status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body %s: %w", url, err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("download %s: file exceeds %d bytes", url, c.maxBytes)
	}
	return data, nil
}
