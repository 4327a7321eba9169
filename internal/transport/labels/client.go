// Package labels resolves reference-taxonomy ids to display labels via the
// reference service HTTP API.
package labels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client is the reference service client. An empty base URL disables remote
// resolution; documents are then indexed without labels.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient creates a label resolution client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type resolveRequest struct {
	IDs []string `json:"ids"`
}

type resolveResponse struct {
	Labels map[string]string `json:"labels"`
}

// Resolve returns labels for the given ids in one batched call. Unknown ids
// are simply absent from the result, never an error.
func (c *Client) Resolve(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 || c.baseURL == "" {
		return map[string]string{}, nil
	}

	body, err := json.Marshal(resolveRequest{IDs: ids})
	if err != nil {
		return nil, fmt.Errorf("marshal resolve request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/labels/resolve", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resolve labels: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("resolve labels: unexpected status %d", resp.StatusCode)
	}

	var out resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode resolve response: %w", err)
	}
	if out.Labels == nil {
		out.Labels = map[string]string{}
	}
	return out.Labels, nil
}
