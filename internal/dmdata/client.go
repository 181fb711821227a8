// Package dmdata – pull-feed client.
//
// Client implements the cursor-based polling REST API:
//
//	GET /v2/telegram?type=VXSE&cursorToken=<token>&formatMode=json
//
// Each call returns a batch of telegram envelopes and the cursor for the next
// call. Requests are bounded by the configured timeout; a timeout is a
// retryable failure, never fatal to the poll loop.
package dmdata

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout bounds a single provider request.
const DefaultTimeout = 10 * time.Second

// Client talks to the provider's REST API. Safe for concurrent use.
type Client struct {
	baseURL      string
	apiKey       string
	telegramType string
	hc           *http.Client
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client (tests use this to
// install a mock transport).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.hc = hc }
}

// WithTelegramType overrides the telegram type filter (default "VXSE").
func WithTelegramType(t string) ClientOption {
	return func(c *Client) { c.telegramType = t }
}

// NewClient constructs a provider client. baseURL is the API origin
// (e.g. "https://api.dmdata.jp"); apiKey authenticates via HTTP Basic auth.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		telegramType: "VXSE",
		hc:           &http.Client{Timeout: DefaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Poll fetches telegrams published since cursor. An empty cursor starts from
// the provider's current position. The returned cursor must be passed to the
// next call; it is non-empty on every successful response.
func (c *Client) Poll(ctx context.Context, cursor string) (*PollResponse, error) {
	q := url.Values{}
	q.Set("type", c.telegramType)
	q.Set("formatMode", "json")
	if cursor != "" {
		q.Set("cursorToken", cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/telegram?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.apiKey+":")))
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dmdata: poll: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused; body content is not useful
		// beyond the status line for this API.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("dmdata: poll: unexpected status %d", resp.StatusCode)
	}

	var out PollResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("dmdata: poll: decode response: %w", err)
	}
	return &out, nil
}
