// Package feed implements the PriceOracle interface over an HTTP price-feed
// endpoint, for keepers that read quotes from an off-process oracle service.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	defaultHTTPTimeout      = 10 * time.Second
	defaultMaxRetries       = 3
	defaultRetryBackoffBase = 150 * time.Millisecond
)

// ErrTokenNotQuoted indicates the feed does not carry the requested token.
var ErrTokenNotQuoted = errors.New("feed: token not quoted")

// Client reads min/max quotes from a price-feed HTTP endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
}

// Option configures a new Client.
type Option func(*Client)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMaxRetries adjusts the retry budget.
func WithMaxRetries(max int) Option {
	return func(c *Client) {
		if max >= 0 {
			c.maxRetries = max
		}
	}
}

// NewClient constructs a feed client for the given base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("feed: base URL is required")
	}
	client := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// priceResponse is the feed's wire format. Quotes are decimal strings in
// 1e30 fixed point to survive JSON number precision limits.
type priceResponse struct {
	Token    string `json:"token"`
	MinPrice string `json:"minPrice"`
	MaxPrice string `json:"maxPrice"`
	UpdateMs int64  `json:"updateMs"`
}

// GetMaxPrice returns the maximum quoted price for the token.
func (c *Client) GetMaxPrice(ctx context.Context, token common.Address) (*big.Int, error) {
	resp, err := c.fetch(ctx, token)
	if err != nil {
		return nil, err
	}
	return parsePrice(resp.MaxPrice, "maxPrice")
}

// GetMinPrice returns the minimum quoted price for the token.
func (c *Client) GetMinPrice(ctx context.Context, token common.Address) (*big.Int, error) {
	resp, err := c.fetch(ctx, token)
	if err != nil {
		return nil, err
	}
	return parsePrice(resp.MinPrice, "minPrice")
}

func (c *Client) fetch(ctx context.Context, token common.Address) (*priceResponse, error) {
	endpoint := fmt.Sprintf("%s/price?token=%s", c.baseURL, url.QueryEscape(token.Hex()))

	var lastErr error
	backoff := defaultRetryBackoffBase
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("feed: build request: %w", err)
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("feed: read response: %w", readErr)
			case resp.StatusCode == http.StatusNotFound:
				return nil, fmt.Errorf("%w: %s", ErrTokenNotQuoted, token.Hex())
			case resp.StatusCode < 200 || resp.StatusCode >= 300:
				lastErr = fmt.Errorf("feed: http status %d: %s", resp.StatusCode, string(body))
			default:
				var out priceResponse
				if err := json.Unmarshal(body, &out); err != nil {
					return nil, fmt.Errorf("feed: decode response: %w", err)
				}
				return &out, nil
			}
		}

		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("feed: request failed without error detail")
}

func parsePrice(raw, field string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok || v.Sign() <= 0 {
		return nil, fmt.Errorf("feed: invalid %s %q", field, raw)
	}
	return v, nil
}
