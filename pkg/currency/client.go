// Package currency converts amounts between currencies using a live
// exchange-rate service, a Redis rate cache, and a static fallback table.
package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPClient is an interface for HTTP client operations (enables testing).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches exchange rates from an open.er-api.com compatible service:
//
//	GET {BaseURL}/latest/{BASE} → {"result":"success","base_code":"USD","rates":{"EUR":0.92,...}}
type Client struct {
	BaseURL string
	client  HTTPClient
}

// NewClient creates a rate client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// SetHTTPClient sets a custom HTTP client for testing.
func (c *Client) SetHTTPClient(client HTTPClient) {
	c.client = client
}

type latestResponse struct {
	Result    string             `json:"result"`
	BaseCode  string             `json:"base_code"`
	Rates     map[string]float64 `json:"rates"`
	ErrorType string             `json:"error-type"`
}

// LatestRates returns the units of every known currency per one unit of base.
func (c *Client) LatestRates(ctx context.Context, base string) (map[string]float64, error) {
	url := fmt.Sprintf("%s/latest/%s", c.BaseURL, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("currency: build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("currency: fetch %s: %w", base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("currency: rate service returned status %d", resp.StatusCode)
	}

	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("currency: decode rates: %w", err)
	}
	if body.Result != "success" {
		return nil, fmt.Errorf("currency: rate service error: %s", body.ErrorType)
	}
	if len(body.Rates) == 0 {
		return nil, fmt.Errorf("currency: empty rate table for %s", base)
	}
	return body.Rates, nil
}
