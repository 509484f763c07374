// Package gsa is a small client for the GSA per-diem API, scoped to
// the lodging and M&IE rates the travel estimator needs.
package gsa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public per-diem v2 endpoint.
const DefaultBaseURL = "https://api.gsa.gov/travel/perdiem/v2"

// PerDiemRates holds one destination's daily rates for a fiscal year.
type PerDiemRates struct {
	City       string  `json:"city"`
	State      string  `json:"state"`
	FiscalYear int     `json:"fiscal_year"`
	Lodging    float64 `json:"lodging"`
	MIE        float64 `json:"mie"`
}

// Client queries GSA per-diem rates. The API requires a key; a keyless
// client reports every destination as unavailable so callers fall back
// to their default rates.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the api.data.gov key.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient returns a Client throttled well inside the api.data.gov
// hourly quota.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type ratesResponse struct {
	Rates []struct {
		Lodging float64 `json:"lodging"`
		Meals   float64 `json:"meals"`
	} `json:"rates"`
}

// Rates fetches the lodging and M&IE rates for a city, state, and
// fiscal year. A nil result with a nil error means rates are not
// available (no API key, or no listing for the destination); the
// caller decides what to fall back to.
func (c *Client) Rates(ctx context.Context, city, state string, fiscalYear int) (*PerDiemRates, error) {
	if c.apiKey == "" {
		return nil, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "gsa: rate limit wait")
	}

	endpoint := fmt.Sprintf("%s/rates/city/%s/state/%s/year/%d",
		c.baseURL, url.PathEscape(city), url.PathEscape(state), fiscalYear)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "gsa: building request")
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "gsa: request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "gsa: reading response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("gsa: unexpected status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed ratesResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, eris.Wrap(err, "gsa: decoding response")
	}
	if len(parsed.Rates) == 0 {
		return nil, nil
	}

	return &PerDiemRates{
		City:       city,
		State:      state,
		FiscalYear: fiscalYear,
		Lodging:    parsed.Rates[0].Lodging,
		MIE:        parsed.Rates[0].Meals,
	}, nil
}
