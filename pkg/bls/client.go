// Package bls is a small client for the Bureau of Labor Statistics
// public timeseries API, scoped to the OEWS wage series the salary
// validator needs.
package bls

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public v2 timeseries endpoint.
const DefaultBaseURL = "https://api.bls.gov/publicAPI/v2/timeseries/data/"

// OEWS data type codes. Each one selects a different statistic within
// the same occupation/area series family.
const (
	DataTypeEmployment   = "01"
	DataTypeMeanHourly   = "03"
	DataTypeMeanAnnual   = "04"
	DataTypePct10        = "06"
	DataTypePct25        = "07"
	DataTypeMedian       = "08"
	DataTypePct75        = "09"
	DataTypePct90        = "10"
)

// WageData holds one occupation/area's annual wage distribution. Nil
// fields mean the statistic was suppressed or not published for that
// series.
type WageData struct {
	OccupationCode string   `json:"occupation_code"`
	AreaCode       string   `json:"area_code"`
	Year           int      `json:"year"`
	MeanAnnual     *float64 `json:"mean_annual,omitempty"`
	Pct10          *float64 `json:"pct_10,omitempty"`
	Pct25          *float64 `json:"pct_25,omitempty"`
	Median         *float64 `json:"median,omitempty"`
	Pct75          *float64 `json:"pct_75,omitempty"`
	Pct90          *float64 `json:"pct_90,omitempty"`
}

// Client queries OEWS wage series with throttling and caching. The
// public API allows 25 requests/day unregistered and 500/day with a
// key, so every fetched distribution is cached for the lifetime of the
// client and optionally written through to persistent storage.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	store   Cache

	mu    sync.Mutex
	cache map[cacheKey]*WageData
}

// Cache persists wage distributions across runs. Implementations must
// treat a miss as (nil, nil).
type Cache interface {
	GetCachedWages(ctx context.Context, occupation, area string, year int) (*WageData, error)
	SetCachedWages(ctx context.Context, data *WageData) error
}

type cacheKey struct {
	occupation string
	area       string
	year       int
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the BLS registration key.
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

// WithCache attaches a persistent write-through cache.
func WithCache(cache Cache) Option {
	return func(c *Client) { c.store = cache }
}

// NewClient returns a Client throttled to stay inside the public API's
// rate expectations.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
		cache:   make(map[cacheKey]*WageData),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SeriesID builds an OEWS series identifier. The layout is the survey
// prefix, a 7-digit area code, a 6-zero industry segment, the
// occupation code without its hyphen, and a 2-digit data type.
func SeriesID(areaCode, occupationCode, dataType string) string {
	area := fmt.Sprintf("%07s", areaCode)
	occ := strings.ReplaceAll(occupationCode, "-", "")
	return "OEUM" + area + "000000" + occ + dataType
}

// OccupationWages fetches the annual wage distribution for one
// occupation and metro area. Results are served from cache when
// available; otherwise all percentile series are requested in a single
// API call.
func (c *Client) OccupationWages(ctx context.Context, occupationCode, areaCode string, year int) (*WageData, error) {
	key := cacheKey{occupation: occupationCode, area: areaCode, year: year}

	c.mu.Lock()
	if cached, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	if c.store != nil {
		stored, err := c.store.GetCachedWages(ctx, occupationCode, areaCode, year)
		if err != nil {
			zap.S().Warnw("wage cache read failed", "error", err)
		} else if stored != nil {
			c.mu.Lock()
			c.cache[key] = stored
			c.mu.Unlock()
			return stored, nil
		}
	}

	dataTypes := map[string]string{
		DataTypeMeanAnnual: SeriesID(areaCode, occupationCode, DataTypeMeanAnnual),
		DataTypePct10:      SeriesID(areaCode, occupationCode, DataTypePct10),
		DataTypePct25:      SeriesID(areaCode, occupationCode, DataTypePct25),
		DataTypeMedian:     SeriesID(areaCode, occupationCode, DataTypeMedian),
		DataTypePct75:      SeriesID(areaCode, occupationCode, DataTypePct75),
		DataTypePct90:      SeriesID(areaCode, occupationCode, DataTypePct90),
	}

	seriesIDs := make([]string, 0, len(dataTypes))
	for _, id := range dataTypes {
		seriesIDs = append(seriesIDs, id)
	}

	values, err := c.fetchSeries(ctx, seriesIDs, year)
	if err != nil {
		return nil, err
	}

	data := &WageData{
		OccupationCode: occupationCode,
		AreaCode:       areaCode,
		Year:           year,
	}
	for dtype, id := range dataTypes {
		v, ok := values[id]
		if !ok {
			continue
		}
		switch dtype {
		case DataTypeMeanAnnual:
			data.MeanAnnual = &v
		case DataTypePct10:
			data.Pct10 = &v
		case DataTypePct25:
			data.Pct25 = &v
		case DataTypeMedian:
			data.Median = &v
		case DataTypePct75:
			data.Pct75 = &v
		case DataTypePct90:
			data.Pct90 = &v
		}
	}

	c.mu.Lock()
	c.cache[key] = data
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.SetCachedWages(ctx, data); err != nil {
			zap.S().Warnw("wage cache write failed", "error", err)
		}
	}
	return data, nil
}

type seriesRequest struct {
	SeriesID        []string `json:"seriesid"`
	StartYear       string   `json:"startyear"`
	EndYear         string   `json:"endyear"`
	RegistrationKey string   `json:"registrationkey,omitempty"`
}

type seriesResponse struct {
	Status  string   `json:"status"`
	Message []string `json:"message"`
	Results struct {
		Series []struct {
			SeriesID string `json:"seriesID"`
			Data     []struct {
				Year  string `json:"year"`
				Value string `json:"value"`
			} `json:"data"`
		} `json:"series"`
	} `json:"Results"`
}

// fetchSeries posts one batched timeseries request and maps series IDs
// to their most recent numeric value within the requested year.
func (c *Client) fetchSeries(ctx context.Context, seriesIDs []string, year int) (map[string]float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "bls: rate limit wait")
	}

	payload := seriesRequest{
		SeriesID:        seriesIDs,
		StartYear:       strconv.Itoa(year),
		EndYear:         strconv.Itoa(year),
		RegistrationKey: c.apiKey,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "bls: encoding request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "bls: building request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "bls: request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "bls: reading response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("bls: unexpected status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed seriesResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, eris.Wrap(err, "bls: decoding response")
	}
	if parsed.Status != "REQUEST_SUCCEEDED" {
		return nil, eris.Errorf("bls: api error %s: %s", parsed.Status, strings.Join(parsed.Message, "; "))
	}

	values := make(map[string]float64)
	for _, series := range parsed.Results.Series {
		for _, point := range series.Data {
			// Values above 999 come back with thousands separators.
			v, err := strconv.ParseFloat(strings.ReplaceAll(point.Value, ",", ""), 64)
			if err != nil {
				continue
			}
			values[series.SeriesID] = v
			break
		}
	}
	return values, nil
}
