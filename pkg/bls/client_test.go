package bls

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeriesID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		area       string
		occupation string
		dataType   string
		want       string
	}{
		{
			name:       "national median",
			area:       "0000000",
			occupation: "15-1221",
			dataType:   DataTypeMedian,
			want:       "OEUM000000000000015122108",
		},
		{
			name:       "short area code is zero padded",
			area:       "71650",
			occupation: "19-1099",
			dataType:   DataTypePct90,
			want:       "OEUM007165000000019109910",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SeriesID(tt.area, tt.occupation, tt.dataType))
		})
	}
}

// newTestServer serves a canned BLS response and records the request body.
func newTestServer(t *testing.T, status string, values map[string]string) (*httptest.Server, *seriesRequest) {
	t.Helper()
	var captured seriesRequest

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		type point struct {
			Year  string `json:"year"`
			Value string `json:"value"`
		}
		type series struct {
			SeriesID string  `json:"seriesID"`
			Data     []point `json:"data"`
		}
		var allSeries []series
		for id, v := range values {
			allSeries = append(allSeries, series{
				SeriesID: id,
				Data:     []point{{Year: "2023", Value: v}},
			})
		}
		resp := map[string]any{
			"status":  status,
			"Results": map[string]any{"series": allSeries},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, &captured
}

func TestOccupationWages_FetchesAndParses(t *testing.T) {
	values := map[string]string{
		SeriesID("0000000", "15-1221", DataTypeMedian):     "120000",
		SeriesID("0000000", "15-1221", DataTypePct90):      "180000",
		SeriesID("0000000", "15-1221", DataTypeMeanAnnual): "125000",
	}
	srv, captured := newTestServer(t, "REQUEST_SUCCEEDED", values)

	c := NewClient(WithBaseURL(srv.URL), WithAPIKey("test-key"))
	data, err := c.OccupationWages(context.Background(), "15-1221", "0000000", 2023)
	require.NoError(t, err)

	assert.Equal(t, "15-1221", data.OccupationCode)
	assert.Equal(t, "0000000", data.AreaCode)
	assert.Equal(t, 2023, data.Year)
	require.NotNil(t, data.Median)
	assert.InDelta(t, 120000.0, *data.Median, 0.001)
	require.NotNil(t, data.Pct90)
	assert.InDelta(t, 180000.0, *data.Pct90, 0.001)
	require.NotNil(t, data.MeanAnnual)
	assert.InDelta(t, 125000.0, *data.MeanAnnual, 0.001)
	// Suppressed statistics stay nil.
	assert.Nil(t, data.Pct10)

	// One batched request covering all six percentile series.
	assert.Len(t, captured.SeriesID, 6)
	assert.Equal(t, "2023", captured.StartYear)
	assert.Equal(t, "2023", captured.EndYear)
	assert.Equal(t, "test-key", captured.RegistrationKey)
}

func TestOccupationWages_MemoryCacheAvoidsSecondFetch(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"status":"REQUEST_SUCCEEDED","Results":{"series":[]}}`)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(WithBaseURL(srv.URL))
	ctx := context.Background()

	first, err := c.OccupationWages(ctx, "19-1099", "0000000", 2023)
	require.NoError(t, err)
	second, err := c.OccupationWages(ctx, "19-1099", "0000000", 2023)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
}

// memCache is an in-memory Cache for exercising write-through behavior.
type memCache struct {
	data map[string]*WageData
	sets int
	gets int
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string]*WageData)}
}

func (m *memCache) key(occupation, area string, year int) string {
	return fmt.Sprintf("%s|%s|%d", occupation, area, year)
}

func (m *memCache) GetCachedWages(_ context.Context, occupation, area string, year int) (*WageData, error) {
	m.gets++
	return m.data[m.key(occupation, area, year)], nil
}

func (m *memCache) SetCachedWages(_ context.Context, data *WageData) error {
	m.sets++
	m.data[m.key(data.OccupationCode, data.AreaCode, data.Year)] = data
	return nil
}

func TestOccupationWages_WritesThroughToPersistentCache(t *testing.T) {
	srv, _ := newTestServer(t, "REQUEST_SUCCEEDED", map[string]string{
		SeriesID("0000000", "15-1221", DataTypeMedian): "120000",
		SeriesID("0000000", "15-1221", DataTypePct75):  "150000",
	})

	cache := newMemCache()
	c := NewClient(WithBaseURL(srv.URL), WithCache(cache))

	_, err := c.OccupationWages(context.Background(), "15-1221", "0000000", 2023)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	stored := cache.data[cache.key("15-1221", "0000000", 2023)]
	require.NotNil(t, stored)
	require.NotNil(t, stored.Median)
	assert.InDelta(t, 120000.0, *stored.Median, 0.001)
}

func TestOccupationWages_ServedFromPersistentCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("API should not be called on a persistent cache hit")
	}))
	t.Cleanup(srv.Close)

	median := 120000.0
	cache := newMemCache()
	require.NoError(t, cache.SetCachedWages(context.Background(), &WageData{
		OccupationCode: "15-1221", AreaCode: "0000000", Year: 2023, Median: &median,
	}))
	cache.sets = 0

	c := NewClient(WithBaseURL(srv.URL), WithCache(cache))
	data, err := c.OccupationWages(context.Background(), "15-1221", "0000000", 2023)
	require.NoError(t, err)
	require.NotNil(t, data.Median)
	assert.InDelta(t, 120000.0, *data.Median, 0.001)
	assert.Equal(t, 0, cache.sets)
}

func TestOccupationWages_APIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"REQUEST_NOT_PROCESSED","message":["daily threshold exceeded"],"Results":{"series":[]}}`)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.OccupationWages(context.Background(), "15-1221", "0000000", 2023)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_NOT_PROCESSED")
	assert.Contains(t, err.Error(), "daily threshold exceeded")
}

func TestOccupationWages_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.OccupationWages(context.Background(), "15-1221", "0000000", 2023)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
}

func TestOccupationWages_CommaFormattedValuesParsed(t *testing.T) {
	srv, _ := newTestServer(t, "REQUEST_SUCCEEDED", map[string]string{
		SeriesID("0000000", "15-1221", DataTypeMedian): "104,350",
		SeriesID("0000000", "15-1221", DataTypePct90):  "171,240",
	})

	c := NewClient(WithBaseURL(srv.URL))
	data, err := c.OccupationWages(context.Background(), "15-1221", "0000000", 2023)
	require.NoError(t, err)
	require.NotNil(t, data.Median)
	assert.InDelta(t, 104350.0, *data.Median, 0.001)
	require.NotNil(t, data.Pct90)
	assert.InDelta(t, 171240.0, *data.Pct90, 0.001)
}

func TestOccupationWages_NonNumericValuesSkipped(t *testing.T) {
	srv, _ := newTestServer(t, "REQUEST_SUCCEEDED", map[string]string{
		SeriesID("0000000", "15-1221", DataTypeMedian): "120000",
		SeriesID("0000000", "15-1221", DataTypePct90):  "-",
	})

	c := NewClient(WithBaseURL(srv.URL))
	data, err := c.OccupationWages(context.Background(), "15-1221", "0000000", 2023)
	require.NoError(t, err)
	require.NotNil(t, data.Median)
	assert.Nil(t, data.Pct90)
}
