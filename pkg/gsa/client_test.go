package gsa

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRates_NoAPIKeyReturnsNil(t *testing.T) {
	t.Parallel()

	c := NewClient()
	rates, err := c.Rates(context.Background(), "Washington", "DC", 2025)
	require.NoError(t, err)
	assert.Nil(t, rates)
}

func TestRates_FetchesAndParses(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Api-Key")
		fmt.Fprint(w, `{"rates":[{"lodging":200,"meals":79}]}`)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(WithBaseURL(srv.URL), WithAPIKey("test-key"))
	rates, err := c.Rates(context.Background(), "Washington", "DC", 2025)
	require.NoError(t, err)
	require.NotNil(t, rates)

	assert.InDelta(t, 200.0, rates.Lodging, 0.001)
	assert.InDelta(t, 79.0, rates.MIE, 0.001)
	assert.Equal(t, "Washington", rates.City)
	assert.Equal(t, 2025, rates.FiscalYear)
	assert.Equal(t, "/rates/city/Washington/state/DC/year/2025", gotPath)
	assert.Equal(t, "test-key", gotKey)
}

func TestRates_UnlistedDestinationReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"rates":[]}`)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(WithBaseURL(srv.URL), WithAPIKey("test-key"))
	rates, err := c.Rates(context.Background(), "Nowhere", "XX", 2025)
	require.NoError(t, err)
	assert.Nil(t, rates)
}

func TestRates_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "over quota", http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(WithBaseURL(srv.URL), WithAPIKey("test-key"))
	_, err := c.Rates(context.Background(), "Washington", "DC", 2025)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 429")
}

func TestRates_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"rates":`)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(WithBaseURL(srv.URL), WithAPIKey("test-key"))
	_, err := c.Rates(context.Background(), "Washington", "DC", 2025)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding response")
}
