package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const matchFixture = `{
	"result": {
		"addressMatches": [
			{
				"coordinates": {"x": -97.0512, "y": 32.5004},
				"matchedAddress": "1200 WARD RD, MIDLOTHIAN, TX, 76065"
			},
			{
				"coordinates": {"x": -97.1, "y": 32.6},
				"matchedAddress": "1200 WARD RD, VENUS, TX, 76084"
			}
		]
	}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(WithBaseURL(srv.URL), WithRateLimit(1000))
}

func TestGeocode_FirstMatchWins(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1200 Ward Rd, Midlothian TX", r.URL.Query().Get("address"))
		assert.Equal(t, "Public_AR_Current", r.URL.Query().Get("benchmark"))
		w.Write([]byte(matchFixture)) //nolint:errcheck
	})

	res, err := c.Geocode(context.Background(), "1200 Ward Rd, Midlothian TX")
	require.NoError(t, err)
	assert.InDelta(t, -97.0512, res.Point.Lng, 0.0001)
	assert.InDelta(t, 32.5004, res.Point.Lat, 0.0001)
	assert.Equal(t, "1200 WARD RD, MIDLOTHIAN, TX, 76065", res.MatchedAddress)
}

func TestGeocode_NoMatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"result":{"addressMatches":[]}}`)) //nolint:errcheck
	})

	_, err := c.Geocode(context.Background(), "nowhere at all")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestGeocode_EmptyAddress(t *testing.T) {
	c := NewClient()
	_, err := c.Geocode(context.Background(), "   ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty address")
}

func TestGeocode_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(matchFixture)) //nolint:errcheck
	})
	c.retry.InitialBackoff = 1

	res, err := c.Geocode(context.Background(), "1200 Ward Rd")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.NotNil(t, res)
}

func TestGeocode_BadRequestIsPermanent(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})
	c.retry.InitialBackoff = 1

	_, err := c.Geocode(context.Background(), "1200 Ward Rd")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
