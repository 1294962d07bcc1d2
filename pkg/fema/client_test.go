package fema

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloodZoneInZone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "esriGeometryPoint", r.URL.Query().Get("geometryType"))
		w.Write([]byte(`{"features": [{"attributes": {"FLD_ZONE": "AE", "ZONE_SUBTY": "FLOODWAY"}}]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient(WithLayerURL(srv.URL))
	zone, err := c.FloodZone(context.Background(), -97.10, 32.50)
	require.NoError(t, err)
	require.NotNil(t, zone)
	assert.Equal(t, "AE", zone.Code)
	assert.Equal(t, "FLOODWAY", zone.Subtype)
}

func TestFloodZoneOutsideAnyZone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"features": []}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient(WithLayerURL(srv.URL))
	zone, err := c.FloodZone(context.Background(), -97.10, 32.50)
	require.NoError(t, err)
	assert.Nil(t, zone)
}

func TestFloodZoneBlankCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"features": [{"attributes": {"FLD_ZONE": "  ", "ZONE_SUBTY": ""}}]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient(WithLayerURL(srv.URL))
	zone, err := c.FloodZone(context.Background(), -97.10, 32.50)
	require.NoError(t, err)
	assert.Nil(t, zone)
}

func TestFloodZoneInvalidPoint(t *testing.T) {
	c := NewClient()
	_, err := c.FloodZone(context.Background(), -200, 95)
	require.Error(t, err)
}

func TestFloodZoneHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(WithLayerURL(srv.URL))
	_, err := c.FloodZone(context.Background(), -97.10, 32.50)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}
