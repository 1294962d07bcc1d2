// Package fema queries the FEMA National Flood Hazard Layer for the flood
// zone designation at a point.
package fema

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/sitescout/internal/geomath"
	"github.com/sells-group/sitescout/internal/model"
	"github.com/sells-group/sitescout/internal/resilience"
)

// Layer 28 of the public NFHL map service holds flood hazard zone polygons.
const defaultNFHLURL = "https://hazards.fema.gov/arcgis/rest/services/public/NFHL/MapServer/28"

// Option configures the NFHL client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit sets the requests-per-second limit for NFHL queries.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

// WithLayerURL overrides the NFHL layer URL.
func WithLayerURL(u string) Option {
	return func(c *Client) { c.layerURL = strings.TrimRight(u, "/") }
}

// Client queries the NFHL. It implements snapshot.FloodSource.
type Client struct {
	layerURL   string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
}

// NewClient creates an NFHL client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		layerURL:   defaultNFHLURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(2, 2),
		retry:      resilience.DefaultRetryConfig(),
	}
	c.retry.OnRetry = resilience.RetryLogger("fema", "flood_zone")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type queryResponse struct {
	Features []struct {
		Attributes struct {
			FldZone   string `json:"FLD_ZONE"`
			ZoneSubty string `json:"ZONE_SUBTY"`
		} `json:"attributes"`
	} `json:"features"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// FloodZone returns the flood zone polygon containing the point, or nil when
// the point falls outside every mapped zone.
func (c *Client) FloodZone(ctx context.Context, lng, lat float64) (*model.FloodZone, error) {
	pt := geomath.Point{Lng: lng, Lat: lat}
	if !pt.Valid() {
		return nil, eris.Errorf("fema: invalid point lng=%g lat=%g", lng, lat)
	}

	params := url.Values{
		"where":          {"1=1"},
		"geometry":       {fmt.Sprintf("%g,%g", lng, lat)},
		"geometryType":   {"esriGeometryPoint"},
		"inSR":           {"4326"},
		"spatialRel":     {"esriSpatialRelIntersects"},
		"outFields":      {"FLD_ZONE,ZONE_SUBTY"},
		"returnGeometry": {"false"},
		"f":              {"json"},
	}

	resp, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*queryResponse, error) {
		return c.query(ctx, params)
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Features) == 0 {
		return nil, nil
	}

	attrs := resp.Features[0].Attributes
	code := strings.TrimSpace(attrs.FldZone)
	if code == "" {
		return nil, nil
	}
	return &model.FloodZone{
		Code:    code,
		Subtype: strings.TrimSpace(attrs.ZoneSubty),
	}, nil
}

func (c *Client) query(ctx context.Context, params url.Values) (*queryResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fema: rate limit")
	}

	reqURL := c.layerURL + "/query?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fema: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(err, "fema", "flood_zone")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("fema: query returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, "fema", "flood_zone")
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(err, "fema", "flood_zone")
	}

	var out queryResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "fema: parse response")
	}
	if out.Error != nil {
		return nil, eris.Errorf("fema: server error %d: %s", out.Error.Code, out.Error.Message)
	}
	return &out, nil
}
