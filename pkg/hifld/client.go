// Package hifld queries the HIFLD Open Data ArcGIS services for electric
// substations and transmission lines. These are the power inputs for site
// scoring, so callers treat failures here as hard errors rather than
// defaulting the data away.
package hifld

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

const (
	defaultSubstationsURL  = "https://services1.arcgis.com/Hp6G80Pky0om7QvQ/arcgis/rest/services/Substations/FeatureServer/0"
	defaultTransmissionURL = "https://services1.arcgis.com/Hp6G80Pky0om7QvQ/arcgis/rest/services/Transmission_Lines/FeatureServer/0"

	// HIFLD uses -999999 for unknown voltages.
	unknownVoltage = -999999
)

// Option configures the HIFLD client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit sets the requests-per-second limit for HIFLD queries.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

// WithSubstationsURL overrides the substations layer URL.
func WithSubstationsURL(u string) Option {
	return func(c *Client) { c.substationsURL = strings.TrimRight(u, "/") }
}

// WithTransmissionURL overrides the transmission lines layer URL.
func WithTransmissionURL(u string) Option {
	return func(c *Client) { c.transmissionURL = strings.TrimRight(u, "/") }
}

// Client queries HIFLD power infrastructure layers. It implements
// snapshot.SubstationSource and snapshot.TransmissionSource.
type Client struct {
	substationsURL  string
	transmissionURL string
	httpClient      *http.Client
	limiter         *rate.Limiter
	retry           resilience.RetryConfig
}

// NewClient creates a HIFLD client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		substationsURL:  defaultSubstationsURL,
		transmissionURL: defaultTransmissionURL,
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		limiter:         rate.NewLimiter(4, 4),
		retry:           resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubstationsNear returns substations within radiusMiles of the point,
// sorted by distance ascending. An empty result is not an error.
func (c *Client) SubstationsNear(ctx context.Context, lng, lat, radiusMiles float64) ([]model.Substation, error) {
	origin := geomath.Point{Lng: lng, Lat: lat}
	if !origin.Valid() {
		return nil, eris.Errorf("hifld: invalid point lng=%g lat=%g", lng, lat)
	}

	params := proximityParams(lng, lat, radiusMiles)
	params.Set("outFields", "ID,NAME,MAX_VOLT,OWNER")

	resp, err := c.query(ctx, c.substationsURL, "substations", params)
	if err != nil {
		return nil, err
	}

	subs := make([]model.Substation, 0, len(resp.Features))
	for _, f := range resp.Features {
		if f.Geometry == nil || f.Geometry.X == nil || f.Geometry.Y == nil {
			continue
		}
		coords := geomath.Point{Lng: *f.Geometry.X, Lat: *f.Geometry.Y}
		if !coords.Valid() {
			continue
		}
		sub := model.Substation{
			ID:            strings.TrimSpace(f.Attributes.ID),
			Name:          strings.TrimSpace(f.Attributes.Name),
			Operator:      strings.TrimSpace(f.Attributes.Owner),
			Coordinates:   coords,
			DistanceMiles: geomath.Distance(origin, coords),
		}
		if f.Attributes.MaxVolt != nil && *f.Attributes.MaxVolt != unknownVoltage && *f.Attributes.MaxVolt > 0 {
			sub.VoltageKV = *f.Attributes.MaxVolt
		}
		subs = append(subs, sub)
	}

	model.SortSubstations(subs)
	return subs, nil
}

// NearestTransmissionKV returns the highest voltage among transmission lines
// within radiusMiles of the point, or nil when none are mapped there.
func (c *Client) NearestTransmissionKV(ctx context.Context, lng, lat, radiusMiles float64) (*float64, error) {
	origin := geomath.Point{Lng: lng, Lat: lat}
	if !origin.Valid() {
		return nil, eris.Errorf("hifld: invalid point lng=%g lat=%g", lng, lat)
	}

	params := proximityParams(lng, lat, radiusMiles)
	params.Set("outFields", "VOLTAGE")
	params.Set("returnGeometry", "false")

	resp, err := c.query(ctx, c.transmissionURL, "transmission", params)
	if err != nil {
		return nil, err
	}

	var best *float64
	for _, f := range resp.Features {
		v := f.Attributes.Voltage
		if v == nil || *v == unknownVoltage || *v <= 0 {
			continue
		}
		if best == nil || *v > *best {
			kv := *v
			best = &kv
		}
	}
	return best, nil
}

func proximityParams(lng, lat, radiusMiles float64) url.Values {
	return url.Values{
		"where":          {"1=1"},
		"geometry":       {fmt.Sprintf("%g,%g", lng, lat)},
		"geometryType":   {"esriGeometryPoint"},
		"inSR":           {"4326"},
		"spatialRel":     {"esriSpatialRelIntersects"},
		"distance":       {fmt.Sprintf("%g", radiusMiles)},
		"units":          {"esriSRUnit_StatuteMile"},
		"returnGeometry": {"true"},
		"outSR":          {"4326"},
		"f":              {"json"},
	}
}

type queryResponse struct {
	Features []struct {
		Attributes struct {
			ID      string   `json:"ID"`
			Name    string   `json:"NAME"`
			MaxVolt *float64 `json:"MAX_VOLT"`
			Owner   string   `json:"OWNER"`
			Voltage *float64 `json:"VOLTAGE"`
		} `json:"attributes"`
		Geometry *struct {
			X *float64 `json:"x"`
			Y *float64 `json:"y"`
		} `json:"geometry"`
	} `json:"features"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) query(ctx context.Context, layerURL, operation string, params url.Values) (*queryResponse, error) {
	cfg := c.retry
	cfg.OnRetry = resilience.RetryLogger("hifld", operation)

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*queryResponse, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "hifld: rate limit")
		}

		reqURL := layerURL + "/query?" + params.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "hifld: build request")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, resilience.NewTransientError(err, "hifld", operation)
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode != http.StatusOK {
			err := eris.Errorf("hifld: %s returned status %d", operation, resp.StatusCode)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(err, "hifld", operation)
			}
			return nil, err
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, resilience.NewTransientError(err, "hifld", operation)
		}

		var out queryResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, eris.Wrap(err, "hifld: parse response")
		}
		if out.Error != nil {
			return nil, eris.Errorf("hifld: server error %d: %s", out.Error.Code, out.Error.Message)
		}
		return &out, nil
	})
}
