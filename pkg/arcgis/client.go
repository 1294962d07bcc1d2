// Package arcgis queries county parcel layers hosted on ArcGIS FeatureServer
// endpoints. Counties publish wildly inconsistent attribute schemas, so the
// field names are configurable per layer.
package arcgis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/sitescout/internal/geomath"
	"github.com/sells-group/sitescout/internal/model"
	"github.com/sells-group/sitescout/internal/resilience"
	"github.com/sells-group/sitescout/internal/snapshot"
)

// ErrParcelNotFound is returned by ParcelByAPN when no parcel matches. It
// aliases the shared snapshot sentinel so callers can detect not-found
// without knowing which parcel source answered.
var ErrParcelNotFound = snapshot.ErrParcelNotFound

const defaultMaxRecords = 200

// FieldMap names the attribute fields in a county's parcel layer.
type FieldMap struct {
	APN     string
	Address string
	Acres   string
	Zoning  string
}

// DefaultFieldMap covers the most common county schema.
func DefaultFieldMap() FieldMap {
	return FieldMap{
		APN:     "PARCEL_APN",
		Address: "SITE_ADDR",
		Acres:   "ACREAGE",
		Zoning:  "ZONING",
	}
}

// Option configures the parcel client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit sets the requests-per-second limit for layer queries.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

// WithFieldMap overrides the layer's attribute field names.
func WithFieldMap(fm FieldMap) Option {
	return func(c *Client) { c.fields = fm }
}

// WithMaxRecords caps the number of parcels returned per bbox query.
func WithMaxRecords(n int) Option {
	return func(c *Client) { c.maxRecords = n }
}

// Client queries a single parcel layer. It implements snapshot.ParcelSource.
type Client struct {
	layerURL   string
	httpClient *http.Client
	limiter    *rate.Limiter
	fields     FieldMap
	maxRecords int
	retry      resilience.RetryConfig
}

// NewClient creates a parcel client for the given FeatureServer layer URL
// (the layer itself, not the /query endpoint).
func NewClient(layerURL string, opts ...Option) *Client {
	c := &Client{
		layerURL:   strings.TrimRight(layerURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(5, 5),
		fields:     DefaultFieldMap(),
		maxRecords: defaultMaxRecords,
		retry:      resilience.DefaultRetryConfig(),
	}
	c.retry.OnRetry = resilience.RetryLogger("arcgis", "query")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ParcelsInBBox returns parcels intersecting the bbox, filtered by minimum
// acreage server-side. Zoning prefix filtering happens client-side because
// many layers store zoning codes with suffixes the SQL dialect cannot match
// portably.
func (c *Client) ParcelsInBBox(ctx context.Context, bbox geomath.BBox, filters snapshot.ParcelFilters) ([]model.ParcelIdentity, error) {
	if !bbox.Valid() {
		return nil, eris.Errorf("arcgis: invalid bbox %+v", bbox)
	}

	where := "1=1"
	if filters.MinAcres > 0 {
		where = fmt.Sprintf("%s >= %g", c.fields.Acres, filters.MinAcres)
	}

	params := url.Values{
		"where":             {where},
		"geometry":          {fmt.Sprintf("%g,%g,%g,%g", bbox.West, bbox.South, bbox.East, bbox.North)},
		"geometryType":      {"esriGeometryEnvelope"},
		"inSR":              {"4326"},
		"spatialRel":        {"esriSpatialRelIntersects"},
		"outFields":         {c.outFields()},
		"returnGeometry":    {"true"},
		"outSR":             {"4326"},
		"resultRecordCount": {strconv.Itoa(c.maxRecords)},
		"f":                 {"json"},
	}

	resp, err := c.query(ctx, params)
	if err != nil {
		return nil, err
	}

	parcels := make([]model.ParcelIdentity, 0, len(resp.Features))
	for _, f := range resp.Features {
		p := c.toParcel(f)
		if !matchesZoning(p.Zoning, filters.ZoningPrefixes) {
			continue
		}
		parcels = append(parcels, p)
	}
	return parcels, nil
}

// ParcelByAPN looks up a single parcel by its assessor parcel number.
func (c *Client) ParcelByAPN(ctx context.Context, apn string) (*model.ParcelIdentity, error) {
	apn = strings.TrimSpace(apn)
	if apn == "" {
		return nil, eris.New("arcgis: empty APN")
	}

	params := url.Values{
		"where":          {fmt.Sprintf("%s = '%s'", c.fields.APN, strings.ReplaceAll(apn, "'", "''"))},
		"outFields":      {c.outFields()},
		"returnGeometry": {"true"},
		"outSR":          {"4326"},
		"f":              {"json"},
	}

	resp, err := c.query(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Features) == 0 {
		return nil, eris.Wrapf(ErrParcelNotFound, "arcgis: %s", apn)
	}

	p := c.toParcel(resp.Features[0])
	return &p, nil
}

func (c *Client) outFields() string {
	return strings.Join([]string{c.fields.APN, c.fields.Address, c.fields.Acres, c.fields.Zoning}, ",")
}

// queryResponse is the subset of the ArcGIS REST query response we consume.
type queryResponse struct {
	Features []feature `json:"features"`
	Error    *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type feature struct {
	Attributes map[string]any `json:"attributes"`
	Geometry   *struct {
		X     *float64      `json:"x"`
		Y     *float64      `json:"y"`
		Rings [][][]float64 `json:"rings"`
	} `json:"geometry"`
}

func (c *Client) query(ctx context.Context, params url.Values) (*queryResponse, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*queryResponse, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "arcgis: rate limit")
		}

		reqURL := c.layerURL + "/query?" + params.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "arcgis: build request")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, resilience.NewTransientError(err, "arcgis", "query")
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode != http.StatusOK {
			err := eris.Errorf("arcgis: query returned status %d", resp.StatusCode)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(err, "arcgis", "query")
			}
			return nil, err
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, resilience.NewTransientError(err, "arcgis", "query")
		}

		var out queryResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, eris.Wrap(err, "arcgis: parse response")
		}
		// ArcGIS reports errors in a 200 body.
		if out.Error != nil {
			return nil, eris.Errorf("arcgis: server error %d: %s", out.Error.Code, out.Error.Message)
		}
		return &out, nil
	})
}

func (c *Client) toParcel(f feature) model.ParcelIdentity {
	p := model.ParcelIdentity{
		APN:     attrString(f.Attributes, c.fields.APN),
		Address: attrString(f.Attributes, c.fields.Address),
		Zoning:  attrString(f.Attributes, c.fields.Zoning),
	}
	if acres, ok := attrFloat(f.Attributes, c.fields.Acres); ok {
		p.Acres = &acres
	}
	if pt := featureCentroid(f); pt != nil {
		p.Centroid = pt
	}
	return p
}

// featureCentroid derives a parcel centroid from either a point geometry or
// the outer ring of a polygon.
func featureCentroid(f feature) *geomath.Point {
	if f.Geometry == nil {
		return nil
	}
	if f.Geometry.X != nil && f.Geometry.Y != nil {
		pt := geomath.Point{Lng: *f.Geometry.X, Lat: *f.Geometry.Y}
		if pt.Valid() {
			return &pt
		}
		return nil
	}
	if len(f.Geometry.Rings) == 0 {
		return nil
	}
	outer := f.Geometry.Rings[0]
	ring := make([]geomath.Point, 0, len(outer))
	for _, coord := range outer {
		if len(coord) < 2 {
			continue
		}
		ring = append(ring, geomath.Point{Lng: coord[0], Lat: coord[1]})
	}
	centroid, err := geomath.RingCentroid(ring)
	if err != nil {
		return nil
	}
	return &centroid
}

func matchesZoning(zoning string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	z := strings.ToUpper(strings.TrimSpace(zoning))
	for _, p := range prefixes {
		if strings.HasPrefix(z, strings.ToUpper(p)) {
			return true
		}
	}
	return false
}

func attrString(attrs map[string]any, key string) string {
	switch v := attrs[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func attrFloat(attrs map[string]any, key string) (float64, bool) {
	switch v := attrs[key].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
