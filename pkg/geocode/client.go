// Package geocode resolves street addresses to WGS84 coordinates using the
// Census Bureau's free one-line geocoder.
package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/sitescout/internal/geomath"
	"github.com/sells-group/sitescout/internal/resilience"
)

const (
	defaultBaseURL  = "https://geocoding.geo.census.gov/geocoder/locations/onelineaddress"
	censusBenchmark = "Public_AR_Current"
)

// ErrNoMatch is returned when the geocoder finds no match for an address.
var ErrNoMatch = eris.New("geocode: no match")

// Result is a geocoded address.
type Result struct {
	Point          geomath.Point `json:"point"`
	MatchedAddress string        `json:"matched_address"`
}

// Option configures the geocoder.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

// WithBaseURL overrides the geocoder endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// Client geocodes one-line addresses.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
}

// NewClient creates a geocoder with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(2, 2),
		retry:      resilience.DefaultRetryConfig(),
	}
	c.retry.OnRetry = resilience.RetryLogger("geocode", "onelineaddress")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type onelineResponse struct {
	Result struct {
		AddressMatches []struct {
			Coordinates struct {
				X float64 `json:"x"` // longitude
				Y float64 `json:"y"` // latitude
			} `json:"coordinates"`
			MatchedAddress string `json:"matchedAddress"`
		} `json:"addressMatches"`
	} `json:"result"`
}

// Geocode resolves a one-line address. The first (best) match wins; an
// unmatched address returns ErrNoMatch.
func (c *Client) Geocode(ctx context.Context, address string) (*Result, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, eris.New("geocode: empty address")
	}

	params := url.Values{
		"address":   {address},
		"benchmark": {censusBenchmark},
		"format":    {"json"},
	}
	reqURL := c.baseURL + "?" + params.Encode()

	decoded, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*onelineResponse, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "geocode: rate limit")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "geocode: build request")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, resilience.NewTransientError(eris.Wrap(err, "geocode: request"), "census", "oneline")
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, resilience.NewTransientError(eris.Wrap(err, "geocode: read response"), "census", "oneline")
		}
		if resp.StatusCode != http.StatusOK {
			err := eris.Errorf("geocode: status %d", resp.StatusCode)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(err, "census", "oneline")
			}
			return nil, err
		}

		var out onelineResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, eris.Wrap(err, "geocode: decode response")
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}

	if len(decoded.Result.AddressMatches) == 0 {
		return nil, eris.Wrap(ErrNoMatch, address)
	}

	match := decoded.Result.AddressMatches[0]
	p := geomath.Point{Lng: match.Coordinates.X, Lat: match.Coordinates.Y}
	if !p.Valid() {
		return nil, eris.Errorf("geocode: invalid coordinates for %q", address)
	}
	return &Result{Point: p, MatchedAddress: match.MatchedAddress}, nil
}
