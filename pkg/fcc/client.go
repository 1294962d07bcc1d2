// Package fcc queries the FCC broadband map for fixed-service providers at a
// point. Carrier names come back in inconsistent casing across filings, so
// they are normalized and deduplicated before use.
package fcc

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
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/sells-group/sitescout/internal/geomath"
	"github.com/sells-group/sitescout/internal/resilience"
)

const defaultBaseURL = "https://broadbandmap.fcc.gov/nbm/map/api/published/location"

// Minimum advertised download speed, in Mbps, for a filing to count as a
// fiber-class carrier.
const minFiberMbps = 1000

// Option configures the broadband client.
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

// WithBaseURL overrides the broadband map endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// Client queries the FCC broadband map. It implements snapshot.FiberSource.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
	titler     cases.Caser
}

// NewClient creates a broadband client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(3, 3),
		retry:      resilience.DefaultRetryConfig(),
		titler:     cases.Title(language.AmericanEnglish),
	}
	c.retry.OnRetry = resilience.RetryLogger("fcc", "carriers")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type locationResponse struct {
	Data []struct {
		ProviderName string  `json:"provider_name"`
		Technology   string  `json:"technology"`
		MaxDownMbps  float64 `json:"max_advertised_download_speed"`
	} `json:"data"`
}

// Carriers returns the deduplicated fiber-class carrier names serving the
// point. An empty non-nil slice means the lookup succeeded and found none.
func (c *Client) Carriers(ctx context.Context, lat, lng float64) ([]string, error) {
	pt := geomath.Point{Lng: lng, Lat: lat}
	if !pt.Valid() {
		return nil, eris.Errorf("fcc: invalid point lat=%g lng=%g", lat, lng)
	}

	params := url.Values{
		"latitude":  {fmt.Sprintf("%g", lat)},
		"longitude": {fmt.Sprintf("%g", lng)},
	}

	resp, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*locationResponse, error) {
		return c.query(ctx, params)
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	carriers := make([]string, 0, len(resp.Data))
	for _, d := range resp.Data {
		if d.MaxDownMbps < minFiberMbps {
			continue
		}
		name := c.titler.String(strings.ToLower(strings.TrimSpace(d.ProviderName)))
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		carriers = append(carriers, name)
	}
	return carriers, nil
}

func (c *Client) query(ctx context.Context, params url.Values) (*locationResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fcc: rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "fcc: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(err, "fcc", "carriers")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("fcc: query returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, "fcc", "carriers")
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(err, "fcc", "carriers")
	}

	var out locationResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "fcc: parse response")
	}
	return &out, nil
}
