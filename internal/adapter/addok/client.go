// Package addok resolves city names through an addok-compatible /search/
// endpoint, such as the French national address API.
package addok

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/student-map/internal/domain"
	"github.com/couchcryptid/student-map/internal/observability"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// maxBodyBytes caps a single search response; a limit=1 answer is a few KB.
const maxBodyBytes = 1 << 20

// Client implements domain.Geocoder against an addok search endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a geocoding client for the search endpoint at baseURL.
// Every request is bounded by timeout.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse geocoder url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("geocoder url %q is not absolute", baseURL)
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    u,
		logger:     logger,
		metrics:    metrics,
	}, nil
}

// Lookup asks for the single best municipality matching city. The city is
// sent as typed in the roster.
func (c *Client) Lookup(ctx context.Context, city string) domain.LookupResult {
	start := time.Now()
	res := c.lookup(ctx, city)
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())
	c.metrics.GeocodeRequests.WithLabelValues(res.Status.String()).Inc()
	return res
}

func (c *Client) lookup(ctx context.Context, city string) domain.LookupResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(city), nil)
	if err != nil {
		return domain.TransportFailure(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("geocode request failed", "city", city, "error", err)
		return domain.TransportFailure(fmt.Errorf("geocode request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		c.logger.Warn("geocoder returned non-200", "city", city, "status", resp.StatusCode)
		return domain.NotFound()
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.TransportFailure(fmt.Errorf("read response: %w", err))
	}

	result, err := decode(body, city)
	if err != nil {
		c.logger.Debug("no usable match", "city", city, "error", err)
		return domain.NotFound()
	}
	return domain.Resolved(result)
}

func (c *Client) searchURL(city string) string {
	u := *c.baseURL
	q := u.Query()
	q.Set("q", city)
	q.Set("limit", "1")
	q.Set("type", "municipality")
	u.RawQuery = q.Encode()
	return u.String()
}

var errNoFeatures = errors.New("empty feature collection")

// decode extracts the first feature of a search response. Anything other
// than a point with in-range coordinates is an error.
func decode(body []byte, city string) (domain.GeocodeResult, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return domain.GeocodeResult{}, fmt.Errorf("decode response: %w", err)
	}
	if len(fc.Features) == 0 {
		return domain.GeocodeResult{}, errNoFeatures
	}

	f := fc.Features[0]
	pt, ok := f.Geometry.(*geom.Point)
	if !ok || pt.Empty() || pt.Stride() < 2 {
		return domain.GeocodeResult{}, fmt.Errorf("unexpected geometry %T", f.Geometry)
	}

	// GeoJSON order is [lon, lat].
	lon, lat := pt.X(), pt.Y()
	if !domain.ValidCoordinates(lat, lon) {
		return domain.GeocodeResult{}, fmt.Errorf("coordinates out of range (%g, %g)", lat, lon)
	}

	return domain.GeocodeResult{
		Latitude:    lat,
		Longitude:   lon,
		DisplayName: displayName(f.Properties, city),
	}, nil
}

func displayName(props map[string]any, city string) string {
	for _, key := range []string{"label", "name"} {
		if s, ok := props[key].(string); ok && s != "" {
			return s
		}
	}
	return city
}

// CheckReadiness reports whether the geocoder answers at all. Client errors
// count as ready; only transport failures and 5xx do not.
func (c *Client) CheckReadiness(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("geocoder unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("geocoder unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
