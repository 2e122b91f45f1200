package mapbox

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

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/case-intake/internal/domain"
	"github.com/couchcryptid/case-intake/internal/observability"
)

// Client implements domain.Geocoder using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger

	// Throttled (429) and 5xx responses are retried with doubling backoff.
	maxAttempts int
	backoff     time.Duration
	maxBackoff  time.Duration
}

// errRetryable marks an API response worth another attempt.
var errRetryable = errors.New("retryable mapbox response")

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:     "https://api.mapbox.com/geocoding/v5/mapbox.places",
		metrics:     metrics,
		logger:      logger,
		maxAttempts: 3,
		backoff:     200 * time.Millisecond,
		maxBackoff:  time.Second,
	}
}

// ForwardGeocode converts a free-text address query to coordinates.
func (c *Client) ForwardGeocode(ctx context.Context, query string) (domain.GeocodingResult, error) {
	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(query))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {"address,place,locality,postcode"},
	}

	start := time.Now()
	result, err := c.doWithRetry(ctx, u+"?"+params.Encode())
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
	case result.FormattedAddress == "":
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		c.logger.Debug("geocode returned no features", "query", query)
	default:
		c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	}
	return result, err
}

func (c *Client) doWithRetry(ctx context.Context, fullURL string) (domain.GeocodingResult, error) {
	attempts := max(c.maxAttempts, 1)
	wait := c.backoff
	for attempt := 1; ; attempt++ {
		result, err := c.doRequest(ctx, fullURL)
		if err == nil || !errors.Is(err, errRetryable) || attempt >= attempts {
			return result, err
		}
		c.logger.Debug("mapbox request retrying", "attempt", attempt, "backoff", wait, "error", err)
		if !retry.SleepWithContext(ctx, wait) {
			return domain.GeocodingResult{}, fmt.Errorf("forward geocode: %w", ctx.Err())
		}
		wait = retry.NextBackoff(wait, c.maxBackoff)
	}
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.GeocodingResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("forward geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			err = fmt.Errorf("%w: %w", errRetryable, err)
		}
		return domain.GeocodingResult{}, err
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("decode response: %w", err)
	}

	if len(mapboxResp.Features) == 0 {
		return domain.GeocodingResult{}, nil
	}

	f := mapboxResp.Features[0]
	result := domain.GeocodingResult{
		FormattedAddress: f.PlaceName,
		PlaceName:        f.Text,
		Confidence:       f.Relevance,
	}
	if len(f.Center) == 2 {
		result.Lon = f.Center[0]
		result.Lat = f.Center[1]
	}
	return result, nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}
