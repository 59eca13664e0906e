package predict

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"safetrail/internal/domain/geo"
	"safetrail/internal/general/logger"
)

var ErrBadStatusCode = errors.New("prediction endpoint returned non-200 status")

// Client fetches the two independent safety predictions. Each fetch degrades
// to a nil score on failure; callers treat absence as "prediction unknown",
// never as fatal.
type Client struct {
	geoURL     string
	weatherURL string
	http       *http.Client
	retry      RetryPolicy
	log        *logger.Logger
}

func NewClient(geoURL, weatherURL string, retry RetryPolicy, log *logger.Logger) *Client {
	return &Client{
		geoURL:     geoURL,
		weatherURL: weatherURL,
		http:       &http.Client{Timeout: 10 * time.Second},
		retry:      retry,
		log:        log,
	}
}

// geoResponse tolerates both field spellings the geo-risk service has used.
type geoResponse struct {
	PredictedSafetyScore *float64 `json:"predicted_safety_score"`
	SafetyScore100       *float64 `json:"safety_score_100"`
}

func (r geoResponse) score() *float64 {
	if r.PredictedSafetyScore != nil {
		return r.PredictedSafetyScore
	}
	return r.SafetyScore100
}

// weatherResponse tolerates both field spellings of the weather-risk service.
type weatherResponse struct {
	SafetyScore100 *float64 `json:"safety_score_100"`
	SafetyScore    *float64 `json:"safety_score"`
}

func (r weatherResponse) score() *float64 {
	if r.SafetyScore100 != nil {
		return r.SafetyScore100
	}
	return r.SafetyScore
}

// GeoScore fetches the geofence-risk prediction for a coordinate. Returns nil
// when the endpoint is unreachable, errors, or omits a score.
func (c *Client) GeoScore(ctx context.Context, at geo.Coordinate) *float64 {
	var out geoResponse
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		return c.fetch(ctx, c.geoURL, at, &out)
	})
	if err != nil {
		c.log.Error(ctx, "geo_prediction_failed", "geo-risk fetch failed, score absent", err, map[string]any{
			"lat": at.Lat, "lng": at.Lng,
		})
		return nil
	}
	if out.score() == nil {
		c.log.Debug(ctx, "geo_prediction_empty", "geo-risk response had no score field", nil)
	}
	return out.score()
}

// WeatherScore fetches the weather-risk prediction for a coordinate. Returns
// nil when the endpoint is unreachable, errors, or omits a score.
func (c *Client) WeatherScore(ctx context.Context, at geo.Coordinate) *float64 {
	var out weatherResponse
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		return c.fetch(ctx, c.weatherURL, at, &out)
	})
	if err != nil {
		c.log.Error(ctx, "weather_prediction_failed", "weather-risk fetch failed, score absent", err, map[string]any{
			"lat": at.Lat, "lng": at.Lng,
		})
		return nil
	}
	if out.score() == nil {
		c.log.Debug(ctx, "weather_prediction_empty", "weather-risk response had no score field", nil)
	}
	return out.score()
}

func (c *Client) fetch(ctx context.Context, base string, at geo.Coordinate, into any) error {
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("parse prediction url: %w", err)
	}
	q := u.Query()
	q.Set("lat", strconv.FormatFloat(at.Lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(at.Lng, 'f', -1, 64))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build prediction request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("prediction request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %d", ErrBadStatusCode, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decode prediction response: %w", err)
	}
	return nil
}
