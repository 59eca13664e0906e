package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"safetrail/internal/domain/geo"
	"safetrail/internal/general/logger"
	"safetrail/internal/tracker/predict"
)

var (
	ErrBadStatusCode = errors.New("geocode endpoint returned non-200 status")
	ErrNoPlaceName   = errors.New("geocode response carried no place name")
)

// Client resolves a coordinate to a human-readable place name. Retries are
// driven by an explicit policy rather than inline re-calls.
type Client struct {
	baseURL string
	http    *http.Client
	retry   predict.RetryPolicy
	log     *logger.Logger
}

func NewClient(baseURL string, retry predict.RetryPolicy, log *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		retry:   retry,
		log:     log,
	}
}

// response tolerates the two shapes the geocoding service has answered with.
type response struct {
	DisplayName string `json:"display_name"`
	Name        string `json:"name"`
}

func (r response) placeName() string {
	if s := strings.TrimSpace(r.DisplayName); s != "" {
		return s
	}
	return strings.TrimSpace(r.Name)
}

// ReverseGeocode returns the place name for a coordinate, or an error once
// the retry policy is exhausted.
func (c *Client) ReverseGeocode(ctx context.Context, at geo.Coordinate) (string, error) {
	var out response
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		return c.fetch(ctx, at, &out)
	})
	if err != nil {
		c.log.Error(ctx, "reverse_geocode_failed", "reverse geocode exhausted retries", err, map[string]any{
			"lat": at.Lat, "lng": at.Lng,
		})
		return "", err
	}
	name := out.placeName()
	if name == "" {
		return "", ErrNoPlaceName
	}
	return name, nil
}

func (c *Client) fetch(ctx context.Context, at geo.Coordinate, into *response) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("parse geocode url: %w", err)
	}
	q := u.Query()
	q.Set("lat", strconv.FormatFloat(at.Lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(at.Lng, 'f', -1, 64))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build geocode request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %d", ErrBadStatusCode, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decode geocode response: %w", err)
	}
	return nil
}
