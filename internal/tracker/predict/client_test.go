package predict

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"safetrail/internal/domain/geo"
	"safetrail/internal/general/logger"
)

func testCoord() geo.Coordinate {
	return geo.Coordinate{Lat: 28.6139, Lng: 77.2090, Timestamp: time.Now()}
}

func TestGeoScoreTolerantFieldNames(t *testing.T) {
	for _, body := range []string{
		`{"predicted_safety_score": 72.5}`,
		`{"safety_score_100": 72.5}`,
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("lat") == "" || r.URL.Query().Get("lng") == "" {
				t.Error("missing lat/lng query params")
			}
			w.Write([]byte(body))
		}))
		c := NewClient(srv.URL, srv.URL, RetryPolicy{MaxAttempts: 1}, logger.New("test"))
		got := c.GeoScore(context.Background(), testCoord())
		srv.Close()

		if got == nil || *got != 72.5 {
			t.Errorf("body %s: score = %v, want 72.5", body, got)
		}
	}
}

func TestWeatherScorePrefersScore100(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"safety_score_100": 64, "safety_score": 12}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, RetryPolicy{MaxAttempts: 1}, logger.New("test"))
	got := c.WeatherScore(context.Background(), testCoord())
	if got == nil || *got != 64 {
		t.Fatalf("score = %v, want 64", got)
	}
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"predicted_safety_score": 41}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}, logger.New("test"))
	got := c.GeoScore(context.Background(), testCoord())
	if got == nil || *got != 41 {
		t.Fatalf("score = %v, want 41", got)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestFetchExhaustedRetriesYieldsNil(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, RetryPolicy{MaxAttempts: 2, Backoff: time.Millisecond}, logger.New("test"))
	if got := c.WeatherScore(context.Background(), testCoord()); got != nil {
		t.Fatalf("score = %v, want nil", got)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestMissingScoreFieldIsNilNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"model_version": "v2"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, RetryPolicy{MaxAttempts: 1}, logger.New("test"))
	if got := c.GeoScore(context.Background(), testCoord()); got != nil {
		t.Fatalf("score = %v, want nil", got)
	}
}

func TestRetryPolicyHonorsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := RetryPolicy{MaxAttempts: 5, Backoff: time.Hour}
	err := p.Do(ctx, func(ctx context.Context) error { return ErrBadStatusCode })
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
