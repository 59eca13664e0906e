package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"safetrail/internal/domain/geo"
	"safetrail/internal/general/logger"
	"safetrail/internal/tracker/predict"
)

func TestReverseGeocodeReturnsDisplayName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"display_name": "Connaught Place, New Delhi"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, predict.RetryPolicy{MaxAttempts: 1}, logger.New("test"))
	name, err := c.ReverseGeocode(context.Background(), geo.Coordinate{Lat: 28.63, Lng: 77.22})
	if err != nil {
		t.Fatalf("ReverseGeocode: %v", err)
	}
	if name != "Connaught Place, New Delhi" {
		t.Errorf("name = %q", name)
	}
}

func TestReverseGeocodeRetriesPerPolicy(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"name": "India Gate"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, predict.RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}, logger.New("test"))
	name, err := c.ReverseGeocode(context.Background(), geo.Coordinate{Lat: 28.61, Lng: 77.23})
	if err != nil {
		t.Fatalf("ReverseGeocode: %v", err)
	}
	if name != "India Gate" {
		t.Errorf("name = %q", name)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestReverseGeocodeEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, predict.RetryPolicy{MaxAttempts: 1}, logger.New("test"))
	_, err := c.ReverseGeocode(context.Background(), geo.Coordinate{})
	if !errors.Is(err, ErrNoPlaceName) {
		t.Fatalf("err = %v, want ErrNoPlaceName", err)
	}
}
