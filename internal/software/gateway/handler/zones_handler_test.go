package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"safetrail/internal/domain/geo"
	"safetrail/internal/domain/zone"
	"safetrail/internal/general/logger"
	"safetrail/internal/general/metrics"
)

type passthroughUoW struct{}

func (passthroughUoW) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type stubZoneRepo struct {
	zones []zone.Definition
	err   error
}

func (r *stubZoneRepo) ZonesNear(ctx context.Context, center geo.Coordinate, radiusKm float64) ([]zone.Definition, error) {
	return r.zones, r.err
}

func newZonesHandler(repo *stubZoneRepo) *GatewayHTTPHandler {
	return NewGatewayHTTPHandler(nil, logger.New("test"), nil, repo, passthroughUoW{}, metrics.New())
}

func TestHandleZonesRequiresCoordinates(t *testing.T) {
	h := newZonesHandler(&stubZoneRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/zones", nil)
	rec := httptest.NewRecorder()
	h.handleZones(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleZonesRejectsOutOfRange(t *testing.T) {
	h := newZonesHandler(&stubZoneRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/zones?lat=120&lng=77", nil)
	rec := httptest.NewRecorder()
	h.handleZones(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleZonesReturnsFeatureCollection(t *testing.T) {
	repo := &stubZoneRepo{zones: []zone.Definition{
		{
			ID:       "z1",
			Name:     "Red Fort perimeter",
			Kind:     zone.KindCircle,
			Center:   geo.Coordinate{Lat: 28.6562, Lng: 77.2410},
			RadiusKm: 0.5,
			Risk:     "High",
			Category: "crowded",
		},
		{
			ID:   "z2",
			Name: "Construction block",
			Kind: zone.KindPolygon,
			Vertices: []geo.Coordinate{
				{Lat: 28.60, Lng: 77.20},
				{Lat: 28.61, Lng: 77.20},
				{Lat: 28.61, Lng: 77.21},
			},
			Risk: "Medium",
		},
	}}
	h := newZonesHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/zones?lat=28.6139&lng=77.2090&radius=10", nil)
	rec := httptest.NewRecorder()
	h.handleZones(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var fc geoJSONCollection
	if err := json.Unmarshal(rec.Body.Bytes(), &fc); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 2 {
		t.Fatalf("collection = %+v", fc)
	}

	point := fc.Features[0]
	if point.Geometry["type"] != "Point" {
		t.Errorf("first geometry = %v, want Point", point.Geometry["type"])
	}
	if point.Properties["riskLevel"] != "High" || point.Properties["radiusKm"] != 0.5 {
		t.Errorf("point properties = %v", point.Properties)
	}

	poly := fc.Features[1]
	if poly.Geometry["type"] != "Polygon" {
		t.Errorf("second geometry = %v, want Polygon", poly.Geometry["type"])
	}
}

func TestHandleZonesRepoFailure(t *testing.T) {
	h := newZonesHandler(&stubZoneRepo{err: context.DeadlineExceeded})

	req := httptest.NewRequest(http.MethodGet, "/api/zones?lat=28.6139&lng=77.2090", nil)
	rec := httptest.NewRecorder()
	h.handleZones(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
