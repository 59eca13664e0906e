package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"safetrail/internal/domain/geo"
	"safetrail/internal/domain/zone"
)

// --- Handler: GET /api/zones?lat=&lng=&radius= ---

// geoJSONFeature mirrors the FeatureCollection shape tracker clients consume.
type geoJSONFeature struct {
	Type       string         `json:"type"`
	Geometry   map[string]any `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type geoJSONCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

func (handler *GatewayHTTPHandler) handleZones(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	lat, err1 := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, err2 := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if err1 != nil || err2 != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "lat and lng query params are required", nil)
		return
	}
	center := geo.Coordinate{Lat: lat, Lng: lng}
	if err := center.Validate(); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "lat/lng out of range", err)
		return
	}

	radiusKm := 15.0
	if raw := r.URL.Query().Get("radius"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			radiusKm = v
		}
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var zones []zone.Definition
	err := handler.uow.WithinTx(ctxWithTimeout, func(ctx context.Context) error {
		var zerr error
		zones, zerr = handler.zoneRepo.ZonesNear(ctx, center, radiusKm)
		return zerr
	})
	if err != nil {
		handler.httpError(ctxWithTimeout, w, http.StatusInternalServerError, "failed to fetch zones", err)
		return
	}

	fc := geoJSONCollection{Type: "FeatureCollection", Features: make([]geoJSONFeature, 0, len(zones))}
	for _, z := range zones {
		fc.Features = append(fc.Features, featureOf(z))
	}
	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, fc)
}

func featureOf(z zone.Definition) geoJSONFeature {
	props := map[string]any{
		"id":        z.ID,
		"name":      z.Name,
		"riskLevel": z.Risk,
	}
	if z.Category != "" {
		props["category"] = z.Category
	}

	var geom map[string]any
	switch z.Kind {
	case zone.KindPolygon:
		ring := make([][2]float64, 0, len(z.Vertices))
		for _, v := range z.Vertices {
			ring = append(ring, [2]float64{v.Lng, v.Lat}) // GeoJSON order
		}
		geom = map[string]any{"type": "Polygon", "coordinates": [][][2]float64{ring}}
	default:
		geom = map[string]any{"type": "Point", "coordinates": [2]float64{z.Center.Lng, z.Center.Lat}}
		if z.RadiusKm > 0 {
			props["radiusKm"] = z.RadiusKm
		}
	}

	return geoJSONFeature{Type: "Feature", Geometry: geom, Properties: props}
}
