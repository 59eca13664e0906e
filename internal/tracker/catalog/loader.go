package catalog

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
	"safetrail/internal/domain/zone"
	"safetrail/internal/general/logger"
)

var ErrBadStatusCode = errors.New("zone endpoint returned non-200 status")

// Point features become circle zones of this radius; the gateway serves risk
// grid cells, not precise boundaries.
const gridCellRadiusKm = 0.25

// Loader fetches the gateway's zone catalog as GeoJSON and converts it to
// zone definitions. Each successful fetch is a wholesale replacement of the
// previous catalog; malformed features are skipped, never fatal.
type Loader struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

func NewLoader(baseURL string, log *logger.Logger) *Loader {
	return &Loader{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string          `json:"type"`
	Geometry   geometry        `json:"geometry"`
	Properties json.RawMessage `json:"properties"`
}

type geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

type featureProps struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	RiskScore *float64 `json:"riskScore"`
	RiskLevel string   `json:"riskLevel"`
	Category  string   `json:"category"`
	RadiusKm  *float64 `json:"radiusKm"`
}

// Fetch loads the zones around a center. The radius is kilometers.
func (l *Loader) Fetch(ctx context.Context, center geo.Coordinate, radiusKm float64) ([]zone.Definition, error) {
	u, err := url.Parse(l.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse zone url: %w", err)
	}
	q := u.Query()
	q.Set("lat", strconv.FormatFloat(center.Lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(center.Lng, 'f', -1, 64))
	q.Set("radius", strconv.FormatFloat(radiusKm, 'f', -1, 64))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build zone request: %w", err)
	}
	resp, err := l.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zone request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %d", ErrBadStatusCode, resp.StatusCode)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode zone response: %w", err)
	}

	zones := make([]zone.Definition, 0, len(fc.Features))
	skipped := 0
	for i, f := range fc.Features {
		z, err := convertFeature(f, i)
		if err != nil {
			skipped++
			l.log.Debug(ctx, "zone_feature_skipped", "malformed feature dropped", map[string]any{
				"index": i, "reason": err.Error(),
			})
			continue
		}
		zones = append(zones, z)
	}

	l.log.Info(ctx, "zone_catalog_loaded", "zone catalog replaced", map[string]any{
		"zones": len(zones), "skipped": skipped,
	})
	return zones, nil
}

func convertFeature(f feature, index int) (zone.Definition, error) {
	var props featureProps
	if len(f.Properties) > 0 {
		if err := json.Unmarshal(f.Properties, &props); err != nil {
			return zone.Definition{}, fmt.Errorf("decode properties: %w", err)
		}
	}

	z := zone.Definition{
		ID:       props.ID,
		Name:     props.Name,
		Risk:     riskLabel(props),
		Category: props.Category,
	}
	if z.ID == "" {
		z.ID = fmt.Sprintf("zone-%d", index)
	}

	switch f.Geometry.Type {
	case "Point":
		var coords [2]float64 // [lng, lat]
		if err := json.Unmarshal(f.Geometry.Coordinates, &coords); err != nil {
			return zone.Definition{}, fmt.Errorf("decode point coordinates: %w", err)
		}
		z.Kind = zone.KindCircle
		z.Center = geo.Coordinate{Lat: coords[1], Lng: coords[0]}
		z.RadiusKm = gridCellRadiusKm
		if props.RadiusKm != nil && *props.RadiusKm > 0 {
			z.RadiusKm = *props.RadiusKm
		}

	case "Polygon":
		var rings [][][2]float64
		if err := json.Unmarshal(f.Geometry.Coordinates, &rings); err != nil {
			return zone.Definition{}, fmt.Errorf("decode polygon coordinates: %w", err)
		}
		if len(rings) == 0 || len(rings[0]) < 3 {
			return zone.Definition{}, errors.New("polygon without a usable outer ring")
		}
		z.Kind = zone.KindPolygon
		for _, pt := range rings[0] {
			z.Vertices = append(z.Vertices, geo.Coordinate{Lat: pt[1], Lng: pt[0]})
		}
		z.Center = z.Vertices[0]

	default:
		return zone.Definition{}, fmt.Errorf("unsupported geometry %q", f.Geometry.Type)
	}

	if err := z.Validate(); err != nil {
		return zone.Definition{}, err
	}
	return z, nil
}

// riskLabel prefers an explicit level and otherwise derives one from the
// numeric score.
func riskLabel(props featureProps) string {
	if props.RiskLevel != "" {
		return props.RiskLevel
	}
	if props.RiskScore != nil {
		return zone.RiskFromScore(*props.RiskScore)
	}
	return "Low"
}
