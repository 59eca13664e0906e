package postgres

import (
	"context"

	"safetrail/internal/domain/geo"
	"safetrail/internal/domain/zone"
	"safetrail/internal/ports"
)

// ZoneRepo serves risk zones using pgx and plain SQL.
type ZoneRepo struct{}

func NewZoneRepo() ports.ZoneRepository {
	return &ZoneRepo{}
}

// degPerKm approximates one kilometer in latitude degrees; used only for the
// coarse bounding box, the exact cut is haversine in Go.
const degPerKm = 1.0 / 111.195

// ZonesNear returns active zones whose center falls within radiusKm of the
// given point.
func (repo *ZoneRepo) ZonesNear(ctx context.Context, center geo.Coordinate, radiusKm float64) ([]zone.Definition, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if radiusKm <= 0 {
		radiusKm = 15
	}

	latDelta := radiusKm * degPerKm
	lngDelta := latDelta * 2 // generous at high latitudes; refined below

	rows, err := tx.Query(ctx, `
		SELECT id, name, kind, center_lat, center_lng, radius_km, risk_score, risk_level, category
		FROM risk_zones
		WHERE active
		  AND center_lat BETWEEN $1 AND $2
		  AND center_lng BETWEEN $3 AND $4
	`,
		center.Lat-latDelta, center.Lat+latDelta,
		center.Lng-lngDelta, center.Lng+lngDelta,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []zone.Definition
	for rows.Next() {
		var z zone.Definition
		var kind string
		var lat, lng, radius, riskScore float64
		var riskLevel, category *string
		if err := rows.Scan(&z.ID, &z.Name, &kind, &lat, &lng, &radius, &riskScore, &riskLevel, &category); err != nil {
			return nil, err
		}
		z.Kind = zone.GeometryKind(kind)
		z.Center = geo.Coordinate{Lat: lat, Lng: lng}
		z.RadiusKm = radius
		if riskLevel != nil && *riskLevel != "" {
			z.Risk = *riskLevel
		} else {
			z.Risk = zone.RiskFromScore(riskScore)
		}
		if category != nil {
			z.Category = *category
		}

		if geo.DistanceKm(center, z.Center) > radiusKm {
			continue
		}
		out = append(out, z)
	}
	return out, rows.Err()
}
