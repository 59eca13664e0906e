package postgres

import (
	"context"
	"errors"

	"safetrail/internal/domain/geo"
	"safetrail/internal/ports"
)

// LocationRepo persists tourist location pings using pgx and plain SQL.
type LocationRepo struct{}

func NewLocationRepo() ports.LocationRepository {
	return &LocationRepo{}
}

// SavePing inserts a single tourist_location_pings row.
func (repo *LocationRepo) SavePing(ctx context.Context, ping *ports.LocationPing) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	if ping.TouristID == "" {
		return errors.New("tourist id cannot be empty")
	}
	if err := ping.Location.Validate(); err != nil {
		return err
	}

	var insertedID string
	err = tx.QueryRow(ctx, `
		INSERT INTO tourist_location_pings (
			tourist_id, latitude, longitude, accuracy_meters, recorded_at
		)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
		RETURNING id
	`,
		ping.TouristID,
		ping.Location.Lat,
		ping.Location.Lng,
		ping.Location.AccuracyMeters,
		ping.RecordedAt,
	).Scan(&insertedID)
	if err != nil {
		return err
	}

	ping.ID = insertedID
	return nil
}

// RecentPings returns the latest pings for a tourist, newest first.
func (repo *LocationRepo) RecentPings(ctx context.Context, touristID string, limit int) ([]ports.LocationPing, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := tx.Query(ctx, `
		SELECT id, tourist_id, latitude, longitude, accuracy_meters, recorded_at
		FROM tourist_location_pings
		WHERE tourist_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`, touristID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ports.LocationPing
	for rows.Next() {
		var p ports.LocationPing
		var lat, lng, acc float64
		if err := rows.Scan(&p.ID, &p.TouristID, &lat, &lng, &acc, &p.RecordedAt); err != nil {
			return nil, err
		}
		p.Location = geo.Coordinate{Lat: lat, Lng: lng, AccuracyMeters: acc, Timestamp: p.RecordedAt}
		out = append(out, p)
	}
	return out, rows.Err()
}
