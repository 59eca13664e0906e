package ports

import (
	"context"
	"time"

	"safetrail/internal/domain/geo"
	"safetrail/internal/domain/zone"
	"safetrail/internal/general/contracts"
)

// UnitOfWork runs a function within a database transaction.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// LocationPing is one stored tourist position report.
type LocationPing struct {
	ID         string
	TouristID  string
	Location   geo.Coordinate
	RecordedAt time.Time
}

// LocationRepository archives tourist location pings.
type LocationRepository interface {
	SavePing(ctx context.Context, ping *LocationPing) error
	RecentPings(ctx context.Context, touristID string, limit int) ([]LocationPing, error)
}

// ZoneRepository serves the risk zone catalog.
type ZoneRepository interface {
	ZonesNear(ctx context.Context, center geo.Coordinate, radiusKm float64) ([]zone.Definition, error)
}

// AlertRepository archives authority alerts the gateway has fanned out.
type AlertRepository interface {
	SaveAlert(ctx context.Context, msg *contracts.AuthorityAlertMessage, deliveredTo int) error
}

// TouristPusher pushes a websocket event to one connected tourist.
type TouristPusher interface {
	SendToTourist(ctx context.Context, touristID, event string, payload any) error
}
