package service

import (
	"context"
	"encoding/json"
	"time"

	"safetrail/internal/domain/geo"
	"safetrail/internal/general/contracts"
	"safetrail/internal/ports"
)

// HandleRegister stores the registration fix and pushes the first
// authoritative score.
func (s *Service) HandleRegister(ctx context.Context, touristID string, msg contracts.RegisterTouristMessage) error {
	loc := geo.Coordinate{Lat: msg.Location.Lat, Lng: msg.Location.Lng, Timestamp: time.Now().UTC()}

	s.log.Info(ctx, "tourist_registered", "tourist registered on gateway", map[string]any{
		"lat": loc.Lat, "lng": loc.Lng,
	})

	if err := s.archivePing(ctx, touristID, loc); err != nil {
		s.log.Error(ctx, "ping_archive_failed", "registration fix not stored", err, nil)
		// non-fatal: registration still succeeds
	}
	s.publishAudit(ctx, touristID, loc)
	s.pushScore(ctx, touristID, loc)
	return nil
}

// HandleLocationUpdate archives the ping, republishes it on the fanout, and
// recomputes the tourist's score.
func (s *Service) HandleLocationUpdate(ctx context.Context, touristID string, msg contracts.LocationUpdateMessage) error {
	loc := geo.Coordinate{Lat: msg.Location.Lat, Lng: msg.Location.Lng, Timestamp: time.Now().UTC()}
	if err := loc.Validate(); err != nil {
		return err
	}

	if err := s.archivePing(ctx, touristID, loc); err != nil {
		s.log.Error(ctx, "ping_archive_failed", "location ping not stored", err, nil)
	}
	s.publishAudit(ctx, touristID, loc)
	s.pushScore(ctx, touristID, loc)
	return nil
}

func (s *Service) archivePing(ctx context.Context, touristID string, loc geo.Coordinate) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context) error {
		return s.locRepo.SavePing(ctx, &ports.LocationPing{
			TouristID:  touristID,
			Location:   loc,
			RecordedAt: loc.Timestamp,
		})
	})
}

// publishAudit broadcasts the ping on the location fanout for downstream
// consumers (analytics, path deviation, dashboards). Broker trouble is
// logged, never surfaced to the tourist.
func (s *Service) publishAudit(ctx context.Context, touristID string, loc geo.Coordinate) {
	msg := contracts.LocationAuditMessage{
		TouristID: touristID,
		Location:  contracts.GeoPoint{Lat: loc.Lat, Lng: loc.Lng},
		Envelope: contracts.Envelope{
			CorrelationID: newCorrelationID(),
			Producer:      "gateway-service",
			SentAt:        time.Now().UTC(),
		},
	}
	body, err := json.Marshal(msg)
	if err != nil {
		s.log.Error(ctx, "audit_marshal_failed", "location audit not published", err, nil)
		return
	}
	if err := s.pub.Publish(contracts.ExchangeLocationFanout, "", body); err != nil {
		s.log.Error(ctx, "audit_publish_failed", "location audit not published", err, nil)
	}
}
