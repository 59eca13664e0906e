package service

import (
	"context"
	"encoding/json"
	"fmt"

	"safetrail/internal/domain/geo"
	"safetrail/internal/general/contracts"

	amqp "github.com/rabbitmq/amqp091-go"
)

// consumeAuthorityAlerts drains the authority alert queue and fans each alert
// out to the tourists it targets.
func (s *Service) consumeAuthorityAlerts(ctx context.Context, prefetch int) error {
	return s.rmq.Consume(ctx, contracts.QueueAuthorityAlerts, "gateway-alerts", prefetch,
		func(ctx context.Context, d amqp.Delivery) error {
			var msg contracts.AuthorityAlertMessage
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				return fmt.Errorf("decode authority alert: %w", err)
			}
			if msg.AlertID == "" || msg.Title == "" {
				return fmt.Errorf("authority alert missing id or title")
			}

			s.met.AlertsConsumed.Inc()
			delivered := s.fanOutAlert(ctx, &msg)

			if err := s.uow.WithinTx(ctx, func(ctx context.Context) error {
				return s.alertRepo.SaveAlert(ctx, &msg, delivered)
			}); err != nil {
				s.log.Error(ctx, "alert_log_failed", "alert audit row not stored", err, map[string]any{
					"alert_id": msg.AlertID,
				})
				// delivery already happened; do not poison the queue
			}
			return nil
		})
}

// fanOutAlert pushes the alert to every connected tourist inside the target
// area, or to everyone when the alert carries no area. Returns the delivery
// count.
func (s *Service) fanOutAlert(ctx context.Context, msg *contracts.AuthorityAlertMessage) int {
	delivered := 0
	for _, p := range s.hub.Presences() {
		if !s.targeted(p.Location, p.HasFix, msg.TargetArea) {
			continue
		}
		if err := s.hub.SendToTourist(ctx, p.TouristID, contracts.EventAuthorityAlert, msg); err != nil {
			continue
		}
		delivered++
		s.met.AlertsDelivered.WithLabelValues(msg.Priority).Inc()
	}

	s.log.Info(ctx, "alert_fanned_out", "authority alert delivered", map[string]any{
		"alert_id":  msg.AlertID,
		"type":      msg.Type,
		"priority":  msg.Priority,
		"delivered": delivered,
		"targeted":  msg.TargetArea != nil,
	})
	return delivered
}

// targeted applies the geographic scope. Tourists without a position fix only
// receive untargeted alerts.
func (s *Service) targeted(loc geo.Coordinate, hasFix bool, area *contracts.TargetArea) bool {
	if area == nil {
		return true
	}
	if !hasFix {
		return false
	}
	center := geo.Coordinate{Lat: area.Lat, Lng: area.Lng}
	return geo.DistanceKm(loc, center) <= area.Radius
}
