package postgres

import (
	"context"
	"errors"
	"time"

	"safetrail/internal/general/contracts"
	"safetrail/internal/ports"
)

// AlertRepo archives fanned-out authority alerts using pgx and plain SQL.
type AlertRepo struct{}

func NewAlertRepo() ports.AlertRepository {
	return &AlertRepo{}
}

// SaveAlert records one delivered alert for audit.
func (repo *AlertRepo) SaveAlert(ctx context.Context, msg *contracts.AuthorityAlertMessage, deliveredTo int) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}
	if msg.AlertID == "" {
		return errors.New("alert id cannot be empty")
	}

	var targetLat, targetLng, targetRadius *float64
	if msg.TargetArea != nil {
		targetLat = &msg.TargetArea.Lat
		targetLng = &msg.TargetArea.Lng
		targetRadius = &msg.TargetArea.Radius
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO authority_alert_log (
			alert_id, alert_type, title, message, priority,
			authority_id, authority_name, action_required,
			target_lat, target_lng, target_radius_km,
			delivered_to, received_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		msg.AlertID,
		msg.Type,
		msg.Title,
		msg.Message,
		msg.Priority,
		msg.AuthorityID,
		msg.AuthorityName,
		msg.ActionRequired,
		targetLat,
		targetLng,
		targetRadius,
		deliveredTo,
		time.Now().UTC(),
	)
	return err
}
