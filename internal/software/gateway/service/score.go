package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"safetrail/internal/domain/geo"
	"safetrail/internal/domain/zone"
	"safetrail/internal/general/contracts"
)

const (
	// score change thresholds for pushed alerts
	significantDelta  = 15
	criticalThreshold = 40

	// zones further than this do not influence the score
	scoreInfluenceKm = 5
	scoreQueryKm     = 15
)

// riskPenalty is the score cost of standing inside a zone of each bucket; it
// decays linearly with distance up to scoreInfluenceKm.
var riskPenalty = map[zone.RiskLevel]float64{
	zone.RiskVeryHigh: 40,
	zone.RiskHigh:     25,
	zone.RiskMedium:   10,
	zone.RiskStandard: 5,
}

// pushScore computes the authoritative score for the tourist's position,
// pushes a safetyScoreUpdate, and follows it with a safetyScoreAlert when the
// change is notable.
func (s *Service) pushScore(ctx context.Context, touristID string, loc geo.Coordinate) {
	var zones []zone.Definition
	err := s.uow.WithinTx(ctx, func(ctx context.Context) error {
		var zerr error
		zones, zerr = s.zoneRepo.ZonesNear(ctx, loc, scoreQueryKm)
		return zerr
	})
	if err != nil {
		s.log.Error(ctx, "zone_query_failed", "score not recomputed", err, nil)
		return
	}

	score, threat := scoreFor(loc, zones)
	update := contracts.SafetyScoreUpdateMessage{
		SafetyScore:   score,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		SafetyLevel:   levelFor(score),
		NearestThreat: threat,
		Location:      &contracts.GeoPoint{Lat: loc.Lat, Lng: loc.Lng},
	}

	if err := s.hub.SendToTourist(ctx, touristID, contracts.EventSafetyScoreUpdate, update); err != nil {
		return // push failure already logged by the hub
	}
	s.met.ScorePushes.Inc()

	if alert, ok := s.detectChange(touristID, score, update); ok {
		if err := s.hub.SendToTourist(ctx, touristID, contracts.EventSafetyScoreAlert, alert); err == nil {
			s.met.ScoreAlerts.WithLabelValues(alert.ChangeType).Inc()
			s.log.Info(ctx, "score_alert_pushed", "notable score change pushed", map[string]any{
				"change_type": alert.ChangeType,
				"previous":    alert.PreviousScore,
				"new":         alert.NewScore,
			})
		}
	}
}

// detectChange compares against the last pushed score. Crossing below the
// critical threshold wins over plain magnitude changes.
func (s *Service) detectChange(touristID string, score float64, data contracts.SafetyScoreUpdateMessage) (contracts.SafetyScoreAlertMessage, bool) {
	s.scoreMu.Lock()
	prev, seen := s.lastScores[touristID]
	s.lastScores[touristID] = score
	s.scoreMu.Unlock()

	if !seen {
		return contracts.SafetyScoreAlertMessage{}, false
	}

	var changeType, message string
	switch {
	case prev >= criticalThreshold && score < criticalThreshold:
		changeType = contracts.ChangeCriticalThreshold
		message = fmt.Sprintf("Safety score dropped below %d. Move to a safer area.", criticalThreshold)
	case prev-score >= significantDelta:
		changeType = contracts.ChangeSignificantDrop
		message = fmt.Sprintf("Safety score dropped from %.0f to %.0f.", prev, score)
	case score-prev >= significantDelta:
		changeType = contracts.ChangeSignificantIncrease
		message = fmt.Sprintf("Safety score improved from %.0f to %.0f.", prev, score)
	default:
		return contracts.SafetyScoreAlertMessage{}, false
	}

	return contracts.SafetyScoreAlertMessage{
		PreviousScore:   prev,
		NewScore:        score,
		ChangeType:      changeType,
		Message:         message,
		SafetyScoreData: data,
	}, true
}

// scoreFor starts from a perfect score and subtracts a distance-decayed
// penalty per nearby zone. The nearest zone at medium risk or above becomes
// the reported threat.
func scoreFor(loc geo.Coordinate, zones []zone.Definition) (float64, *contracts.NearestThreat) {
	score := 100.0
	var threat *contracts.NearestThreat
	threatDist := math.MaxFloat64

	for _, z := range zones {
		if z.Validate() != nil {
			continue
		}
		d := geo.DistanceKm(loc, z.Center)
		if d > scoreInfluenceKm {
			continue
		}

		level := zone.BucketRisk(z.Risk)
		penalty := riskPenalty[level]
		if d > z.EffectiveRadiusKm() {
			// outside the boundary: decay over the influence band
			penalty *= 1 - (d-z.EffectiveRadiusKm())/scoreInfluenceKm
			if penalty < 0 {
				penalty = 0
			}
		}
		score -= penalty

		if level != zone.RiskStandard && d < threatDist {
			threatDist = d
			threat = &contracts.NearestThreat{
				Name:     z.Name,
				Distance: math.Round(d*10) / 10,
				Severity: string(level),
			}
		}
	}

	if score < 0 {
		score = 0
	}
	return math.Round(score), threat
}

func levelFor(score float64) string {
	switch {
	case score >= 80:
		return "Safe"
	case score >= 60:
		return "Moderate"
	case score >= 40:
		return "Caution"
	default:
		return "High Risk"
	}
}
