package service

import (
	"testing"

	"safetrail/internal/domain/geo"
	"safetrail/internal/domain/zone"
	"safetrail/internal/general/contracts"
)

func delhi() geo.Coordinate { return geo.Coordinate{Lat: 28.6139, Lng: 77.2090} }

func circleZone(id, name, risk string, center geo.Coordinate, radiusKm float64) zone.Definition {
	return zone.Definition{
		ID:       id,
		Name:     name,
		Kind:     zone.KindCircle,
		Center:   center,
		RadiusKm: radiusKm,
		Risk:     risk,
	}
}

func TestScoreForNoZones(t *testing.T) {
	score, threat := scoreFor(delhi(), nil)
	if score != 100 {
		t.Errorf("score = %f, want 100", score)
	}
	if threat != nil {
		t.Errorf("threat = %+v, want nil", threat)
	}
}

func TestScoreForInsideZone(t *testing.T) {
	z := circleZone("z1", "Red Fort perimeter", "Very High", delhi(), 1)
	score, threat := scoreFor(delhi(), []zone.Definition{z})

	if score != 60 {
		t.Errorf("score = %f, want 60", score)
	}
	if threat == nil {
		t.Fatal("expected a nearest threat")
	}
	if threat.Name != "Red Fort perimeter" || threat.Severity != "very-high" {
		t.Errorf("threat = %+v", threat)
	}
	if threat.Distance != 0 {
		t.Errorf("threat distance = %f, want 0", threat.Distance)
	}
}

func TestScoreForDecaysOutsideBoundary(t *testing.T) {
	// ~2.2km north of the tourist, radius 0.25km: partial penalty
	center := geo.Coordinate{Lat: delhi().Lat + 0.02, Lng: delhi().Lng}
	z := circleZone("z1", "Protest area", "High", center, 0.25)

	score, threat := scoreFor(delhi(), []zone.Definition{z})
	if score <= 75 || score >= 100 {
		t.Errorf("score = %f, want a partial penalty between 75 and 100", score)
	}
	if threat == nil || threat.Name != "Protest area" {
		t.Fatalf("threat = %+v", threat)
	}
}

func TestScoreForIgnoresDistantZones(t *testing.T) {
	// ~11km away, outside the influence band
	center := geo.Coordinate{Lat: delhi().Lat + 0.1, Lng: delhi().Lng}
	z := circleZone("z1", "Far zone", "Very High", center, 1)

	score, threat := scoreFor(delhi(), []zone.Definition{z})
	if score != 100 {
		t.Errorf("score = %f, want 100", score)
	}
	if threat != nil {
		t.Errorf("threat = %+v, want nil", threat)
	}
}

func TestScoreForStandardRiskIsNotAThreat(t *testing.T) {
	z := circleZone("z1", "Market", "Low", delhi(), 1)
	score, threat := scoreFor(delhi(), []zone.Definition{z})
	if score != 95 {
		t.Errorf("score = %f, want 95", score)
	}
	if threat != nil {
		t.Errorf("threat = %+v, want nil for standard risk", threat)
	}
}

func TestScoreForNearestThreatWins(t *testing.T) {
	near := circleZone("z1", "Near", "High", geo.Coordinate{Lat: delhi().Lat + 0.005, Lng: delhi().Lng}, 0.25)
	far := circleZone("z2", "Far", "Very High", geo.Coordinate{Lat: delhi().Lat + 0.02, Lng: delhi().Lng}, 0.25)

	_, threat := scoreFor(delhi(), []zone.Definition{far, near})
	if threat == nil || threat.Name != "Near" {
		t.Errorf("threat = %+v, want the nearer zone", threat)
	}
}

func TestScoreForClampsAtZero(t *testing.T) {
	zones := []zone.Definition{
		circleZone("z1", "A", "Very High", delhi(), 1),
		circleZone("z2", "B", "Very High", delhi(), 1),
		circleZone("z3", "C", "Very High", delhi(), 1),
	}
	score, _ := scoreFor(delhi(), zones)
	if score != 0 {
		t.Errorf("score = %f, want clamp at 0", score)
	}
}

func TestScoreForSkipsMalformedZones(t *testing.T) {
	bad := zone.Definition{ID: "", Kind: zone.KindCircle, Center: delhi(), Risk: "Very High"}
	score, _ := scoreFor(delhi(), []zone.Definition{bad})
	if score != 100 {
		t.Errorf("score = %f, want malformed zone ignored", score)
	}
}

func TestLevelForBands(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{95, "Safe"},
		{80, "Safe"},
		{79, "Moderate"},
		{60, "Moderate"},
		{59, "Caution"},
		{40, "Caution"},
		{39, "High Risk"},
		{0, "High Risk"},
	}
	for _, tc := range cases {
		if got := levelFor(tc.score); got != tc.want {
			t.Errorf("levelFor(%f) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func newScoreService() *Service {
	return &Service{lastScores: make(map[string]float64)}
}

func TestDetectChangeFirstObservationIsQuiet(t *testing.T) {
	s := newScoreService()
	if _, ok := s.detectChange("t1", 30, contracts.SafetyScoreUpdateMessage{}); ok {
		t.Error("first observation should not alert")
	}
}

func TestDetectChangeSmallMoveIsQuiet(t *testing.T) {
	s := newScoreService()
	s.detectChange("t1", 80, contracts.SafetyScoreUpdateMessage{})
	if _, ok := s.detectChange("t1", 70, contracts.SafetyScoreUpdateMessage{}); ok {
		t.Error("a 10-point move should not alert")
	}
}

func TestDetectChangeSignificantDrop(t *testing.T) {
	s := newScoreService()
	s.detectChange("t1", 80, contracts.SafetyScoreUpdateMessage{})
	alert, ok := s.detectChange("t1", 60, contracts.SafetyScoreUpdateMessage{})
	if !ok || alert.ChangeType != contracts.ChangeSignificantDrop {
		t.Fatalf("alert = %+v ok=%v, want significant_drop", alert, ok)
	}
	if alert.PreviousScore != 80 || alert.NewScore != 60 {
		t.Errorf("scores = %f -> %f", alert.PreviousScore, alert.NewScore)
	}
}

func TestDetectChangeSignificantIncrease(t *testing.T) {
	s := newScoreService()
	s.detectChange("t1", 30, contracts.SafetyScoreUpdateMessage{})
	alert, ok := s.detectChange("t1", 50, contracts.SafetyScoreUpdateMessage{})
	if !ok || alert.ChangeType != contracts.ChangeSignificantIncrease {
		t.Fatalf("alert = %+v ok=%v, want significant_increase", alert, ok)
	}
}

func TestDetectChangeCriticalCrossingWins(t *testing.T) {
	s := newScoreService()
	s.detectChange("t1", 55, contracts.SafetyScoreUpdateMessage{})
	// drop of 20 AND crossing below 40: critical takes precedence
	alert, ok := s.detectChange("t1", 35, contracts.SafetyScoreUpdateMessage{})
	if !ok || alert.ChangeType != contracts.ChangeCriticalThreshold {
		t.Fatalf("alert = %+v ok=%v, want critical_threshold", alert, ok)
	}
}

func TestDetectChangeTracksPerTourist(t *testing.T) {
	s := newScoreService()
	s.detectChange("t1", 80, contracts.SafetyScoreUpdateMessage{})
	// a different tourist has no history yet
	if _, ok := s.detectChange("t2", 20, contracts.SafetyScoreUpdateMessage{}); ok {
		t.Error("t2's first observation should not alert")
	}
}
