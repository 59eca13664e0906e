package score

import (
	"testing"

	"safetrail/internal/general/contracts"
)

func fptr(v float64) *float64 { return &v }

func TestAggregateBothScores(t *testing.T) {
	a := NewAggregator()
	snap := a.Aggregate(fptr(90), fptr(70))
	// 90*0.6 + 70*0.4 = 82
	if snap.Score != 82 {
		t.Fatalf("score = %d, want 82", snap.Score)
	}
	if snap.Status != "Safe" || snap.Label != "Excellent" {
		t.Errorf("band = %q/%q, want Safe/Excellent", snap.Status, snap.Label)
	}
	if snap.Source != SourceLocalAggregate {
		t.Errorf("source = %q, want %q", snap.Source, SourceLocalAggregate)
	}
}

func TestAggregateSingleScoreFallsBackToIt(t *testing.T) {
	a := NewAggregator()
	if got := a.Aggregate(fptr(65), nil).Score; got != 65 {
		t.Errorf("geo-only score = %d, want 65", got)
	}
	if got := a.Aggregate(nil, fptr(35)).Score; got != 35 {
		t.Errorf("weather-only score = %d, want 35", got)
	}
}

func TestAggregateNoScoresIsNeutral(t *testing.T) {
	a := NewAggregator()
	snap := a.Aggregate(nil, nil)
	if snap.Score != 50 {
		t.Fatalf("score = %d, want 50", snap.Score)
	}
	if snap.Status != "Caution" || snap.Label != "Moderate" {
		t.Errorf("band = %q/%q, want Caution/Moderate", snap.Status, snap.Label)
	}
}

func TestAggregateClampsOutOfRange(t *testing.T) {
	a := NewAggregator()
	if got := a.Aggregate(fptr(180), fptr(150)).Score; got != 100 {
		t.Errorf("over-range score = %d, want 100", got)
	}
	if got := a.Aggregate(fptr(-40), nil).Score; got != 0 {
		t.Errorf("under-range score = %d, want 0", got)
	}
}

func TestBandBoundaries(t *testing.T) {
	cases := []struct {
		score  int
		status string
		label  string
	}{
		{100, "Safe", "Excellent"},
		{80, "Safe", "Excellent"},
		{79, "Moderate", "Good"},
		{60, "Moderate", "Good"},
		{59, "Caution", "Moderate"},
		{40, "Caution", "Moderate"},
		{39, "High Risk", "Low"},
		{0, "High Risk", "Low"},
	}
	for _, c := range cases {
		status, label := band(c.score)
		if status != c.status || label != c.label {
			t.Errorf("band(%d) = %q/%q, want %q/%q", c.score, status, label, c.status, c.label)
		}
	}
}

func TestServerSnapshotOverridesAndSuppresses(t *testing.T) {
	a := NewAggregator()
	a.Aggregate(fptr(90), fptr(90))

	snap := a.ApplyServerSnapshot(contracts.SafetyScoreUpdateMessage{
		SafetyScore: 33,
		NearestThreat: &contracts.NearestThreat{
			Name:     "Red Fort perimeter",
			Distance: 1.26,
			Severity: "high",
		},
	})
	if snap.Score != 33 {
		t.Fatalf("server score = %d, want 33", snap.Score)
	}
	if snap.Source != SourceServerPush {
		t.Errorf("source = %q, want %q", snap.Source, SourceServerPush)
	}
	if snap.NearestThreat != "Red Fort perimeter (high) - 1.3km away" {
		t.Errorf("threat = %q", snap.NearestThreat)
	}

	// Later local aggregation must be a no-op for the session.
	after := a.Aggregate(fptr(95), fptr(95))
	if after.Score != 33 || after.Source != SourceServerPush {
		t.Errorf("post-override aggregate = %+v, want server snapshot retained", after)
	}
	if !a.ServerOverrideActive() {
		t.Error("ServerOverrideActive() = false, want true")
	}
}

func TestDescribeThreatFallbacks(t *testing.T) {
	if got := describeThreat(contracts.SafetyScoreUpdateMessage{ThreatText: "unrest reported nearby"}); got != "unrest reported nearby" {
		t.Errorf("opaque text = %q", got)
	}
	if got := describeThreat(contracts.SafetyScoreUpdateMessage{}); got != "No immediate threats nearby" {
		t.Errorf("empty threat = %q", got)
	}
}
