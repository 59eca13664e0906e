package zone

import (
	"testing"

	"safetrail/internal/domain/geo"
)

func TestBucketRisk(t *testing.T) {
	tests := []struct {
		label string
		want  RiskLevel
	}{
		{"Very High", RiskVeryHigh},
		{"VERY HIGH", RiskVeryHigh},
		{"very  high risk", RiskVeryHigh},
		{"High", RiskHigh},
		{"high security", RiskHigh},
		{"Medium", RiskMedium},
		{"med", RiskMedium},
		{"Standard", RiskStandard},
		{"Low", RiskStandard},
		{"", RiskStandard},
		{"unknown", RiskStandard},
	}

	for _, tt := range tests {
		if got := BucketRisk(tt.label); got != tt.want {
			t.Errorf("BucketRisk(%q) = %s, want %s", tt.label, got, tt.want)
		}
	}
}

func TestRiskFromScore(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.9, "Very High"},
		{0.75, "Very High"},
		{0.6, "High"},
		{0.3, "Medium"},
		{0.1, "Low"},
	}
	for _, tt := range tests {
		if got := RiskFromScore(tt.score); got != tt.want {
			t.Errorf("RiskFromScore(%f) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestDefinitionValidate(t *testing.T) {
	center := geo.Coordinate{Lat: 28.6, Lng: 77.2}

	valid := Definition{ID: "z1", Kind: KindCircle, Center: center, RadiusKm: 2}
	if err := valid.Validate(); err != nil {
		t.Errorf("unexpected error for valid circle: %v", err)
	}

	noID := Definition{Kind: KindCircle, Center: center}
	if err := noID.Validate(); err != ErrEmptyZoneID {
		t.Errorf("expected ErrEmptyZoneID, got %v", err)
	}

	badKind := Definition{ID: "z2", Kind: "blob", Center: center}
	if err := badKind.Validate(); err != ErrInvalidGeometry {
		t.Errorf("expected ErrInvalidGeometry, got %v", err)
	}

	badCenter := Definition{ID: "z3", Kind: KindPoint, Center: geo.Coordinate{Lat: 200}}
	if err := badCenter.Validate(); err != ErrInvalidGeometry {
		t.Errorf("expected ErrInvalidGeometry for bad center, got %v", err)
	}

	openPoly := Definition{ID: "z4", Kind: KindPolygon, Vertices: []geo.Coordinate{center, center}}
	if err := openPoly.Validate(); err != ErrInvalidGeometry {
		t.Errorf("expected ErrInvalidGeometry for 2-vertex polygon, got %v", err)
	}
}

func TestEffectiveRadiusDefaults(t *testing.T) {
	d := Definition{ID: "z", Kind: KindCircle, Center: geo.Coordinate{Lat: 1, Lng: 1}}
	if d.EffectiveRadiusKm() != 1 {
		t.Errorf("expected default radius 1, got %f", d.EffectiveRadiusKm())
	}
	d.RadiusKm = 2.5
	if d.EffectiveRadiusKm() != 2.5 {
		t.Errorf("expected radius 2.5, got %f", d.EffectiveRadiusKm())
	}
}
