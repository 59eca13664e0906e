package proximity

import (
	"testing"

	"safetrail/internal/domain/geo"
	"safetrail/internal/domain/zone"
)

// moveKmNorth returns a coordinate approximately km kilometers north of c.
// One degree of latitude is ~111.195 km on the haversine sphere.
func moveKmNorth(c geo.Coordinate, km float64) geo.Coordinate {
	return geo.Coordinate{Lat: c.Lat + km/111.195, Lng: c.Lng}
}

func circleZone(id string, center geo.Coordinate, radiusKm float64) zone.Definition {
	return zone.Definition{
		ID:       id,
		Name:     id,
		Kind:     zone.KindCircle,
		Center:   center,
		RadiusKm: radiusKm,
		Risk:     "High",
	}
}

func TestEvaluateInsideAtCenter(t *testing.T) {
	center := geo.Coordinate{Lat: 28.6139, Lng: 77.2090}
	e := NewEngine(15, 5)

	res := e.Evaluate(center, []zone.Definition{circleZone("z1", center, 2)}, nil)

	st, ok := res.State["z1"]
	if !ok {
		t.Fatal("expected state for z1")
	}
	if st.Status != StatusInside {
		t.Errorf("position at center: status = %s, want inside", st.Status)
	}
	if st.DistanceKm > 1e-9 {
		t.Errorf("distance at center = %f, want ~0", st.DistanceKm)
	}
}

func TestEvaluateJustBeyondBoundaryIsNotInside(t *testing.T) {
	center := geo.Coordinate{Lat: 28.6139, Lng: 77.2090}
	pos := moveKmNorth(center, 2.0001)
	e := NewEngine(15, 5)

	res := e.Evaluate(pos, []zone.Definition{circleZone("z1", center, 2)}, nil)

	st := res.State["z1"]
	if st.Status == StatusInside {
		t.Errorf("2.0001 km from a 2 km circle classified as inside")
	}
	// still within the 15 km nearby band
	if st.Status != StatusApproaching {
		t.Errorf("status = %s, want approaching", st.Status)
	}
	if len(res.Nearby) != 1 {
		t.Errorf("expected zone in nearby set, got %d entries", len(res.Nearby))
	}
}

func TestTransitionSequenceEnterStayLeave(t *testing.T) {
	center := geo.Coordinate{Lat: 28.6139, Lng: 77.2090}
	catalog := []zone.Definition{circleZone("z1", center, 2)}
	e := NewEngine(15, 5)

	far := moveKmNorth(center, 50)
	in := moveKmNorth(center, 0.5)
	out := moveKmNorth(center, 20)

	// establish "outside" state first
	res := e.Evaluate(far, catalog, nil)
	if len(res.Transitions) != 0 {
		t.Fatalf("unexpected transitions while far away: %v", res.Transitions)
	}

	var kinds []TransitionKind
	for _, pos := range []geo.Coordinate{in, in, out} {
		res = e.Evaluate(pos, catalog, res.State)
		for _, tr := range res.Transitions {
			kinds = append(kinds, tr.Kind)
		}
	}

	want := []TransitionKind{TransitionEntering, TransitionStaying, TransitionLeaving}
	if len(kinds) != len(want) {
		t.Fatalf("got transitions %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, kinds[i], want[i])
		}
	}
}

func TestApproachingTransition(t *testing.T) {
	center := geo.Coordinate{Lat: 28.6139, Lng: 77.2090}
	catalog := []zone.Definition{circleZone("z1", center, 2)}
	e := NewEngine(15, 5)

	res := e.Evaluate(moveKmNorth(center, 50), catalog, nil)
	res = e.Evaluate(moveKmNorth(center, 10), catalog, res.State)

	if len(res.Transitions) != 1 || res.Transitions[0].Kind != TransitionApproaching {
		t.Errorf("expected single approaching transition, got %v", res.Transitions)
	}
}

func TestNearbyBandBoundsResults(t *testing.T) {
	pos := geo.Coordinate{Lat: 28.6139, Lng: 77.2090}
	catalog := []zone.Definition{
		circleZone("near", moveKmNorth(pos, 10), 1),
		circleZone("far", moveKmNorth(pos, 30), 1),
	}
	e := NewEngine(15, 5)

	res := e.Evaluate(pos, catalog, nil)
	if len(res.Nearby) != 1 || res.Nearby[0].ID != "near" {
		t.Errorf("nearby set = %v, want only 'near'", res.Nearby)
	}
	// state is still tracked for the far zone
	if res.State["far"].Status != StatusOutside {
		t.Errorf("far zone status = %s, want outside", res.State["far"].Status)
	}
}

func TestMalformedZoneSkipped(t *testing.T) {
	pos := geo.Coordinate{Lat: 28.6139, Lng: 77.2090}
	catalog := []zone.Definition{
		{ID: "bad", Kind: zone.KindCircle, Center: geo.Coordinate{Lat: 999}},
		circleZone("good", pos, 2),
	}
	e := NewEngine(15, 5)

	res := e.Evaluate(pos, catalog, nil)
	if _, ok := res.State["bad"]; ok {
		t.Error("malformed zone should be skipped, found in state")
	}
	if _, ok := res.State["good"]; !ok {
		t.Error("valid zone missing from state")
	}
}

func TestEmptyCatalog(t *testing.T) {
	e := NewEngine(15, 5)
	res := e.Evaluate(geo.Coordinate{Lat: 1, Lng: 1}, nil, nil)
	if len(res.Nearby) != 0 || len(res.Transitions) != 0 || len(res.State) != 0 {
		t.Errorf("empty catalog should produce empty results: %+v", res)
	}
}

func TestPolygonMembership(t *testing.T) {
	// square around the origin, ~1 degree on each side
	ring := []geo.Coordinate{
		{Lat: -0.5, Lng: -0.5},
		{Lat: -0.5, Lng: 0.5},
		{Lat: 0.5, Lng: 0.5},
		{Lat: 0.5, Lng: -0.5},
	}
	poly := zone.Definition{ID: "p1", Name: "p1", Kind: zone.KindPolygon, Vertices: ring, Risk: "Medium"}
	e := NewEngine(200, 5)

	res := e.Evaluate(geo.Coordinate{Lat: 0, Lng: 0}, []zone.Definition{poly}, nil)
	if res.State["p1"].Status != StatusInside {
		t.Errorf("origin should be inside the square, got %s", res.State["p1"].Status)
	}

	res = e.Evaluate(geo.Coordinate{Lat: 0.6, Lng: 0}, []zone.Definition{poly}, nil)
	if res.State["p1"].Status == StatusInside {
		t.Error("point north of the square classified as inside")
	}
}

func TestRiskBucketOnTransition(t *testing.T) {
	center := geo.Coordinate{Lat: 28.6139, Lng: 77.2090}
	z := circleZone("z1", center, 2)
	z.Risk = "Very High"
	e := NewEngine(15, 5)

	res := e.Evaluate(center, []zone.Definition{z}, nil)
	if len(res.Transitions) != 1 {
		t.Fatalf("expected entering transition, got %v", res.Transitions)
	}
	if res.Transitions[0].Kind != TransitionEntering {
		t.Errorf("kind = %s, want entering", res.Transitions[0].Kind)
	}
	if res.Transitions[0].Risk != zone.RiskVeryHigh {
		t.Errorf("risk = %s, want very-high", res.Transitions[0].Risk)
	}
}

func TestShouldReevaluate(t *testing.T) {
	e := NewEngine(15, 5)
	a := geo.Coordinate{Lat: 28.6139, Lng: 77.2090}

	if e.ShouldReevaluate(a, moveKmNorth(a, 1)) {
		t.Error("1 km move should not trigger re-evaluation")
	}
	if !e.ShouldReevaluate(a, moveKmNorth(a, 6)) {
		t.Error("6 km move should trigger re-evaluation")
	}
}
