package proximity

import (
	"time"

	"safetrail/internal/domain/geo"
	"safetrail/internal/domain/zone"
)

// Status is a zone's membership status relative to the current position.
type Status string

const (
	StatusOutside     Status = "outside"
	StatusApproaching Status = "approaching"
	StatusInside      Status = "inside"
)

// TransitionKind classifies a membership change between evaluations.
type TransitionKind string

const (
	TransitionApproaching TransitionKind = "approaching"
	TransitionEntering    TransitionKind = "entering"
	TransitionStaying     TransitionKind = "staying"
	TransitionLeaving     TransitionKind = "leaving"
)

// State is the per-zone memory between evaluations. Owned exclusively by the
// engine's caller; reset when the zone catalog is reloaded.
type State struct {
	Status     Status
	DistanceKm float64
}

// NearbyZone is a catalog entry tagged with a fresh distance and risk bucket.
type NearbyZone struct {
	zone.Definition
	DistanceKm float64
	Risk       zone.RiskLevel
}

// TransitionEvent reports a zone crossing relative to the previous state.
type TransitionEvent struct {
	ZoneID     string
	ZoneName   string
	Kind       TransitionKind
	Risk       zone.RiskLevel
	DistanceKm float64
	At         time.Time
}

// Result is a single evaluation's output.
type Result struct {
	Nearby      []NearbyZone
	Transitions []TransitionEvent
	State       map[string]State
}

// pointInsideKm is the effective boundary for bare point zones, which carry
// no radius of their own.
const pointInsideKm = 0.2

// Engine evaluates a position against a zone catalog. Pure computation; the
// caller owns the state map and decides when to evaluate.
type Engine struct {
	nearbyRadiusKm float64
	refilterKm     float64
}

// NewEngine builds an engine. nearbyRadiusKm bounds how many zones are
// reported per evaluation (it bounds payload size, not true risk radius);
// refilterKm gates re-evaluation by movement.
func NewEngine(nearbyRadiusKm, refilterKm float64) *Engine {
	if nearbyRadiusKm <= 0 {
		nearbyRadiusKm = 15
	}
	if refilterKm <= 0 {
		refilterKm = 5
	}
	return &Engine{nearbyRadiusKm: nearbyRadiusKm, refilterKm: refilterKm}
}

// NearbyRadiusKm returns the configured nearby band.
func (e *Engine) NearbyRadiusKm() float64 {
	return e.nearbyRadiusKm
}

// ShouldReevaluate reports whether the user has moved far enough since the
// last evaluation to justify a re-filter. A perf/accuracy trade-off, not a
// correctness requirement.
func (e *Engine) ShouldReevaluate(last, cur geo.Coordinate) bool {
	return geo.DistanceKm(last, cur) >= e.refilterKm
}

// Evaluate computes the nearby subset, membership transitions, and the next
// state map for the given position. Malformed zones are skipped; an empty
// catalog yields empty results.
func (e *Engine) Evaluate(pos geo.Coordinate, catalog []zone.Definition, prev map[string]State) Result {
	now := time.Now().UTC()
	next := make(map[string]State, len(catalog))

	var nearby []NearbyZone
	var transitions []TransitionEvent

	for _, z := range catalog {
		if err := z.Validate(); err != nil {
			continue
		}

		d := e.distanceKm(pos, z)
		status := e.classify(pos, z, d)
		next[z.ID] = State{Status: status, DistanceKm: d}

		risk := zone.BucketRisk(z.Risk)
		if d <= e.nearbyRadiusKm {
			nearby = append(nearby, NearbyZone{Definition: z, DistanceKm: d, Risk: risk})
		}

		prevStatus := StatusOutside
		if ps, ok := prev[z.ID]; ok {
			prevStatus = ps.Status
		}

		if kind, ok := transition(prevStatus, status); ok {
			transitions = append(transitions, TransitionEvent{
				ZoneID:     z.ID,
				ZoneName:   z.Name,
				Kind:       kind,
				Risk:       risk,
				DistanceKm: d,
				At:         now,
			})
		}
	}

	return Result{Nearby: nearby, Transitions: transitions, State: next}
}

// distanceKm measures from the position to the zone's reference geometry:
// circle/point center, or the nearest vertex for polygons.
func (e *Engine) distanceKm(pos geo.Coordinate, z zone.Definition) float64 {
	switch z.Kind {
	case zone.KindPolygon:
		best := -1.0
		for _, v := range z.Vertices {
			if d := geo.DistanceKm(pos, v); best < 0 || d < best {
				best = d
			}
		}
		return best
	default:
		return geo.DistanceKm(pos, z.Center)
	}
}

// classify derives the membership status for a zone at distance d.
func (e *Engine) classify(pos geo.Coordinate, z zone.Definition, d float64) Status {
	inside := false
	switch z.Kind {
	case zone.KindCircle:
		inside = d <= z.EffectiveRadiusKm()
	case zone.KindPoint:
		inside = d <= pointInsideKm
	case zone.KindPolygon:
		// exact test when the ring is closed; open rings are never "inside"
		if z.ClosedRing() {
			inside = pointInPolygon(pos, z.Vertices)
		}
	}

	switch {
	case inside:
		return StatusInside
	case d <= e.nearbyRadiusKm:
		return StatusApproaching
	default:
		return StatusOutside
	}
}

// transition maps (previous, current) status pairs to an event kind.
func transition(prev, cur Status) (TransitionKind, bool) {
	switch {
	case prev != StatusInside && cur == StatusInside:
		return TransitionEntering, true
	case prev == StatusInside && cur == StatusInside:
		return TransitionStaying, true
	case prev == StatusInside && cur != StatusInside:
		return TransitionLeaving, true
	case prev == StatusOutside && cur == StatusApproaching:
		return TransitionApproaching, true
	}
	return "", false
}

// pointInPolygon is a ray-casting test over lat/lng vertices.
func pointInPolygon(p geo.Coordinate, ring []geo.Coordinate) bool {
	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); j, i = i, i+1 {
		yi, xi := ring[i].Lat, ring[i].Lng
		yj, xj := ring[j].Lat, ring[j].Lng
		intersect := ((yi > p.Lat) != (yj > p.Lat)) &&
			(p.Lng < (xj-xi)*(p.Lat-yi)/(yj-yi)+xi)
		if intersect {
			inside = !inside
		}
	}
	return inside
}
