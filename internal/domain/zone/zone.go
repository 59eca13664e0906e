package zone

import (
	"errors"

	"safetrail/internal/domain/geo"
)

// GeometryKind enumerates the supported zone geometries.
type GeometryKind string

const (
	KindCircle  GeometryKind = "circle"
	KindPolygon GeometryKind = "polygon"
	KindPoint   GeometryKind = "point"
)

// Valid reports whether the kind is one of the supported geometries.
func (k GeometryKind) Valid() bool {
	switch k {
	case KindCircle, KindPolygon, KindPoint:
		return true
	}
	return false
}

var (
	ErrInvalidGeometry = errors.New("zone geometry is missing or malformed")
	ErrEmptyZoneID     = errors.New("zone id cannot be empty")
)

// Definition is a static named geographic region tagged with a risk level.
// Definitions are immutable during a session; the catalog may be replaced
// wholesale by a fresher fetch.
type Definition struct {
	ID       string
	Name     string
	Kind     GeometryKind
	Center   geo.Coordinate   // circle/point center
	RadiusKm float64          // circle boundary; 0 means unset
	Vertices []geo.Coordinate // polygon vertex ring, ordered
	Risk     string           // free-text label, bucketed via BucketRisk
	Category string
}

// defaultCircleRadiusKm applies when a circle zone ships without a radius.
const defaultCircleRadiusKm = 1

// EffectiveRadiusKm returns the circle boundary, defaulting when unset.
func (d Definition) EffectiveRadiusKm() float64 {
	if d.RadiusKm > 0 {
		return d.RadiusKm
	}
	return defaultCircleRadiusKm
}

// Validate checks the definition is usable for proximity evaluation.
// Malformed definitions are skipped by callers, never fatal.
func (d Definition) Validate() error {
	if d.ID == "" {
		return ErrEmptyZoneID
	}
	if !d.Kind.Valid() {
		return ErrInvalidGeometry
	}
	switch d.Kind {
	case KindCircle, KindPoint:
		if err := d.Center.Validate(); err != nil {
			return ErrInvalidGeometry
		}
	case KindPolygon:
		if len(d.Vertices) < 3 {
			return ErrInvalidGeometry
		}
		for _, v := range d.Vertices {
			if err := v.Validate(); err != nil {
				return ErrInvalidGeometry
			}
		}
	}
	return nil
}

// ClosedRing reports whether the polygon ring has at least 3 distinct
// vertices; the proximity engine falls back to nearest-vertex distance for
// open or degenerate rings.
func (d Definition) ClosedRing() bool {
	if d.Kind != KindPolygon || len(d.Vertices) < 3 {
		return false
	}
	distinct := 0
	for i, v := range d.Vertices {
		if i == 0 || v.Lat != d.Vertices[i-1].Lat || v.Lng != d.Vertices[i-1].Lng {
			distinct++
		}
	}
	return distinct >= 3
}
