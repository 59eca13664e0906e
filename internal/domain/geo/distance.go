package geo

import (
	"fmt"
	"math"
)

const earthRadiusKm = 6371

// DistanceKm returns the great-circle (haversine) distance between two
// coordinates in kilometers. Symmetric; ~0 for identical points.
func DistanceKm(a, b Coordinate) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// Axis selects the hemisphere suffix for DMS formatting.
type Axis string

const (
	AxisLat Axis = "lat"
	AxisLng Axis = "lng"
)

// ToDMS formats a decimal degree value as degrees/minutes/seconds, e.g.
// 28°36'50.20"N. Malformed numeric input (NaN) passes through into the
// formatted string; validation is the caller's concern.
func ToDMS(decimal float64, axis Axis) string {
	if math.IsNaN(decimal) {
		if axis == AxisLat {
			return `NaN°NaN'NaN"N`
		}
		return `NaN°NaN'NaN"E`
	}

	absolute := math.Abs(decimal)
	degrees := math.Floor(absolute)
	minutesFloat := (absolute - degrees) * 60
	minutes := math.Floor(minutesFloat)
	seconds := (minutesFloat - minutes) * 60

	var direction string
	if axis == AxisLat {
		direction = "N"
		if decimal < 0 {
			direction = "S"
		}
	} else {
		direction = "E"
		if decimal < 0 {
			direction = "W"
		}
	}

	return fmt.Sprintf("%d°%d'%.2f\"%s", int(degrees), int(minutes), seconds, direction)
}
