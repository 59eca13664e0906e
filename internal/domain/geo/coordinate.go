package geo

import (
	"errors"
	"math"
	"time"
)

// Coordinate is an immutable WGS84 position in decimal degrees.
// AccuracyMeters and Timestamp are optional metadata from the location
// provider; a zero value means "not reported".
type Coordinate struct {
	Lat            float64
	Lng            float64
	AccuracyMeters float64
	Timestamp      time.Time
}

var (
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
)

// NewCoordinate constructs a validated Coordinate.
func NewCoordinate(lat, lng float64) (Coordinate, error) {
	c := Coordinate{Lat: lat, Lng: lng}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// Validate checks coordinate ranges. NaN fails both range checks.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || c.Lat < -90 || c.Lat > 90 {
		return ErrInvalidLatitude
	}
	if math.IsNaN(c.Lng) || c.Lng < -180 || c.Lng > 180 {
		return ErrInvalidLongitude
	}
	return nil
}
