package alert

import (
	"time"

	"safetrail/internal/domain/geo"
)

// Category enumerates the kinds of authority alerts.
type Category string

const (
	CategoryEmergency   Category = "emergency"
	CategoryWarning     Category = "warning"
	CategoryInfo        Category = "info"
	CategoryWeather     Category = "weather"
	CategoryCivilUnrest Category = "civil_unrest"
)

// Priority orders alerts for presentation.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// TTL is the fixed lifespan of a live alert record.
const TTL = 6 * time.Minute

// TargetArea restricts an alert to tourists within RadiusKm of Center.
type TargetArea struct {
	Center   geo.Coordinate
	RadiusKm float64
}

// Record is a live authority alert as held by the lifecycle manager.
// Expiry is fixed at creation + TTL and never extended.
type Record struct {
	ID             string
	Category       Category
	Title          string
	Body           string
	Priority       Priority
	AuthorityID    string
	AuthorityName  string
	ActionRequired string
	Target         *TargetArea
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// NewRecord stamps creation time and the fixed expiry.
func NewRecord(id string, cat Category, title, body string, pri Priority, now time.Time) Record {
	return Record{
		ID:        id,
		Category:  cat,
		Title:     title,
		Body:      body,
		Priority:  pri,
		CreatedAt: now,
		ExpiresAt: now.Add(TTL),
	}
}

// Expired reports whether the record's TTL has elapsed at the given instant.
func (r Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
