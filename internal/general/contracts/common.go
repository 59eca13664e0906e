package contracts

import (
	"encoding/json"
	"time"
)

// Envelope adds cross-cutting headers all bus messages may carry.
type Envelope struct {
	CorrelationID string    `json:"correlation_id,omitempty"` // correlation for tracing across services
	Producer      string    `json:"producer,omitempty"`       // producer service name, e.g. "gateway-service"
	SentAt        time.Time `json:"sent_at,omitempty"`        // ISO-8601 send time (UTC)
}

// GeoPoint is the shared lat/lng wire shape.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// WSFrame is the envelope for every websocket message in either direction.
type WSFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}
