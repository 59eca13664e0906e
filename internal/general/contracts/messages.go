package contracts

// RegisterTouristMessage is the registration handshake sent immediately after
// the transport connects. Fire-and-forget; the gateway answers with
// EventRegistrationConfirmed but the client does not wait for it.
type RegisterTouristMessage struct {
	Role      string   `json:"role"` // always "tourist"
	TouristID string   `json:"touristId"`
	Location  GeoPoint `json:"location"`
}

// LocationUpdateMessage is the periodic outbound location push.
type LocationUpdateMessage struct {
	Location GeoPoint `json:"location"`
}

// RegistrationConfirmedMessage acknowledges a registration.
type RegistrationConfirmedMessage struct {
	Message string `json:"message"`
}

// AuthorityAlertMessage is an inbound authority alert as carried on the wire
// (websocket push and the alert_topic exchange share this shape).
type AuthorityAlertMessage struct {
	AlertID        string      `json:"alertId"`
	Type           string      `json:"type"` // emergency | warning | info | weather | civil_unrest
	Title          string      `json:"title"`
	Message        string      `json:"message"`
	Priority       string      `json:"priority"` // critical | high | medium | low
	Timestamp      string      `json:"timestamp"`
	AuthorityID    string      `json:"authorityId"`
	AuthorityName  string      `json:"authorityName"`
	ActionRequired string      `json:"actionRequired,omitempty"`
	TargetArea     *TargetArea `json:"targetArea,omitempty"`
	Envelope
}

// TargetArea geographically scopes an alert. Radius is kilometers.
type TargetArea struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Radius float64 `json:"radius"`
}

// NearestThreat describes the closest known hazard in a score push.
type NearestThreat struct {
	Name     string  `json:"name"`
	Distance float64 `json:"distance"` // km
	Severity string  `json:"severity"`
}

// SafetyScoreUpdateMessage is an inbound authoritative score push.
type SafetyScoreUpdateMessage struct {
	SafetyScore   float64        `json:"safetyScore"`
	Timestamp     string         `json:"timestamp"`
	SafetyLevel   string         `json:"safetyLevel,omitempty"`
	GeofenceScore *float64       `json:"geofenceScore,omitempty"`
	WeatherScore  *float64       `json:"weatherScore,omitempty"`
	NearestThreat *NearestThreat `json:"nearestThreat,omitempty"`
	ThreatText    string         `json:"threatText,omitempty"` // opaque fallback when unstructured
	Location      *GeoPoint      `json:"location,omitempty"`
}

// Score-change alert types.
const (
	ChangeSignificantDrop     = "significant_drop"
	ChangeSignificantIncrease = "significant_increase"
	ChangeCriticalThreshold   = "critical_threshold"
)

// SafetyScoreAlertMessage flags a notable score transition.
type SafetyScoreAlertMessage struct {
	PreviousScore   float64                  `json:"previousScore"`
	NewScore        float64                  `json:"newScore"`
	ChangeType      string                   `json:"changeType"`
	Message         string                   `json:"message"`
	SafetyScoreData SafetyScoreUpdateMessage `json:"safetyScoreData"`
}

// LocationAuditMessage is broadcast by the gateway on ExchangeLocationFanout
// for downstream consumers (analytics, path-deviation, dashboards).
type LocationAuditMessage struct {
	TouristID string   `json:"tourist_id"`
	Location  GeoPoint `json:"location"`
	Envelope
}
