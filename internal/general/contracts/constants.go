package contracts

// Websocket events, client -> gateway
const (
	EventRegisterTourist = "registerTourist"
	EventUpdateLocation  = "updateTouristLocation"
)

// Websocket events, gateway -> client
const (
	EventRegistrationConfirmed = "registrationConfirmed"
	EventAuthorityAlert        = "authorityAlert"
	EventSafetyScoreUpdate     = "safetyScoreUpdate"
	EventSafetyScoreAlert      = "safetyScoreAlert"
)

// Exchanges
const (
	ExchangeAlertTopic     = "alert_topic"
	ExchangeLocationFanout = "location_fanout"
)

// Queues
const (
	QueueAuthorityAlerts = "authority_alerts"
	QueueLocationAudit   = "location_audit"
)

// Routing patterns
const (
	RouteAlertPrefix = "alert." // {category}
)
