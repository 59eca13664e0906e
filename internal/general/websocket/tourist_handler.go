package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"safetrail/internal/domain/geo"
	"safetrail/internal/domain/user"
	"safetrail/internal/general/contracts"
	"safetrail/internal/general/jwt"
	"safetrail/internal/general/logger"
	"safetrail/internal/general/metrics"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout   = 5 * time.Second
	wsCloseAckWindow = 2 * time.Second
	ctrlTimeout      = 5 * time.Second
	authWindow       = 10 * time.Second
	readWindow       = 90 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// TouristEvents is the service surface the hub routes inbound frames to.
type TouristEvents interface {
	HandleRegister(ctx context.Context, touristID string, msg contracts.RegisterTouristMessage) error
	HandleLocationUpdate(ctx context.Context, touristID string, msg contracts.LocationUpdateMessage) error
}

// Presence is a connected tourist and their last reported position.
type Presence struct {
	TouristID string
	Location  geo.Coordinate
	HasFix    bool
}

type touristSession struct {
	conn *websocket.Conn

	mu      sync.Mutex
	lastLoc geo.Coordinate
	hasFix  bool
}

// Hub owns tourist websocket sessions: JWT first-frame auth, frame routing,
// per-connection write locks, and outbound pushes.
type Hub struct {
	log        *logger.Logger
	jwtMgr     *jwt.Manager
	events     TouristEvents
	met        *metrics.Metrics
	writeLocks sync.Map
	tourists   sync.Map // key: touristID(string) -> *touristSession
}

func NewHub(log *logger.Logger, jwtMgr *jwt.Manager, events TouristEvents, met *metrics.Metrics) *Hub {
	return &Hub{
		log:    log,
		jwtMgr: jwtMgr,
		events: events,
		met:    met,
	}
}

// ConnectTourist handles websocket connections from tourist clients with JWT
// auth.
func (hub *Hub) ConnectTourist(w http.ResponseWriter, r *http.Request) {
	// 1) Upgrade HTTP -> WS
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.Error(r.Context(), "websocket_upgrade_failed", "failed to upgrade to websocket", err, nil)
		return
	}
	// Teardown order (LIFO on return):
	defer conn.Close()
	defer hub.writeLocks.Delete(conn)

	// 2) Auth deadline
	conn.SetReadLimit(1 << 20) // 1 MiB
	if err := conn.SetReadDeadline(time.Now().Add(authWindow)); err != nil {
		hub.log.Error(r.Context(), "ws_set_deadline_failed", "failed to set initial read deadline", err, nil)
		hub.sendAuthError(conn, "internal server error")
		return
	}

	// 3) First frame must authenticate
	mt, first, err := conn.ReadMessage()
	if err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			hub.log.Error(r.Context(), "ws_auth_timeout", "client disconnected before authentication", err, nil)
		} else {
			hub.log.Error(r.Context(), "ws_auth_read_failed", "failed to read auth message", err, nil)
		}
		hub.sendAuthError(conn, "authentication timeout: please send auth message within 10 seconds")
		return
	}
	if mt != websocket.TextMessage {
		hub.log.Error(r.Context(), "ws_auth_invalid_format", "auth message must be text format", nil, nil)
		hub.sendAuthError(conn, "auth message must be in text format")
		return
	}

	res, err := jwt.ValidateWSAuth(first, hub.jwtMgr, user.RoleTourist)
	if err != nil {
		hub.log.Error(r.Context(), "ws_auth_failed", "invalid auth message or token", err, nil)
		hub.sendAuthError(conn, "authentication failed: invalid token")
		return
	}
	touristID := res.Claims.Subject

	// 4) Auth success frame, then normal read deadlines
	if err := hub.sendAuthSuccess(conn, touristID); err != nil {
		hub.log.Error(r.Context(), "ws_auth_success_failed", "failed to send auth success message", err, nil)
		return
	}

	ctx := hub.log.WithTouristID(r.Context(), touristID)
	hub.log.Info(ctx, "ws_connected", "tourist websocket connected", nil)

	_ = conn.SetReadDeadline(time.Now().Add(readWindow))
	conn.SetPongHandler(func(_ string) error {
		return conn.SetReadDeadline(time.Now().Add(readWindow))
	})

	// 5) Ping loop with the per-connection writer lock
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	go func() {
		for range ticker.C {
			mu := hub.lockOf(conn)
			mu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(ctrlTimeout))
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctrlTimeout))
			mu.Unlock()
			if err != nil {
				_ = conn.Close() // unblock the reader; goroutine exits
				hub.log.Error(ctx, "ws_ping_failed", "failed to send ping", err, nil)
				return
			}
		}
	}()

	// 6) Register the session for outbound pushes; unregister on exit
	session := &touristSession{conn: conn}
	hub.tourists.Store(touristID, session)
	hub.met.ConnectedTourists.Inc()
	defer func() {
		hub.tourists.Delete(touristID)
		hub.met.ConnectedTourists.Dec()
	}()

	// 7) Read loop: route frames
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readWindow))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				hub.log.Error(ctx, "ws_unexpected_close", "tourist connection closed unexpectedly", err, nil)
				hub.wsWriteClose(conn, websocket.CloseInternalServerErr, "internal error")
			} else {
				hub.log.Info(ctx, "ws_connection_closed", "tourist connection closed normally", nil)
				hub.wsWriteClose(conn, websocket.CloseNormalClosure, "bye")
			}
			break
		}

		var frame contracts.WSFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			_ = hub.wsWriteMessage(conn, websocket.TextMessage, []byte(`{"event":"error","data":{"error":"bad json"}}`))
			continue
		}

		switch frame.Event {
		case contracts.EventRegisterTourist:
			var msg contracts.RegisterTouristMessage
			if err := json.Unmarshal(frame.Data, &msg); err != nil {
				_ = hub.wsWriteMessage(conn, websocket.TextMessage, []byte(`{"event":"error","data":{"error":"bad registration payload"}}`))
				continue
			}
			session.updateFix(geo.Coordinate{Lat: msg.Location.Lat, Lng: msg.Location.Lng, Timestamp: time.Now()})
			if err := hub.events.HandleRegister(ctx, touristID, msg); err != nil {
				hub.log.Error(ctx, "tourist_register_failed", "registration handling failed", err, nil)
				continue
			}
			_ = hub.SendToTourist(ctx, touristID, contracts.EventRegistrationConfirmed,
				contracts.RegistrationConfirmedMessage{Message: "registered"})

		case contracts.EventUpdateLocation:
			var msg contracts.LocationUpdateMessage
			if err := json.Unmarshal(frame.Data, &msg); err != nil {
				_ = hub.wsWriteMessage(conn, websocket.TextMessage, []byte(`{"event":"error","data":{"error":"bad location payload"}}`))
				continue
			}
			session.updateFix(geo.Coordinate{Lat: msg.Location.Lat, Lng: msg.Location.Lng, Timestamp: time.Now()})
			hub.met.LocationUpdates.Inc()
			if err := hub.events.HandleLocationUpdate(ctx, touristID, msg); err != nil {
				hub.log.Error(ctx, "location_update_failed", "location handling failed", err, nil)
			}

		default:
			_ = hub.wsWriteMessage(conn, websocket.TextMessage, []byte(`{"event":"error","data":{"error":"unknown event"}}`))
		}
	}
}

func (s *touristSession) updateFix(loc geo.Coordinate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLoc = loc
	s.hasFix = true
}

func (s *touristSession) fix() (geo.Coordinate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastLoc, s.hasFix
}

// Presences snapshots all connected tourists and their last known positions.
func (hub *Hub) Presences() []Presence {
	var out []Presence
	hub.tourists.Range(func(k, v any) bool {
		session, ok := v.(*touristSession)
		if !ok {
			return true
		}
		loc, has := session.fix()
		out = append(out, Presence{TouristID: k.(string), Location: loc, HasFix: has})
		return true
	})
	return out
}

// IsTouristConnected reports whether the tourist has a live session.
func (hub *Hub) IsTouristConnected(touristID string) bool {
	_, ok := hub.tourists.Load(touristID)
	return ok
}
