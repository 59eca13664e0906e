package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"safetrail/internal/domain/geo"
	"safetrail/internal/general/contracts"
	"safetrail/internal/general/jwt"
	"safetrail/internal/general/logger"
)

// Status is the channel's connection state.
type Status string

const (
	StatusDisconnected          Status = "disconnected"
	StatusConnecting            Status = "connecting"
	StatusConnectedUnregistered Status = "connected_unregistered"
	StatusActive                Status = "active"
)

// ReconnectPolicy bounds reconnection: MaxAttempts dials with a fixed Delay
// between them.
type ReconnectPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

func (p ReconnectPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

var (
	ErrChannelClosed    = errors.New("channel is closed")
	ErrConnectExhausted = errors.New("connect attempts exhausted")
	ErrNotConnected     = errors.New("not connected")
)

const defaultLocationInterval = 45 * time.Second

// Channel keeps a resilient websocket session with the gateway: it registers
// the tourist after every (re)connect, pushes location on a timer, and fans
// inbound events out to subscribers. All transport failures degrade; nothing
// here is fatal to the caller.
type Channel struct {
	url       string
	transport Transport
	policy    ReconnectPolicy
	log       *logger.Logger

	mu        sync.Mutex
	status    Status
	conn      Conn
	closed    bool
	touristID string
	authToken string
	lastLoc   geo.Coordinate

	subsMu         sync.Mutex
	nextSubID      int
	alertSubs      map[int]func(contracts.AuthorityAlertMessage)
	scoreSubs      map[int]func(contracts.SafetyScoreUpdateMessage)
	scoreAlertSubs map[int]func(contracts.SafetyScoreAlertMessage)

	locMu       sync.Mutex
	locCancel   context.CancelFunc
	locInterval time.Duration
}

func New(url string, transport Transport, policy ReconnectPolicy, log *logger.Logger) *Channel {
	return &Channel{
		url:            url,
		transport:      transport,
		policy:         policy,
		log:            log,
		status:         StatusDisconnected,
		alertSubs:      make(map[int]func(contracts.AuthorityAlertMessage)),
		scoreSubs:      make(map[int]func(contracts.SafetyScoreUpdateMessage)),
		scoreAlertSubs: make(map[int]func(contracts.SafetyScoreAlertMessage)),
		locInterval:    defaultLocationInterval,
	}
}

// SetAuthToken sets the JWT presented on the first frame of every session.
// The gateway drops unauthenticated connections, so this must be set before
// Connect.
func (c *Channel) SetAuthToken(token string) {
	c.mu.Lock()
	c.authToken = token
	c.mu.Unlock()
}

// Connect establishes the session and sends the registration handshake.
// No-op when a session is already up or being established.
func (c *Channel) Connect(ctx context.Context, touristID string, initial geo.Coordinate) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrChannelClosed
	}
	if c.status != StatusDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.status = StatusConnecting
	c.touristID = touristID
	c.lastLoc = initial
	c.mu.Unlock()

	return c.dialWithRetries(ctx)
}

// dialWithRetries runs the bounded attempt loop and settles the status.
func (c *Channel) dialWithRetries(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= c.policy.attempts(); attempt++ {
		conn, err := c.transport.Dial(ctx, c.url)
		if err == nil {
			c.establish(ctx, conn)
			return nil
		}
		lastErr = err
		c.log.Error(ctx, "channel_dial_failed", "gateway dial failed", err, map[string]any{
			"attempt": attempt, "max_attempts": c.policy.attempts(),
		})
		if attempt == c.policy.attempts() {
			break
		}
		select {
		case <-ctx.Done():
			c.settleDisconnected()
			return ctx.Err()
		case <-time.After(c.policy.Delay):
		}
	}
	c.settleDisconnected()
	return fmt.Errorf("%w: %w", ErrConnectExhausted, lastErr)
}

// establish installs a fresh connection, authenticates, registers, and
// starts its read loop. The handshake is fire-and-forget; the channel is
// Active as soon as the transport is up.
func (c *Channel) establish(ctx context.Context, conn Conn) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.status = StatusConnectedUnregistered
	id, loc, token := c.touristID, c.lastLoc, c.authToken
	c.mu.Unlock()

	// the gateway expects an auth frame before anything else
	if token != "" {
		auth := jwt.ClientAuthMessage{Type: "auth", Token: "Bearer " + token}
		if err := conn.WriteJSON(auth); err != nil {
			c.log.Error(ctx, "channel_auth_failed", "auth frame not sent", err, nil)
		}
	}

	reg := contracts.RegisterTouristMessage{
		Role:      "tourist",
		TouristID: id,
		Location:  contracts.GeoPoint{Lat: loc.Lat, Lng: loc.Lng},
	}
	if err := writeEvent(conn, contracts.EventRegisterTourist, reg); err != nil {
		c.log.Error(ctx, "tourist_register_failed", "registration frame not sent", err, nil)
	}

	c.mu.Lock()
	if c.conn == conn {
		c.status = StatusActive
	}
	c.mu.Unlock()

	c.log.Info(ctx, "channel_active", "gateway session established", map[string]any{"url": c.url})
	go c.readLoop(conn)
}

func (c *Channel) settleDisconnected() {
	c.mu.Lock()
	c.status = StatusDisconnected
	c.mu.Unlock()
}

func (c *Channel) readLoop(conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			c.handleReadFailure(conn, err)
			return
		}
		c.dispatch(data)
	}
}

// handleReadFailure tears down the session and launches a reconnect unless
// the channel was closed by the caller. A server-initiated close gets the
// same bounded reconnect, started immediately with a fresh attempt budget.
func (c *Channel) handleReadFailure(conn Conn, err error) {
	c.mu.Lock()
	if c.closed || c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.status = StatusConnecting
	c.mu.Unlock()
	conn.Close()

	ctx := context.Background()
	if errors.Is(err, ErrServerClosed) {
		c.log.Info(ctx, "channel_server_close", "gateway closed the session, reconnecting", nil)
	} else {
		c.log.Error(ctx, "channel_read_failed", "session lost, reconnecting", err, nil)
	}

	go func() {
		if rerr := c.dialWithRetries(ctx); rerr != nil {
			c.log.Error(ctx, "channel_reconnect_exhausted", "gateway unreachable, staying disconnected", rerr, nil)
		}
	}()
}

func (c *Channel) dispatch(data []byte) {
	var frame contracts.WSFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.log.Error(context.Background(), "channel_bad_frame", "undecodable frame dropped", err, nil)
		return
	}

	// auth responses use a bare "type" field instead of the event envelope
	if frame.Event == "" {
		var ack struct {
			Type  string `json:"type"`
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &ack) == nil && ack.Type != "" {
			if ack.Type == "auth_error" {
				c.log.Error(context.Background(), "channel_auth_rejected", "gateway rejected auth", errors.New(ack.Error), nil)
			} else {
				c.log.Debug(context.Background(), "channel_auth_ack", "gateway auth response", map[string]any{"type": ack.Type})
			}
			return
		}
	}

	switch frame.Event {
	case contracts.EventRegistrationConfirmed:
		c.log.Info(context.Background(), "tourist_registered", "gateway confirmed registration", nil)

	case contracts.EventAuthorityAlert:
		var msg contracts.AuthorityAlertMessage
		if err := json.Unmarshal(frame.Data, &msg); err != nil {
			c.log.Error(context.Background(), "channel_bad_payload", "authority alert payload dropped", err, nil)
			return
		}
		for _, fn := range c.alertSubscribers() {
			fn(msg)
		}

	case contracts.EventSafetyScoreUpdate:
		var msg contracts.SafetyScoreUpdateMessage
		if err := json.Unmarshal(frame.Data, &msg); err != nil {
			c.log.Error(context.Background(), "channel_bad_payload", "score update payload dropped", err, nil)
			return
		}
		for _, fn := range c.scoreSubscribers() {
			fn(msg)
		}

	case contracts.EventSafetyScoreAlert:
		var msg contracts.SafetyScoreAlertMessage
		if err := json.Unmarshal(frame.Data, &msg); err != nil {
			c.log.Error(context.Background(), "channel_bad_payload", "score alert payload dropped", err, nil)
			return
		}
		for _, fn := range c.scoreAlertSubscribers() {
			fn(msg)
		}

	default:
		c.log.Debug(context.Background(), "channel_unknown_event", "unhandled event dropped", map[string]any{"event": frame.Event})
	}
}

// OnAuthorityAlert subscribes to inbound authority alerts. The returned
// function removes the subscription.
func (c *Channel) OnAuthorityAlert(fn func(contracts.AuthorityAlertMessage)) func() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	c.alertSubs[id] = fn
	return func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		delete(c.alertSubs, id)
	}
}

// OnSafetyScoreUpdate subscribes to authoritative score pushes.
func (c *Channel) OnSafetyScoreUpdate(fn func(contracts.SafetyScoreUpdateMessage)) func() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	c.scoreSubs[id] = fn
	return func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		delete(c.scoreSubs, id)
	}
}

// OnSafetyScoreAlert subscribes to score-change alerts.
func (c *Channel) OnSafetyScoreAlert(fn func(contracts.SafetyScoreAlertMessage)) func() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	c.scoreAlertSubs[id] = fn
	return func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		delete(c.scoreAlertSubs, id)
	}
}

func (c *Channel) alertSubscribers() []func(contracts.AuthorityAlertMessage) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	out := make([]func(contracts.AuthorityAlertMessage), 0, len(c.alertSubs))
	for _, fn := range c.alertSubs {
		out = append(out, fn)
	}
	return out
}

func (c *Channel) scoreSubscribers() []func(contracts.SafetyScoreUpdateMessage) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	out := make([]func(contracts.SafetyScoreUpdateMessage), 0, len(c.scoreSubs))
	for _, fn := range c.scoreSubs {
		out = append(out, fn)
	}
	return out
}

func (c *Channel) scoreAlertSubscribers() []func(contracts.SafetyScoreAlertMessage) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	out := make([]func(contracts.SafetyScoreAlertMessage), 0, len(c.scoreAlertSubs))
	for _, fn := range c.scoreAlertSubs {
		out = append(out, fn)
	}
	return out
}

// SendLocation pushes one location update. Skipped quietly when no session
// is up.
func (c *Channel) SendLocation(ctx context.Context, loc geo.Coordinate) error {
	c.mu.Lock()
	conn := c.conn
	c.lastLoc = loc
	c.mu.Unlock()

	if conn == nil {
		c.log.Debug(ctx, "location_push_skipped", "no session, location update dropped", nil)
		return ErrNotConnected
	}
	msg := contracts.LocationUpdateMessage{Location: contracts.GeoPoint{Lat: loc.Lat, Lng: loc.Lng}}
	if err := writeEvent(conn, contracts.EventUpdateLocation, msg); err != nil {
		c.log.Error(ctx, "location_push_failed", "location update not sent", err, nil)
		return err
	}
	return nil
}

// StartPeriodicLocationUpdates sends the current location immediately and
// then on a fixed interval. Starting again replaces the previous timer.
func (c *Channel) StartPeriodicLocationUpdates(get func() geo.Coordinate) {
	c.locMu.Lock()
	if c.locCancel != nil {
		c.locCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.locCancel = cancel
	interval := c.locInterval
	c.locMu.Unlock()

	go func() {
		c.SendLocation(ctx, get())
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.SendLocation(ctx, get())
			}
		}
	}()
}

// StopPeriodicLocationUpdates cancels the location timer. Safe to call when
// no timer is running.
func (c *Channel) StopPeriodicLocationUpdates() {
	c.locMu.Lock()
	defer c.locMu.Unlock()
	if c.locCancel != nil {
		c.locCancel()
		c.locCancel = nil
	}
}

// IsInitialized reports whether a transport session currently exists.
func (c *Channel) IsInitialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Status returns the current connection state.
func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Close tears the session down for good; no reconnect follows.
func (c *Channel) Close() error {
	c.StopPeriodicLocationUpdates()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.status = StatusDisconnected
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func writeEvent(conn Conn, event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return conn.WriteJSON(contracts.WSFrame{Event: event, Data: raw})
}
