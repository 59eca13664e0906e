package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"safetrail/internal/general/contracts"

	"github.com/gorilla/websocket"
)

// wsWriteClose sends a close control frame with the given code and reason.
func (hub *Hub) wsWriteClose(conn *websocket.Conn, code int, reason string) {
	mu := hub.lockOf(conn)
	mu.Lock()
	defer mu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(wsCloseAckWindow),
	)
	hub.writeLocks.Delete(conn)
}

// wsWriteMessage sets a short write deadline and writes a message.
func (hub *Hub) wsWriteMessage(conn *websocket.Conn, mt int, payload []byte) error {
	mu := hub.lockOf(conn)
	mu.Lock()
	defer mu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(mt, payload)
}

// lockOf returns the writer mutex for a specific connection.
func (hub *Hub) lockOf(conn *websocket.Conn) *sync.Mutex {
	if v, ok := hub.writeLocks.Load(conn); ok {
		if mu, ok := v.(*sync.Mutex); ok && mu != nil {
			return mu
		}
	}
	mu := &sync.Mutex{}
	actual, _ := hub.writeLocks.LoadOrStore(conn, mu)
	return actual.(*sync.Mutex)
}

func (hub *Hub) sendAuthError(conn *websocket.Conn, message string) error {
	payload, err := json.Marshal(map[string]any{
		"type":    "auth_error",
		"error":   message,
		"success": false,
	})
	if err != nil {
		return err
	}
	return hub.wsWriteMessage(conn, websocket.TextMessage, payload)
}

func (hub *Hub) sendAuthSuccess(conn *websocket.Conn, touristID string) error {
	payload, err := json.Marshal(map[string]any{
		"type":       "auth_success",
		"message":    "Authentication successful",
		"success":    true,
		"tourist_id": touristID,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return hub.wsWriteMessage(conn, websocket.TextMessage, payload)
}

// SendToTourist pushes one event frame to a connected tourist.
func (hub *Hub) SendToTourist(ctx context.Context, touristID, event string, payload any) error {
	v, ok := hub.tourists.Load(touristID)
	if !ok {
		return fmt.Errorf("tourist %s not connected", touristID)
	}
	session, ok := v.(*touristSession)
	if !ok {
		return fmt.Errorf("tourist %s session corrupt", touristID)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}
	frame, err := json.Marshal(contracts.WSFrame{Event: event, Data: raw})
	if err != nil {
		return fmt.Errorf("marshal %s frame: %w", event, err)
	}

	if err := hub.wsWriteMessage(session.conn, websocket.TextMessage, frame); err != nil {
		hub.log.Error(ctx, "ws_push_failed", "outbound push not delivered", err, map[string]any{
			"tourist_id": touristID, "event": event,
		})
		return err
	}
	return nil
}
