package channel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// ErrServerClosed marks a read failure caused by the gateway closing the
// connection on purpose, as opposed to a transport fault.
var ErrServerClosed = errors.New("server closed the connection")

// Conn is the minimal connection surface the channel needs.
type Conn interface {
	WriteJSON(v any) error
	ReadMessage() ([]byte, error)
	Close() error
}

// Transport dials the gateway. Tests inject a fake; production uses the
// gorilla dialer.
type Transport interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// GorillaTransport dials real websocket connections.
type GorillaTransport struct{}

func (GorillaTransport) Dial(ctx context.Context, url string) (Conn, error) {
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s (status %d): %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
		ws.Close()
		return nil, fmt.Errorf("dial %s: unexpected status %d", url, resp.StatusCode)
	}
	return &gorillaConn{ws: ws}, nil
}

// gorillaConn serializes writes; gorilla connections allow only one
// concurrent writer.
type gorillaConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func (c *gorillaConn) WriteJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *gorillaConn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		var ce *websocket.CloseError
		if errors.As(err, &ce) {
			return nil, fmt.Errorf("%w: %v", ErrServerClosed, err)
		}
		return nil, err
	}
	return data, nil
}

func (c *gorillaConn) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.ws.Close()
}
