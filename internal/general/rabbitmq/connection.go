package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"safetrail/internal/general/config"
	"safetrail/internal/general/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Client keeps one AMQP connection alive for the gateway: a publishing
// channel with confirms, topology declaration, and a background watcher that
// reconnects after broker failures.
type Client struct {
	url    string
	log    *logger.Logger
	logCtx context.Context // survives caller cancellation; reconnects outlive requests

	mu      sync.RWMutex
	conn    *amqp.Connection
	pubChan *amqp.Channel

	pubMu       sync.Mutex
	pubConfirms chan amqp.Confirmation

	closed    chan struct{}
	reconnect chan struct{}
}

// Connect dials the broker once and starts the reconnect watcher. Further
// connection failures are retried in the background with backoff.
func Connect(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Client, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d/", cfg.RabbitMQ.User, cfg.RabbitMQ.Password, cfg.RabbitMQ.Host, cfg.RabbitMQ.Port)

	client := &Client{
		url:       url,
		log:       log,
		logCtx:    context.WithoutCancel(ctx),
		closed:    make(chan struct{}),
		reconnect: make(chan struct{}, 1),
	}

	if err := client.connectOnce(); err != nil {
		return nil, err
	}
	go client.watch()
	return client, nil
}

// Close stops the watcher and releases AMQP resources. Idempotent.
func (client *Client) Close() {
	select {
	case <-client.closed:
	default:
		close(client.closed)
	}

	client.mu.Lock()
	if client.pubChan != nil {
		_ = client.pubChan.Close()
		client.pubChan = nil
	}
	if client.conn != nil {
		_ = client.conn.Close()
		client.conn = nil
	}
	client.mu.Unlock()

	client.pubMu.Lock()
	if client.pubConfirms != nil {
		close(client.pubConfirms)
		client.pubConfirms = nil
	}
	client.pubMu.Unlock()
}

// connectOnce dials, declares topology, and installs a confirmed publishing
// channel.
func (client *Client) connectOnce() error {
	conn, err := amqp.DialConfig(client.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(30 * time.Second),
	})
	if err != nil {
		client.log.Error(client.logCtx, "rabbitmq_dial_failed", "failed to dial RabbitMQ", err, nil)
		return fmt.Errorf("rabbitmq dial: %w", err)
	}

	defer func() {
		if err != nil && conn != nil {
			_ = conn.Close()
		}
	}()

	ch, err := conn.Channel()
	if err != nil {
		client.log.Error(client.logCtx, "rabbitmq_open_channel_failed", "failed to open channel", err, nil)
		return fmt.Errorf("rabbitmq open channel: %w", err)
	}

	defer func() {
		if err != nil && ch != nil {
			_ = ch.Close()
		}
	}()

	if err = declareTopology(ch); err != nil {
		client.log.Error(client.logCtx, "rabbitmq_declare_topology_failed", "failed to declare topology", err, nil)
		return fmt.Errorf("rabbitmq declare topology: %w", err)
	}

	if err = ch.Confirm(false); err != nil {
		client.log.Error(client.logCtx, "rabbitmq_enable_confirms_failed", "failed to enable publisher confirms", err, nil)
		return fmt.Errorf("rabbitmq enable confirms: %w", err)
	}

	client.pubMu.Lock()
	oldConfirms := client.pubConfirms
	client.pubConfirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	client.pubMu.Unlock()
	if oldConfirms != nil {
		close(oldConfirms)
	}

	// unroutable messages come back via NotifyReturn; log and move on
	returns := ch.NotifyReturn(make(chan amqp.Return, 1))
	go func() {
		for r := range returns {
			client.log.Error(client.logCtx, "rabbitmq_returned", "message was returned (unroutable)",
				fmt.Errorf("code=%d text=%s", r.ReplyCode, r.ReplyText),
				map[string]any{"exchange": r.Exchange, "routing_key": r.RoutingKey, "size": len(r.Body)},
			)
		}
	}()

	client.mu.Lock()
	if client.pubChan != nil && !client.pubChan.IsClosed() {
		_ = client.pubChan.Close()
	}
	client.conn = conn
	client.pubChan = ch
	client.mu.Unlock()

	// either the connection or the publisher channel closing triggers reconnect
	go func(conn *amqp.Connection, ch *amqp.Channel) {
		connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
		chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-client.closed:
			return
		case <-connClosed:
		case <-chClosed:
		}
		select {
		case client.reconnect <- struct{}{}:
		default:
		}
	}(conn, ch)

	client.log.Info(client.logCtx, "rabbitmq_connected", "RabbitMQ connection established", nil)
	return nil
}

// watch reconnects with capped exponential backoff until Close.
func (client *Client) watch() {
	backoff := time.Second
	for {
		select {
		case <-client.closed:
			return
		case <-client.reconnect:
			for {
				select {
				case <-client.closed:
					return
				default:
				}

				if err := client.connectOnce(); err == nil {
					backoff = time.Second
					client.log.Info(client.logCtx, "rabbitmq_reconnected", "reconnected and re-ensured topology", nil)
					break
				} else {
					client.log.Error(client.logCtx, "rabbitmq_reconnect_failed", "reconnect attempt failed", err, nil)
				}

				time.Sleep(backoff)
				if backoff < 30*time.Second {
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
				}
			}
		}
	}
}
