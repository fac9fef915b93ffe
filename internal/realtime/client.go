package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"
)

const (
	// writeWait is how long a single write may take before the connection is
	// considered dead.
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong before dropping the connection;
	// pings go out at pingPeriod (must be shorter than pongWait).
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds inbound frames. Commands are tiny; anything
	// larger is a misbehaving client.
	maxMessageSize = 4096

	// sendBufferSize is the per-client outbound queue. A client that falls
	// this far behind gets evicted by the hub.
	sendBufferSize = 256
)

// Client is one live websocket connection. Its ID is the opaque connection
// identifier sessions are keyed by.
//
// Two goroutines serve each client: ReadPump dispatches inbound commands to
// the controller one at a time (which is what preserves per-connection
// command ordering), and WritePump drains the send queue to the socket.
type Client struct {
	id         string
	hub        *Hub
	conn       *websocket.Conn
	controller *Controller
	logger     *slog.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewClient wraps an upgraded websocket connection.
func NewClient(hub *Hub, conn *websocket.Conn, controller *Controller, logger *slog.Logger) *Client {
	return &Client{
		id:         xid.New().String(),
		hub:        hub,
		conn:       conn,
		controller: controller,
		logger:     logger,
		send:       make(chan []byte, sendBufferSize),
	}
}

// ID returns the opaque per-connection identifier.
func (c *Client) ID() string {
	return c.id
}

// Send marshals and queues a unicast event for this client. Events queued
// before the client is registered with the hub are delivered ahead of any
// later broadcast — that is how the connect-time snapshot is guaranteed to
// arrive first.
func (c *Client) Send(name string, data any) {
	message, err := Marshal(name, data)
	if err != nil {
		c.logger.Error("failed to marshal unicast event",
			slog.String("event", name),
			slog.String("error", err.Error()),
		)
		return
	}
	if !c.enqueue(message) {
		c.logger.Warn("unicast dropped: client send buffer full",
			slog.String("connID", c.id),
			slog.String("event", name),
		)
	}
}

// enqueue places a frame on the send queue without blocking. Returns false if
// the client is closed or its buffer is full.
func (c *Client) enqueue(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// close shuts the send queue so WritePump exits. Called only by the hub (and
// through it, at most once effectively).
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// ReadPump pumps commands from the socket into the controller.
//
// Commands are handled synchronously, one after another, so the results a
// connection observes always follow the order it issued them in. A dropped
// connection unregisters itself and unbinds its session on the way out.
func (c *Client) ReadPump() {
	defer func() {
		c.controller.HandleDisconnect(c)
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("websocket read error",
					slog.String("connID", c.id),
					slog.String("error", err.Error()),
				)
			}
			break
		}

		var evt Event
		if err := json.Unmarshal(message, &evt); err != nil {
			c.logger.Warn("invalid event envelope",
				slog.String("connID", c.id),
				slog.String("error", err.Error()),
			)
			continue
		}

		c.controller.Dispatch(context.Background(), c, &evt)
	}
}

// WritePump pumps queued frames to the socket and keeps the connection alive
// with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the queue.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
