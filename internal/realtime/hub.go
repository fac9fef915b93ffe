package realtime

import (
	"context"
	"log/slog"
)

// Hub maintains the set of live connections and fans broadcast events out to
// all of them.
//
// A single goroutine (Run) owns the client set; registration, removal, and
// broadcast all funnel through its channels, so the map needs no lock. Fan-out
// is at-most-once per connection: a client whose send buffer is full is
// evicted rather than allowed to stall everyone else.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	logger     *slog.Logger
}

// NewHub creates a Hub. Call Run in its own goroutine before serving
// connections.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run processes hub events until ctx is cancelled, then closes every
// remaining connection.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Debug("client connected",
				slog.String("connID", client.ID()),
				slog.Int("clients", len(h.clients)),
			)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
				h.logger.Debug("client disconnected",
					slog.String("connID", client.ID()),
					slog.Int("clients", len(h.clients)),
				)
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				if !client.enqueue(message) {
					// Send buffer full — the client is too slow to keep up.
					// Evict it; it can reconnect and receive a fresh snapshot.
					delete(h.clients, client)
					client.close()
					h.logger.Warn("dropping slow client",
						slog.String("connID", client.ID()),
					)
				}
			}

		case <-ctx.Done():
			for client := range h.clients {
				delete(h.clients, client)
				client.close()
			}
			return
		}
	}
}

// Register adds a connection to the hub. Anything already queued on the
// client's send channel (the connect-time snapshot) is delivered before any
// broadcast that arrives after registration.
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// Unregister removes a connection. Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}

// Broadcast sends an event to every connected client.
func (h *Hub) Broadcast(name string, data any) {
	message, err := Marshal(name, data)
	if err != nil {
		h.logger.Error("failed to marshal broadcast event",
			slog.String("event", name),
			slog.String("error", err.Error()),
		)
		return
	}
	h.broadcast <- message
}
