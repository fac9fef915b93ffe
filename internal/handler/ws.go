package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/sakif/pollchat/internal/realtime"
)

// sameOrigin accepts requests with no Origin header (non-browser clients,
// tests) or an Origin whose host matches the request host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}

// WSHandler upgrades HTTP requests into hub connections.
type WSHandler struct {
	hub        *realtime.Hub
	controller *realtime.Controller
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewWSHandler creates a WSHandler.
func NewWSHandler(hub *realtime.Hub, controller *realtime.Controller, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		hub:        hub,
		controller: controller,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The frontend is served from this same process, so same-origin
			// is the only allowed origin.
			CheckOrigin: sameOrigin,
		},
		logger: logger,
	}
}

// HandleWS upgrades the connection and hands it to the hub.
//
// HTTP: GET /ws
//
// The connect-time snapshot (updatePoll + chatHistory) is queued on the
// client BEFORE it registers with the hub. The client's send queue is FIFO,
// so the snapshot is always delivered ahead of any broadcast the client
// becomes eligible for after registration.
func (h *WSHandler) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := realtime.NewClient(h.hub, conn, h.controller, h.logger)

	h.controller.HandleConnect(r.Context(), client)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
