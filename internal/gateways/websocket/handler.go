package websocket

import (
	"net/http"

	"retro/internal/app/session"
	"retro/internal/metrics"
	"retro/internal/protocol"
	"retro/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Handler struct {
	hub        *Hub
	router     *EventRouter
	sessionSvc session.Service
	rules      ratelimit.Rules
	metrics    metrics.Recorder
}

func NewHandler(hub *Hub, router *EventRouter, sessionSvc session.Service, rules ratelimit.Rules, recorder metrics.Recorder) *Handler {
	return &Handler{
		hub:        hub,
		router:     router,
		sessionSvc: sessionSvc,
		rules:      rules,
		metrics:    recorder,
	}
}

// ServeWS upgrades the request and serves the connection until it closes.
// The handshake credentials travel as the token and legacySessionId query
// parameters.
func (h *Handler) ServeWS(c *gin.Context) {
	identity := h.sessionSvc.Resolve(session.Handshake{
		Token:           c.Query("token"),
		LegacySessionID: c.Query("legacySessionId"),
	})

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.logger.Errorw("Failed to upgrade connection",
			"client_ip", c.ClientIP(),
			"error", err,
		)
		return
	}

	client := NewClient(h.hub, conn, identity, h.rules)
	if !h.hub.Register(client) {
		conn.Close()
		return
	}

	h.metrics.ConnectionOpened()
	defer h.metrics.ConnectionClosed()

	h.hub.logger.Infow("WebSocket connection established",
		"client_id", client.ID,
		"session_issued", identity.Issued,
		"client_ip", c.ClientIP(),
		"user_agent", c.GetHeader("User-Agent"),
	)

	go client.writePump()

	if identity.Issued {
		h.hub.SendTo(client, protocol.EventSessionInit, protocol.SessionInit{Token: identity.Token})
	}

	client.readPump(h.router)
	h.hub.Unregister(client)
}
