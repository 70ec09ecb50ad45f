package websocket

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"time"

	"retro/internal/app/session"
	"retro/internal/protocol"
	"retro/internal/ratelimit"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

// Client is one browser connection. room and boardID are only touched by the
// read goroutine; the hub keeps its own record of membership.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	ID       string
	Identity session.Identity
	limiter  *ratelimit.Limiter

	room    string
	boardID string
}

func NewClient(hub *Hub, conn *websocket.Conn, identity session.Identity, rules ratelimit.Rules) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		ID:       generateClientID(),
		Identity: identity,
		limiter:  ratelimit.New(rules),
	}
}

func generateClientID() string {
	bytes := make([]byte, 6)
	if _, err := rand.Read(bytes); err != nil {
		return "xxxxx"
	}
	return base64.URLEncoding.EncodeToString(bytes)
}

// readPump handles the client's events one at a time until the connection
// fails, so events from one client are applied in the order they were sent.
func (c *Client) readPump(router *EventRouter) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.hub.logger.Warnw("WebSocket read error", "client_id", c.ID, "error", err)
			}
			return
		}

		var in protocol.Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			c.hub.logger.Debugw("Dropping undecodable frame", "client_id", c.ID, "error", err)
			continue
		}
		router.Handle(c, in)
	}
}

// writePump owns all writes to the connection. It exits when the hub closes
// the send channel.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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
