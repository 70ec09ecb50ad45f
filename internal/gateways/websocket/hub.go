package websocket

import (
	"context"
	"time"

	"retro/internal/protocol"

	"go.uber.org/zap"
)

// Timer is the shared countdown of a room. Duration is in seconds.
type Timer struct {
	EndTime  time.Time
	Duration float64
}

func (t *Timer) State() protocol.TimerState {
	if t == nil {
		return protocol.TimerState{}
	}
	endTime := t.EndTime.UnixMilli()
	duration := t.Duration
	return protocol.TimerState{EndTime: &endTime, Duration: &duration}
}

type joinRequest struct {
	client *Client
	slug   string
	reply  chan *Timer
}

// message targets one client when client is set and a whole room otherwise.
type message struct {
	client *Client
	slug   string
	frame  []byte
}

// Hub owns room membership and room timers. Everything it holds is touched
// only from the Run goroutine; the exported methods hand work over through
// channels.
type Hub struct {
	clients map[*Client]string
	rooms   map[string]map[*Client]struct{}
	timers  map[string]*Timer

	register   chan *Client
	unregister chan *Client
	joins      chan joinRequest
	messages   chan message
	calls      chan func()
	done       chan struct{}

	now    func() time.Time
	logger *zap.SugaredLogger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]string),
		rooms:      make(map[string]map[*Client]struct{}),
		timers:     make(map[string]*Timer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		joins:      make(chan joinRequest),
		messages:   make(chan message, 256),
		calls:      make(chan func()),
		done:       make(chan struct{}),
		now:        time.Now,
		logger:     logger.Sugar(),
	}
}

func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("WebSocket Hub started")
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.clients[client] = ""
			h.logger.Infow("Client connected",
				"client_id", client.ID,
				"clients_count", len(h.clients),
			)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.remove(client)
				h.logger.Infow("Client disconnected",
					"client_id", client.ID,
					"clients_count", len(h.clients),
				)
			}

		case req := <-h.joins:
			h.drain()
			req.reply <- h.join(req.client, req.slug)

		case msg := <-h.messages:
			h.deliver(msg)

		case fn := <-h.calls:
			fn()
		}
	}
}

func (h *Hub) shutdown() {
	close(h.done)
	for client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[*Client]string)
	h.rooms = make(map[string]map[*Client]struct{})
	h.logger.Info("WebSocket Hub stopped")
}

// Register reports false when the hub is no longer running.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Join moves client into the room of slug, leaving its previous room, and
// returns the room's timer when one is still running.
func (h *Hub) Join(client *Client, slug string) *Timer {
	req := joinRequest{client: client, slug: slug, reply: make(chan *Timer, 1)}
	select {
	case h.joins <- req:
	case <-h.done:
		return nil
	}
	select {
	case timer := <-req.reply:
		return timer
	case <-h.done:
		return nil
	}
}

func (h *Hub) Broadcast(slug, event string, data any) {
	frame, ok := h.encode(event, data)
	if !ok {
		return
	}
	h.enqueue(message{slug: slug, frame: frame})
}

func (h *Hub) SendTo(client *Client, event string, data any) {
	frame, ok := h.encode(event, data)
	if !ok {
		return
	}
	h.enqueue(message{client: client, frame: frame})
}

func (h *Hub) StartTimer(slug string, duration float64) {
	h.call(func() {
		timer := &Timer{
			EndTime:  h.now().Add(time.Duration(duration * float64(time.Second))),
			Duration: duration,
		}
		h.timers[slug] = timer
		h.broadcastNow(slug, protocol.EventTimerState, timer.State())
	})
}

func (h *Hub) StopTimer(slug string) {
	h.call(func() {
		delete(h.timers, slug)
		h.broadcastNow(slug, protocol.EventTimerState, protocol.TimerState{})
	})
}

// BoardDeleted tells everyone in the room of slug that its board is gone.
// Members stay in the room until they leave or join elsewhere.
func (h *Hub) BoardDeleted(slug string) {
	h.call(func() {
		delete(h.timers, slug)
		h.broadcastNow(slug, protocol.EventBoardDeleted, nil)
	})
}

// Count returns the number of connections in the room of slug.
func (h *Hub) Count(slug string) int {
	count := 0
	h.call(func() { count = len(h.rooms[slug]) })
	return count
}

// Rooms returns the number of rooms with at least one member.
func (h *Hub) Rooms() int {
	count := 0
	h.call(func() { count = len(h.rooms) })
	return count
}

// call runs fn on the hub goroutine and waits for it. Messages queued before
// the call are delivered first.
func (h *Hub) call(fn func()) {
	finished := make(chan struct{})
	wrapped := func() {
		h.drain()
		fn()
		close(finished)
	}
	select {
	case h.calls <- wrapped:
	case <-h.done:
		return
	}
	select {
	case <-finished:
	case <-h.done:
	}
}

func (h *Hub) drain() {
	for {
		select {
		case msg := <-h.messages:
			h.deliver(msg)
		default:
			return
		}
	}
}

func (h *Hub) enqueue(msg message) {
	select {
	case h.messages <- msg:
	case <-h.done:
	}
}

func (h *Hub) encode(event string, data any) ([]byte, bool) {
	frame, err := protocol.Encode(event, data)
	if err != nil {
		h.logger.Errorw("Failed to encode event", "event", event, "error", err)
		return nil, false
	}
	return frame, true
}

func (h *Hub) join(client *Client, slug string) *Timer {
	previous, ok := h.clients[client]
	if !ok {
		return nil
	}
	h.leave(client, previous)

	members, ok := h.rooms[slug]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[slug] = members
	}
	members[client] = struct{}{}
	h.clients[client] = slug

	h.logger.Debugw("Client joined room",
		"client_id", client.ID,
		"slug", slug,
		"users_count", len(members),
	)
	h.broadcastNow(slug, protocol.EventUsersCount, protocol.UsersCount{Count: len(members)})

	timer, ok := h.timers[slug]
	if !ok {
		return nil
	}
	if !timer.EndTime.After(h.now()) {
		delete(h.timers, slug)
		return nil
	}
	copied := *timer
	return &copied
}

func (h *Hub) leave(client *Client, slug string) {
	if slug == "" {
		return
	}
	members := h.rooms[slug]
	delete(members, client)
	if _, ok := h.clients[client]; ok {
		h.clients[client] = ""
	}

	if len(members) == 0 {
		delete(h.rooms, slug)
		if timer, ok := h.timers[slug]; ok && !timer.EndTime.After(h.now()) {
			delete(h.timers, slug)
		}
		return
	}
	h.broadcastNow(slug, protocol.EventUsersCount, protocol.UsersCount{Count: len(members)})
}

func (h *Hub) remove(client *Client) {
	slug, ok := h.clients[client]
	if !ok {
		return
	}
	h.leave(client, slug)
	delete(h.clients, client)
	close(client.send)
}

func (h *Hub) broadcastNow(slug, event string, data any) {
	if frame, ok := h.encode(event, data); ok {
		h.deliver(message{slug: slug, frame: frame})
	}
}

func (h *Hub) deliver(msg message) {
	if msg.client != nil {
		if _, ok := h.clients[msg.client]; ok {
			h.send(msg.client, msg.frame)
		}
		return
	}
	for client := range h.rooms[msg.slug] {
		h.send(client, msg.frame)
	}
}

// send drops a client whose buffer is full rather than stall the hub.
func (h *Hub) send(client *Client, frame []byte) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	select {
	case client.send <- frame:
	default:
		h.logger.Warnw("Dropping slow client", "client_id", client.ID)
		h.remove(client)
	}
}
