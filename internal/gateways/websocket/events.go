package websocket

import (
	"context"
	"errors"
	"time"

	"retro/internal/app/board"
	"retro/internal/app/card"
	"retro/internal/app/vote"
	"retro/internal/metrics"
	"retro/internal/protocol"
	"retro/internal/validation"

	"go.uber.org/zap"
)

type CardMessage struct {
	Card *card.Card `json:"card"`
}

type CommentMessage struct {
	Comment *card.Comment `json:"comment"`
}

type VotesMessage struct {
	CardID string       `json:"cardId"`
	Votes  []*vote.Vote `json:"votes"`
}

// EventRouter runs every inbound event through rate limiting, validation and
// persistence, then broadcasts the outcome to the sender's room.
type EventRouter struct {
	hub       *Hub
	boardSvc  board.Service
	cardSvc   card.Service
	voteSvc   vote.Service
	validator *validation.Validator
	metrics   metrics.Recorder
	timeout   time.Duration
	logger    *zap.SugaredLogger
}

func NewEventRouter(
	hub *Hub,
	boardSvc board.Service,
	cardSvc card.Service,
	voteSvc vote.Service,
	validator *validation.Validator,
	recorder metrics.Recorder,
	timeout time.Duration,
	logger *zap.Logger,
) *EventRouter {
	return &EventRouter{
		hub:       hub,
		boardSvc:  boardSvc,
		cardSvc:   cardSvc,
		voteSvc:   voteSvc,
		validator: validator,
		metrics:   recorder,
		timeout:   timeout,
		logger:    logger.Sugar(),
	}
}

type eventHandler func(r *EventRouter, ctx context.Context, c *Client, in protocol.Inbound)

var eventHandlers = map[string]eventHandler{
	protocol.EventBoardJoin:     (*EventRouter).handleJoin,
	protocol.EventCardCreate:    (*EventRouter).handleCardCreate,
	protocol.EventCardUpdate:    (*EventRouter).handleCardUpdate,
	protocol.EventCardDelete:    (*EventRouter).handleCardDelete,
	protocol.EventVoteToggle:    (*EventRouter).handleVoteToggle,
	protocol.EventCommentCreate: (*EventRouter).handleCommentCreate,
	protocol.EventTimerStart:    (*EventRouter).handleTimerStart,
	protocol.EventTimerStop:     (*EventRouter).handleTimerStop,
	protocol.EventBoardDelete:   (*EventRouter).handleBoardDelete,
}

func (r *EventRouter) Handle(c *Client, in protocol.Inbound) {
	handle, ok := eventHandlers[in.Event]
	if !ok {
		r.logger.Debugw("Dropping unknown event", "client_id", c.ID, "event", in.Event)
		return
	}

	if !c.limiter.Allow(in.Event) {
		r.metrics.EventRateLimited(in.Event)
		r.logger.Warnw("Rate limit exceeded", "client_id", c.ID, "event", in.Event)
		r.hub.SendTo(c, protocol.EventError, protocol.ErrorMessage{
			Message: "Rate limit exceeded for " + in.Event,
		})
		return
	}

	if in.Event != protocol.EventBoardJoin && c.room == "" {
		r.logger.Debugw("Dropping event outside a room", "client_id", c.ID, "event", in.Event)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	handle(r, ctx, c, in)
}

// boardScoped reports whether the client's room has a board that card events
// can act on.
func (r *EventRouter) boardScoped(c *Client, event string) bool {
	if c.boardID == "" {
		r.logger.Debugw("Dropping event for a room without a board",
			"client_id", c.ID,
			"event", event,
			"slug", c.room,
		)
		return false
	}
	return true
}

func (r *EventRouter) handleJoin(ctx context.Context, c *Client, in protocol.Inbound) {
	var p protocol.JoinPayload
	if !r.validator.Decode(in.Data, &p) {
		return
	}

	// Join only hands back a timer that is still running.
	timer := r.hub.Join(c, p.Slug)
	c.room = p.Slug
	c.boardID = ""

	state, err := r.boardSvc.GetState(ctx, p.Slug)
	if err != nil {
		if !errors.Is(err, board.ErrBoardNotFound) {
			r.logger.Errorw("Failed to load board state",
				"event", in.Event,
				"slug", p.Slug,
				"error", err,
			)
		}
		return
	}
	c.boardID = state.Board.ID

	r.hub.SendTo(c, protocol.EventBoardState, state)
	if timer != nil {
		r.hub.SendTo(c, protocol.EventTimerState, timer.State())
	}
}

func (r *EventRouter) handleCardCreate(ctx context.Context, c *Client, in protocol.Inbound) {
	var p protocol.CardCreatePayload
	if !r.validator.Decode(in.Data, &p) || !r.boardScoped(c, in.Event) {
		return
	}
	if p.BoardID != c.boardID {
		r.logger.Debugw("Dropping card for another board",
			"client_id", c.ID,
			"board_id", p.BoardID,
			"slug", c.room,
		)
		return
	}

	created, err := r.cardSvc.CreateCard(ctx, c.boardID, card.ColumnType(p.Column), p.Content, p.AuthorName)
	if err != nil {
		r.logger.Errorw("Failed to create card", "event", in.Event, "board_id", c.boardID, "error", err)
		return
	}
	r.hub.Broadcast(c.room, protocol.EventCardCreated, CardMessage{Card: created})
}

func (r *EventRouter) handleCardUpdate(ctx context.Context, c *Client, in protocol.Inbound) {
	var p protocol.CardUpdatePayload
	if !r.validator.Decode(in.Data, &p) || !r.boardScoped(c, in.Event) {
		return
	}

	updated, err := r.cardSvc.UpdateCard(ctx, c.boardID, p.CardID, p.Content)
	if err != nil {
		r.logFailure(in.Event, p.CardID, "Failed to update card", err)
		return
	}
	r.hub.Broadcast(c.room, protocol.EventCardUpdated, CardMessage{Card: updated})
}

func (r *EventRouter) handleCardDelete(ctx context.Context, c *Client, in protocol.Inbound) {
	var p protocol.CardDeletePayload
	if !r.validator.Decode(in.Data, &p) || !r.boardScoped(c, in.Event) {
		return
	}

	if err := r.cardSvc.DeleteCard(ctx, c.boardID, p.CardID); err != nil {
		r.logFailure(in.Event, p.CardID, "Failed to delete card", err)
		return
	}
	r.hub.Broadcast(c.room, protocol.EventCardDeleted, protocol.CardDeleted{CardID: p.CardID})
}

// handleVoteToggle always votes as the connection's own session.
func (r *EventRouter) handleVoteToggle(ctx context.Context, c *Client, in protocol.Inbound) {
	var p protocol.VoteTogglePayload
	if !r.validator.Decode(in.Data, &p) || !r.boardScoped(c, in.Event) {
		return
	}

	votes, err := r.voteSvc.Toggle(ctx, c.boardID, p.CardID, c.Identity.ID, vote.Type(p.Type))
	if err != nil {
		r.logFailure(in.Event, p.CardID, "Failed to toggle vote", err)
		return
	}
	r.hub.Broadcast(c.room, protocol.EventVoteToggled, VotesMessage{CardID: p.CardID, Votes: votes})
}

func (r *EventRouter) handleCommentCreate(ctx context.Context, c *Client, in protocol.Inbound) {
	var p protocol.CommentCreatePayload
	if !r.validator.Decode(in.Data, &p) || !r.boardScoped(c, in.Event) {
		return
	}

	comment, err := r.cardSvc.CreateComment(ctx, c.boardID, p.CardID, p.Content, p.AuthorName)
	if err != nil {
		r.logFailure(in.Event, p.CardID, "Failed to create comment", err)
		return
	}
	r.hub.Broadcast(c.room, protocol.EventCommentCreated, CommentMessage{Comment: comment})
}

func (r *EventRouter) handleTimerStart(_ context.Context, c *Client, in protocol.Inbound) {
	var p protocol.TimerStartPayload
	if !r.validator.Decode(in.Data, &p) {
		return
	}
	r.hub.StartTimer(c.room, p.Duration)
}

func (r *EventRouter) handleTimerStop(_ context.Context, c *Client, in protocol.Inbound) {
	if !r.validator.Decode(in.Data, &protocol.TimerStopPayload{}) {
		return
	}
	r.hub.StopTimer(c.room)
}

// handleBoardDelete notifies the room before the rows are removed. Only the
// board of the sender's own room can be deleted.
func (r *EventRouter) handleBoardDelete(ctx context.Context, c *Client, in protocol.Inbound) {
	var p protocol.BoardDeletePayload
	if !r.validator.Decode(in.Data, &p) || !r.boardScoped(c, in.Event) {
		return
	}
	if p.BoardID != c.boardID {
		r.logger.Debugw("Dropping delete of another board",
			"client_id", c.ID,
			"board_id", p.BoardID,
			"slug", c.room,
		)
		return
	}

	r.hub.BoardDeleted(c.room)
	if err := r.boardSvc.DeleteBoard(ctx, p.BoardID); err != nil {
		r.logger.Errorw("Failed to delete board",
			"event", in.Event,
			"board_id", p.BoardID,
			"error", err,
		)
		return
	}
	c.boardID = ""
}

func (r *EventRouter) logFailure(event, cardID, msg string, err error) {
	if errors.Is(err, card.ErrCardNotFound) {
		r.logger.Debugw(msg, "event", event, "card_id", cardID, "error", err)
		return
	}
	r.logger.Errorw(msg, "event", event, "card_id", cardID, "error", err)
}
