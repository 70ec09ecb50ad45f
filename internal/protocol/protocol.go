// Package protocol defines the named events exchanged with board clients and
// the shapes of their inbound payloads.
package protocol

import (
	"encoding/json"
	"strings"
)

// Client to server.
const (
	EventBoardJoin     = "board:join"
	EventCardCreate    = "card:create"
	EventCardUpdate    = "card:update"
	EventCardDelete    = "card:delete"
	EventVoteToggle    = "vote:toggle"
	EventCommentCreate = "comment:create"
	EventTimerStart    = "timer:start"
	EventTimerStop     = "timer:stop"
	EventBoardDelete   = "board:delete"
)

// Server to client.
const (
	EventSessionInit    = "session:init"
	EventBoardState     = "board:state"
	EventCardCreated    = "card:created"
	EventCardUpdated    = "card:updated"
	EventCardDeleted    = "card:deleted"
	EventVoteToggled    = "vote:toggled"
	EventCommentCreated = "comment:created"
	EventUsersCount     = "users:count"
	EventTimerState     = "timer:state"
	EventBoardDeleted   = "board:deleted"
	EventError          = "error"
)

// Inbound is a frame received from a client.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Outbound is a frame sent to a client.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func Encode(event string, data any) ([]byte, error) {
	if data == nil {
		data = struct{}{}
	}
	return json.Marshal(Outbound{Event: event, Data: data})
}

type JoinPayload struct {
	Slug string `json:"slug" validate:"min=1,max=100"`
}

type CardCreatePayload struct {
	BoardID    string  `json:"boardId" validate:"uuid_any"`
	Column     string  `json:"column" validate:"oneof=went_well didnt_go_well improve"`
	Content    string  `json:"content" validate:"min=1,max=5000"`
	AuthorName *string `json:"authorName" validate:"omitempty,min=1,max=100"`
}

func (p *CardCreatePayload) Normalize() {
	p.BoardID = strings.ToLower(p.BoardID)
	p.AuthorName = normalizeAuthor(p.AuthorName)
}

type CardUpdatePayload struct {
	CardID  string `json:"cardId" validate:"uuid_any"`
	Content string `json:"content" validate:"min=1,max=5000"`
}

func (p *CardUpdatePayload) Normalize() {
	p.CardID = strings.ToLower(p.CardID)
}

type CardDeletePayload struct {
	CardID string `json:"cardId" validate:"uuid_any"`
}

func (p *CardDeletePayload) Normalize() {
	p.CardID = strings.ToLower(p.CardID)
}

// VoteTogglePayload has no session field. The voter is always
// the session bound to the connection.
type VoteTogglePayload struct {
	CardID string `json:"cardId" validate:"uuid_any"`
	Type   string `json:"type" validate:"oneof=like dislike"`
}

func (p *VoteTogglePayload) Normalize() {
	p.CardID = strings.ToLower(p.CardID)
}

type CommentCreatePayload struct {
	CardID     string  `json:"cardId" validate:"uuid_any"`
	Content    string  `json:"content" validate:"min=1,max=5000"`
	AuthorName *string `json:"authorName" validate:"omitempty,min=1,max=100"`
}

func (p *CommentCreatePayload) Normalize() {
	p.CardID = strings.ToLower(p.CardID)
	p.AuthorName = normalizeAuthor(p.AuthorName)
}

// TimerStartPayload carries the duration in seconds.
type TimerStartPayload struct {
	Duration float64 `json:"duration" validate:"gt=0,lte=3600"`
}

type TimerStopPayload struct{}

type BoardDeletePayload struct {
	BoardID string `json:"boardId" validate:"uuid_any"`
}

func (p *BoardDeletePayload) Normalize() {
	p.BoardID = strings.ToLower(p.BoardID)
}

type SessionInit struct {
	Token string `json:"token"`
}

type UsersCount struct {
	Count int `json:"count"`
}

// TimerState uses nil fields for a stopped timer. EndTime is unix milliseconds.
type TimerState struct {
	EndTime  *int64   `json:"endTime"`
	Duration *float64 `json:"duration"`
}

type CardDeleted struct {
	CardID string `json:"cardId"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}

func normalizeAuthor(name *string) *string {
	if name == nil || *name == "" {
		return nil
	}
	return name
}
