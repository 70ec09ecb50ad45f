package session

import (
	"regexp"

	"github.com/google/uuid"
)

var legacyIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,100}$`)

// Handshake carries the credentials a browser presents when connecting.
type Handshake struct {
	Token           string
	LegacySessionID string
}

// Identity is the resolved session of one connection.
// Issued is true when Token is new and must be sent back to the client.
type Identity struct {
	ID     string
	Token  string
	Issued bool
}

type Service interface {
	Resolve(h Handshake) Identity
}

type service struct {
	codec *Codec
	newID func() string
}

func NewService(codec *Codec) Service {
	return &service{codec: codec, newID: uuid.NewString}
}

func (s *service) Resolve(h Handshake) Identity {
	if h.Token != "" {
		if id, ok := s.codec.Verify(h.Token); ok {
			return Identity{ID: id, Token: h.Token}
		}
		// A client that already holds a signed token may not fall back to an
		// unsigned identifier.
		return s.issue(s.newID())
	}
	if legacyIDPattern.MatchString(h.LegacySessionID) {
		return s.issue(h.LegacySessionID)
	}
	return s.issue(s.newID())
}

func (s *service) issue(id string) Identity {
	return Identity{ID: id, Token: s.codec.Sign(id), Issued: true}
}
