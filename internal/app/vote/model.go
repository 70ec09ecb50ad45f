package vote

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Type string

const (
	Like    Type = "like"
	Dislike Type = "dislike"
)

// Vote is unique per (card, session, type); toggling relies on it.
type Vote struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	CardID    string    `json:"cardId" gorm:"type:uuid;not null;uniqueIndex:idx_votes_card_session_type,priority:1"`
	Type      Type      `json:"type" gorm:"type:text;not null;uniqueIndex:idx_votes_card_session_type,priority:3;check:chk_votes_type,type IN ('like','dislike')"`
	SessionID string    `json:"sessionId" gorm:"type:text;not null;uniqueIndex:idx_votes_card_session_type,priority:2"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null"`
}

func (v *Vote) BeforeCreate(*gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
