package board

import (
	"time"

	"retro/internal/app/card"
	"retro/internal/app/vote"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Board struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	Slug      string    `json:"slug" gorm:"type:text;uniqueIndex;not null"`
	Title     string    `json:"title" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;index"`

	Cards []card.Card `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

func (b *Board) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// State is everything a client needs to render a board.
type State struct {
	Board    *Board          `json:"board"`
	Cards    []*card.Card    `json:"cards"`
	Votes    []*vote.Vote    `json:"votes"`
	Comments []*card.Comment `json:"comments"`
}

type CreateBoardRequest struct {
	Title string `json:"title" binding:"required"`
}

type CreateBoardResponse struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
