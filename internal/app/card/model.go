package card

import (
	"time"

	"retro/internal/app/vote"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ColumnType string

const (
	WentWell    ColumnType = "went_well"
	DidntGoWell ColumnType = "didnt_go_well"
	Improve     ColumnType = "improve"
)

// Card content and author name hold the stored form, which is ciphertext when
// server-side encryption is on.
type Card struct {
	ID         string     `json:"id" gorm:"type:uuid;primaryKey"`
	BoardID    string     `json:"boardId" gorm:"type:uuid;not null;index"`
	ColumnType ColumnType `json:"columnType" gorm:"type:text;not null;check:chk_cards_column_type,column_type IN ('went_well','didnt_go_well','improve')"`
	Content    string     `json:"content" gorm:"type:text;not null"`
	AuthorName *string    `json:"authorName" gorm:"type:text"`
	CreatedAt  time.Time  `json:"createdAt" gorm:"not null"`

	Votes    []vote.Vote `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Comments []Comment   `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

func (c *Card) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type Comment struct {
	ID         string    `json:"id" gorm:"type:uuid;primaryKey"`
	CardID     string    `json:"cardId" gorm:"type:uuid;not null;index"`
	Content    string    `json:"content" gorm:"type:text;not null"`
	AuthorName *string   `json:"authorName" gorm:"type:text"`
	CreatedAt  time.Time `json:"createdAt" gorm:"not null"`
}

func (c *Comment) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
