package card

import (
	"context"

	"retro/internal/app/vote"

	"gorm.io/gorm"
)

// ErrCardNotFound is shared with the vote package so callers can match either.
var ErrCardNotFound = vote.ErrCardNotFound

type Repository interface {
	CreateCard(ctx context.Context, card *Card) error
	UpdateContent(ctx context.Context, boardID, cardID, content string) (*Card, error)
	DeleteCard(ctx context.Context, boardID, cardID string) error
	GetCardsByBoardID(ctx context.Context, boardID string) ([]*Card, error)
	CreateComment(ctx context.Context, boardID string, comment *Comment) error
	GetCommentsByCardIDs(ctx context.Context, cardIDs []string) ([]*Comment, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateCard(ctx context.Context, card *Card) error {
	return r.db.WithContext(ctx).Create(card).Error
}

func (r *repository) UpdateContent(ctx context.Context, boardID, cardID, content string) (*Card, error) {
	var card Card
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Card{}).
			Where("id = ? AND board_id = ?", cardID, boardID).
			Update("content", content)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCardNotFound
		}
		return tx.Where("id = ?", cardID).First(&card).Error
	})
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// DeleteCard removes the card; its votes and comments go with it through the
// foreign key cascade.
func (r *repository) DeleteCard(ctx context.Context, boardID, cardID string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND board_id = ?", cardID, boardID).
		Delete(&Card{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCardNotFound
	}
	return nil
}

func (r *repository) GetCardsByBoardID(ctx context.Context, boardID string) ([]*Card, error) {
	cards := []*Card{}
	err := r.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("created_at ASC").
		Find(&cards).Error
	return cards, err
}

func (r *repository) CreateComment(ctx context.Context, boardID string, comment *Comment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var found int64
		if err := tx.Model(&Card{}).
			Where("id = ? AND board_id = ?", comment.CardID, boardID).
			Count(&found).Error; err != nil {
			return err
		}
		if found == 0 {
			return ErrCardNotFound
		}
		return tx.Create(comment).Error
	})
}

func (r *repository) GetCommentsByCardIDs(ctx context.Context, cardIDs []string) ([]*Comment, error) {
	comments := []*Comment{}
	if len(cardIDs) == 0 {
		return comments, nil
	}
	err := r.db.WithContext(ctx).
		Where("card_id IN ?", cardIDs).
		Order("created_at ASC").
		Find(&comments).Error
	return comments, err
}
