package vote

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrCardNotFound = errors.New("card not found")

type Repository interface {
	Toggle(ctx context.Context, boardID, cardID, sessionID string, t Type) ([]*Vote, error)
	GetVotesByCardID(ctx context.Context, cardID string) ([]*Vote, error)
	GetVotesByCardIDs(ctx context.Context, cardIDs []string) ([]*Vote, error)
	CountVotes(ctx context.Context, cardID, sessionID string, t Type) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Toggle removes the (card, session, type) vote when it exists and inserts it
// otherwise, then returns every vote on the card. The card must belong to boardID.
func (r *repository) Toggle(ctx context.Context, boardID, cardID, sessionID string, t Type) ([]*Vote, error) {
	votes := []*Vote{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var found int64
		if err := tx.Table("cards").Where("id = ? AND board_id = ?", cardID, boardID).Count(&found).Error; err != nil {
			return err
		}
		if found == 0 {
			return ErrCardNotFound
		}

		res := tx.Where("card_id = ? AND session_id = ? AND type = ?", cardID, sessionID, t).Delete(&Vote{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := tx.Create(&Vote{CardID: cardID, SessionID: sessionID, Type: t}).Error; err != nil {
				return err
			}
		}

		return tx.Where("card_id = ?", cardID).Order("created_at ASC").Find(&votes).Error
	})
	if err != nil {
		return nil, err
	}
	return votes, nil
}

func (r *repository) GetVotesByCardID(ctx context.Context, cardID string) ([]*Vote, error) {
	votes := []*Vote{}
	err := r.db.WithContext(ctx).
		Where("card_id = ?", cardID).
		Order("created_at ASC").
		Find(&votes).Error
	return votes, err
}

func (r *repository) GetVotesByCardIDs(ctx context.Context, cardIDs []string) ([]*Vote, error) {
	votes := []*Vote{}
	if len(cardIDs) == 0 {
		return votes, nil
	}
	err := r.db.WithContext(ctx).
		Where("card_id IN ?", cardIDs).
		Order("created_at ASC").
		Find(&votes).Error
	return votes, err
}

func (r *repository) CountVotes(ctx context.Context, cardID, sessionID string, t Type) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Vote{}).
		Where("card_id = ? AND session_id = ? AND type = ?", cardID, sessionID, t).
		Count(&count).Error
	return count, err
}
