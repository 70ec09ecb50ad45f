package board

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrBoardNotFound = errors.New("board not found")

type Repository interface {
	CreateBoard(ctx context.Context, board *Board) error
	GetBoardBySlug(ctx context.Context, slug string) (*Board, error)
	GetBoardByID(ctx context.Context, id string) (*Board, error)
	DeleteBoard(ctx context.Context, id string) error
	GetBoardsOlderThan(ctx context.Context, cutoff time.Time) ([]*Board, error)
	DeleteBoardsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateBoard(ctx context.Context, board *Board) error {
	return r.db.WithContext(ctx).Create(board).Error
}

func (r *repository) GetBoardBySlug(ctx context.Context, slug string) (*Board, error) {
	var board Board
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&board).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBoardNotFound
	}
	if err != nil {
		return nil, err
	}
	return &board, nil
}

func (r *repository) GetBoardByID(ctx context.Context, id string) (*Board, error) {
	var board Board
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&board).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBoardNotFound
	}
	if err != nil {
		return nil, err
	}
	return &board, nil
}

func (r *repository) DeleteBoard(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Board{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBoardNotFound
	}
	return nil
}

func (r *repository) GetBoardsOlderThan(ctx context.Context, cutoff time.Time) ([]*Board, error) {
	boards := []*Board{}
	err := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Find(&boards).Error
	return boards, err
}

// DeleteBoardsOlderThan removes every matching board in one statement;
// cards, votes and comments follow through the cascade.
func (r *repository) DeleteBoardsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&Board{})
	return res.RowsAffected, res.Error
}
