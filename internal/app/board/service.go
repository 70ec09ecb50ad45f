package board

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"retro/internal/app/card"
	"retro/internal/app/vote"
	"retro/internal/cipher"
	"retro/internal/providers/redis"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

const maxTitleLength = 200

var ErrInvalidTitle = errors.New("title must be between 1 and 200 characters")

type Service interface {
	CreateBoard(ctx context.Context, title string) (*Board, error)
	GetBoardBySlug(ctx context.Context, slug string) (*Board, error)
	GetBoardByID(ctx context.Context, id string) (*Board, error)
	GetState(ctx context.Context, slug string) (*State, error)
	Snapshot(ctx context.Context, board *Board) (*State, error)
	DeleteBoard(ctx context.Context, id string) error
	GetStaleBoards(ctx context.Context, cutoff time.Time) ([]*Board, error)
	DeleteStaleBoards(ctx context.Context, cutoff time.Time) (int64, error)
}

type service struct {
	repo     Repository
	cardRepo card.Repository
	voteRepo vote.Repository
	cipher   cipher.Cipher
	cache    *redis.RedisProvider
	logger   *zap.SugaredLogger
}

func NewService(
	repo Repository,
	cardRepo card.Repository,
	voteRepo vote.Repository,
	c cipher.Cipher,
	cache *redis.RedisProvider,
	logger *zap.Logger,
) Service {
	return &service{
		repo:     repo,
		cardRepo: cardRepo,
		voteRepo: voteRepo,
		cipher:   c,
		cache:    cache,
		logger:   logger.Sugar(),
	}
}

func (s *service) CreateBoard(ctx context.Context, title string) (*Board, error) {
	title = strings.TrimSpace(title)
	if title == "" || utf8.RuneCountInString(title) > maxTitleLength {
		return nil, ErrInvalidTitle
	}

	slug, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("generate slug: %w", err)
	}

	board := &Board{Slug: slug, Title: title}
	if err := s.repo.CreateBoard(ctx, board); err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}

	s.logger.Infow("Board created", "board_id", board.ID, "slug", board.Slug)
	return board, nil
}

func (s *service) GetBoardBySlug(ctx context.Context, slug string) (*Board, error) {
	return s.repo.GetBoardBySlug(ctx, slug)
}

func (s *service) GetBoardByID(ctx context.Context, id string) (*Board, error) {
	return s.repo.GetBoardByID(ctx, id)
}

// GetState loads the board behind slug with its cards, votes and comments,
// free text decrypted.
func (s *service) GetState(ctx context.Context, slug string) (*State, error) {
	board, err := s.repo.GetBoardBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	stored, err := s.Snapshot(ctx, board)
	if err != nil {
		return nil, err
	}

	state := &State{
		Board:    stored.Board,
		Cards:    make([]*card.Card, len(stored.Cards)),
		Votes:    stored.Votes,
		Comments: make([]*card.Comment, len(stored.Comments)),
	}
	for i, c := range stored.Cards {
		state.Cards[i] = card.RevealCard(s.cipher, c)
	}
	for i, c := range stored.Comments {
		state.Comments[i] = card.RevealComment(s.cipher, c)
	}
	return state, nil
}

// Snapshot returns the board's contents in stored form, from the cache when
// possible. The cache version is read before the database so that a write
// committed during the load keeps this snapshot out of the cache.
func (s *service) Snapshot(ctx context.Context, board *Board) (*State, error) {
	version, cacheable := s.cache.Version(ctx, board.ID)

	var cached State
	if cacheable && s.cache.GetState(ctx, board.ID, version, &cached) {
		cached.Board = board
		return &cached, nil
	}

	cards, err := s.cardRepo.GetCardsByBoardID(ctx, board.ID)
	if err != nil {
		return nil, fmt.Errorf("load cards of board %s: %w", board.ID, err)
	}

	cardIDs := make([]string, len(cards))
	for i, c := range cards {
		cardIDs[i] = c.ID
	}

	votes, err := s.voteRepo.GetVotesByCardIDs(ctx, cardIDs)
	if err != nil {
		return nil, fmt.Errorf("load votes of board %s: %w", board.ID, err)
	}
	comments, err := s.cardRepo.GetCommentsByCardIDs(ctx, cardIDs)
	if err != nil {
		return nil, fmt.Errorf("load comments of board %s: %w", board.ID, err)
	}

	state := &State{Board: board, Cards: cards, Votes: votes, Comments: comments}
	if cacheable {
		s.cache.SetState(ctx, board.ID, version, state)
	}
	return state, nil
}

func (s *service) DeleteBoard(ctx context.Context, id string) error {
	if err := s.repo.DeleteBoard(ctx, id); err != nil {
		return fmt.Errorf("delete board %s: %w", id, err)
	}
	s.cache.ForgetBoard(ctx, id)
	s.logger.Infow("Board deleted", "board_id", id)
	return nil
}

func (s *service) GetStaleBoards(ctx context.Context, cutoff time.Time) ([]*Board, error) {
	return s.repo.GetBoardsOlderThan(ctx, cutoff)
}

// DeleteStaleBoards bulk deletes boards created before cutoff and drops
// their cached snapshots.
func (s *service) DeleteStaleBoards(ctx context.Context, cutoff time.Time) (int64, error) {
	stale, err := s.repo.GetBoardsOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("query boards older than %s: %w", cutoff.Format(time.RFC3339), err)
	}

	n, err := s.repo.DeleteBoardsOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete boards older than %s: %w", cutoff.Format(time.RFC3339), err)
	}

	ids := make([]string, len(stale))
	for i, b := range stale {
		ids[i] = b.ID
	}
	s.cache.ForgetBoard(ctx, ids...)
	return n, nil
}
