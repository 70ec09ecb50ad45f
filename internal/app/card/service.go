package card

import (
	"context"
	"fmt"

	"retro/internal/cipher"
	"retro/internal/metrics"
	"retro/internal/providers/redis"

	"go.uber.org/zap"
)

// Service writes cards and comments in their stored form and returns them
// decrypted, ready to broadcast.
type Service interface {
	CreateCard(ctx context.Context, boardID string, column ColumnType, content string, authorName *string) (*Card, error)
	UpdateCard(ctx context.Context, boardID, cardID, content string) (*Card, error)
	DeleteCard(ctx context.Context, boardID, cardID string) error
	CreateComment(ctx context.Context, boardID, cardID, content string, authorName *string) (*Comment, error)
}

type service struct {
	repo    Repository
	cipher  cipher.Cipher
	cache   *redis.RedisProvider
	metrics metrics.Recorder
	logger  *zap.SugaredLogger
}

func NewService(
	repo Repository,
	c cipher.Cipher,
	cache *redis.RedisProvider,
	recorder metrics.Recorder,
	logger *zap.Logger,
) Service {
	return &service{
		repo:    repo,
		cipher:  c,
		cache:   cache,
		metrics: recorder,
		logger:  logger.Sugar(),
	}
}

func (s *service) CreateCard(ctx context.Context, boardID string, column ColumnType, content string, authorName *string) (*Card, error) {
	sealedContent, err := s.cipher.Encrypt(content)
	if err != nil {
		return nil, fmt.Errorf("encrypt card content: %w", err)
	}
	sealedAuthor, err := cipher.EncryptOptional(s.cipher, authorName)
	if err != nil {
		return nil, fmt.Errorf("encrypt card author: %w", err)
	}

	card := &Card{
		BoardID:    boardID,
		ColumnType: column,
		Content:    sealedContent,
		AuthorName: sealedAuthor,
	}
	if err := s.repo.CreateCard(ctx, card); err != nil {
		return nil, fmt.Errorf("create card: %w", err)
	}

	s.cache.InvalidateBoard(ctx, boardID)
	s.metrics.CardCreated()

	s.logger.Debugw("Card created",
		"card_id", card.ID,
		"board_id", boardID,
		"column", column,
	)
	return RevealCard(s.cipher, card), nil
}

func (s *service) UpdateCard(ctx context.Context, boardID, cardID, content string) (*Card, error) {
	sealed, err := s.cipher.Encrypt(content)
	if err != nil {
		return nil, fmt.Errorf("encrypt card content: %w", err)
	}

	card, err := s.repo.UpdateContent(ctx, boardID, cardID, sealed)
	if err != nil {
		return nil, fmt.Errorf("update card %s: %w", cardID, err)
	}

	s.cache.InvalidateBoard(ctx, boardID)
	return RevealCard(s.cipher, card), nil
}

func (s *service) DeleteCard(ctx context.Context, boardID, cardID string) error {
	if err := s.repo.DeleteCard(ctx, boardID, cardID); err != nil {
		return fmt.Errorf("delete card %s: %w", cardID, err)
	}
	s.cache.InvalidateBoard(ctx, boardID)
	return nil
}

func (s *service) CreateComment(ctx context.Context, boardID, cardID, content string, authorName *string) (*Comment, error) {
	sealedContent, err := s.cipher.Encrypt(content)
	if err != nil {
		return nil, fmt.Errorf("encrypt comment content: %w", err)
	}
	sealedAuthor, err := cipher.EncryptOptional(s.cipher, authorName)
	if err != nil {
		return nil, fmt.Errorf("encrypt comment author: %w", err)
	}

	comment := &Comment{
		CardID:     cardID,
		Content:    sealedContent,
		AuthorName: sealedAuthor,
	}
	if err := s.repo.CreateComment(ctx, boardID, comment); err != nil {
		return nil, fmt.Errorf("create comment on card %s: %w", cardID, err)
	}

	s.cache.InvalidateBoard(ctx, boardID)
	s.metrics.CommentCreated()
	return RevealComment(s.cipher, comment), nil
}

// RevealCard returns a copy of card with its free-text fields decrypted.
func RevealCard(c cipher.Cipher, card *Card) *Card {
	out := *card
	out.Content = c.Decrypt(card.Content)
	out.AuthorName = cipher.DecryptOptional(c, card.AuthorName)
	out.Votes = nil
	out.Comments = nil
	return &out
}

func RevealComment(c cipher.Cipher, comment *Comment) *Comment {
	out := *comment
	out.Content = c.Decrypt(comment.Content)
	out.AuthorName = cipher.DecryptOptional(c, comment.AuthorName)
	return &out
}
