package vote

import (
	"context"
	"fmt"

	"retro/internal/metrics"
	"retro/internal/providers/redis"

	"go.uber.org/zap"
)

type Service interface {
	Toggle(ctx context.Context, boardID, cardID, sessionID string, t Type) ([]*Vote, error)
	GetVotesByCardIDs(ctx context.Context, cardIDs []string) ([]*Vote, error)
}

type service struct {
	repo    Repository
	cache   *redis.RedisProvider
	metrics metrics.Recorder
	logger  *zap.SugaredLogger
}

func NewService(repo Repository, cache *redis.RedisProvider, recorder metrics.Recorder, logger *zap.Logger) Service {
	return &service{
		repo:    repo,
		cache:   cache,
		metrics: recorder,
		logger:  logger.Sugar(),
	}
}

func (s *service) Toggle(ctx context.Context, boardID, cardID, sessionID string, t Type) ([]*Vote, error) {
	votes, err := s.repo.Toggle(ctx, boardID, cardID, sessionID, t)
	if err != nil {
		return nil, fmt.Errorf("toggle vote: %w", err)
	}

	s.cache.InvalidateBoard(ctx, boardID)
	s.metrics.VoteToggled()

	s.logger.Debugw("Vote toggled",
		"card_id", cardID,
		"type", t,
		"votes_count", len(votes),
	)
	return votes, nil
}

func (s *service) GetVotesByCardIDs(ctx context.Context, cardIDs []string) ([]*Vote, error) {
	return s.repo.GetVotesByCardIDs(ctx, cardIDs)
}
