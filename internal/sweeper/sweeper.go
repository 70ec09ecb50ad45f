// Package sweeper removes boards that have outlived their time to live.
package sweeper

import (
	"context"
	"time"

	"retro/internal/app/board"
	"retro/internal/metrics"

	"go.uber.org/zap"
)

// Notifier tells the room of a board that the board is gone.
type Notifier interface {
	BoardDeleted(slug string)
}

// Archiver keeps a copy of a board before it is deleted.
type Archiver interface {
	ArchiveBoard(ctx context.Context, boardID string, snapshot any) (string, error)
}

type Options struct {
	TTL          time.Duration
	Interval     time.Duration
	InitialDelay time.Duration
}

type Sweeper struct {
	boards   board.Service
	notifier Notifier
	archiver Archiver
	metrics  metrics.Recorder
	opts     Options
	now      func() time.Time
	logger   *zap.SugaredLogger
}

// New builds a sweeper. notifier and archiver may be nil.
func New(boards board.Service, notifier Notifier, archiver Archiver, recorder metrics.Recorder, opts Options, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		boards:   boards,
		notifier: notifier,
		archiver: archiver,
		metrics:  recorder,
		opts:     opts,
		now:      time.Now,
		logger:   logger.Sugar(),
	}
}

// Run sweeps once after the initial delay and then on every interval until
// ctx is done. Failed sweeps are logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Infow("Stale board sweeper started",
		"ttl", s.opts.TTL.String(),
		"interval", s.opts.Interval.String(),
	)

	first := time.NewTimer(s.opts.InitialDelay)
	defer first.Stop()

	select {
	case <-ctx.Done():
		return
	case <-first.C:
		s.RunOnce(ctx)
	}

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce archives, announces and deletes every board older than the TTL.
// The announcement goes out before the rows are deleted.
func (s *Sweeper) RunOnce(ctx context.Context) int64 {
	cutoff := s.now().UTC().Add(-s.opts.TTL)

	stale, err := s.boards.GetStaleBoards(ctx, cutoff)
	if err != nil {
		s.logger.Errorw("Failed to query stale boards", "error", err)
		return 0
	}
	if len(stale) == 0 {
		return 0
	}

	for _, b := range stale {
		s.archive(ctx, b)
		if s.notifier != nil {
			s.notifier.BoardDeleted(b.Slug)
		}
	}

	deleted, err := s.boards.DeleteStaleBoards(ctx, cutoff)
	if err != nil {
		s.logger.Errorw("Failed to delete stale boards", "count", len(stale), "error", err)
		return 0
	}

	s.metrics.BoardsSwept(int(deleted))
	s.logger.Infow("Swept stale boards", "deleted", deleted, "cutoff", cutoff.Format(time.RFC3339))
	return deleted
}

func (s *Sweeper) archive(ctx context.Context, b *board.Board) {
	if s.archiver == nil {
		return
	}
	snapshot, err := s.boards.Snapshot(ctx, b)
	if err != nil {
		s.logger.Warnw("Failed to snapshot board for archive", "board_id", b.ID, "error", err)
		return
	}
	if _, err := s.archiver.ArchiveBoard(ctx, b.ID, snapshot); err != nil {
		s.logger.Warnw("Failed to archive board", "board_id", b.ID, "error", err)
	}
}
