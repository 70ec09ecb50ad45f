package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const stateKeyPrefix = "retro:board:"

var errStaleSnapshot = errors.New("board changed while the snapshot was read")

// RedisProvider caches board snapshots in their stored (at-rest) form.
// Snapshots are keyed by a per-board version that every write to the board
// increments. A nil *RedisProvider is a valid, disabled cache: every read
// misses and every write is dropped.
type RedisProvider struct {
	Client *redis.Client
	URL    string
	logger *zap.SugaredLogger
	ttl    time.Duration
	cancel context.CancelFunc
}

// NewRedisProvider returns nil, nil when redisURL is empty.
func NewRedisProvider(redisURL string, logger *zap.Logger, ttl time.Duration) (*RedisProvider, error) {
	if redisURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		opts = &redis.Options{Addr: redisURL}
	}
	opts.MaxRetries = 3
	opts.MinRetryBackoff = 100 * time.Millisecond
	opts.MaxRetryBackoff = 500 * time.Millisecond

	client := redis.NewClient(opts)
	ctx, cancel := context.WithCancel(context.Background())

	provider := &RedisProvider{
		Client: client,
		URL:    redisURL,
		logger: logger.Sugar(),
		ttl:    ttl,
		cancel: cancel,
	}
	client.AddHook(&loggerHook{logger: provider.logger})

	pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		provider.logger.Warnw("Redis unavailable at startup, snapshot cache will retry", "error", err)
	} else {
		provider.logger.Infow("Redis connected", "addr", opts.Addr, "db", opts.DB, "ttl", ttl.String())
	}

	go provider.startConnectionMonitor(ctx)

	return provider, nil
}

func versionKey(boardID string) string {
	return stateKeyPrefix + boardID + ":ver"
}

func stateKey(boardID string, version int64) string {
	return fmt.Sprintf("%s%s:state:%d", stateKeyPrefix, boardID, version)
}

// Version returns the board's current snapshot version. Read it before
// loading the board from the database and pass it to GetState and SetState.
// ok is false when the cache is disabled or unreachable.
func (r *RedisProvider) Version(ctx context.Context, boardID string) (version int64, ok bool) {
	if r == nil {
		return 0, false
	}
	version, err := readVersion(ctx, r.Client, boardID)
	if err != nil {
		return 0, false
	}
	return version, true
}

func readVersion(ctx context.Context, c redis.Cmdable, boardID string) (int64, error) {
	version, err := c.Get(ctx, versionKey(boardID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return version, err
}

// GetState loads the snapshot of a board taken at version into dest.
func (r *RedisProvider) GetState(ctx context.Context, boardID string, version int64, dest any) bool {
	if r == nil {
		return false
	}
	key := stateKey(boardID, version)
	data, err := r.Client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		r.logger.Warnw("Discarding undecodable board snapshot", "board_id", boardID, "error", err)
		r.Client.Del(ctx, key)
		return false
	}
	return true
}

// SetState stores a snapshot read at version. The write is skipped when the
// board was invalidated after version was read.
func (r *RedisProvider) SetState(ctx context.Context, boardID string, version int64, state any) {
	if r == nil {
		return
	}
	data, err := json.Marshal(state)
	if err != nil {
		r.logger.Warnw("Failed to encode board snapshot", "board_id", boardID, "error", err)
		return
	}

	err = r.Client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readVersion(ctx, tx, boardID)
		if err != nil {
			return err
		}
		if current != version {
			return errStaleSnapshot
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, stateKey(boardID, version), data, r.ttl)
			return nil
		})
		return err
	}, versionKey(boardID))

	switch {
	case err == nil:
	case errors.Is(err, errStaleSnapshot), errors.Is(err, redis.TxFailedErr):
		r.logger.Debugw("Skipping stale board snapshot", "board_id", boardID, "version", version)
	default:
		r.logger.Debugw("Failed to cache board snapshot", "board_id", boardID, "error", err)
	}
}

// InvalidateBoard bumps the version of each board so that snapshots taken
// before the change are neither served nor written.
func (r *RedisProvider) InvalidateBoard(ctx context.Context, boardIDs ...string) {
	if r == nil || len(boardIDs) == 0 {
		return
	}
	cmds := make([]*redis.IntCmd, len(boardIDs))
	_, err := r.Client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range boardIDs {
			cmds[i] = pipe.Incr(ctx, versionKey(id))
		}
		return nil
	})
	if err != nil {
		r.logger.Warnw("Failed to invalidate board snapshot", "board_ids", boardIDs, "error", err)
		return
	}

	previous := make([]string, len(boardIDs))
	for i, id := range boardIDs {
		previous[i] = stateKey(id, cmds[i].Val()-1)
	}
	if err := r.Client.Del(ctx, previous...).Err(); err != nil {
		r.logger.Debugw("Failed to drop previous board snapshot", "board_ids", boardIDs, "error", err)
	}
}

// ForgetBoard drops every key of deleted boards.
func (r *RedisProvider) ForgetBoard(ctx context.Context, boardIDs ...string) {
	if r == nil || len(boardIDs) == 0 {
		return
	}
	keys := make([]string, 0, 2*len(boardIDs))
	for _, id := range boardIDs {
		version, err := readVersion(ctx, r.Client, id)
		if err != nil {
			r.logger.Warnw("Failed to read board snapshot version", "board_id", id, "error", err)
			continue
		}
		keys = append(keys, versionKey(id), stateKey(id, version))
	}
	if len(keys) == 0 {
		return
	}
	if err := r.Client.Del(ctx, keys...).Err(); err != nil {
		r.logger.Warnw("Failed to forget board snapshots", "board_ids", boardIDs, "error", err)
	}
}

// Ping reports cache reachability for health checks.
func (r *RedisProvider) Ping(ctx context.Context) error {
	if r == nil {
		return fmt.Errorf("redis cache disabled")
	}
	return r.Client.Ping(ctx).Err()
}

func (r *RedisProvider) Close() error {
	if r == nil {
		return nil
	}
	r.cancel()
	return r.Client.Close()
}

func (r *RedisProvider) startConnectionMonitor(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	wasConnected := r.Client.Ping(ctx).Err() == nil

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := r.Client.Ping(ctx).Err()
			switch {
			case err != nil && wasConnected:
				r.logger.Errorw("Redis disconnected", "error", err)
				wasConnected = false
			case err == nil && !wasConnected:
				r.logger.Infow("Redis reconnected", "url", r.URL)
				wasConnected = true
			}
		}
	}
}

type loggerHook struct {
	logger *zap.SugaredLogger
}

func (h *loggerHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.logger.Errorw("Redis dial failed", "network", network, "addr", addr, "error", err)
		}
		return conn, err
	}
}

func (h *loggerHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		if cmd.Name() == "ping" {
			return err
		}
		if err != nil && !errors.Is(err, redis.Nil) && !errors.Is(err, redis.TxFailedErr) {
			h.logger.Errorw("Redis command failed", "command", cmd.Name(), "duration", time.Since(start).String(), "error", err)
		} else {
			h.logger.Debugw("Redis command executed", "command", cmd.Name(), "duration", time.Since(start).String())
		}
		return err
	}
}

func (h *loggerHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}
