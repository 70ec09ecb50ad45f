package app

import (
	"context"
	"errors"
	"fmt"

	"retro/internal/app/board"
	"retro/internal/app/card"
	"retro/internal/app/health"
	"retro/internal/app/session"
	"retro/internal/app/vote"
	"retro/internal/cipher"
	"retro/internal/config"
	"retro/internal/db"
	"retro/internal/db/seeder"
	"retro/internal/gateways/websocket"
	"retro/internal/metrics"
	"retro/internal/providers/minio"
	"retro/internal/providers/redis"
	"retro/internal/ratelimit"
	"retro/internal/router"
	"retro/internal/sweeper"
	"retro/internal/utils"
	"retro/internal/validation"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Application struct {
	Router  *router.Router
	DB      *gorm.DB
	Hub     *websocket.Hub
	Sweeper *sweeper.Sweeper

	core *core
}

// core holds what both the server and the one-shot sweep need.
type core struct {
	db       *gorm.DB
	cipher   cipher.Cipher
	redis    *redis.RedisProvider
	minio    *minio.MinioProvider
	metrics  metrics.Recorder
	registry *prometheus.Registry

	boardService board.Service
	cardService  card.Service
	voteService  vote.Service
}

func newCore(cfg *config.Config, logger *zap.Logger) (*core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c, err := newCipher(cfg, logger)
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Connect(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(dbConn, logger); err != nil {
		if sqlDB, dbErr := dbConn.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, err
	}

	redisProvider, err := redis.NewRedisProvider(cfg.RedisURL, logger, cfg.RedisTTL)
	if err != nil {
		logger.Warn("Failed to initialize Redis provider, board cache disabled", zap.Error(err))
		redisProvider = nil
	}

	minioProvider, err := minio.NewMinioProvider(cfg, logger)
	if err != nil {
		logger.Warn("Failed to initialize MinIO provider, board archiving disabled", zap.Error(err))
		minioProvider = nil
	}

	var recorder metrics.Recorder = metrics.Noop{}
	var registry *prometheus.Registry
	if cfg.MetricsEnabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		recorder = metrics.NewPrometheus(registry)
	}

	boardRepo := board.NewRepository(dbConn)
	cardRepo := card.NewRepository(dbConn)
	voteRepo := vote.NewRepository(dbConn)

	return &core{
		db:       dbConn,
		cipher:   c,
		redis:    redisProvider,
		minio:    minioProvider,
		metrics:  recorder,
		registry: registry,

		boardService: board.NewService(boardRepo, cardRepo, voteRepo, c, redisProvider, logger),
		cardService:  card.NewService(cardRepo, c, redisProvider, recorder, logger),
		voteService:  vote.NewService(voteRepo, redisProvider, recorder, logger),
	}, nil
}

func newCipher(cfg *config.Config, logger *zap.Logger) (cipher.Cipher, error) {
	switch cfg.EncryptionMode {
	case config.EncryptionServer:
		aead, err := cipher.NewAEAD(cfg.EncryptionKey)
		if errors.Is(err, cipher.ErrInvalidKey) {
			logger.Warn("Invalid ENCRYPTION_KEY, at-rest encryption disabled", zap.Error(err))
			return cipher.Noop{}, nil
		}
		if err != nil {
			return nil, err
		}
		logger.Info("At-rest encryption enabled")
		return aead, nil
	case config.EncryptionClient:
		logger.Info("Client-side encryption mode, relaying ciphertext as stored")
	default:
		logger.Warn("At-rest encryption disabled")
	}
	return cipher.Noop{}, nil
}

func newSessionCodec(cfg *config.Config, logger *zap.Logger) (*session.Codec, error) {
	if cfg.SessionSecret != "" {
		return session.NewCodec([]byte(cfg.SessionSecret)), nil
	}
	secret, err := session.NewRandomSecret()
	if err != nil {
		return nil, err
	}
	logger.Warn("SESSION_SECRET is not set, using a random secret; session tokens will not survive a restart")
	return session.NewCodec(secret), nil
}

func (c *core) sweeperOptions(cfg *config.Config) sweeper.Options {
	return sweeper.Options{
		TTL:          cfg.BoardTTL,
		Interval:     cfg.SweepInterval,
		InitialDelay: cfg.SweepInitialDelay,
	}
}

// archiver returns nil when archiving is disabled so the sweeper skips it.
func (c *core) archiver() sweeper.Archiver {
	if c.minio == nil {
		return nil
	}
	return c.minio
}

func (c *core) close() {
	c.redis.Close()
	if sqlDB, err := c.db.DB(); err == nil {
		sqlDB.Close()
	}
}

// Bootstrap wires the server. The hub and the sweeper run until ctx is done.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Application, error) {
	c, err := newCore(cfg, logger)
	if err != nil {
		return nil, err
	}

	if cfg.SeedDemoBoard {
		seed := seeder.NewSeeder(c.db, c.cipher, logger)
		if err := seed.Seed(); err != nil {
			logger.Warn("Failed to run seeders", zap.Error(err))
		}
	}

	codec, err := newSessionCodec(cfg, logger)
	if err != nil {
		c.close()
		return nil, err
	}
	sessionService := session.NewService(codec)

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	rules := ratelimit.DefaultRules()
	eventRouter := websocket.NewEventRouter(
		hub,
		c.boardService,
		c.cardService,
		c.voteService,
		validation.New(),
		c.metrics,
		cfg.EventTimeout,
		logger,
	)
	wsHandler := websocket.NewHandler(hub, eventRouter, sessionService, rules, c.metrics)

	sweep := sweeper.New(c.boardService, hub, c.archiver(), c.metrics, c.sweeperOptions(cfg), logger)
	go sweep.Run(ctx)

	checker := &utils.HealthChecker{DB: c.db, Optional: map[string]utils.Pinger{}}
	if c.redis != nil {
		checker.Optional["Redis"] = c.redis
	}
	if c.minio != nil {
		checker.Optional["MinIO"] = c.minio
	}
	healthHandler := health.NewHandler(health.NewService(checker))
	boardHandler := board.NewHandler(c.boardService)

	r := router.NewRouter(logger, cfg)

	r.RegisterHealthRoutes(healthHandler)
	r.RegisterBoardRoutes(boardHandler)
	r.RegisterWebSocketRoutes(wsHandler)
	if c.registry != nil {
		r.RegisterMetricsRoutes(c.registry)
	}

	return &Application{
		Router:  r,
		DB:      c.db,
		Hub:     hub,
		Sweeper: sweep,
		core:    c,
	}, nil
}

// Close releases the cache and database connections.
func (a *Application) Close() {
	a.core.close()
}

// SweepOnce runs a single sweep without a live hub and returns the number of
// deleted boards.
func SweepOnce(ctx context.Context, cfg *config.Config, logger *zap.Logger) (int64, error) {
	c, err := newCore(cfg, logger)
	if err != nil {
		return 0, err
	}
	defer c.close()

	sweep := sweeper.New(c.boardService, nil, c.archiver(), c.metrics, c.sweeperOptions(cfg), logger)
	return sweep.RunOnce(ctx), nil
}
