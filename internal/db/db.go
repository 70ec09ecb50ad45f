package db

import (
	"fmt"
	"strings"
	"time"

	"retro/internal/app/board"
	"retro/internal/app/card"
	"retro/internal/app/vote"
	"retro/internal/config"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:  gormlogger.Discard,
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

func Connect(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	if cfg.DBDriver == "sqlite" {
		return ConnectSQLite(cfg.SQLitePath, logger)
	}

	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("Connected to PostgreSQL",
		zap.String("host", cfg.DBHost),
		zap.String("database", cfg.DBName),
	)

	return db, nil
}

// ConnectSQLite opens a SQLite database with foreign keys enforced, which the
// cascade deletes rely on. An empty path opens a private in-memory database.
func ConnectSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = fmt.Sprintf("file:retro-%s?mode=memory&cache=shared", uuid.NewString())
	}
	if strings.Contains(dsn, "?") {
		dsn += "&_pragma=foreign_keys(1)"
	} else {
		dsn += "?_pragma=foreign_keys(1)"
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	logger.Info("Connected to SQLite", zap.String("path", path))
	return db, nil
}

func Migrate(db *gorm.DB, logger *zap.Logger) error {
	if err := db.AutoMigrate(
		&board.Board{},
		&card.Card{},
		&vote.Vote{},
		&card.Comment{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	logger.Info("Database schema migrated")
	return nil
}
