package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestHealthyWhenEverythingAnswers(t *testing.T) {
	fixed := time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC)
	h := &HealthChecker{
		DB: openDB(t),
		Optional: map[string]Pinger{
			"Redis": pingerFunc(func(context.Context) error { return nil }),
		},
		now: func() time.Time { return fixed },
	}

	status := h.Check(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, fixed, status.Timestamp)
	assert.Equal(t, []Service{
		{Name: "Database", Status: "up"},
		{Name: "Redis", Status: "up"},
	}, status.Services)
}

func TestDegradedWhenADependencyFails(t *testing.T) {
	h := &HealthChecker{
		DB: openDB(t),
		Optional: map[string]Pinger{
			"Redis": pingerFunc(func(context.Context) error { return errors.New("connection refused") }),
			"Cache": nil,
		},
	}

	status := h.Check(context.Background())
	assert.Equal(t, "degraded", status.Status)
	require.Len(t, status.Services, 2)
	assert.Equal(t, Service{Name: "Redis", Status: "down", Message: "connection refused"}, status.Services[1])
}

func TestPingReceivesDeadline(t *testing.T) {
	var hasDeadline bool
	h := &HealthChecker{Optional: map[string]Pinger{
		"Redis": pingerFunc(func(ctx context.Context) error {
			_, hasDeadline = ctx.Deadline()
			return nil
		}),
	}}
	h.Check(context.Background())
	assert.True(t, hasDeadline)
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := NewLogger("prod", "loud")
	assert.Error(t, err)

	logger, err := NewLogger("dev", "debug")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))
}
