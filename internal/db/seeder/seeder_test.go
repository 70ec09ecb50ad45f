package seeder_test

import (
	"testing"

	"retro/internal/app/board"
	"retro/internal/app/card"
	"retro/internal/cipher"
	"retro/internal/db"
	"retro/internal/db/seeder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestSeedIsIdempotentAndEncrypts(t *testing.T) {
	conn, err := db.ConnectSQLite("", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})
	require.NoError(t, db.Migrate(conn, zap.NewNop()))

	aead, err := cipher.NewAEAD(testKey)
	require.NoError(t, err)
	s := seeder.NewSeeder(conn, aead, zap.NewNop())

	require.NoError(t, s.Seed())
	require.NoError(t, s.Seed())

	var boards []board.Board
	require.NoError(t, conn.Where("slug = ?", seeder.DemoSlug).Find(&boards).Error)
	require.Len(t, boards, 1)

	var cards []card.Card
	require.NoError(t, conn.Where("board_id = ?", boards[0].ID).Order("content").Find(&cards).Error)
	require.Len(t, cards, 3)
	for _, c := range cards {
		opened := aead.Open(c.Content)
		assert.False(t, opened.Legacy)
		assert.NotEqual(t, opened.Text, c.Content)
	}
}
