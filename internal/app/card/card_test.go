package card_test

import (
	"context"
	"strings"
	"testing"

	"retro/internal/app/board"
	"retro/internal/app/card"
	"retro/internal/app/vote"
	"retro/internal/cipher"
	"retro/internal/db"
	"retro/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.ConnectSQLite("", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn, zap.NewNop()))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return conn
}

func newBoard(t *testing.T, conn *gorm.DB, slug string) *board.Board {
	t.Helper()
	b := &board.Board{Slug: slug, Title: "Retro"}
	require.NoError(t, conn.Create(b).Error)
	return b
}

func newService(conn *gorm.DB, c cipher.Cipher) card.Service {
	return card.NewService(card.NewRepository(conn), c, nil, metrics.Noop{}, zap.NewNop())
}

func ptr(s string) *string { return &s }

func TestDeleteCardCascades(t *testing.T) {
	conn := newTestDB(t)
	b := newBoard(t, conn, "abc")
	svc := newService(conn, cipher.Noop{})
	repo := card.NewRepository(conn)
	votes := vote.NewRepository(conn)
	ctx := context.Background()

	c, err := svc.CreateCard(ctx, b.ID, card.Improve, "more tests", nil)
	require.NoError(t, err)
	_, err = svc.CreateComment(ctx, b.ID, c.ID, "agreed", ptr("Sam"))
	require.NoError(t, err)
	_, err = votes.Toggle(ctx, b.ID, c.ID, "s1", vote.Like)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCard(ctx, b.ID, c.ID))

	remainingVotes, err := votes.GetVotesByCardID(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, remainingVotes)

	remainingComments, err := repo.GetCommentsByCardIDs(ctx, []string{c.ID})
	require.NoError(t, err)
	assert.Empty(t, remainingComments)
}

func TestDeleteMissingCard(t *testing.T) {
	conn := newTestDB(t)
	b := newBoard(t, conn, "abc")
	svc := newService(conn, cipher.Noop{})

	err := svc.DeleteCard(context.Background(), b.ID, "3f2b9c1e-8d4a-4e1b-9c3d-2a1b0c9d8e7f")
	assert.ErrorIs(t, err, card.ErrCardNotFound)
}

func TestCreateCardEncryptsAtRest(t *testing.T) {
	conn := newTestDB(t)
	b := newBoard(t, conn, "abc")
	aead, err := cipher.NewAEAD(testKey)
	require.NoError(t, err)
	svc := newService(conn, aead)
	ctx := context.Background()

	created, err := svc.CreateCard(ctx, b.ID, card.WentWell, "secret retro note", ptr("Alex"))
	require.NoError(t, err)
	assert.Equal(t, "secret retro note", created.Content)
	require.NotNil(t, created.AuthorName)
	assert.Equal(t, "Alex", *created.AuthorName)

	var stored card.Card
	require.NoError(t, conn.Where("id = ?", created.ID).First(&stored).Error)
	assert.NotEqual(t, "secret retro note", stored.Content)
	assert.True(t, strings.Contains(stored.Content, "."))
	require.NotNil(t, stored.AuthorName)
	assert.NotEqual(t, "Alex", *stored.AuthorName)
	assert.Equal(t, "secret retro note", aead.Decrypt(stored.Content))
}

func TestRevealToleratesLegacyPlaintext(t *testing.T) {
	aead, err := cipher.NewAEAD(testKey)
	require.NoError(t, err)

	legacy := &card.Card{Content: "written before encryption", AuthorName: ptr("Kim")}
	revealed := card.RevealCard(aead, legacy)
	assert.Equal(t, "written before encryption", revealed.Content)
	assert.Equal(t, "Kim", *revealed.AuthorName)
}

func TestUpdateCard(t *testing.T) {
	conn := newTestDB(t)
	b := newBoard(t, conn, "abc")
	other := newBoard(t, conn, "xyz")
	svc := newService(conn, cipher.Noop{})
	ctx := context.Background()

	c, err := svc.CreateCard(ctx, b.ID, card.DidntGoWell, "flaky ci", nil)
	require.NoError(t, err)

	updated, err := svc.UpdateCard(ctx, b.ID, c.ID, "flaky ci, again")
	require.NoError(t, err)
	assert.Equal(t, "flaky ci, again", updated.Content)
	assert.Equal(t, card.DidntGoWell, updated.ColumnType)

	_, err = svc.UpdateCard(ctx, other.ID, c.ID, "hijack")
	assert.ErrorIs(t, err, card.ErrCardNotFound)
}

func TestCreateCardRequiresLiveBoard(t *testing.T) {
	conn := newTestDB(t)
	svc := newService(conn, cipher.Noop{})

	_, err := svc.CreateCard(context.Background(), "3f2b9c1e-8d4a-4e1b-9c3d-2a1b0c9d8e7f", card.WentWell, "orphan", nil)
	assert.Error(t, err)
}

func TestCreateCommentScopedToBoard(t *testing.T) {
	conn := newTestDB(t)
	b := newBoard(t, conn, "abc")
	other := newBoard(t, conn, "xyz")
	svc := newService(conn, cipher.Noop{})
	ctx := context.Background()

	c, err := svc.CreateCard(ctx, b.ID, card.WentWell, "pairing", nil)
	require.NoError(t, err)

	comment, err := svc.CreateComment(ctx, b.ID, c.ID, "+1", nil)
	require.NoError(t, err)
	assert.Equal(t, c.ID, comment.CardID)
	assert.Nil(t, comment.AuthorName)

	_, err = svc.CreateComment(ctx, other.ID, c.ID, "+1", nil)
	assert.ErrorIs(t, err, card.ErrCardNotFound)
}

func TestColumnCheckConstraint(t *testing.T) {
	conn := newTestDB(t)
	b := newBoard(t, conn, "abc")

	err := conn.Create(&card.Card{BoardID: b.ID, ColumnType: "meh", Content: "x"}).Error
	assert.Error(t, err)
}
