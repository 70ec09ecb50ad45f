package seeder

import (
	"errors"

	"retro/internal/app/board"
	"retro/internal/app/card"
	"retro/internal/cipher"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const DemoSlug = "demo"

type Seeder struct {
	db     *gorm.DB
	cipher cipher.Cipher
	logger *zap.Logger
}

func NewSeeder(db *gorm.DB, c cipher.Cipher, logger *zap.Logger) *Seeder {
	return &Seeder{
		db:     db,
		cipher: c,
		logger: logger,
	}
}

func (s *Seeder) Seed() error {
	s.logger.Info("Running database seeders...")

	if err := s.seedDemoBoard(); err != nil {
		return err
	}

	s.logger.Info("Database seeders completed successfully")
	return nil
}

// seedDemoBoard recreates the demo board when it is missing, for instance
// after the sweeper removed it.
func (s *Seeder) seedDemoBoard() error {
	err := s.db.Where("slug = ?", DemoSlug).First(&board.Board{}).Error
	if err == nil {
		s.logger.Info("Demo board already exists, skipping seed")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	cards := []struct {
		column  card.ColumnType
		content string
	}{
		{card.WentWell, "Shipped the release on time"},
		{card.DidntGoWell, "Too many meetings"},
		{card.Improve, "Write the retro notes down"},
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		demo := &board.Board{Slug: DemoSlug, Title: "Demo retrospective"}
		if err := tx.Create(demo).Error; err != nil {
			return err
		}
		for _, c := range cards {
			content, err := s.cipher.Encrypt(c.content)
			if err != nil {
				return err
			}
			row := &card.Card{BoardID: demo.ID, ColumnType: c.column, Content: content}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		}
		s.logger.Info("Seeded demo board", zap.String("slug", DemoSlug), zap.Int("cards", len(cards)))
		return nil
	})
}
