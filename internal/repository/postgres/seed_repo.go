package postgres

import (
	"context"
	"fmt"

	"github.com/dom/puckquery/internal/domain"
	"gorm.io/gorm"
)

const seedBatchSize = 500

type seedRepository struct {
	db *gorm.DB
}

func NewSeedRepository(db *gorm.DB) *seedRepository {
	return &seedRepository{db: db}
}

// ReplaceAll drops and recreates the event model tables and inserts the
// given entities. Events get their GameID from the game with the same
// identity. Any failure rolls the whole replacement back.
func (r *seedRepository) ReplaceAll(ctx context.Context, teams []*domain.Team, players []*domain.Player, games []*domain.Game, events []*domain.Event) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		models := EventModels()
		if err := tx.Migrator().DropTable(models...); err != nil {
			return fmt.Errorf("drop tables: %w", err)
		}
		if err := tx.AutoMigrate(models...); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}

		if len(teams) > 0 {
			if err := tx.CreateInBatches(teams, seedBatchSize).Error; err != nil {
				return fmt.Errorf("insert teams: %w", err)
			}
		}
		if len(players) > 0 {
			if err := tx.CreateInBatches(players, seedBatchSize).Error; err != nil {
				return fmt.Errorf("insert players: %w", err)
			}
		}
		if len(games) > 0 {
			if err := tx.CreateInBatches(games, seedBatchSize).Error; err != nil {
				return fmt.Errorf("insert games: %w", err)
			}
		}

		gameIDs := make(map[string]uint, len(games))
		for _, g := range games {
			gameIDs[g.Identity().Key()] = g.ID
		}
		for _, e := range events {
			id, ok := gameIDs[e.Identity().Key()]
			if !ok {
				return fmt.Errorf("event references unknown game %s", e.Identity())
			}
			e.GameID = id
		}

		if len(events) > 0 {
			if err := tx.CreateInBatches(events, seedBatchSize).Error; err != nil {
				return fmt.Errorf("insert events: %w", err)
			}
		}
		return nil
	})
}
