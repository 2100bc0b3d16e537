package postgres

import (
	"context"

	"github.com/dom/puckquery/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type queryLogRepository struct {
	db *gorm.DB
}

func NewQueryLogRepository(db *gorm.DB) *queryLogRepository {
	return &queryLogRepository{db: db}
}

func (r *queryLogRepository) Create(ctx context.Context, entry *domain.QueryLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByGame returns the most recent entries first.
func (r *queryLogRepository) ListByGame(ctx context.Context, game domain.GameIdentity, limit int) ([]*domain.QueryLog, error) {
	var entries []*domain.QueryLog
	err := r.db.WithContext(ctx).
		Where("game_date = ? AND home_team = ? AND away_team = ?", game.GameDate, game.HomeTeam, game.AwayTeam).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
