package postgres

import (
	"context"

	"github.com/dom/puckquery/internal/domain"
	"gorm.io/gorm"
)

type teamRepository struct {
	db *gorm.DB
}

func NewTeamRepository(db *gorm.DB) *teamRepository {
	return &teamRepository{db: db}
}

func (r *teamRepository) GetAll(ctx context.Context) ([]*domain.Team, error) {
	var teams []*domain.Team
	err := r.db.WithContext(ctx).Order("name ASC").Find(&teams).Error
	if err != nil {
		return nil, err
	}
	return teams, nil
}

type playerRepository struct {
	db *gorm.DB
}

func NewPlayerRepository(db *gorm.DB) *playerRepository {
	return &playerRepository{db: db}
}

// List returns players by name. A non-positive limit returns all of them.
func (r *playerRepository) List(ctx context.Context, limit int) ([]*domain.Player, error) {
	var players []*domain.Player
	query := r.db.WithContext(ctx).Order("name ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&players).Error; err != nil {
		return nil, err
	}
	return players, nil
}
