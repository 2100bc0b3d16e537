package postgres

import (
	"context"
	"errors"
	"slices"

	"github.com/dom/puckquery/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *eventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, event *domain.Event) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		gameID, err := findOrCreateGame(tx, event.Identity())
		if err != nil {
			return err
		}
		event.GameID = gameID
		return tx.Create(event).Error
	})
}

func (r *eventRepository) Update(ctx context.Context, event *domain.Event) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.Event
		if err := tx.First(&existing, "id = ?", event.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrEventNotFound
			}
			return err
		}

		gameID, err := findOrCreateGame(tx, event.Identity())
		if err != nil {
			return err
		}
		event.GameID = gameID
		if err := tx.Save(event).Error; err != nil {
			return err
		}

		if existing.GameID != gameID {
			return deleteGameIfEmpty(tx, existing.GameID)
		}
		return nil
	})
}

func (r *eventRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.Event
		if err := tx.First(&existing, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrEventNotFound
			}
			return err
		}
		if err := tx.Delete(&domain.Event{}, "id = ?", id).Error; err != nil {
			return err
		}
		return deleteGameIfEmpty(tx, existing.GameID)
	})
}

func (r *eventRepository) GetByID(ctx context.Context, id uint) (*domain.Event, error) {
	var event domain.Event
	err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) List(ctx context.Context, offset, limit int) ([]*domain.Event, error) {
	var events []*domain.Event
	err := r.db.WithContext(ctx).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) ListByGame(ctx context.Context, gameID uint) ([]*domain.Event, error) {
	var events []*domain.Event
	err := r.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("id ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) Coordinates(ctx context.Context, gameID uint, eventType, team string) ([]domain.Coordinate, error) {
	query := r.db.WithContext(ctx).
		Model(&domain.Event{}).
		Select("x_coordinate AS x, y_coordinate AS y").
		Where("game_id = ?", gameID).
		Where("event ILIKE ?", eventType).
		Where("x_coordinate IS NOT NULL AND y_coordinate IS NOT NULL")
	if team != "" {
		query = query.Where("team = ?", team)
	}

	var coords []domain.Coordinate
	if err := query.Order("id ASC").Scan(&coords).Error; err != nil {
		return nil, err
	}
	return coords, nil
}

func (r *eventRepository) DistinctTypes(ctx context.Context) ([]string, error) {
	var types []string
	err := r.db.WithContext(ctx).
		Model(&domain.Event{}).
		Where("event <> ''").
		Distinct("event").
		Pluck("event", &types).Error
	if err != nil {
		return nil, err
	}
	// Byte order, independent of the database collation.
	slices.Sort(types)
	return types, nil
}

// findOrCreateGame returns the id of the game with the given identity,
// inserting it when missing.
func findOrCreateGame(tx *gorm.DB, id domain.GameIdentity) (uint, error) {
	game := domain.Game{GameDate: id.GameDate, HomeTeam: id.HomeTeam, AwayTeam: id.AwayTeam}
	err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&game).Error
	if err != nil {
		return 0, err
	}
	if game.ID != 0 {
		return game.ID, nil
	}
	err = tx.Where("game_date = ? AND home_team = ? AND away_team = ?", id.GameDate, id.HomeTeam, id.AwayTeam).
		First(&game).Error
	if err != nil {
		return 0, err
	}
	return game.ID, nil
}

func deleteGameIfEmpty(tx *gorm.DB, gameID uint) error {
	var remaining int64
	if err := tx.Model(&domain.Event{}).Where("game_id = ?", gameID).Count(&remaining).Error; err != nil {
		return err
	}
	if remaining > 0 {
		return nil
	}
	return tx.Delete(&domain.Game{}, "id = ?", gameID).Error
}
