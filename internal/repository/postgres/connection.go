package postgres

import (
	"github.com/dom/puckquery/internal/domain"
	"github.com/dom/puckquery/internal/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// EventModels are the tables rebuilt on every seed, in insert order.
func EventModels() []any {
	return []any{
		&domain.Team{},
		&domain.Player{},
		&domain.Game{},
		&domain.Event{},
		&domain.QueryLog{},
	}
}

// Models are all tables owned by the service.
func Models() []any {
	return append([]any{
		&domain.User{},
		&domain.UserSession{},
	}, EventModels()...)
}

func NewConnection(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// Auto-migrate tables
	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, err
	}

	return db, nil
}

func NewRepositories(db *gorm.DB) *repository.Repositories {
	return &repository.Repositories{
		User:     NewUserRepository(db),
		Session:  NewSessionRepository(db),
		Team:     NewTeamRepository(db),
		Player:   NewPlayerRepository(db),
		Game:     NewGameRepository(db),
		Event:    NewEventRepository(db),
		QueryLog: NewQueryLogRepository(db),
		Seed:     NewSeedRepository(db),
	}
}
