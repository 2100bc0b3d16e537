package repository

import (
	"context"
	"time"

	"github.com/dom/puckquery/internal/domain"
	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByDisplayName(ctx context.Context, displayName string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, user *domain.User) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *domain.UserSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.UserSession, error)
	Update(ctx context.Context, session *domain.UserSession) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
	// DeleteExpired removes sessions that expired at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type TeamRepository interface {
	GetAll(ctx context.Context) ([]*domain.Team, error)
}

type PlayerRepository interface {
	List(ctx context.Context, limit int) ([]*domain.Player, error)
}

type GameRepository interface {
	GetAll(ctx context.Context) ([]*domain.Game, error)
	GetByID(ctx context.Context, id uint) (*domain.Game, error)
}

type EventRepository interface {
	// Create and Update attach the event to the game named by its identity,
	// creating that game when it does not exist yet.
	Create(ctx context.Context, event *domain.Event) error
	Update(ctx context.Context, event *domain.Event) error
	// Delete removes the event and, when it was the last one, its game.
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*domain.Event, error)
	List(ctx context.Context, offset, limit int) ([]*domain.Event, error)
	ListByGame(ctx context.Context, gameID uint) ([]*domain.Event, error)
	// Coordinates returns x/y of the game's events whose type matches
	// eventType case-insensitively, optionally limited to one team.
	Coordinates(ctx context.Context, gameID uint, eventType, team string) ([]domain.Coordinate, error)
	DistinctTypes(ctx context.Context) ([]string, error)
}

type QueryLogRepository interface {
	Create(ctx context.Context, entry *domain.QueryLog) error
	ListByGame(ctx context.Context, game domain.GameIdentity, limit int) ([]*domain.QueryLog, error)
}

// SeedRepository replaces the whole event model in one transaction.
type SeedRepository interface {
	ReplaceAll(ctx context.Context, teams []*domain.Team, players []*domain.Player, games []*domain.Game, events []*domain.Event) error
}

type Repositories struct {
	User     UserRepository
	Session  SessionRepository
	Team     TeamRepository
	Player   PlayerRepository
	Game     GameRepository
	Event    EventRepository
	QueryLog QueryLogRepository
	Seed     SeedRepository
}
