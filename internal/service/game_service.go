package service

import (
	"context"

	"github.com/dom/puckquery/internal/domain"
	"github.com/dom/puckquery/internal/repository"
)

type GameService struct {
	gameRepo  repository.GameRepository
	eventRepo repository.EventRepository
}

func NewGameService(gameRepo repository.GameRepository, eventRepo repository.EventRepository) *GameService {
	return &GameService{
		gameRepo:  gameRepo,
		eventRepo: eventRepo,
	}
}

func (s *GameService) List(ctx context.Context) ([]*domain.Game, error) {
	return s.gameRepo.GetAll(ctx)
}

func (s *GameService) Get(ctx context.Context, id uint) (*domain.Game, error) {
	return s.gameRepo.GetByID(ctx, id)
}

func (s *GameService) Events(ctx context.Context, id uint) ([]*domain.Event, error) {
	if _, err := s.gameRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.eventRepo.ListByGame(ctx, id)
}

// ShotDensity returns the rink locations of the game's shots, optionally for
// one team only.
func (s *GameService) ShotDensity(ctx context.Context, id uint, team string) ([]domain.Coordinate, error) {
	return s.density(ctx, id, domain.EventTypeShot, team)
}

// GoalDensity returns the rink locations of the game's goals.
func (s *GameService) GoalDensity(ctx context.Context, id uint, team string) ([]domain.Coordinate, error) {
	return s.density(ctx, id, domain.EventTypeGoal, team)
}

func (s *GameService) density(ctx context.Context, id uint, eventType, team string) ([]domain.Coordinate, error) {
	if _, err := s.gameRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	coords, err := s.eventRepo.Coordinates(ctx, id, eventType, team)
	if err != nil {
		return nil, err
	}
	if coords == nil {
		coords = []domain.Coordinate{}
	}
	return coords, nil
}

func (s *GameService) Export(ctx context.Context, id uint) (*domain.GameExport, error) {
	game, err := s.gameRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	events, err := s.eventRepo.ListByGame(ctx, id)
	if err != nil {
		return nil, err
	}

	export := &domain.GameExport{Game: *game, Events: make([]domain.Event, 0, len(events))}
	for _, e := range events {
		export.Events = append(export.Events, *e)
	}
	return export, nil
}
