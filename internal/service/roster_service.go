package service

import (
	"context"

	"github.com/dom/puckquery/internal/domain"
	"github.com/dom/puckquery/internal/repository"
)

type RosterService struct {
	teamRepo   repository.TeamRepository
	playerRepo repository.PlayerRepository
}

func NewRosterService(teamRepo repository.TeamRepository, playerRepo repository.PlayerRepository) *RosterService {
	return &RosterService{
		teamRepo:   teamRepo,
		playerRepo: playerRepo,
	}
}

func (s *RosterService) Teams(ctx context.Context) ([]*domain.Team, error) {
	return s.teamRepo.GetAll(ctx)
}

// Players lists players by name; limit <= 0 means no limit.
func (s *RosterService) Players(ctx context.Context, limit int) ([]*domain.Player, error) {
	return s.playerRepo.List(ctx, limit)
}
