package service

import (
	"github.com/dom/puckquery/internal/config"
	"github.com/dom/puckquery/internal/repository"
	"github.com/sirupsen/logrus"
)

type Services struct {
	Auth   *AuthService
	Seed   *SeedService
	Game   *GameService
	Event  *EventService
	Roster *RosterService
	Chat   *ChatService
}

// NewServices wires the services. answerer also receives every table loaded
// by the seed service when it implements TableSink.
func NewServices(repos *repository.Repositories, answerer QueryAnswerer, cfg *config.Config, log logrus.FieldLogger) *Services {
	sink, _ := answerer.(TableSink)
	return &Services{
		Auth:   NewAuthService(repos.User, repos.Session, cfg, log),
		Seed:   NewSeedService(repos.Seed, sink, cfg, log),
		Game:   NewGameService(repos.Game, repos.Event),
		Event:  NewEventService(repos.Event),
		Roster: NewRosterService(repos.Team, repos.Player),
		Chat:   NewChatService(answerer, repos.QueryLog, repos.Game, log),
	}
}
