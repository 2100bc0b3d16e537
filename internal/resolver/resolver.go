package resolver

import (
	"fmt"

	"github.com/dom/puckquery/internal/domain"
	"github.com/dom/puckquery/internal/ingest"
)

// Entities is the normalized model derived from one table.
type Entities struct {
	Teams   []*domain.Team
	Players []*domain.Player
	Games   []*domain.Game
	Events  []*domain.Event
}

// Resolve derives teams, players, games and events from table. Teams and
// players come out sorted by name and games in order of first appearance, so
// the same table and seed always produce the same entities.
func Resolve(table *ingest.Table, declared ingest.JerseyNumbers, seed uint64) (*Entities, error) {
	teamNames := table.TeamNames()
	codes, err := AssignAbbreviations(teamNames)
	if err != nil {
		return nil, fmt.Errorf("assign abbreviations: %w", err)
	}

	playerNames := table.PlayerNames()
	numbers := AssignJerseyNumbers(playerNames, declared, NewJerseyRand(seed))

	out := &Entities{
		Teams:   make([]*domain.Team, 0, len(teamNames)),
		Players: make([]*domain.Player, 0, len(playerNames)),
		Events:  make([]*domain.Event, 0, table.Len()),
	}
	for _, name := range teamNames {
		out.Teams = append(out.Teams, &domain.Team{Name: name, Abbreviation: codes[name]})
	}
	for _, name := range playerNames {
		out.Players = append(out.Players, &domain.Player{Name: name, Number: numbers[name]})
	}
	for _, id := range table.Games() {
		out.Games = append(out.Games, &domain.Game{GameDate: id.GameDate, HomeTeam: id.HomeTeam, AwayTeam: id.AwayTeam})
	}
	for _, row := range table.Rows() {
		out.Events = append(out.Events, &domain.Event{RawEvent: row})
	}
	return out, nil
}
