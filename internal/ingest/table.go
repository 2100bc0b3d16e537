// Package ingest loads the play-by-play export into an in-memory table and
// provides the game-scoped views the query cache hands to the engine.
package ingest

import (
	"sort"
	"strings"

	"github.com/dom/puckquery/internal/domain"
)

// Table is an immutable, ordered set of raw event rows.
type Table struct {
	rows []domain.RawEvent
}

// NewTable wraps rows. The slice is copied so later changes by the caller do
// not leak into the table.
func NewTable(rows []domain.RawEvent) *Table {
	cp := make([]domain.RawEvent, len(rows))
	copy(cp, rows)
	return &Table{rows: cp}
}

// Len returns the number of rows. A nil table is empty.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Rows returns the rows in source order. Callers must not modify the result.
func (t *Table) Rows() []domain.RawEvent {
	if t == nil {
		return nil
	}
	return t.rows
}

// Scope returns the rows whose game identity equals id exactly, preserving
// source order. A game with no rows yields an empty table, not an error.
func (t *Table) Scope(id domain.GameIdentity) *Table {
	scoped := &Table{}
	for _, row := range t.Rows() {
		if row.GameDate == id.GameDate && row.HomeTeam == id.HomeTeam && row.AwayTeam == id.AwayTeam {
			scoped.rows = append(scoped.rows, row)
		}
	}
	return scoped
}

// Games returns the distinct game identities in order of first appearance.
func (t *Table) Games() []domain.GameIdentity {
	seen := make(map[string]struct{})
	var games []domain.GameIdentity
	for _, row := range t.Rows() {
		id := row.Identity()
		if _, ok := seen[id.Key()]; ok {
			continue
		}
		seen[id.Key()] = struct{}{}
		games = append(games, id)
	}
	return games
}

// TeamNames returns the sorted union of the home_team, away_team and team
// columns. Blank values are skipped.
func (t *Table) TeamNames() []string {
	set := make(map[string]struct{})
	for _, row := range t.Rows() {
		for _, name := range []string{row.HomeTeam, row.AwayTeam, row.Team} {
			if strings.TrimSpace(name) == "" {
				continue
			}
			set[name] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// PlayerNames returns the sorted union of the player and player_2 columns,
// trimmed, with blanks discarded.
func (t *Table) PlayerNames() []string {
	set := make(map[string]struct{})
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name != "" {
			set[name] = struct{}{}
		}
	}
	for _, row := range t.Rows() {
		add(row.Player)
		if row.Player2 != nil {
			add(*row.Player2)
		}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
