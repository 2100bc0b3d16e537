package domain

import "strings"

// GameIdentity is the (game_date, home_team, away_team) triple that names a
// match. Fields are compared as exact strings.
type GameIdentity struct {
	GameDate string `json:"game_date"`
	HomeTeam string `json:"home_team"`
	AwayTeam string `json:"away_team"`
}

// keySeparator cannot appear in CSV-sourced team names or dates.
const keySeparator = "\x1f"

// Key is the string form used for map and cache lookups. No normalization is
// applied, so "2023" and "2023-01-01" are different keys.
func (g GameIdentity) Key() string {
	return g.GameDate + keySeparator + g.HomeTeam + keySeparator + g.AwayTeam
}

func (g GameIdentity) String() string {
	return g.GameDate + " " + g.HomeTeam + " vs " + g.AwayTeam
}

// Validate ensures all three parts are present.
func (g GameIdentity) Validate() error {
	if strings.TrimSpace(g.GameDate) == "" || strings.TrimSpace(g.HomeTeam) == "" || strings.TrimSpace(g.AwayTeam) == "" {
		return ErrMissingGameIdentity
	}
	return nil
}

type Game struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	GameDate string `json:"game_date" gorm:"not null;uniqueIndex:idx_game_identity"`
	HomeTeam string `json:"home_team" gorm:"not null;uniqueIndex:idx_game_identity"`
	AwayTeam string `json:"away_team" gorm:"not null;uniqueIndex:idx_game_identity"`
}

func (Game) TableName() string { return "games" }

func (g Game) Identity() GameIdentity {
	return GameIdentity{GameDate: g.GameDate, HomeTeam: g.HomeTeam, AwayTeam: g.AwayTeam}
}

// ExportFilename is the attachment name for a full game export,
// e.g. "2022-02-03_Olympic_(Women)_-_Finland_vs_Olympic_(Women)_-_USA.json".
func (g Game) ExportFilename() string {
	home := strings.ReplaceAll(g.HomeTeam, " ", "_")
	away := strings.ReplaceAll(g.AwayTeam, " ", "_")
	return g.GameDate + "_" + home + "_vs_" + away + ".json"
}

// GameExport is the payload of the export endpoint.
type GameExport struct {
	Game   Game    `json:"game"`
	Events []Event `json:"events"`
}
