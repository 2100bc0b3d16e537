package domain

import "strings"

// RawEvent is one row of the play-by-play export.
type RawEvent struct {
	GameDate        string  `json:"game_date" gorm:"not null;index:idx_event_game_identity"`
	HomeTeam        string  `json:"home_team" gorm:"not null;index:idx_event_game_identity"`
	AwayTeam        string  `json:"away_team" gorm:"not null;index:idx_event_game_identity"`
	Period          int     `json:"period"`
	Clock           string  `json:"clock"`
	HomeTeamSkaters int     `json:"home_team_skaters"`
	AwayTeamSkaters int     `json:"away_team_skaters"`
	HomeTeamGoals   int     `json:"home_team_goals"`
	AwayTeamGoals   int     `json:"away_team_goals"`
	Team            string  `json:"team"`
	Player          string  `json:"player"`
	Event           string  `json:"event"`
	XCoordinate     *int    `json:"x_coordinate"`
	YCoordinate     *int    `json:"y_coordinate"`
	Detail1         *string `json:"detail_1" gorm:"column:detail_1"`
	Detail2         *string `json:"detail_2" gorm:"column:detail_2"`
	Detail3         *string `json:"detail_3" gorm:"column:detail_3"`
	Detail4         *string `json:"detail_4" gorm:"column:detail_4"`
	Player2         *string `json:"player_2" gorm:"column:player_2"`
	XCoordinate2    *int    `json:"x_coordinate_2" gorm:"column:x_coordinate_2"`
	YCoordinate2    *int    `json:"y_coordinate_2" gorm:"column:y_coordinate_2"`
}

// Identity returns the game this row belongs to.
func (e RawEvent) Identity() GameIdentity {
	return GameIdentity{GameDate: e.GameDate, HomeTeam: e.HomeTeam, AwayTeam: e.AwayTeam}
}

// IsType reports whether the event type matches kind, ignoring case.
func (e RawEvent) IsType(kind string) bool {
	return strings.EqualFold(strings.TrimSpace(e.Event), kind)
}

// Validate checks the fields every stored event needs.
func (e RawEvent) Validate() error {
	if strings.TrimSpace(e.GameDate) == "" || strings.TrimSpace(e.HomeTeam) == "" || strings.TrimSpace(e.AwayTeam) == "" {
		return ErrMissingGameIdentity
	}
	if strings.TrimSpace(e.Event) == "" {
		return ErrMissingEventType
	}
	return nil
}

// Event is a persisted RawEvent. GameID is assigned at ingestion from the
// game identity triple.
type Event struct {
	ID       uint `json:"id" gorm:"primaryKey"`
	GameID   uint `json:"game_id" gorm:"index"`
	RawEvent `gorm:"embedded"`
}

func (Event) TableName() string { return "events" }

// Event types the density endpoints filter on.
const (
	EventTypeShot = "shot"
	EventTypeGoal = "goal"
)

// Coordinate is a single (x, y) rink location.
type Coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}
