package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// QueryOutcome describes how a chat question was resolved.
type QueryOutcome string

const (
	OutcomeAnswered    QueryOutcome = "answered"
	OutcomeNoData      QueryOutcome = "no_data"
	OutcomeUnavailable QueryOutcome = "unavailable"
	OutcomeEngineError QueryOutcome = "engine_error"
	OutcomeTimeout     QueryOutcome = "timeout"
	OutcomeNoQuestion  QueryOutcome = "no_question"
)

// ChatMessage is one turn of a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// QueryLog records an answered chat request.
type QueryLog struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	GameDate  string         `json:"game_date" gorm:"not null;index:idx_query_log_game"`
	HomeTeam  string         `json:"home_team" gorm:"not null;index:idx_query_log_game"`
	AwayTeam  string         `json:"away_team" gorm:"not null;index:idx_query_log_game"`
	Question  string         `json:"question" gorm:"not null"`
	Answer    string         `json:"answer" gorm:"not null"`
	Outcome   QueryOutcome   `json:"outcome" gorm:"type:varchar(32);not null"`
	Messages  datatypes.JSON `json:"messages" gorm:"type:jsonb"`
	CreatedAt time.Time      `json:"created_at"`
}

func (QueryLog) TableName() string { return "query_logs" }

func (q QueryLog) Identity() GameIdentity {
	return GameIdentity{GameDate: q.GameDate, HomeTeam: q.HomeTeam, AwayTeam: q.AwayTeam}
}
