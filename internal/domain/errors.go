package domain

import "errors"

// Lookup errors
var (
	ErrGameNotFound    = errors.New("game not found")
	ErrEventNotFound   = errors.New("event not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("session not found")
)

// Event validation errors
var (
	ErrMissingGameIdentity = errors.New("game_date, home_team and away_team are required")
	ErrMissingEventType    = errors.New("event type is required")
)
