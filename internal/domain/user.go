package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is what an account may do beyond reading games and chatting, which is
// open to everyone.
type Role string

const (
	// RoleViewer can look at its own account only.
	RoleViewer Role = "viewer"
	// RoleAnalyst can also correct the event log.
	RoleAnalyst Role = "analyst"
	// RoleAdmin can also manage the query cache and other accounts.
	RoleAdmin Role = "admin"
)

var roleRank = map[Role]int{
	RoleViewer:  1,
	RoleAnalyst: 2,
	RoleAdmin:   3,
}

func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Allows reports whether r includes every capability of required.
func (r Role) Allows(required Role) bool {
	return r.Valid() && required.Valid() && roleRank[r] >= roleRank[required]
}

type User struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	PasswordHash string     `json:"-" gorm:"not null"`
	DisplayName  string     `json:"displayName" gorm:"uniqueIndex;not null"`
	Role         Role       `json:"role" gorm:"type:varchar(16);not null;default:'viewer'"`
	LastLoginAt  *time.Time `json:"lastLoginAt"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// UserSession backs one refresh token. Access tokens name their session, so
// deleting it revokes them too.
type UserSession struct {
	ID               uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID           uuid.UUID  `json:"userId" gorm:"type:uuid;not null;index"`
	RefreshTokenHash string     `json:"-" gorm:"not null"`
	ExpiresAt        time.Time  `json:"expiresAt" gorm:"not null;index"`
	RefreshedAt      *time.Time `json:"refreshedAt"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// Expired reports whether the session is past its expiry at now.
func (s UserSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
