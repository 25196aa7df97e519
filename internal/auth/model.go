package auth

import (
	"time"

	"github.com/google/uuid"
)

// User represents a row in the users table. Team roles are held in
// team_memberships; IsAdmin is the break-glass flag that bypasses every
// scope check.
type User struct {
	ID           uuid.UUID
	Name         string
	IsAdmin      bool
	ApiKeyPrefix string
	ApiKeyHash   string
	CreatedAt    time.Time
	RevokedAt    *time.Time
}

// Identity is stored in the request context after authentication.
type Identity struct {
	UserID   uuid.UUID
	UserName string
	IsAdmin  bool
}
