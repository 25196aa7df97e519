package team

import (
	"time"

	"github.com/google/uuid"
)

// Team represents a row in the teams table. A principal's role within a
// team lives in the team_memberships table, not here.
type Team struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
