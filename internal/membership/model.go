package membership

import (
	"time"

	"github.com/google/uuid"

	"github.com/teamscope/teamscope/internal/role"
)

// Membership represents a row in the team_memberships table. A user holds at
// most one membership per team, each with an independent role.
type Membership struct {
	UserID    uuid.UUID
	TeamID    uuid.UUID
	Role      role.Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserTeam is a membership joined with its team name, as consumed by the
// effective module resolver.
type UserTeam struct {
	TeamID   uuid.UUID
	TeamName string
	Role     role.Role
}

// TeamMember is a membership joined with its user name, as rendered by the
// team member listing.
type TeamMember struct {
	UserID   uuid.UUID
	UserName string
	Role     role.Role
}
