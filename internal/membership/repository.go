package membership

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/teamscope/teamscope/internal/role"
)

// ErrNotMember is returned when a user has no membership in the given team.
var ErrNotMember = errors.New("user is not a member of this team")

// ErrAlreadyMember is returned when adding a membership that already exists.
var ErrAlreadyMember = errors.New("user is already a member of this team")

// ErrUnknownReference is returned when the user or team referenced by a
// membership does not exist.
var ErrUnknownReference = errors.New("user or team does not exist")

// Repository provides operations on the team_memberships table.
type Repository interface {
	Add(ctx context.Context, m *Membership) error
	GetRole(ctx context.Context, userID, teamID uuid.UUID) (role.Role, error)
	UpdateRole(ctx context.Context, userID, teamID uuid.UUID, r role.Role) error
	Remove(ctx context.Context, userID, teamID uuid.UUID) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]UserTeam, error)
	ListForTeam(ctx context.Context, teamID uuid.UUID) ([]TeamMember, error)
}
