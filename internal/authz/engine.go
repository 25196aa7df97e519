package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/teamscope/teamscope/internal/membership"
	"github.com/teamscope/teamscope/internal/role"
	"github.com/teamscope/teamscope/internal/scope"
)

// Principal is the authenticated caller as seen by the engine. IsAdmin is
// the break-glass flag: it satisfies every check unconditionally.
type Principal struct {
	ID      uuid.UUID
	IsAdmin bool
}

// RoleLookup resolves a user's role within a team. Satisfied by
// membership.Repository.
type RoleLookup interface {
	GetRole(ctx context.Context, userID, teamID uuid.UUID) (role.Role, error)
}

// PolicyOverride lets a caller short-circuit the decision algorithm. It is
// injected at construction, never switched on an environment variable, so
// production and test code paths stay statically distinguishable. Returning
// ok=false falls through to the normal algorithm.
type PolicyOverride func(p *Principal, required role.Role, sc scope.Scope, req Request) (verdict error, ok bool)

// Engine issues allow/deny verdicts for single operations. It is stateless
// and mutates nothing; all state lives behind the RoleLookup.
type Engine struct {
	memberships RoleLookup
	override    PolicyOverride
}

// Option configures an Engine.
type Option func(*Engine)

// WithPolicyOverride installs a PolicyOverride hook.
func WithPolicyOverride(fn PolicyOverride) Option {
	return func(e *Engine) { e.override = fn }
}

// NewEngine creates an Engine backed by the given membership lookup.
func NewEngine(memberships RoleLookup, opts ...Option) *Engine {
	e := &Engine{memberships: memberships}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Authorize decides whether the principal may perform the operation described
// by (required, sc, req). A nil return means allow. Denials come back as
// *DeniedError, caller errors as *MalformedRequestError or
// ErrUnauthenticated; anything else is an infrastructure failure from the
// lookup. An unknown scope value is a configuration bug and panics.
func (e *Engine) Authorize(ctx context.Context, p *Principal, required role.Role, sc scope.Scope, req Request, opts Options) error {
	if p == nil {
		return ErrUnauthenticated
	}

	if e.override != nil {
		if verdict, ok := e.override(p, required, sc, req); ok {
			return verdict
		}
	}

	if p.IsAdmin {
		return nil
	}

	switch sc {
	case scope.Global:
		if req.IsRead() && opts.AllowReadForAll {
			return nil
		}
		return &DeniedError{Reason: "Global Admin access required"}

	case scope.Team:
		teamID, ok := extractID(req, opts.teamIDFields())
		if !ok {
			return &MalformedRequestError{Identifier: "teamId"}
		}

		actual, err := e.memberships.GetRole(ctx, p.ID, teamID)
		if err != nil {
			if errors.Is(err, membership.ErrNotMember) {
				return &DeniedError{Reason: "not a member of this team"}
			}
			return fmt.Errorf("looking up team role: %w", err)
		}

		if !role.Meets(actual, required) {
			return &DeniedError{
				Reason:       fmt.Sprintf("requires role %s or higher, have %s", required, actual),
				RequiredRole: required,
				ActualRole:   actual,
			}
		}
		return nil

	case scope.User:
		targetID, ok := extractID(req, opts.userIDFields())
		if !ok {
			return &MalformedRequestError{Identifier: "userId"}
		}

		if p.ID == targetID {
			return nil
		}
		return &DeniedError{Reason: "can only access your own data"}

	default:
		panic(fmt.Sprintf("authz: unknown scope %q", sc))
	}
}
