package resolver

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/teamscope/teamscope/internal/auth"
	"github.com/teamscope/teamscope/internal/membership"
	"github.com/teamscope/teamscope/internal/module"
	"github.com/teamscope/teamscope/internal/moduleconfig"
	"github.com/teamscope/teamscope/internal/role"
	"github.com/teamscope/teamscope/internal/scope"
)

// TeamAccess is one team through which a user can reach a module.
type TeamAccess struct {
	TeamID   uuid.UUID
	TeamName string
	Scope    scope.Scope
	UserRole role.Role
}

// EffectiveModule is the resolved, user-specific access decision for one
// module. It is computed at query time and never persisted.
type EffectiveModule struct {
	Module         *module.Definition
	IsAccessible   bool
	EffectiveScope scope.Scope
	// EnabledTeams lists every qualifying team, not just the one whose
	// scope won; the admin UI renders this breakdown.
	EnabledTeams []TeamAccess
}

// ConfigStore is the slice of the config repository the resolver reads.
type ConfigStore interface {
	ListForTeams(ctx context.Context, teamIDs []uuid.UUID) ([]moduleconfig.Config, error)
}

// MembershipLookup enumerates a user's teams. Satisfied by membership.Repository.
type MembershipLookup interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]membership.UserTeam, error)
}

// UserLookup resolves user records. Satisfied by auth.UserRepository.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*auth.User, error)
}

// Resolver computes per-user, per-module access decisions by aggregating the
// module registry, team module configs, and team memberships.
type Resolver struct {
	registry    *module.Registry
	configs     ConfigStore
	memberships MembershipLookup
	users       UserLookup
}

// New creates a Resolver.
func New(registry *module.Registry, configs ConfigStore, memberships MembershipLookup, users UserLookup) *Resolver {
	return &Resolver{
		registry:    registry,
		configs:     configs,
		memberships: memberships,
		users:       users,
	}
}

type configKey struct {
	teamID   uuid.UUID
	moduleID string
}

// Resolve computes the effective access decision for every registered
// module. Unknown users surface auth.ErrUserNotFound.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID) ([]EffectiveModule, error) {
	u, teams, idx, err := r.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	defs := r.registry.All()
	result := make([]EffectiveModule, 0, len(defs))
	for _, def := range defs {
		result = append(result, effective(def, u.IsAdmin, teams, idx))
	}
	return result, nil
}

// ResolveOne computes the effective access decision for a single module.
// Unknown module ids surface module.ErrModuleNotFound.
func (r *Resolver) ResolveOne(ctx context.Context, userID uuid.UUID, moduleID string) (*EffectiveModule, error) {
	def, err := r.registry.Get(moduleID)
	if err != nil {
		return nil, err
	}

	u, teams, idx, err := r.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	em := effective(def, u.IsAdmin, teams, idx)
	return &em, nil
}

// load fetches the user, their teams, and all configs for those teams.
func (r *Resolver) load(ctx context.Context, userID uuid.UUID) (*auth.User, []membership.UserTeam, map[configKey]*moduleconfig.Config, error) {
	u, err := r.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, nil, err
	}

	teams, err := r.memberships.ListForUser(ctx, userID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("listing user teams: %w", err)
	}

	idx := map[configKey]*moduleconfig.Config{}
	if len(teams) > 0 {
		teamIDs := make([]uuid.UUID, len(teams))
		for i, t := range teams {
			teamIDs[i] = t.TeamID
		}

		configs, err := r.configs.ListForTeams(ctx, teamIDs)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("listing module configs: %w", err)
		}
		for i := range configs {
			c := &configs[i]
			idx[configKey{c.TeamID, c.ModuleID}] = c
		}
	}

	return u, teams, idx, nil
}

// effective applies the per-module algorithm: a module is accessible when it
// is enabled in at least one of the user's teams, and the widest enabled
// scope wins (GLOBAL over TEAM over USER). Additional TEAM-scoped teams only
// enlarge EnabledTeams, never the effective scope. A global admin
// short-circuits to fully accessible at GLOBAL scope.
func effective(def *module.Definition, isAdmin bool, teams []membership.UserTeam, idx map[configKey]*moduleconfig.Config) EffectiveModule {
	enabled := []TeamAccess{}
	for _, t := range teams {
		on, sc := def.DefaultEnabled, def.DefaultScope
		if cfg, ok := idx[configKey{t.TeamID, def.ID}]; ok {
			on = cfg.IsEnabled
			sc = cfg.Scope.Resolve(def.DefaultScope)
		}
		if on {
			enabled = append(enabled, TeamAccess{
				TeamID:   t.TeamID,
				TeamName: t.TeamName,
				Scope:    sc,
				UserRole: t.Role,
			})
		}
	}

	em := EffectiveModule{Module: def, EnabledTeams: enabled}

	switch {
	case def.AdminOnly:
		if isAdmin {
			em.IsAccessible = true
			em.EffectiveScope = scope.Global
		}
	case isAdmin:
		em.IsAccessible = true
		em.EffectiveScope = scope.Global
	case len(enabled) > 0:
		em.IsAccessible = true
		em.EffectiveScope = enabled[0].Scope
		for _, ta := range enabled[1:] {
			em.EffectiveScope = scope.Wider(em.EffectiveScope, ta.Scope)
		}
	}

	return em
}
