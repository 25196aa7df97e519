package resolver_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamscope/teamscope/internal/auth"
	"github.com/teamscope/teamscope/internal/membership"
	"github.com/teamscope/teamscope/internal/module"
	"github.com/teamscope/teamscope/internal/moduleconfig"
	"github.com/teamscope/teamscope/internal/resolver"
	"github.com/teamscope/teamscope/internal/role"
	"github.com/teamscope/teamscope/internal/scope"
)

// fixture assembles the resolver's three collaborators from plain maps.
type fixture struct {
	users   map[uuid.UUID]*auth.User
	teams   map[uuid.UUID][]membership.UserTeam
	configs []moduleconfig.Config
}

func newFixture() *fixture {
	return &fixture{
		users: map[uuid.UUID]*auth.User{},
		teams: map[uuid.UUID][]membership.UserTeam{},
	}
}

func (f *fixture) GetByID(_ context.Context, id uuid.UUID) (*auth.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return u, nil
}

func (f *fixture) ListForUser(_ context.Context, userID uuid.UUID) ([]membership.UserTeam, error) {
	teams := f.teams[userID]
	if teams == nil {
		teams = []membership.UserTeam{}
	}
	return teams, nil
}

func (f *fixture) ListForTeams(_ context.Context, teamIDs []uuid.UUID) ([]moduleconfig.Config, error) {
	var out []moduleconfig.Config
	for _, c := range f.configs {
		for _, id := range teamIDs {
			if c.TeamID == id {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (f *fixture) addUser(isAdmin bool) uuid.UUID {
	id := uuid.New()
	f.users[id] = &auth.User{ID: id, Name: "u-" + id.String()[:8], IsAdmin: isAdmin}
	return id
}

func (f *fixture) addMembership(userID uuid.UUID, teamName string, r role.Role) uuid.UUID {
	teamID := uuid.New()
	f.teams[userID] = append(f.teams[userID], membership.UserTeam{
		TeamID:   teamID,
		TeamName: teamName,
		Role:     r,
	})
	return teamID
}

func (f *fixture) addConfig(teamID uuid.UUID, moduleID string, enabled bool, s scope.Setting) {
	f.configs = append(f.configs, moduleconfig.Config{
		ID:        uuid.New(),
		TeamID:    teamID,
		ModuleID:  moduleID,
		IsEnabled: enabled,
		Scope:     s,
	})
}

func (f *fixture) resolver() *resolver.Resolver {
	return resolver.New(module.NewRegistry(), f, f, f)
}

// --- ResolveOne ---

func TestResolveOne_GlobalScopeWinsAcrossTeams(t *testing.T) {
	f := newFixture()
	userID := f.addUser(false)
	teamA := f.addMembership(userID, "alpha", role.Editor)
	teamB := f.addMembership(userID, "beta", role.Viewer)

	f.addConfig(teamA, "skills-matrix", true, scope.Explicit(scope.Global))
	f.addConfig(teamB, "skills-matrix", true, scope.Explicit(scope.Team))

	em, err := f.resolver().ResolveOne(context.Background(), userID, "skills-matrix")
	require.NoError(t, err)

	assert.True(t, em.IsAccessible)
	assert.Equal(t, scope.Global, em.EffectiveScope)
	require.Len(t, em.EnabledTeams, 2, "all qualifying teams are listed, not just the winner")

	byName := map[string]resolver.TeamAccess{}
	for _, ta := range em.EnabledTeams {
		byName[ta.TeamName] = ta
	}
	assert.Equal(t, scope.Global, byName["alpha"].Scope)
	assert.Equal(t, role.Editor, byName["alpha"].UserRole)
	assert.Equal(t, scope.Team, byName["beta"].Scope)
	assert.Equal(t, role.Viewer, byName["beta"].UserRole)
}

func TestResolveOne_MultipleTeamScopesStayTeam(t *testing.T) {
	f := newFixture()
	userID := f.addUser(false)
	teamA := f.addMembership(userID, "alpha", role.Editor)
	teamB := f.addMembership(userID, "beta", role.Editor)

	f.addConfig(teamA, "skills-matrix", true, scope.Explicit(scope.Team))
	f.addConfig(teamB, "skills-matrix", true, scope.Explicit(scope.Team))

	em, err := f.resolver().ResolveOne(context.Background(), userID, "skills-matrix")
	require.NoError(t, err)

	// more TEAM-scoped teams enlarge EnabledTeams, never the scope
	assert.Equal(t, scope.Team, em.EffectiveScope)
	assert.Len(t, em.EnabledTeams, 2)
}

func TestResolveOne_NoEnabledTeamInaccessibleDespiteMemberships(t *testing.T) {
	f := newFixture()
	userID := f.addUser(false)
	teamA := f.addMembership(userID, "alpha", role.Owner)
	f.addMembership(userID, "beta", role.Owner)

	f.addConfig(teamA, "skills-matrix", false, scope.Explicit(scope.Team))

	em, err := f.resolver().ResolveOne(context.Background(), userID, "skills-matrix")
	require.NoError(t, err)

	assert.False(t, em.IsAccessible)
	assert.Empty(t, em.EnabledTeams)
}

func TestResolveOne_AbsentConfigUsesModuleDefaults(t *testing.T) {
	f := newFixture()
	userID := f.addUser(false)
	f.addMembership(userID, "alpha", role.Viewer)

	r := f.resolver()

	// dashboard is default-enabled, so membership alone grants access at
	// the default scope
	em, err := r.ResolveOne(context.Background(), userID, "dashboard")
	require.NoError(t, err)
	assert.True(t, em.IsAccessible)
	assert.Equal(t, scope.Team, em.EffectiveScope)
	require.Len(t, em.EnabledTeams, 1)

	// skills-matrix requires an explicit enabling config
	em, err = r.ResolveOne(context.Background(), userID, "skills-matrix")
	require.NoError(t, err)
	assert.False(t, em.IsAccessible)
}

func TestResolveOne_ExplicitDisableOverridesDefaultEnabled(t *testing.T) {
	f := newFixture()
	userID := f.addUser(false)
	teamA := f.addMembership(userID, "alpha", role.Viewer)

	f.addConfig(teamA, "dashboard", false, scope.UseDefault)

	em, err := f.resolver().ResolveOne(context.Background(), userID, "dashboard")
	require.NoError(t, err)
	assert.False(t, em.IsAccessible)
}

func TestResolveOne_DeferredScopeResolvesToModuleDefault(t *testing.T) {
	f := newFixture()
	userID := f.addUser(false)
	teamA := f.addMembership(userID, "alpha", role.Editor)

	f.addConfig(teamA, "reference-projects", true, scope.UseDefault)

	em, err := f.resolver().ResolveOne(context.Background(), userID, "reference-projects")
	require.NoError(t, err)
	assert.True(t, em.IsAccessible)
	// reference-projects defaults to GLOBAL
	assert.Equal(t, scope.Global, em.EffectiveScope)
}

func TestResolveOne_AdminShortCircuits(t *testing.T) {
	f := newFixture()
	adminID := f.addUser(true)

	// no memberships at all
	em, err := f.resolver().ResolveOne(context.Background(), adminID, "skills-matrix")
	require.NoError(t, err)

	assert.True(t, em.IsAccessible)
	assert.Equal(t, scope.Global, em.EffectiveScope)
	assert.Empty(t, em.EnabledTeams)
}

func TestResolveOne_AdminOnlyModuleHiddenFromNonAdmins(t *testing.T) {
	f := newFixture()
	userID := f.addUser(false)
	f.addMembership(userID, "alpha", role.Owner)

	em, err := f.resolver().ResolveOne(context.Background(), userID, "user-administration")
	require.NoError(t, err)
	assert.False(t, em.IsAccessible)

	adminID := f.addUser(true)
	em, err = f.resolver().ResolveOne(context.Background(), adminID, "user-administration")
	require.NoError(t, err)
	assert.True(t, em.IsAccessible)
}

func TestResolveOne_UnknownModule(t *testing.T) {
	f := newFixture()
	userID := f.addUser(false)

	_, err := f.resolver().ResolveOne(context.Background(), userID, "nope")
	assert.ErrorIs(t, err, module.ErrModuleNotFound)
}

func TestResolveOne_UnknownUser(t *testing.T) {
	f := newFixture()

	_, err := f.resolver().ResolveOne(context.Background(), uuid.New(), "skills-matrix")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}

// --- Resolve ---

func TestResolve_CoversEveryRegisteredModule(t *testing.T) {
	f := newFixture()
	userID := f.addUser(false)

	modules, err := f.resolver().Resolve(context.Background(), userID)
	require.NoError(t, err)

	registry := module.NewRegistry()
	require.Len(t, modules, len(registry.All()))
	for i, def := range registry.All() {
		assert.Equal(t, def.ID, modules[i].Module.ID)
	}
}

func TestResolve_NoMembershipsNothingAccessible(t *testing.T) {
	f := newFixture()
	userID := f.addUser(false)

	modules, err := f.resolver().Resolve(context.Background(), userID)
	require.NoError(t, err)

	for _, em := range modules {
		assert.False(t, em.IsAccessible, "module %s", em.Module.ID)
	}
}

func TestResolve_UnknownUser(t *testing.T) {
	f := newFixture()

	_, err := f.resolver().Resolve(context.Background(), uuid.New())
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}

// --- End to end: config write then resolution ---

// sharedRepo is a minimal in-memory moduleconfig.Repository so the config
// service and the resolver can see the same state.
type sharedRepo struct {
	configs map[string]*moduleconfig.Config
	audit   []moduleconfig.AuditEntry
}

func newSharedRepo() *sharedRepo {
	return &sharedRepo{configs: map[string]*moduleconfig.Config{}}
}

func configKey(teamID uuid.UUID, moduleID string) string {
	return teamID.String() + "/" + moduleID
}

func (r *sharedRepo) Get(_ context.Context, teamID uuid.UUID, moduleID string) (*moduleconfig.Config, error) {
	c, ok := r.configs[configKey(teamID, moduleID)]
	if !ok {
		return nil, moduleconfig.ErrConfigNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *sharedRepo) ListForTeams(_ context.Context, teamIDs []uuid.UUID) ([]moduleconfig.Config, error) {
	var out []moduleconfig.Config
	for _, c := range r.configs {
		for _, id := range teamIDs {
			if c.TeamID == id {
				out = append(out, *c)
			}
		}
	}
	return out, nil
}

func (r *sharedRepo) UpsertWithAudit(_ context.Context, cfg *moduleconfig.Config, entry *moduleconfig.AuditEntry) error {
	cfg.ID = uuid.New()
	copied := *cfg
	r.configs[configKey(cfg.TeamID, cfg.ModuleID)] = &copied
	entry.ID = uuid.New()
	r.audit = append(r.audit, *entry)
	return nil
}

func (r *sharedRepo) DeleteWithAudit(_ context.Context, teamID uuid.UUID, moduleID string, entry *moduleconfig.AuditEntry) (bool, error) {
	k := configKey(teamID, moduleID)
	if _, ok := r.configs[k]; !ok {
		return false, nil
	}
	delete(r.configs, k)
	entry.ID = uuid.New()
	r.audit = append(r.audit, *entry)
	return true, nil
}

func (r *sharedRepo) AuditTrail(_ context.Context, filter moduleconfig.AuditFilter) ([]moduleconfig.AuditEntry, int, error) {
	var matched []moduleconfig.AuditEntry
	for i := len(r.audit) - 1; i >= 0; i-- {
		e := r.audit[i]
		if filter.TeamID != nil && e.TeamID != *filter.TeamID {
			continue
		}
		if filter.ModuleID != nil && e.ModuleID != *filter.ModuleID {
			continue
		}
		matched = append(matched, e)
	}
	return matched, len(matched), nil
}

func (r *sharedRepo) AffectedRecordCount(context.Context, uuid.UUID, string) (int, error) {
	return 0, nil
}

// configStoreAdapter exposes a service-backed repository to the resolver.
type configStoreAdapter struct {
	repo moduleconfig.Repository
}

func (a configStoreAdapter) ListForTeams(ctx context.Context, teamIDs []uuid.UUID) ([]moduleconfig.Config, error) {
	return a.repo.ListForTeams(ctx, teamIDs)
}

func TestEndToEnd_UpsertThenResolve(t *testing.T) {
	ctx := context.Background()

	f := newFixture()
	adminID := f.addUser(true)
	editorID := f.addUser(false)
	teamID := f.addMembership(editorID, "consulting", role.Editor)

	repo := newSharedRepo()
	svc := moduleconfig.NewService(module.NewRegistry(), repo)

	// admin enables skills-matrix for the team at TEAM scope
	_, err := svc.Upsert(ctx, teamID, "skills-matrix", true, scope.Explicit(scope.Team), adminID)
	require.NoError(t, err)

	// the mutation left exactly one CREATE audit entry with the new state
	entries, total, err := svc.AuditTrail(ctx, moduleconfig.AuditFilter{TeamID: &teamID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, entries, 1)
	assert.Equal(t, moduleconfig.ActionCreate, entries[0].Action)
	require.NotNil(t, entries[0].NewValues)
	assert.True(t, entries[0].NewValues.IsEnabled)
	require.NotNil(t, entries[0].NewValues.Scope)
	assert.Equal(t, scope.Team, *entries[0].NewValues.Scope)
	assert.Equal(t, adminID, entries[0].PerformedBy)

	// the editor now resolves the module as accessible at TEAM scope
	r := resolver.New(module.NewRegistry(), configStoreAdapter{repo}, f, f)
	em, err := r.ResolveOne(ctx, editorID, "skills-matrix")
	require.NoError(t, err)

	assert.True(t, em.IsAccessible)
	assert.Equal(t, scope.Team, em.EffectiveScope)
	require.Len(t, em.EnabledTeams, 1)
	assert.Equal(t, teamID, em.EnabledTeams[0].TeamID)
	assert.Equal(t, "consulting", em.EnabledTeams[0].TeamName)
	assert.Equal(t, role.Editor, em.EnabledTeams[0].UserRole)
}
