package authz_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamscope/teamscope/internal/authz"
	"github.com/teamscope/teamscope/internal/membership"
	"github.com/teamscope/teamscope/internal/role"
	"github.com/teamscope/teamscope/internal/scope"
)

// mockRoleLookup returns canned roles per (user, team) pair.
type mockRoleLookup struct {
	roles map[[2]uuid.UUID]role.Role
	err   error
}

func (m *mockRoleLookup) GetRole(_ context.Context, userID, teamID uuid.UUID) (role.Role, error) {
	if m.err != nil {
		return "", m.err
	}
	r, ok := m.roles[[2]uuid.UUID{userID, teamID}]
	if !ok {
		return "", membership.ErrNotMember
	}
	return r, nil
}

func newLookup() *mockRoleLookup {
	return &mockRoleLookup{roles: map[[2]uuid.UUID]role.Role{}}
}

func (m *mockRoleLookup) grant(userID, teamID uuid.UUID, r role.Role) {
	m.roles[[2]uuid.UUID{userID, teamID}] = r
}

func pathRequest(method string, params map[string]string) authz.Request {
	return authz.Request{Method: method, Path: params}
}

// --- Unauthenticated ---

func TestAuthorize_NilPrincipalRejected(t *testing.T) {
	engine := authz.NewEngine(newLookup())

	err := engine.Authorize(context.Background(), nil, role.User, scope.Global,
		pathRequest(http.MethodGet, nil), authz.Options{AllowReadForAll: true})

	assert.ErrorIs(t, err, authz.ErrUnauthenticated)
}

// --- Global admin bypass ---

func TestAuthorize_AdminBypassesEverything(t *testing.T) {
	engine := authz.NewEngine(newLookup())
	admin := &authz.Principal{ID: uuid.New(), IsAdmin: true}

	methods := []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}
	for _, sc := range scope.All() {
		for _, required := range role.All() {
			for _, method := range methods {
				// no team or user identifiers anywhere in the request
				err := engine.Authorize(context.Background(), admin, required, sc,
					pathRequest(method, nil), authz.Options{})
				assert.NoError(t, err, "admin denied for scope=%s role=%s method=%s", sc, required, method)
			}
		}
	}
}

// --- GLOBAL scope ---

func TestAuthorize_GlobalWriteDeniedForNonAdmin(t *testing.T) {
	engine := authz.NewEngine(newLookup())
	p := &authz.Principal{ID: uuid.New()}

	err := engine.Authorize(context.Background(), p, role.Admin, scope.Global,
		pathRequest(http.MethodPost, nil), authz.Options{AllowReadForAll: true})

	var denied *authz.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "Global Admin access required", denied.Reason)
}

func TestAuthorize_GlobalReadAllowedWhenPermitted(t *testing.T) {
	engine := authz.NewEngine(newLookup())
	p := &authz.Principal{ID: uuid.New()}

	err := engine.Authorize(context.Background(), p, role.User, scope.Global,
		pathRequest(http.MethodGet, nil), authz.Options{AllowReadForAll: true})

	assert.NoError(t, err)
}

func TestAuthorize_GlobalReadDeniedByDefault(t *testing.T) {
	engine := authz.NewEngine(newLookup())
	p := &authz.Principal{ID: uuid.New()}

	err := engine.Authorize(context.Background(), p, role.User, scope.Global,
		pathRequest(http.MethodGet, nil), authz.Options{})

	var denied *authz.DeniedError
	assert.ErrorAs(t, err, &denied)
}

// --- TEAM scope ---

func TestAuthorize_TeamMissingIDIsMalformed(t *testing.T) {
	engine := authz.NewEngine(newLookup())
	p := &authz.Principal{ID: uuid.New()}

	err := engine.Authorize(context.Background(), p, role.Viewer, scope.Team,
		pathRequest(http.MethodGet, nil), authz.Options{})

	var malformed *authz.MalformedRequestError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "teamId", malformed.Identifier)
}

func TestAuthorize_TeamNonMemberDenied(t *testing.T) {
	engine := authz.NewEngine(newLookup())
	p := &authz.Principal{ID: uuid.New()}
	teamID := uuid.New()

	err := engine.Authorize(context.Background(), p, role.Viewer, scope.Team,
		pathRequest(http.MethodGet, map[string]string{"teamId": teamID.String()}), authz.Options{})

	var denied *authz.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "not a member of this team", denied.Reason)
}

func TestAuthorize_TeamInsufficientRoleDenied(t *testing.T) {
	lookup := newLookup()
	p := &authz.Principal{ID: uuid.New()}
	teamID := uuid.New()
	lookup.grant(p.ID, teamID, role.Viewer)

	engine := authz.NewEngine(lookup)

	err := engine.Authorize(context.Background(), p, role.Editor, scope.Team,
		pathRequest(http.MethodPost, map[string]string{"teamId": teamID.String()}), authz.Options{})

	var denied *authz.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, role.Editor, denied.RequiredRole)
	assert.Equal(t, role.Viewer, denied.ActualRole)
	assert.Contains(t, denied.Reason, "EDITOR")
	assert.Contains(t, denied.Reason, "VIEWER")
}

func TestAuthorize_TeamSufficientRoleAllowed(t *testing.T) {
	lookup := newLookup()
	p := &authz.Principal{ID: uuid.New()}
	teamID := uuid.New()
	lookup.grant(p.ID, teamID, role.Admin)

	engine := authz.NewEngine(lookup)

	err := engine.Authorize(context.Background(), p, role.Editor, scope.Team,
		pathRequest(http.MethodPost, map[string]string{"teamId": teamID.String()}), authz.Options{})

	assert.NoError(t, err)
}

func TestAuthorize_TeamExactRoleAllowed(t *testing.T) {
	lookup := newLookup()
	p := &authz.Principal{ID: uuid.New()}
	teamID := uuid.New()
	lookup.grant(p.ID, teamID, role.Editor)

	engine := authz.NewEngine(lookup)

	err := engine.Authorize(context.Background(), p, role.Editor, scope.Team,
		pathRequest(http.MethodPost, map[string]string{"teamId": teamID.String()}), authz.Options{})

	assert.NoError(t, err)
}

func TestAuthorize_TeamLookupFailurePropagates(t *testing.T) {
	boom := errors.New("connection refused")
	engine := authz.NewEngine(&mockRoleLookup{err: boom})
	p := &authz.Principal{ID: uuid.New()}

	err := engine.Authorize(context.Background(), p, role.Viewer, scope.Team,
		pathRequest(http.MethodGet, map[string]string{"teamId": uuid.New().String()}), authz.Options{})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var denied *authz.DeniedError
	assert.False(t, errors.As(err, &denied), "infrastructure failures are not denials")
}

// --- USER scope ---

func TestAuthorize_UserOwnDataAllowed(t *testing.T) {
	engine := authz.NewEngine(newLookup())
	p := &authz.Principal{ID: uuid.New()}

	err := engine.Authorize(context.Background(), p, role.User, scope.User,
		pathRequest(http.MethodGet, map[string]string{"userId": p.ID.String()}), authz.Options{})

	assert.NoError(t, err)
}

func TestAuthorize_UserForeignDataDenied(t *testing.T) {
	engine := authz.NewEngine(newLookup())
	p := &authz.Principal{ID: uuid.New()}

	err := engine.Authorize(context.Background(), p, role.User, scope.User,
		pathRequest(http.MethodGet, map[string]string{"userId": uuid.New().String()}), authz.Options{})

	var denied *authz.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "can only access your own data", denied.Reason)
}

func TestAuthorize_UserMissingIDIsMalformed(t *testing.T) {
	engine := authz.NewEngine(newLookup())
	p := &authz.Principal{ID: uuid.New()}

	err := engine.Authorize(context.Background(), p, role.User, scope.User,
		pathRequest(http.MethodGet, nil), authz.Options{})

	var malformed *authz.MalformedRequestError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "userId", malformed.Identifier)
}

// --- Unknown scope ---

func TestAuthorize_UnknownScopePanics(t *testing.T) {
	engine := authz.NewEngine(newLookup())
	p := &authz.Principal{ID: uuid.New()}

	assert.Panics(t, func() {
		_ = engine.Authorize(context.Background(), p, role.User, scope.Scope("ORG"),
			pathRequest(http.MethodGet, nil), authz.Options{})
	})
}

// --- Policy override ---

func TestAuthorize_PolicyOverrideShortCircuits(t *testing.T) {
	forced := &authz.DeniedError{Reason: "maintenance window"}
	override := func(_ *authz.Principal, _ role.Role, _ scope.Scope, _ authz.Request) (error, bool) {
		return forced, true
	}

	engine := authz.NewEngine(newLookup(), authz.WithPolicyOverride(override))
	admin := &authz.Principal{ID: uuid.New(), IsAdmin: true}

	// override runs before the admin bypass
	err := engine.Authorize(context.Background(), admin, role.User, scope.Global,
		pathRequest(http.MethodGet, nil), authz.Options{AllowReadForAll: true})

	assert.Equal(t, forced, err)
}

func TestAuthorize_PolicyOverrideFallsThrough(t *testing.T) {
	override := func(_ *authz.Principal, _ role.Role, _ scope.Scope, _ authz.Request) (error, bool) {
		return nil, false
	}

	engine := authz.NewEngine(newLookup(), authz.WithPolicyOverride(override))
	p := &authz.Principal{ID: uuid.New()}

	err := engine.Authorize(context.Background(), p, role.User, scope.Global,
		pathRequest(http.MethodPost, nil), authz.Options{})

	var denied *authz.DeniedError
	assert.ErrorAs(t, err, &denied)
}
