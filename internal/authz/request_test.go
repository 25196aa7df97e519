package authz_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamscope/teamscope/internal/authz"
	"github.com/teamscope/teamscope/internal/role"
	"github.com/teamscope/teamscope/internal/scope"
)

func TestRequest_IsRead(t *testing.T) {
	reads := []string{http.MethodGet, http.MethodHead, http.MethodOptions}
	writes := []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

	for _, m := range reads {
		assert.True(t, authz.Request{Method: m}.IsRead(), m)
	}
	for _, m := range writes {
		assert.False(t, authz.Request{Method: m}.IsRead(), m)
	}
}

// authorizeUser runs a USER-scope check and reports whether the target id
// resolved to the principal.
func authorizeUser(t *testing.T, p *authz.Principal, req authz.Request, opts authz.Options) error {
	t.Helper()
	engine := authz.NewEngine(newLookup())
	return engine.Authorize(context.Background(), p, role.User, scope.User, req, opts)
}

func TestExtraction_PathBeforeBodyBeforeQuery(t *testing.T) {
	p := &authz.Principal{ID: uuid.New()}

	// path holds the principal's id; body and query hold a stranger's
	req := authz.Request{
		Method: http.MethodPost,
		Path:   map[string]string{"userId": p.ID.String()},
		Body:   map[string]string{"userId": uuid.New().String()},
		Query:  map[string]string{"userId": uuid.New().String()},
	}

	assert.NoError(t, authorizeUser(t, p, req, authz.Options{}))
}

func TestExtraction_BodyBeforeQuery(t *testing.T) {
	p := &authz.Principal{ID: uuid.New()}

	req := authz.Request{
		Method: http.MethodPost,
		Body:   map[string]string{"userId": p.ID.String()},
		Query:  map[string]string{"userId": uuid.New().String()},
	}

	assert.NoError(t, authorizeUser(t, p, req, authz.Options{}))
}

func TestExtraction_UserIDFallsBackToEmployeeIDThenID(t *testing.T) {
	p := &authz.Principal{ID: uuid.New()}

	req := authz.Request{
		Method: http.MethodGet,
		Path:   map[string]string{"employeeId": p.ID.String()},
	}
	assert.NoError(t, authorizeUser(t, p, req, authz.Options{}))

	req = authz.Request{
		Method: http.MethodGet,
		Path:   map[string]string{"id": p.ID.String()},
	}
	assert.NoError(t, authorizeUser(t, p, req, authz.Options{}))
}

func TestExtraction_PrimaryFieldBeatsAlias(t *testing.T) {
	p := &authz.Principal{ID: uuid.New()}

	// the alias carries the principal's id but the primary field carries a
	// stranger's, so the check must deny
	req := authz.Request{
		Method: http.MethodGet,
		Path: map[string]string{
			"userId":     uuid.New().String(),
			"employeeId": p.ID.String(),
		},
	}

	var denied *authz.DeniedError
	assert.ErrorAs(t, authorizeUser(t, p, req, authz.Options{}), &denied)
}

func TestExtraction_CustomFieldName(t *testing.T) {
	p := &authz.Principal{ID: uuid.New()}
	teamID := uuid.New()

	lookup := newLookup()
	lookup.grant(p.ID, teamID, role.Viewer)
	engine := authz.NewEngine(lookup)

	req := authz.Request{
		Method: http.MethodGet,
		Body:   map[string]string{"teamGroupId": teamID.String()},
	}

	err := engine.Authorize(context.Background(), p, role.Viewer, scope.Team, req,
		authz.Options{TeamIDField: "teamGroupId"})
	assert.NoError(t, err)
}

func TestExtraction_TeamGroupIDFallsBackToBareID(t *testing.T) {
	p := &authz.Principal{ID: uuid.New()}
	teamID := uuid.New()

	lookup := newLookup()
	lookup.grant(p.ID, teamID, role.Viewer)
	engine := authz.NewEngine(lookup)

	req := authz.Request{
		Method: http.MethodGet,
		Path:   map[string]string{"id": teamID.String()},
	}

	err := engine.Authorize(context.Background(), p, role.Viewer, scope.Team, req,
		authz.Options{TeamIDField: "teamGroupId"})
	assert.NoError(t, err)
}

func TestExtraction_NonUUIDValueIsMissing(t *testing.T) {
	p := &authz.Principal{ID: uuid.New()}

	req := authz.Request{
		Method: http.MethodGet,
		Path:   map[string]string{"userId": "not-a-uuid"},
	}

	var malformed *authz.MalformedRequestError
	require.ErrorAs(t, authorizeUser(t, p, req, authz.Options{}), &malformed)
}

func TestExtraction_EmptyValueSkipped(t *testing.T) {
	p := &authz.Principal{ID: uuid.New()}

	// empty primary falls through to the alias
	req := authz.Request{
		Method: http.MethodGet,
		Path:   map[string]string{"userId": "", "employeeId": p.ID.String()},
	}

	assert.NoError(t, authorizeUser(t, p, req, authz.Options{}))
}
