package authz

import (
	"net/http"

	"github.com/google/uuid"
)

// Request is the typed view of an inbound request the engine extracts
// identifiers from. The transport adapter populates it; the engine never
// touches the raw HTTP request.
type Request struct {
	// Method is the HTTP-style method name. Safe methods (GET, HEAD,
	// OPTIONS) classify the operation as a read; everything else is a write.
	Method string
	Path   map[string]string
	Body   map[string]string
	Query  map[string]string
}

// IsRead reports whether the request's method is a safe/idempotent read.
func (r Request) IsRead() bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// lookup searches path params, then body fields, then query parameters for
// the given field name.
func (r Request) lookup(field string) (string, bool) {
	if v, ok := r.Path[field]; ok && v != "" {
		return v, true
	}
	if v, ok := r.Body[field]; ok && v != "" {
		return v, true
	}
	if v, ok := r.Query[field]; ok && v != "" {
		return v, true
	}
	return "", false
}

// Options configure how the engine extracts team and target-user
// identifiers from a Request. Zero values give the standard field names and
// legacy aliases.
type Options struct {
	// TeamIDField overrides the primary team identifier field ("teamId").
	TeamIDField string
	// TeamIDAliases are tried in order after the primary field. Defaults to
	// the bare "id" path parameter used by team-shaped routes.
	TeamIDAliases []string
	// UserIDField overrides the primary target-user field ("userId").
	UserIDField string
	// UserIDAliases defaults to "employeeId" then "id".
	UserIDAliases []string
	// AllowReadForAll permits non-admin reads of GLOBAL-scope data.
	AllowReadForAll bool
}

func (o Options) teamIDFields() []string {
	primary := o.TeamIDField
	if primary == "" {
		primary = "teamId"
	}
	aliases := o.TeamIDAliases
	if aliases == nil {
		aliases = []string{"id"}
	}
	return append([]string{primary}, aliases...)
}

func (o Options) userIDFields() []string {
	primary := o.UserIDField
	if primary == "" {
		primary = "userId"
	}
	aliases := o.UserIDAliases
	if aliases == nil {
		aliases = []string{"employeeId", "id"}
	}
	return append([]string{primary}, aliases...)
}

// extractID resolves the first matching field to a UUID. Each field name is
// searched path -> body -> query before falling through to the next alias.
func extractID(req Request, fields []string) (uuid.UUID, bool) {
	for _, field := range fields {
		raw, ok := req.lookup(field)
		if !ok {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		return id, true
	}
	return uuid.Nil, false
}
