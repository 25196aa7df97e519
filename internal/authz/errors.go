package authz

import (
	"errors"
	"fmt"

	"github.com/teamscope/teamscope/internal/role"
)

// ErrUnauthenticated is returned when no principal accompanies the request.
// The front door maps it to 401 before any scope logic runs.
var ErrUnauthenticated = errors.New("authentication required")

// MalformedRequestError is returned when a required identifier cannot be
// extracted from the request. This is a caller error (400), not an
// authorization failure.
type MalformedRequestError struct {
	Identifier string
}

func (e *MalformedRequestError) Error() string {
	return fmt.Sprintf("required identifier %q missing from request", e.Identifier)
}

// DeniedError is returned when a known principal lacks the role, membership,
// or ownership a request requires. Reason is human-readable for audit and UI
// display; RequiredRole/ActualRole are set for role-based denials.
type DeniedError struct {
	Reason       string
	RequiredRole role.Role
	ActualRole   role.Role
}

func (e *DeniedError) Error() string {
	return e.Reason
}
