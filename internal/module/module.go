package module

import (
	"github.com/teamscope/teamscope/internal/scope"
)

// Definition describes a functional module of the platform. Definitions are
// code-defined and immutable at runtime; changing them requires a deployment.
type Definition struct {
	ID            string
	Name          string
	AllowedScopes []scope.Scope
	DefaultScope  scope.Scope
	// DefaultEnabled marks modules that are on for every team unless a team
	// explicitly disables them.
	DefaultEnabled bool
	// AdminOnly modules are visible to global administrators only.
	AdminOnly bool
}

// AllowsScope reports whether s is in the module's allowed scope set.
func (d *Definition) AllowsScope(s scope.Scope) bool {
	for _, allowed := range d.AllowedScopes {
		if allowed == s {
			return true
		}
	}
	return false
}
