package module

import (
	"errors"
	"fmt"

	"github.com/teamscope/teamscope/internal/scope"
)

// ErrModuleNotFound is returned when a module id is not in the registry.
var ErrModuleNotFound = errors.New("module not found")

// builtin is the compiled-in module catalog.
var builtin = []Definition{
	{
		ID:             "dashboard",
		Name:           "Dashboard",
		AllowedScopes:  []scope.Scope{scope.Global, scope.Team},
		DefaultScope:   scope.Team,
		DefaultEnabled: true,
	},
	{
		ID:            "skills-matrix",
		Name:          "Skills Matrix",
		AllowedScopes: []scope.Scope{scope.Global, scope.Team, scope.User},
		DefaultScope:  scope.Team,
	},
	{
		ID:            "capacity-planning",
		Name:          "Capacity Planning",
		AllowedScopes: []scope.Scope{scope.Team, scope.User},
		DefaultScope:  scope.Team,
	},
	{
		ID:            "strategic-goals",
		Name:          "Strategic Goals",
		AllowedScopes: []scope.Scope{scope.Global, scope.Team},
		DefaultScope:  scope.Team,
	},
	{
		ID:            "reference-projects",
		Name:          "Reference Projects",
		AllowedScopes: []scope.Scope{scope.Global, scope.Team},
		DefaultScope:  scope.Global,
	},
	{
		ID:            "user-administration",
		Name:          "User Administration",
		AllowedScopes: []scope.Scope{scope.Global},
		DefaultScope:  scope.Global,
		AdminOnly:     true,
	},
}

// Registry is the read-only catalog of module definitions, constructed once
// at process start.
type Registry struct {
	defs  map[string]*Definition
	order []string
}

// NewRegistry builds the registry from the compiled-in catalog. It panics on
// an inconsistent definition since that is a programming error, not input.
func NewRegistry() *Registry {
	r := &Registry{defs: make(map[string]*Definition, len(builtin))}
	for i := range builtin {
		def := &builtin[i]
		if !def.AllowsScope(def.DefaultScope) {
			panic(fmt.Sprintf("module %q: default scope %s not in allowed scopes", def.ID, def.DefaultScope))
		}
		if _, dup := r.defs[def.ID]; dup {
			panic(fmt.Sprintf("module %q registered twice", def.ID))
		}
		r.defs[def.ID] = def
		r.order = append(r.order, def.ID)
	}
	return r
}

// Get returns the definition for the given module id.
func (r *Registry) Get(id string) (*Definition, error) {
	def, ok := r.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrModuleNotFound, id)
	}
	return def, nil
}

// IsValid reports whether a module with the given id exists.
func (r *Registry) IsValid(id string) bool {
	_, ok := r.defs[id]
	return ok
}

// All returns every definition in catalog order.
func (r *Registry) All() []*Definition {
	defs := make([]*Definition, 0, len(r.order))
	for _, id := range r.order {
		defs = append(defs, r.defs[id])
	}
	return defs
}
