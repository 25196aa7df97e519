package scope

import "fmt"

// Scope is the breadth of visibility for a resource or module.
type Scope string

const (
	// Global resources are visible to all authenticated principals and
	// writable only by a global administrator.
	Global Scope = "GLOBAL"
	// Team resources are visible only to members of the owning team.
	Team Scope = "TEAM"
	// User resources are visible only to the owning individual.
	User Scope = "USER"
)

// ranks orders scopes by breadth. GLOBAL dominates TEAM dominates USER.
var ranks = map[Scope]int{
	User:   1,
	Team:   2,
	Global: 3,
}

// All returns every scope ordered from widest to narrowest.
func All() []Scope {
	return []Scope{Global, Team, User}
}

// IsValid reports whether s is one of the three defined scopes.
func IsValid(s Scope) bool {
	_, ok := ranks[s]
	return ok
}

// Parse converts a string literal into a Scope.
func Parse(s string) (Scope, error) {
	sc := Scope(s)
	if !IsValid(sc) {
		return "", fmt.Errorf("invalid scope %q", s)
	}
	return sc, nil
}

// Wider returns the broader of two scopes.
func Wider(a, b Scope) Scope {
	if ranks[a] >= ranks[b] {
		return a
	}
	return b
}

// Setting is either an explicitly chosen scope or a marker to fall back to
// a module's default. The zero value is the fallback marker, so a Setting
// is always meaningful without extra nil checks.
type Setting struct {
	scope    Scope
	explicit bool
}

// UseDefault is the Setting that defers to the module's default scope.
var UseDefault = Setting{}

// Explicit returns a Setting pinning the given scope.
func Explicit(s Scope) Setting {
	return Setting{scope: s, explicit: true}
}

// Explicit returns the pinned scope, if any.
func (s Setting) Explicit() (Scope, bool) {
	return s.scope, s.explicit
}

// Resolve returns the pinned scope, or def when the setting defers.
func (s Setting) Resolve(def Scope) Scope {
	if s.explicit {
		return s.scope
	}
	return def
}

func (s Setting) String() string {
	if s.explicit {
		return string(s.scope)
	}
	return "DEFAULT"
}
