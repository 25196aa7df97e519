package role

import "fmt"

// Role is a principal's permission level within a single team.
type Role string

const (
	Owner  Role = "OWNER"
	Admin  Role = "ADMIN"
	Editor Role = "EDITOR"
	Viewer Role = "VIEWER"
	User   Role = "USER"
)

// ranks assigns each role a strictly increasing weight. USER is the floor.
var ranks = map[Role]int{
	User:   1,
	Viewer: 2,
	Editor: 3,
	Admin:  4,
	Owner:  5,
}

// All returns every role ordered from highest to lowest.
func All() []Role {
	return []Role{Owner, Admin, Editor, Viewer, User}
}

// Rank returns the numeric weight of a role. Unknown roles rank below USER,
// so they never satisfy any requirement; callers are expected to reject
// unknown literals via Parse before comparing.
func Rank(r Role) int {
	return ranks[r]
}

// Meets reports whether actual satisfies the required role level.
func Meets(actual, required Role) bool {
	return ranks[actual] >= ranks[required]
}

// IsValid reports whether r is one of the five defined roles.
func IsValid(r Role) bool {
	_, ok := ranks[r]
	return ok
}

// Parse converts a string literal into a Role.
func Parse(s string) (Role, error) {
	r := Role(s)
	if !IsValid(r) {
		return "", fmt.Errorf("invalid role %q", s)
	}
	return r, nil
}
