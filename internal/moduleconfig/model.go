package moduleconfig

import (
	"time"

	"github.com/google/uuid"

	"github.com/teamscope/teamscope/internal/scope"
)

// Config represents a row in the team_module_configs table: a per-team
// override of a module's enablement and scope. A deferred scope setting
// means the module's default scope applies.
type Config struct {
	ID        uuid.UUID
	TeamID    uuid.UUID
	ModuleID  string
	IsEnabled bool
	Scope     scope.Setting
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Action is the kind of mutation an audit entry records.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Snapshot captures a config's value at a point in time for the audit
// trail. Scope is nil when the config deferred to the module default.
type Snapshot struct {
	IsEnabled bool         `json:"isEnabled"`
	Scope     *scope.Scope `json:"scope"`
}

// snapshotOf copies the audited fields out of a config.
func snapshotOf(c *Config) *Snapshot {
	snap := &Snapshot{IsEnabled: c.IsEnabled}
	if explicit, ok := c.Scope.Explicit(); ok {
		snap.Scope = &explicit
	}
	return snap
}

// AuditEntry is an append-only record of one config mutation. It carries no
// foreign keys: entries outlive the teams and configs they describe.
type AuditEntry struct {
	ID          uuid.UUID
	TeamID      uuid.UUID
	ModuleID    string
	Action      Action
	OldValues   *Snapshot
	NewValues   *Snapshot
	PerformedBy uuid.UUID
	PerformedAt time.Time
}

// AuditFilter narrows and paginates an audit trail query.
type AuditFilter struct {
	TeamID   *uuid.UUID
	ModuleID *string
	Page     int
	Limit    int
}
