package moduleconfig

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrConfigNotFound is returned when no config row exists for a
// (team, module) pair.
var ErrConfigNotFound = errors.New("module config not found")

// Repository provides operations on the team_module_configs and
// module_config_audit tables. The *WithAudit methods write the config row
// and the audit entry in a single transaction; both succeed or both fail.
type Repository interface {
	Get(ctx context.Context, teamID uuid.UUID, moduleID string) (*Config, error)
	ListForTeams(ctx context.Context, teamIDs []uuid.UUID) ([]Config, error)
	UpsertWithAudit(ctx context.Context, cfg *Config, entry *AuditEntry) error
	// DeleteWithAudit removes the config row and records the entry. When the
	// row is already gone it returns false and writes nothing.
	DeleteWithAudit(ctx context.Context, teamID uuid.UUID, moduleID string, entry *AuditEntry) (bool, error)
	AuditTrail(ctx context.Context, filter AuditFilter) ([]AuditEntry, int, error)
	AffectedRecordCount(ctx context.Context, teamID uuid.UUID, moduleID string) (int, error)
}
