package moduleconfig

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/teamscope/teamscope/internal/module"
	"github.com/teamscope/teamscope/internal/scope"
)

// ValidationError identifies the constraint a rejected write broke.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Service is the team module config store. Every mutation validates against
// the module registry and produces exactly one audit entry, written
// atomically with the config row.
type Service struct {
	registry *module.Registry
	repo     Repository
}

// NewService creates a new config Service.
func NewService(registry *module.Registry, repo Repository) *Service {
	return &Service{registry: registry, repo: repo}
}

// Upsert creates or updates the (teamID, moduleID) config. An explicit scope
// outside the module's allowed set fails validation before anything is
// written. The audit action is CREATE when no prior row existed, UPDATE
// otherwise, with old/new snapshots of the row.
func (s *Service) Upsert(ctx context.Context, teamID uuid.UUID, moduleID string, isEnabled bool, sc scope.Setting, performedBy uuid.UUID) (*Config, error) {
	def, err := s.registry.Get(moduleID)
	if err != nil {
		return nil, err
	}

	if explicit, ok := sc.Explicit(); ok && !def.AllowsScope(explicit) {
		return nil, &ValidationError{
			Field:   "scope",
			Message: fmt.Sprintf("scope %s is not allowed for module %q (allowed: %v)", explicit, def.ID, def.AllowedScopes),
		}
	}

	existing, err := s.repo.Get(ctx, teamID, moduleID)
	if err != nil && !errors.Is(err, ErrConfigNotFound) {
		return nil, fmt.Errorf("loading existing config: %w", err)
	}

	cfg := &Config{
		TeamID:    teamID,
		ModuleID:  moduleID,
		IsEnabled: isEnabled,
		Scope:     sc,
	}

	entry := &AuditEntry{
		TeamID:      teamID,
		ModuleID:    moduleID,
		Action:      ActionCreate,
		NewValues:   snapshotOf(cfg),
		PerformedBy: performedBy,
	}
	if existing != nil {
		entry.Action = ActionUpdate
		entry.OldValues = snapshotOf(existing)
	}

	if err := s.repo.UpsertWithAudit(ctx, cfg, entry); err != nil {
		return nil, fmt.Errorf("upserting config: %w", err)
	}

	return cfg, nil
}

// Delete removes the (teamID, moduleID) override, reverting the team to the
// module's defaults, and records a DELETE audit entry with the prior state.
// Returns false, not an error, when no config existed; deleting twice is
// idempotent.
func (s *Service) Delete(ctx context.Context, teamID uuid.UUID, moduleID string, performedBy uuid.UUID) (bool, error) {
	if _, err := s.registry.Get(moduleID); err != nil {
		return false, err
	}

	existing, err := s.repo.Get(ctx, teamID, moduleID)
	if err != nil {
		if errors.Is(err, ErrConfigNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("loading existing config: %w", err)
	}

	entry := &AuditEntry{
		TeamID:      teamID,
		ModuleID:    moduleID,
		Action:      ActionDelete,
		OldValues:   snapshotOf(existing),
		PerformedBy: performedBy,
	}

	deleted, err := s.repo.DeleteWithAudit(ctx, teamID, moduleID, entry)
	if err != nil {
		return false, fmt.Errorf("deleting config: %w", err)
	}

	return deleted, nil
}

// AffectedRecordCount reports how many records would become invisible if the
// (teamID, moduleID) pair were disabled. Advisory only; performs no mutation.
func (s *Service) AffectedRecordCount(ctx context.Context, teamID uuid.UUID, moduleID string) (int, error) {
	if _, err := s.registry.Get(moduleID); err != nil {
		return 0, err
	}
	return s.repo.AffectedRecordCount(ctx, teamID, moduleID)
}

// AuditTrail returns audit entries most-recent-first, filtered by team
// and/or module, along with the total match count for pagination.
func (s *Service) AuditTrail(ctx context.Context, filter AuditFilter) ([]AuditEntry, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.ModuleID != nil && !s.registry.IsValid(*filter.ModuleID) {
		return nil, 0, fmt.Errorf("%w: %q", module.ErrModuleNotFound, *filter.ModuleID)
	}
	return s.repo.AuditTrail(ctx, filter)
}
