package moduleconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teamscope/teamscope/internal/scope"
)

// gatedCountQueries maps a module id to the count of business records whose
// visibility the (team, module) pair gates. Modules absent here gate no
// stored records and count zero.
var gatedCountQueries = map[string]string{
	"skills-matrix":      `SELECT COUNT(*) FROM skills WHERE team_id = $1`,
	"capacity-planning":  `SELECT COUNT(*) FROM capacity_entries WHERE team_id = $1`,
	"strategic-goals":    `SELECT COUNT(*) FROM strategic_goals WHERE team_id = $1`,
	"reference-projects": `SELECT COUNT(*) FROM reference_projects WHERE team_id = $1`,
}

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// scopeColumn converts a Setting to its nullable column value.
func scopeColumn(s scope.Setting) *string {
	if explicit, ok := s.Explicit(); ok {
		v := string(explicit)
		return &v
	}
	return nil
}

// scopeSetting converts a nullable column value back to a Setting.
func scopeSetting(v *string) scope.Setting {
	if v == nil {
		return scope.UseDefault
	}
	return scope.Explicit(scope.Scope(*v))
}

// Get retrieves the config for a (team, module) pair.
func (r *PostgresRepository) Get(ctx context.Context, teamID uuid.UUID, moduleID string) (*Config, error) {
	query := `
		SELECT id, team_id, module_id, is_enabled, scope, created_at, updated_at
		FROM team_module_configs
		WHERE team_id = $1 AND module_id = $2`

	var (
		c   Config
		raw *string
	)
	err := r.pool.QueryRow(ctx, query, teamID, moduleID).
		Scan(&c.ID, &c.TeamID, &c.ModuleID, &c.IsEnabled, &raw, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("querying module config: %w", err)
	}
	c.Scope = scopeSetting(raw)

	return &c, nil
}

// ListForTeams retrieves every config belonging to the given teams.
func (r *PostgresRepository) ListForTeams(ctx context.Context, teamIDs []uuid.UUID) ([]Config, error) {
	if len(teamIDs) == 0 {
		return []Config{}, nil
	}

	query := `
		SELECT id, team_id, module_id, is_enabled, scope, created_at, updated_at
		FROM team_module_configs
		WHERE team_id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, teamIDs)
	if err != nil {
		return nil, fmt.Errorf("listing module configs: %w", err)
	}
	defer rows.Close()

	var configs []Config
	for rows.Next() {
		var (
			c   Config
			raw *string
		)
		err := rows.Scan(&c.ID, &c.TeamID, &c.ModuleID, &c.IsEnabled, &raw, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning module config row: %w", err)
		}
		c.Scope = scopeSetting(raw)
		configs = append(configs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating module config rows: %w", err)
	}

	if configs == nil {
		configs = []Config{}
	}

	return configs, nil
}

// UpsertWithAudit writes the config row and its audit entry in one
// transaction.
func (r *PostgresRepository) UpsertWithAudit(ctx context.Context, cfg *Config, entry *AuditEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO team_module_configs (team_id, module_id, is_enabled, scope)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (team_id, module_id)
		DO UPDATE SET is_enabled = EXCLUDED.is_enabled, scope = EXCLUDED.scope, updated_at = now()
		RETURNING id, created_at, updated_at`

	err = tx.QueryRow(ctx, query, cfg.TeamID, cfg.ModuleID, cfg.IsEnabled, scopeColumn(cfg.Scope)).
		Scan(&cfg.ID, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting module config: %w", err)
	}

	if err := insertAudit(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// DeleteWithAudit removes the config row and writes the audit entry in one
// transaction. If the row is already gone the transaction is rolled back and
// no entry is recorded.
func (r *PostgresRepository) DeleteWithAudit(ctx context.Context, teamID uuid.UUID, moduleID string, entry *AuditEntry) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `DELETE FROM team_module_configs WHERE team_id = $1 AND module_id = $2`, teamID, moduleID)
	if err != nil {
		return false, fmt.Errorf("deleting module config: %w", err)
	}

	if result.RowsAffected() == 0 {
		return false, nil
	}

	if err := insertAudit(ctx, tx, entry); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing transaction: %w", err)
	}

	return true, nil
}

// insertAudit appends one audit row within the caller's transaction.
func insertAudit(ctx context.Context, tx pgx.Tx, entry *AuditEntry) error {
	oldJSON, err := marshalSnapshot(entry.OldValues)
	if err != nil {
		return err
	}
	newJSON, err := marshalSnapshot(entry.NewValues)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO module_config_audit (team_id, module_id, action, old_values, new_values, performed_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, performed_at`

	err = tx.QueryRow(ctx, query, entry.TeamID, entry.ModuleID, string(entry.Action), oldJSON, newJSON, entry.PerformedBy).
		Scan(&entry.ID, &entry.PerformedAt)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	return nil
}

func marshalSnapshot(s *Snapshot) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshaling audit snapshot: %w", err)
	}
	return b, nil
}

// AuditTrail returns matching audit entries most-recent-first plus the total
// match count.
func (r *PostgresRepository) AuditTrail(ctx context.Context, filter AuditFilter) ([]AuditEntry, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	if filter.TeamID != nil {
		args = append(args, *filter.TeamID)
		where += fmt.Sprintf(" AND team_id = $%d", len(args))
	}
	if filter.ModuleID != nil {
		args = append(args, *filter.ModuleID)
		where += fmt.Sprintf(" AND module_id = $%d", len(args))
	}

	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM module_config_audit`+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting audit entries: %w", err)
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	query := fmt.Sprintf(`
		SELECT id, team_id, module_id, action, old_values, new_values, performed_by, performed_at
		FROM module_config_audit%s
		ORDER BY performed_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var (
			e       AuditEntry
			rawAct  string
			oldJSON []byte
			newJSON []byte
		)
		err := rows.Scan(&e.ID, &e.TeamID, &e.ModuleID, &rawAct, &oldJSON, &newJSON, &e.PerformedBy, &e.PerformedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning audit row: %w", err)
		}
		e.Action = Action(rawAct)
		if e.OldValues, err = unmarshalSnapshot(oldJSON); err != nil {
			return nil, 0, err
		}
		if e.NewValues, err = unmarshalSnapshot(newJSON); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating audit rows: %w", err)
	}

	if entries == nil {
		entries = []AuditEntry{}
	}

	return entries, total, nil
}

func unmarshalSnapshot(b []byte) (*Snapshot, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("unmarshaling audit snapshot: %w", err)
	}
	return &s, nil
}

// AffectedRecordCount counts records gated by the (team, module) pair.
func (r *PostgresRepository) AffectedRecordCount(ctx context.Context, teamID uuid.UUID, moduleID string) (int, error) {
	query, ok := gatedCountQueries[moduleID]
	if !ok {
		return 0, nil
	}

	var count int
	if err := r.pool.QueryRow(ctx, query, teamID).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting gated records: %w", err)
	}
	return count, nil
}
