package membership

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teamscope/teamscope/internal/role"
)

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// Add inserts a new membership record.
func (r *PostgresRepository) Add(ctx context.Context, m *Membership) error {
	query := `
		INSERT INTO team_memberships (user_id, team_id, role)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, m.UserID, m.TeamID, string(m.Role)).
		Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrAlreadyMember
			case "23503":
				return ErrUnknownReference
			}
		}
		return fmt.Errorf("inserting membership: %w", err)
	}

	return nil
}

// GetRole returns the user's role in the given team, or ErrNotMember.
func (r *PostgresRepository) GetRole(ctx context.Context, userID, teamID uuid.UUID) (role.Role, error) {
	query := `
		SELECT role
		FROM team_memberships
		WHERE user_id = $1 AND team_id = $2`

	var raw string
	err := r.pool.QueryRow(ctx, query, userID, teamID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotMember
		}
		return "", fmt.Errorf("querying membership role: %w", err)
	}

	return role.Role(raw), nil
}

// UpdateRole changes the user's role in the given team.
func (r *PostgresRepository) UpdateRole(ctx context.Context, userID, teamID uuid.UUID, newRole role.Role) error {
	query := `
		UPDATE team_memberships
		SET role = $3, updated_at = now()
		WHERE user_id = $1 AND team_id = $2`

	result, err := r.pool.Exec(ctx, query, userID, teamID, string(newRole))
	if err != nil {
		return fmt.Errorf("updating membership role: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotMember
	}

	return nil
}

// Remove deletes the user's membership in the given team.
func (r *PostgresRepository) Remove(ctx context.Context, userID, teamID uuid.UUID) error {
	query := `DELETE FROM team_memberships WHERE user_id = $1 AND team_id = $2`

	result, err := r.pool.Exec(ctx, query, userID, teamID)
	if err != nil {
		return fmt.Errorf("deleting membership: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotMember
	}

	return nil
}

// ListForUser returns every team the user belongs to, joined with team names.
func (r *PostgresRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]UserTeam, error) {
	query := `
		SELECT m.team_id, t.name, m.role
		FROM team_memberships m
		JOIN teams t ON t.id = m.team_id
		WHERE m.user_id = $1
		ORDER BY t.created_at ASC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing user teams: %w", err)
	}
	defer rows.Close()

	var teams []UserTeam
	for rows.Next() {
		var (
			ut  UserTeam
			raw string
		)
		if err := rows.Scan(&ut.TeamID, &ut.TeamName, &raw); err != nil {
			return nil, fmt.Errorf("scanning user team row: %w", err)
		}
		ut.Role = role.Role(raw)
		teams = append(teams, ut)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user team rows: %w", err)
	}

	if teams == nil {
		teams = []UserTeam{}
	}

	return teams, nil
}

// ListForTeam returns every member of the given team, joined with user names.
func (r *PostgresRepository) ListForTeam(ctx context.Context, teamID uuid.UUID) ([]TeamMember, error) {
	query := `
		SELECT m.user_id, u.name, m.role
		FROM team_memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.team_id = $1
		ORDER BY u.name ASC`

	rows, err := r.pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("listing team members: %w", err)
	}
	defer rows.Close()

	var members []TeamMember
	for rows.Next() {
		var (
			tm  TeamMember
			raw string
		)
		if err := rows.Scan(&tm.UserID, &tm.UserName, &raw); err != nil {
			return nil, fmt.Errorf("scanning team member row: %w", err)
		}
		tm.Role = role.Role(raw)
		members = append(members, tm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating team member rows: %w", err)
	}

	if members == nil {
		members = []TeamMember{}
	}

	return members, nil
}
