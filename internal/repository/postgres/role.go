package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nstrokin/authd/internal/model"
)

var _ model.RoleDirectory = (*RoleRepository)(nil)

// pgForeignKeyViolation is the SQLSTATE for foreign key constraint errors.
const pgForeignKeyViolation = "23503"

type RoleRepository struct {
	db DBTX
}

func NewRoleRepository(db DBTX) *RoleRepository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) RoleExists(ctx context.Context, name string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM roles WHERE name = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check role existence: %w", err)
	}
	return exists, nil
}

func (r *RoleRepository) AssignRole(ctx context.Context, userID uuid.UUID, name string) error {
	const query = `INSERT INTO user_roles (user_id, role_name) VALUES ($1, $2)`

	if _, err := r.db.ExecContext(ctx, query, userID, name); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation:
				return model.ErrRoleAlreadyAssigned
			case pgForeignKeyViolation:
				if pgErr.ConstraintName == "user_roles_role_name_fkey" {
					return model.ErrRoleNotFound
				}
				return model.ErrUserNotFound
			}
		}
		return fmt.Errorf("failed to assign role: %w", err)
	}
	return nil
}

func (r *RoleRepository) IsInRole(ctx context.Context, userID uuid.UUID, name string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM user_roles WHERE user_id = $1 AND role_name = $2)`

	var assigned bool
	if err := r.db.QueryRowContext(ctx, query, userID, name).Scan(&assigned); err != nil {
		return false, fmt.Errorf("failed to check role membership: %w", err)
	}
	return assigned, nil
}
