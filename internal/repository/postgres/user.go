package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/nstrokin/authd/internal/model"
)

var _ model.UserDirectory = (*UserRepository)(nil)

// pgUniqueViolation is the SQLSTATE for unique constraint errors.
const pgUniqueViolation = "23505"

type UserRepository struct {
	db   DBTX
	cost int
}

func NewUserRepository(db DBTX, bcryptCost int) *UserRepository {
	return &UserRepository{
		db:   db,
		cost: bcryptCost,
	}
}

const userColumns = `id, username, email, first_name, last_name, created_at, updated_at, deleted_at`

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND deleted_at IS NULL`
	return r.findOne(ctx, query, email)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 AND deleted_at IS NULL`
	return r.findOne(ctx, query, username)
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	return r.findOne(ctx, query, id)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (model.User, error) {
	var user model.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.FirstName, &user.LastName,
		&user.CreatedAt, &user.UpdatedAt, &user.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// Create stores the user with a bcrypt hash of the password. Unique
// constraint violations are reported as human-readable creation reasons so
// a racing duplicate still gets a sensible answer.
func (r *UserRepository) Create(ctx context.Context, user model.User, password string) (model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	const query = `
        INSERT INTO users (id, username, email, password_hash, first_name, last_name, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW())
    `

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	_, err = r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, string(hash), user.FirstName, user.LastName,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			switch pgErr.ConstraintName {
			case "users_email_key":
				return model.User{}, &model.CreateError{Reasons: []string{model.ErrDuplicateEmail.Error()}}
			case "users_username_key":
				return model.User{}, &model.CreateError{Reasons: []string{model.ErrDuplicateUsername.Error()}}
			}
			return model.User{}, &model.CreateError{Reasons: []string{"user already exists"}}
		}
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (r *UserRepository) VerifyPassword(ctx context.Context, user model.User, password string) (bool, error) {
	const query = `SELECT password_hash FROM users WHERE id = $1 AND deleted_at IS NULL`

	var hash string
	err := r.db.QueryRowContext(ctx, query, user.ID).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, model.ErrNotFound
		}
		return false, fmt.Errorf("failed to get password hash: %w", err)
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil, nil
}

func (r *UserRepository) Update(ctx context.Context, user model.User) error {
	const query = `
        UPDATE users SET username = $2, email = $3, first_name = $4, last_name = $5, updated_at = NOW()
        WHERE id = $1 AND deleted_at IS NULL
    `

	if _, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.FirstName, user.LastName,
	); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetCustomClaims(ctx context.Context, user model.User) (model.Claims, error) {
	const query = `SELECT name, value FROM user_claims WHERE user_id = $1`

	rows, err := r.db.QueryContext(ctx, query, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get custom claims: %w", err)
	}
	defer rows.Close()

	claims := model.Claims{}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan custom claim: %w", err)
		}
		claims[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read custom claim rows: %w", err)
	}

	return claims, nil
}

func (r *UserRepository) GetRoles(ctx context.Context, user model.User) ([]string, error) {
	const query = `SELECT role_name FROM user_roles WHERE user_id = $1 ORDER BY role_name`

	rows, err := r.db.QueryContext(ctx, query, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get roles: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read role rows: %w", err)
	}

	return roles, nil
}
