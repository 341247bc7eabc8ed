package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nstrokin/authd/internal/model"
)

var _ model.RefreshTokenStore = (*RefreshTokenRepository)(nil)

type RefreshTokenRepository struct {
	db DBTX
}

func NewRefreshTokenRepository(db DBTX) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, token model.RefreshToken) error {
	const query = `
        INSERT INTO refresh_tokens (
            id, user_id, value, created_at, expires_at, revoked_at, replaced_by, updated_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
    `

	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}

	_, err := r.db.ExecContext(ctx, query,
		token.ID, token.UserID, token.Value, token.CreatedAt, token.ExpiresAt,
		token.RevokedAt, token.ReplacedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) GetByValue(ctx context.Context, value string) (model.RefreshToken, error) {
	const query = `
        SELECT id, user_id, value, created_at, expires_at, revoked_at, replaced_by, updated_at
        FROM refresh_tokens WHERE value = $1
    `

	var rt model.RefreshToken
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&rt.ID, &rt.UserID, &rt.Value, &rt.CreatedAt, &rt.ExpiresAt,
		&rt.RevokedAt, &rt.ReplacedBy, &rt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RefreshToken{}, model.ErrNotFound
		}
		return model.RefreshToken{}, fmt.Errorf("failed to get refresh token by value: %w", err)
	}
	return rt, nil
}

func (r *RefreshTokenRepository) GetActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]model.RefreshToken, error) {
	const query = `
        SELECT id, user_id, value, created_at, expires_at, revoked_at, replaced_by, updated_at
        FROM refresh_tokens
        WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2
        ORDER BY created_at
    `

	rows, err := r.db.QueryContext(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list active refresh tokens: %w", err)
	}
	defer rows.Close()

	var tokens []model.RefreshToken
	for rows.Next() {
		var rt model.RefreshToken
		if err := rows.Scan(
			&rt.ID, &rt.UserID, &rt.Value, &rt.CreatedAt, &rt.ExpiresAt,
			&rt.RevokedAt, &rt.ReplacedBy, &rt.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan refresh token: %w", err)
		}
		tokens = append(tokens, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read refresh token rows: %w", err)
	}

	return tokens, nil
}

// Revoke marks the token revoked only if it is still active at now. The
// WHERE clause is the compare-and-swap that keeps concurrent rotations of
// the same value from both succeeding.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, value string, replacedBy *string, now time.Time) (bool, error) {
	const query = `
        UPDATE refresh_tokens SET revoked_at = $2, replaced_by = $3, updated_at = NOW()
        WHERE value = $1 AND revoked_at IS NULL AND expires_at > $2
    `

	res, err := r.db.ExecContext(ctx, query, value, now, replacedBy)
	if err != nil {
		return false, fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected == 1, nil
}

func (r *RefreshTokenRepository) RevokeAllByUser(ctx context.Context, userID uuid.UUID, now time.Time) error {
	const query = `
        UPDATE refresh_tokens SET revoked_at = $2, updated_at = NOW()
        WHERE user_id = $1 AND revoked_at IS NULL
    `

	if _, err := r.db.ExecContext(ctx, query, userID, now); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens by user: %w", err)
	}
	return nil
}
