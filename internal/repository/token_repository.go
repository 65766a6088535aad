package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tracekit/harbox-api/internal/models"
)

// TokenRepository provides database access for verification and refresh token
// rows. Both families share the same shape and the same single-row-per-email
// invariant; the kind selects the backing table.
type TokenRepository struct {
	db *sqlx.DB
}

// NewTokenRepository creates a new instance of TokenRepository.
func NewTokenRepository(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func tableFor(kind models.TokenKind) string {
	if kind == models.KindRefresh {
		return "refresh_tokens"
	}
	return "verification_tokens"
}

// FindByEmail returns the live token row of the given kind for an email.
func (r *TokenRepository) FindByEmail(ctx context.Context, kind models.TokenKind, email string) (*models.TokenRecord, error) {
	query := fmt.Sprintf(`SELECT id, email, token, jti, expires_at, created_at FROM %s WHERE email = $1 LIMIT 1`, tableFor(kind))
	var record models.TokenRecord
	if err := r.db.GetContext(ctx, &record, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find %s token by email: %w", kind, err)
	}
	return &record, nil
}

// Replace atomically removes any existing token row for the record's email
// and inserts the new one, enforcing the at-most-one-live-token invariant.
// A failing delete aborts the whole operation before anything is inserted.
func (r *TokenRepository) Replace(ctx context.Context, kind models.TokenKind, record *models.TokenRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	table := tableFor(kind)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s token replace: %w", kind, err)
	}
	defer tx.Rollback() //nolint:errcheck

	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE email = $1`, table)
	if _, err := tx.ExecContext(ctx, deleteQuery, record.Email); err != nil {
		return fmt.Errorf("delete existing %s token: %w", kind, err)
	}

	insertQuery := fmt.Sprintf(`INSERT INTO %s (id, email, token, jti, expires_at, created_at) VALUES (:id, :email, :token, :jti, :expires_at, :created_at)`, table)
	if _, err := tx.NamedExecContext(ctx, insertQuery, record); err != nil {
		return fmt.Errorf("create %s token: %w", kind, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s token replace: %w", kind, err)
	}
	return nil
}

// DeleteByEmail removes the token row of the given kind for an email. It
// reports whether a row was actually deleted; absence is not an error.
func (r *TokenRepository) DeleteByEmail(ctx context.Context, kind models.TokenKind, email string) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE email = $1`, tableFor(kind))
	res, err := r.db.ExecContext(ctx, query, email)
	if err != nil {
		return false, fmt.Errorf("delete %s token: %w", kind, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %s token rows affected: %w", kind, err)
	}
	return affected > 0, nil
}

// FindByJTI returns the token row matching a jti, used to confirm a presented
// token has not been revoked or rotated.
func (r *TokenRepository) FindByJTI(ctx context.Context, kind models.TokenKind, jti string) (*models.TokenRecord, error) {
	query := fmt.Sprintf(`SELECT id, email, token, jti, expires_at, created_at FROM %s WHERE jti = $1 LIMIT 1`, tableFor(kind))
	var record models.TokenRecord
	if err := r.db.GetContext(ctx, &record, query, jti); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find %s token by jti: %w", kind, err)
	}
	return &record, nil
}
