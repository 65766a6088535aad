package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracekit/harbox-api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func tokenRow(record *models.TokenRecord) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "token", "jti", "expires_at", "created_at"}).
		AddRow(record.ID, record.Email, record.Token, record.JTI, record.ExpiresAt, record.CreatedAt)
}

func sampleToken() *models.TokenRecord {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.TokenRecord{
		ID:        "t1",
		Email:     "a@x.com",
		Token:     "signed.jwt.value",
		JTI:       "jti-1",
		ExpiresAt: now.Add(15 * time.Minute),
		CreatedAt: now,
	}
}

func TestTokenFindByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepository(db)
	record := sampleToken()

	mock.ExpectQuery(`SELECT id, email, token, jti, expires_at, created_at FROM verification_tokens WHERE email = \$1`).
		WithArgs("a@x.com").
		WillReturnRows(tokenRow(record))

	got, err := repo.FindByEmail(context.Background(), models.KindVerification, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "jti-1", got.JTI)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenFindByEmailNoRows(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepository(db)

	mock.ExpectQuery(`SELECT id, email, token, jti, expires_at, created_at FROM refresh_tokens WHERE email = \$1`).
		WithArgs("ghost@x.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), models.KindRefresh, "ghost@x.com")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestTokenReplaceDeletesThenInserts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepository(db)
	record := sampleToken()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM verification_tokens WHERE email = \$1`).
		WithArgs("a@x.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO verification_tokens`).
		WithArgs(record.ID, record.Email, record.Token, record.JTI, record.ExpiresAt, record.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Replace(context.Background(), models.KindVerification, record))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenReplaceAbortsOnDeleteFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepository(db)
	record := sampleToken()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM refresh_tokens WHERE email = \$1`).
		WithArgs("a@x.com").
		WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	err := repo.Replace(context.Background(), models.KindRefresh, record)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenReplaceTargetsKindTable(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepository(db)
	record := sampleToken()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM refresh_tokens WHERE email = \$1`).
		WithArgs("a@x.com").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(record.ID, record.Email, record.Token, record.JTI, record.ExpiresAt, record.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Replace(context.Background(), models.KindRefresh, record))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenDeleteByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepository(db)

	mock.ExpectExec(`DELETE FROM verification_tokens WHERE email = \$1`).
		WithArgs("a@x.com").
		WillReturnResult(sqlmock.NewResult(0, 1))

	deleted, err := repo.DeleteByEmail(context.Background(), models.KindVerification, "a@x.com")
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestTokenDeleteByEmailAbsentRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepository(db)

	mock.ExpectExec(`DELETE FROM refresh_tokens WHERE email = \$1`).
		WithArgs("ghost@x.com").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.DeleteByEmail(context.Background(), models.KindRefresh, "ghost@x.com")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestTokenFindByJTI(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepository(db)
	record := sampleToken()

	mock.ExpectQuery(`SELECT id, email, token, jti, expires_at, created_at FROM verification_tokens WHERE jti = \$1`).
		WithArgs("jti-1").
		WillReturnRows(tokenRow(record))

	got, err := repo.FindByJTI(context.Background(), models.KindVerification, "jti-1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.Email)
}
