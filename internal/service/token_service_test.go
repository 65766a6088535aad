package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tracekit/harbox-api/internal/models"
	appErrors "github.com/tracekit/harbox-api/pkg/errors"
)

type mockUserRepo struct {
	users       map[string]*models.User
	byUsername  map[string]*models.User
	findErr     error
	createErr   error
	created     []*models.User
}

func newMockUserRepo(users ...*models.User) *mockUserRepo {
	m := &mockUserRepo{users: make(map[string]*models.User), byUsername: make(map[string]*models.User)}
	for _, u := range users {
		m.users[u.Email] = u
		m.byUsername[u.Username] = u
	}
	return m
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	u, ok := m.users[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	u, ok := m.byUsername[username]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, user)
	m.users[user.Email] = user
	m.byUsername[user.Username] = user
	return nil
}

type mockTokenStore struct {
	rows       map[models.TokenKind]map[string]*models.TokenRecord
	replaceErr error
	deleteErr  error
	findErr    error
}

func newMockTokenStore() *mockTokenStore {
	return &mockTokenStore{rows: map[models.TokenKind]map[string]*models.TokenRecord{
		models.KindVerification: {},
		models.KindRefresh:      {},
	}}
}

func (m *mockTokenStore) FindByEmail(ctx context.Context, kind models.TokenKind, email string) (*models.TokenRecord, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	record, ok := m.rows[kind][email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return record, nil
}

func (m *mockTokenStore) Replace(ctx context.Context, kind models.TokenKind, record *models.TokenRecord) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.rows[kind][record.Email] = record
	return nil
}

func (m *mockTokenStore) DeleteByEmail(ctx context.Context, kind models.TokenKind, email string) (bool, error) {
	if m.deleteErr != nil {
		return false, m.deleteErr
	}
	_, existed := m.rows[kind][email]
	delete(m.rows[kind], email)
	return existed, nil
}

func (m *mockTokenStore) count(kind models.TokenKind) int {
	return len(m.rows[kind])
}

func testUser() *models.User {
	hash := "not-used-here"
	return &models.User{ID: "u1", Email: "a@x.com", Username: "capture-user", PasswordHash: &hash, Role: models.RoleMember}
}

func newTestTokenService(users *mockUserRepo, tokens *mockTokenStore) *TokenService {
	return NewTokenService(users, tokens, zap.NewNop(), TokenConfig{
		Secret:          "secret",
		VerificationTTL: 15 * time.Minute,
		RefreshTTL:      7 * 24 * time.Hour,
	})
}

func TestIssueVerificationToken(t *testing.T) {
	users := newMockUserRepo(testUser())
	tokens := newMockTokenStore()
	svc := newTestTokenService(users, tokens)

	before := time.Now().UTC()
	record, err := svc.Issue(context.Background(), models.KindVerification, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.NotEmpty(t, record.JTI)
	assert.NotEmpty(t, record.Token)
	assert.Equal(t, "a@x.com", record.Email)
	assert.Equal(t, 1, tokens.count(models.KindVerification))

	assert.Equal(t, 900*time.Second, record.ExpiresAt.Sub(record.CreatedAt))
	assert.WithinDuration(t, before.Add(900*time.Second), record.ExpiresAt, time.Second)
}

func TestIssueRefreshTokenTTL(t *testing.T) {
	users := newMockUserRepo(testUser())
	tokens := newMockTokenStore()
	svc := newTestTokenService(users, tokens)

	record, err := svc.Issue(context.Background(), models.KindRefresh, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 604800*time.Second, record.ExpiresAt.Sub(record.CreatedAt))
}

func TestIssueUnknownUser(t *testing.T) {
	users := newMockUserRepo()
	tokens := newMockTokenStore()
	svc := newTestTokenService(users, tokens)

	record, err := svc.Issue(context.Background(), models.KindVerification, "ghost@x.com")
	require.Error(t, err)
	assert.Nil(t, record)
	assert.Equal(t, 0, tokens.count(models.KindVerification))
}

func TestIssuePartiallyProvisionedUser(t *testing.T) {
	user := testUser()
	user.Username = ""
	users := newMockUserRepo(user)
	tokens := newMockTokenStore()
	svc := newTestTokenService(users, tokens)

	record, err := svc.Issue(context.Background(), models.KindVerification, user.Email)
	require.Error(t, err)
	assert.Nil(t, record)
	assert.Equal(t, 0, tokens.count(models.KindVerification))
}

func TestIssueReplacesExistingToken(t *testing.T) {
	users := newMockUserRepo(testUser())
	tokens := newMockTokenStore()
	svc := newTestTokenService(users, tokens)

	first, err := svc.Issue(context.Background(), models.KindVerification, "a@x.com")
	require.NoError(t, err)
	second, err := svc.Issue(context.Background(), models.KindVerification, "a@x.com")
	require.NoError(t, err)

	assert.NotEqual(t, first.JTI, second.JTI)
	assert.Equal(t, 1, tokens.count(models.KindVerification))

	// The replaced token still carries a valid signature but its jti no
	// longer matches the stored row.
	_, _, err = svc.Verify(context.Background(), models.KindVerification, first.Token)
	require.Error(t, err)

	_, user, err := svc.Verify(context.Background(), models.KindVerification, second.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)
}

func TestIssueFailsClosedOnStoreError(t *testing.T) {
	users := newMockUserRepo(testUser())
	tokens := newMockTokenStore()
	tokens.replaceErr = errors.New("store unavailable")
	svc := newTestTokenService(users, tokens)

	record, err := svc.Issue(context.Background(), models.KindVerification, "a@x.com")
	require.Error(t, err)
	assert.Nil(t, record)
	assert.Equal(t, 0, tokens.count(models.KindVerification))
}

func TestVerifyExpiredToken(t *testing.T) {
	users := newMockUserRepo(testUser())
	tokens := newMockTokenStore()
	svc := newTestTokenService(users, tokens)

	record, err := svc.Issue(context.Background(), models.KindVerification, "a@x.com")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(16 * time.Minute) }

	_, _, err = svc.Verify(context.Background(), models.KindVerification, record.Token)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestVerifyWrongSecret(t *testing.T) {
	users := newMockUserRepo(testUser())
	tokens := newMockTokenStore()
	svc := newTestTokenService(users, tokens)

	other := NewTokenService(users, tokens, zap.NewNop(), TokenConfig{
		Secret:          "a different secret",
		VerificationTTL: 15 * time.Minute,
		RefreshTTL:      7 * 24 * time.Hour,
	})
	record, err := other.Issue(context.Background(), models.KindVerification, "a@x.com")
	require.NoError(t, err)

	_, _, err = svc.Verify(context.Background(), models.KindVerification, record.Token)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestVerifyMalformedToken(t *testing.T) {
	users := newMockUserRepo(testUser())
	tokens := newMockTokenStore()
	svc := newTestTokenService(users, tokens)

	_, _, err := svc.Verify(context.Background(), models.KindVerification, "not.a.token")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestVerifyDeletedAccount(t *testing.T) {
	users := newMockUserRepo(testUser())
	tokens := newMockTokenStore()
	svc := newTestTokenService(users, tokens)

	record, err := svc.Issue(context.Background(), models.KindVerification, "a@x.com")
	require.NoError(t, err)

	delete(users.users, "a@x.com")

	_, _, err = svc.Verify(context.Background(), models.KindVerification, record.Token)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestTeardownDeletesBothTokens(t *testing.T) {
	users := newMockUserRepo(testUser())
	tokens := newMockTokenStore()
	svc := newTestTokenService(users, tokens)

	pair, err := svc.IssuePair(context.Background(), "a@x.com")
	require.NoError(t, err)

	require.NoError(t, svc.Teardown(context.Background(), "a@x.com"))
	assert.Equal(t, 0, tokens.count(models.KindVerification))
	assert.Equal(t, 0, tokens.count(models.KindRefresh))

	_, _, err = svc.Verify(context.Background(), models.KindVerification, pair.Verification.Token)
	require.Error(t, err)
}

func TestTeardownIsIdempotent(t *testing.T) {
	users := newMockUserRepo(testUser())
	tokens := newMockTokenStore()
	svc := newTestTokenService(users, tokens)

	_, err := svc.IssuePair(context.Background(), "a@x.com")
	require.NoError(t, err)

	require.NoError(t, svc.Teardown(context.Background(), "a@x.com"))
	require.NoError(t, svc.Teardown(context.Background(), "a@x.com"))
}

func TestTeardownSurfacesStoreErrors(t *testing.T) {
	users := newMockUserRepo(testUser())
	tokens := newMockTokenStore()
	tokens.deleteErr = errors.New("store unavailable")
	svc := newTestTokenService(users, tokens)

	err := svc.Teardown(context.Background(), "a@x.com")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestRefreshRotatesPair(t *testing.T) {
	users := newMockUserRepo(testUser())
	tokens := newMockTokenStore()
	svc := newTestTokenService(users, tokens)

	pair, err := svc.IssuePair(context.Background(), "a@x.com")
	require.NoError(t, err)

	rotated, err := svc.Refresh(context.Background(), pair.Refresh.Token)
	require.NoError(t, err)
	assert.NotEqual(t, pair.Refresh.JTI, rotated.Refresh.JTI)
	assert.NotEqual(t, pair.Verification.JTI, rotated.Verification.JTI)

	// The used refresh token no longer resolves.
	_, err = svc.Refresh(context.Background(), pair.Refresh.Token)
	require.Error(t, err)
}

func TestRefreshRejectsVerificationToken(t *testing.T) {
	users := newMockUserRepo(testUser())
	tokens := newMockTokenStore()
	svc := newTestTokenService(users, tokens)

	pair, err := svc.IssuePair(context.Background(), "a@x.com")
	require.NoError(t, err)

	// A verification token is signed with the same secret but has no
	// matching refresh row.
	_, err = svc.Refresh(context.Background(), pair.Verification.Token)
	require.Error(t, err)
}
