package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/tracekit/harbox-api/internal/models"
	appErrors "github.com/tracekit/harbox-api/pkg/errors"
)

type mockThrottleStore struct {
	counts map[string]int64
}

func newMockThrottleStore() *mockThrottleStore {
	return &mockThrottleStore{counts: make(map[string]int64)}
}

func (m *mockThrottleStore) Get(ctx context.Context, key string, dest interface{}) error {
	count, ok := m.counts[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if p, ok := dest.(*int64); ok {
		*p = count
	}
	return nil
}

func (m *mockThrottleStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	m.counts[key]++
	return m.counts[key], nil
}

func (m *mockThrottleStore) Delete(ctx context.Context, key string) error {
	delete(m.counts, key)
	return nil
}

func hashedUser(t *testing.T, email, username, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	hashStr := string(hash)
	return &models.User{ID: "u1", Email: email, Username: username, PasswordHash: &hashStr, Role: models.RoleMember}
}

func newTestAuthService(users *mockUserRepo, tokens *mockTokenStore, throttle loginThrottleStore) *AuthService {
	tokenSvc := newTestTokenService(users, tokens)
	return NewAuthService(users, tokenSvc, throttle, nil, validator.New(), zap.NewNop(), AuthServiceConfig{
		BcryptCost:          bcrypt.MinCost,
		ThrottleEnabled:     throttle != nil,
		ThrottleMaxAttempts: 3,
		ThrottleWindow:      15 * time.Minute,
	})
}

func TestRegisterCreatesMemberAccount(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(users, newMockTokenStore(), nil)

	info, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "capture-user",
		Email:    "a@x.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", info.Email)
	assert.Equal(t, models.RoleMember, info.Role)

	require.Len(t, users.created, 1)
	created := users.created[0]
	require.NotNil(t, created.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*created.PasswordHash), []byte("correct-horse")))
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	users := newMockUserRepo(hashedUser(t, "a@x.com", "capture-user", "pw-irrelevant"))
	svc := newTestAuthService(users, newMockTokenStore(), nil)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "capture-user",
		Email:    "other@x.com",
		Password: "correct-horse",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, users.created)
}

func TestRegisterValidatesPayload(t *testing.T) {
	svc := newTestAuthService(newMockUserRepo(), newMockTokenStore(), nil)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "ab",
		Email:    "not-an-email",
		Password: "short",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLoginIssuesTokenPair(t *testing.T) {
	users := newMockUserRepo(hashedUser(t, "a@x.com", "capture-user", "correct-horse"))
	tokens := newMockTokenStore()
	svc := newTestAuthService(users, tokens, nil)

	resp, pair, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@x.com", Password: "correct-horse"})
	require.NoError(t, err)
	require.NotNil(t, pair)

	assert.Equal(t, "a@x.com", resp.User.Email)
	assert.Equal(t, pair.Verification.Token, resp.AccessToken)
	assert.Equal(t, pair.Refresh.Token, resp.RefreshToken)
	assert.InDelta(t, 900, resp.ExpiresIn, 2)

	assert.NotEmpty(t, pair.Verification.JTI)
	assert.Equal(t, 1, tokens.count(models.KindVerification))
	assert.Equal(t, 1, tokens.count(models.KindRefresh))
}

func TestLoginWrongPassword(t *testing.T) {
	users := newMockUserRepo(hashedUser(t, "a@x.com", "capture-user", "correct-horse"))
	tokens := newMockTokenStore()
	svc := newTestAuthService(users, tokens, nil)

	_, _, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@x.com", Password: "wrong-horse"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	// No tokens are persisted for a failed login.
	assert.Equal(t, 0, tokens.count(models.KindVerification))
	assert.Equal(t, 0, tokens.count(models.KindRefresh))
}

func TestLoginUnknownUser(t *testing.T) {
	svc := newTestAuthService(newMockUserRepo(), newMockTokenStore(), nil)

	_, _, err := svc.Login(context.Background(), models.LoginRequest{Email: "ghost@x.com", Password: "whatever-pw"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginExternalProviderAccount(t *testing.T) {
	user := testUser()
	user.PasswordHash = nil
	svc := newTestAuthService(newMockUserRepo(user), newMockTokenStore(), nil)

	_, _, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "any-password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginThrottleBlocksRepeatedFailures(t *testing.T) {
	users := newMockUserRepo(hashedUser(t, "a@x.com", "capture-user", "correct-horse"))
	throttle := newMockThrottleStore()
	svc := newTestAuthService(users, newMockTokenStore(), throttle)

	for i := 0; i < 3; i++ {
		_, _, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@x.com", Password: "wrong-horse"})
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
	}

	// Attempt limit reached: even the right password is refused now.
	_, _, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@x.com", Password: "correct-horse"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTooManyRequests.Code, appErrors.FromError(err).Code)
}

func TestLoginResetsThrottleOnSuccess(t *testing.T) {
	users := newMockUserRepo(hashedUser(t, "a@x.com", "capture-user", "correct-horse"))
	throttle := newMockThrottleStore()
	svc := newTestAuthService(users, newMockTokenStore(), throttle)

	_, _, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@x.com", Password: "wrong-horse"})
	require.Error(t, err)

	_, _, err = svc.Login(context.Background(), models.LoginRequest{Email: "a@x.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Empty(t, throttle.counts)
}

func TestLogoutRequiresIdentity(t *testing.T) {
	svc := newTestAuthService(newMockUserRepo(), newMockTokenStore(), nil)

	err := svc.Logout(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestLogoutTearsDownSession(t *testing.T) {
	users := newMockUserRepo(hashedUser(t, "a@x.com", "capture-user", "correct-horse"))
	tokens := newMockTokenStore()
	svc := newTestAuthService(users, tokens, nil)

	_, pair, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@x.com", Password: "correct-horse"})
	require.NoError(t, err)

	claims, _, err := svc.tokens.Verify(context.Background(), models.KindVerification, pair.Verification.Token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), claims))
	assert.Equal(t, 0, tokens.count(models.KindVerification))
	assert.Equal(t, 0, tokens.count(models.KindRefresh))

	_, _, err = svc.tokens.Verify(context.Background(), models.KindVerification, pair.Verification.Token)
	require.Error(t, err)
}
