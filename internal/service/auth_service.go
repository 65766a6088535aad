package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/tracekit/harbox-api/internal/models"
	appErrors "github.com/tracekit/harbox-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type loginThrottleStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
	Delete(ctx context.Context, key string) error
}

// AuthServiceConfig tunes password hashing and the failed-login throttle.
type AuthServiceConfig struct {
	BcryptCost          int
	ThrottleEnabled     bool
	ThrottleMaxAttempts int
	ThrottleWindow      time.Duration
}

// AuthService provides the account use cases: registration, login and logout.
// Token mechanics are delegated to the TokenService.
type AuthService struct {
	users     authUserRepository
	tokens    *TokenService
	throttle  loginThrottleStore
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthServiceConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, tokens *TokenService, throttle loginThrottleStore, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config AuthServiceConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.BcryptCost <= 0 {
		config.BcryptCost = 10
	}
	return &AuthService{users: users, tokens: tokens, throttle: throttle, metrics: metrics, validator: validate, logger: logger, config: config}
}

// Register creates a new account with a bcrypt password hash.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.UserInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	if _, err := s.users.FindByUsername(ctx, req.Username); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user with username or email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}
	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user with username or email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BcryptCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	hashStr := string(hash)

	user := &models.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: &hashStr,
		Role:         models.RoleMember,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	return &models.UserInfo{Email: user.Email, Username: user.Username, Role: user.Role}, nil
}

// Login authenticates a user and hands out a fresh token pair. Every
// credential failure resolves to the same invalid-credentials error so the
// response never reveals which check failed.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, *models.TokenPair, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	throttleKey := fmt.Sprintf("login:failed:%s", req.Email)
	if s.config.ThrottleEnabled && s.throttle != nil {
		var attempts int64
		if err := s.throttle.Get(ctx, throttleKey, &attempts); err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("login throttle lookup failed", zap.Error(err))
		}
		if attempts >= int64(s.config.ThrottleMaxAttempts) {
			return nil, nil, appErrors.Clone(appErrors.ErrTooManyRequests, "too many failed login attempts")
		}
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.recordFailedLogin(ctx, throttleKey)
			return nil, nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	// Accounts provisioned by an external identity provider carry no hash
	// and cannot authenticate with a password.
	if user.PasswordHash == nil {
		s.recordFailedLogin(ctx, throttleKey)
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		s.recordFailedLogin(ctx, throttleKey)
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	if s.throttle != nil {
		if err := s.throttle.Delete(ctx, throttleKey); err != nil {
			s.logger.Warn("login throttle reset failed", zap.Error(err))
		}
	}

	pair, err := s.tokens.IssuePair(ctx, user.Email)
	if err != nil {
		return nil, nil, err
	}

	resp := &models.LoginResponse{
		User:         models.UserInfo{Email: user.Email, Username: user.Username, Image: user.Image},
		AccessToken:  pair.Verification.Token,
		RefreshToken: pair.Refresh.Token,
		ExpiresIn:    int64(time.Until(pair.Verification.ExpiresAt).Seconds()),
	}
	return resp, pair, nil
}

// Logout tears down the caller's stored tokens.
func (s *AuthService) Logout(ctx context.Context, identity *models.TokenClaims) error {
	if identity == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "unauthorized request")
	}
	return s.tokens.Teardown(ctx, identity.Email)
}

func (s *AuthService) recordFailedLogin(ctx context.Context, key string) {
	s.metrics.RecordLoginFailure()
	if !s.config.ThrottleEnabled || s.throttle == nil {
		return
	}
	if _, err := s.throttle.Increment(ctx, key, s.config.ThrottleWindow); err != nil {
		s.logger.Warn("login throttle increment failed", zap.Error(err))
	}
}
