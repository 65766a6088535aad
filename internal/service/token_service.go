package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tracekit/harbox-api/internal/models"
	appErrors "github.com/tracekit/harbox-api/pkg/errors"
)

type tokenUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type tokenStore interface {
	FindByEmail(ctx context.Context, kind models.TokenKind, email string) (*models.TokenRecord, error)
	Replace(ctx context.Context, kind models.TokenKind, record *models.TokenRecord) error
	DeleteByEmail(ctx context.Context, kind models.TokenKind, email string) (bool, error)
}

// TokenConfig defines the signing secret and lifetimes for both token kinds.
type TokenConfig struct {
	Secret          string
	VerificationTTL time.Duration
	RefreshTTL      time.Duration
}

// TokenService owns the token lifecycle: issuance, verification against both
// signature and store, and teardown. It never caches tokens in memory; the
// store owns all rows.
type TokenService struct {
	users  tokenUserRepository
	tokens tokenStore
	logger *zap.Logger
	config TokenConfig
	now    func() time.Time
}

// NewTokenService constructs a TokenService instance.
func NewTokenService(users tokenUserRepository, tokens tokenStore, logger *zap.Logger, config TokenConfig) *TokenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenService{users: users, tokens: tokens, logger: logger, config: config, now: time.Now}
}

func (s *TokenService) ttl(kind models.TokenKind) time.Duration {
	if kind == models.KindRefresh {
		return s.config.RefreshTTL
	}
	return s.config.VerificationTTL
}

// Issue builds, signs and persists a token of the given kind for an email.
// Replacing any prior live token of the same kind happens atomically with the
// insert; a failing delete aborts issuance before anything is written. All
// failures collapse into an absorbed error plus a log entry, so callers never
// see raw store errors.
func (s *TokenService) Issue(ctx context.Context, kind models.TokenKind, email string) (*models.TokenRecord, error) {
	issuedAt := s.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(s.ttl(kind))
	jti := uuid.NewString()

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("token issuance for unknown user", zap.String("kind", string(kind)))
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "could not issue token")
		}
		s.logger.Error("token issuance user lookup failed", zap.String("kind", string(kind)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "could not issue token")
	}
	if user.Email == "" || user.Username == "" {
		s.logger.Warn("token issuance for partially provisioned user", zap.String("kind", string(kind)))
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "could not issue token")
	}

	claims := &models.TokenClaims{
		Role:     user.Role,
		Email:    user.Email,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		s.logger.Error("token signing failed", zap.String("kind", string(kind)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrSigning.Code, appErrors.ErrSigning.Status, "could not issue token")
	}

	record := &models.TokenRecord{
		Email:     user.Email,
		Token:     signed,
		JTI:       jti,
		ExpiresAt: expiresAt,
		CreatedAt: issuedAt,
	}

	if err := s.tokens.Replace(ctx, kind, record); err != nil {
		s.logger.Error("token persistence failed", zap.String("kind", string(kind)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "could not issue token")
	}

	return record, nil
}

// IssuePair issues a fresh verification and refresh token for an email, the
// way login hands both to the client together.
func (s *TokenService) IssuePair(ctx context.Context, email string) (*models.TokenPair, error) {
	verification, err := s.Issue(ctx, models.KindVerification, email)
	if err != nil {
		return nil, err
	}
	refresh, err := s.Issue(ctx, models.KindRefresh, email)
	if err != nil {
		return nil, err
	}
	return &models.TokenPair{Verification: verification, Refresh: refresh}, nil
}

// Verify validates a signed token string: HS256 signature and expiry via the
// parser, then the persisted record (revocation-by-deletion: a deleted or
// rotated row makes an otherwise valid signature worthless), then the bearer
// account. Every failure collapses into the same unauthorized error; the
// cause is logged but never surfaced to the caller.
func (s *TokenService) Verify(ctx context.Context, kind models.TokenKind, tokenString string) (*models.TokenClaims, *models.User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil {
		s.logger.Debug("token verification failed", zap.String("kind", string(kind)), zap.Error(err))
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid access token")
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid access token")
	}

	record, err := s.tokens.FindByEmail(ctx, kind, claims.Email)
	if err != nil || record.JTI != claims.ID {
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("token record lookup failed", zap.String("kind", string(kind)), zap.Error(err))
		}
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid access token")
	}

	user, err := s.users.FindByEmail(ctx, claims.Email)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("token bearer lookup failed", zap.Error(err))
		}
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid access token")
	}

	return claims, user, nil
}

// Teardown removes both stored tokens for an identity. Deletion is
// idempotent: each kind is removed independently and absence of either is
// tolerated. Store failures surface as unauthorized per the session error
// policy.
func (s *TokenService) Teardown(ctx context.Context, email string) error {
	if email == "" {
		return appErrors.Clone(appErrors.ErrUnauthorized, "no session to tear down")
	}

	verificationDeleted, err := s.tokens.DeleteByEmail(ctx, models.KindVerification, email)
	if err != nil {
		s.logger.Error("verification token teardown failed", zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "could not tear down session")
	}

	refreshDeleted, err := s.tokens.DeleteByEmail(ctx, models.KindRefresh, email)
	if err != nil {
		s.logger.Error("refresh token teardown failed", zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "could not tear down session")
	}

	if !verificationDeleted && !refreshDeleted {
		// Nothing was live. Logged as inconsistent but treated as success.
		s.logger.Info("teardown found no live tokens", zap.String("code", appErrors.ErrInconsistentState.Code))
	}

	return nil
}

// Refresh exchanges a valid refresh token for a brand new token pair,
// rotating the stored refresh row in the process.
func (s *TokenService) Refresh(ctx context.Context, presented string) (*models.TokenPair, error) {
	claims, _, err := s.Verify(ctx, models.KindRefresh, presented)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid refresh token")
	}
	return s.IssuePair(ctx, claims.Email)
}
