package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind distinguishes the two persisted token families.
type TokenKind string

const (
	// KindVerification is the short-lived token proving recent
	// authentication ("access token" at the wire level).
	KindVerification TokenKind = "verification"
	// KindRefresh is the long-lived token used to mint new verification
	// tokens without re-authenticating.
	KindRefresh TokenKind = "refresh"
)

// TokenRecord is a persisted signed token. At most one live record exists per
// (kind, email); issuing a new one replaces any prior record.
type TokenRecord struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Token     string    `db:"token" json:"token"`
	JTI       string    `db:"jti" json:"jti"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TokenPair bundles the verification and refresh tokens issued together at
// login.
type TokenPair struct {
	Verification *TokenRecord `json:"verification_token"`
	Refresh      *TokenRecord `json:"refresh_token"`
}

// TokenClaims is the signed JWT payload. The registered ID claim carries the
// jti correlating the signed string with its persisted record.
type TokenClaims struct {
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	Username string   `json:"user_name"`
	jwt.RegisteredClaims
}
