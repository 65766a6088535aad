package models

// RegisterRequest holds the fields required to create an account.
type RegisterRequest struct {
	Username string `json:"user_name" validate:"required,min=6"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token pair and basic user info.
type LoginResponse struct {
	User         UserInfo `json:"user"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int64    `json:"expires_in"`
}

// RefreshRequest carries a refresh token presented in the request body. The
// refreshToken cookie is an alternative carrier.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	Email    string   `json:"email"`
	Username string   `json:"user_name"`
	Image    *string  `json:"image,omitempty"`
	Role     UserRole `json:"role,omitempty"`
}
