package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tracekit/harbox-api/internal/models"
	"github.com/tracekit/harbox-api/internal/service"
	"github.com/tracekit/harbox-api/pkg/config"
	appErrors "github.com/tracekit/harbox-api/pkg/errors"
	"github.com/tracekit/harbox-api/pkg/response"
)

// AuthHandler wires HTTP endpoints to the auth and token services.
type AuthHandler struct {
	auth   *service.AuthService
	tokens *service.TokenService
	cfg    config.AuthConfig
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(auth *service.AuthService, tokens *service.TokenService, cfg config.AuthConfig) *AuthHandler {
	return &AuthHandler{auth: auth, tokens: tokens, cfg: cfg}
}

// Register godoc
// @Summary Register user
// @Description Create a new account with username, email and password
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /users/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	info, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, info)
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate by email and password, issuing a token pair
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, pair, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setSessionCookies(c, pair)
	response.JSON(c, http.StatusOK, res, nil)
}

// Logout godoc
// @Summary Logout current session
// @Description Delete both stored tokens and clear session cookies
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.auth.Logout(c.Request.Context(), claims); err != nil {
		response.Error(c, err)
		return
	}

	response.ClearSessionCookie(c, h.cfg.AccessCookieName)
	response.ClearSessionCookie(c, h.cfg.RefreshCookieName)
	response.JSON(c, http.StatusOK, gin.H{"message": "user logged out successfully"}, nil)
}

// Refresh godoc
// @Summary Refresh token pair
// @Description Exchange a refresh token for a fresh verification/refresh pair
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body models.RefreshRequest false "Refresh payload (cookie fallback)"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	_ = c.ShouldBindJSON(&req)

	presented := req.RefreshToken
	if presented == "" {
		if cookie, err := c.Cookie(h.cfg.RefreshCookieName); err == nil {
			presented = cookie
		}
	}
	if presented == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "unauthorized request"))
		return
	}

	pair, err := h.tokens.Refresh(c.Request.Context(), presented)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setSessionCookies(c, pair)
	response.JSON(c, http.StatusOK, gin.H{
		"access_token":  pair.Verification.Token,
		"refresh_token": pair.Refresh.Token,
		"expires_in":    int64(time.Until(pair.Verification.ExpiresAt).Seconds()),
	}, nil)
}

// Me godoc
// @Summary Get current user
// @Description Returns the authenticated user's info
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user := userFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	info := models.UserInfo{
		Email:    user.Email,
		Username: user.Username,
		Image:    user.Image,
		Role:     user.Role,
	}
	response.JSON(c, http.StatusOK, info, nil)
}

func (h *AuthHandler) setSessionCookies(c *gin.Context, pair *models.TokenPair) {
	if pair == nil {
		return
	}
	if pair.Verification != nil {
		maxAge := int(time.Until(pair.Verification.ExpiresAt).Seconds())
		response.SetSessionCookie(c, h.cfg.AccessCookieName, pair.Verification.Token, maxAge)
	}
	if pair.Refresh != nil {
		maxAge := int(time.Until(pair.Refresh.ExpiresAt).Seconds())
		response.SetSessionCookie(c, h.cfg.RefreshCookieName, pair.Refresh.Token, maxAge)
	}
}
