package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/middleware"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
	appErrors "github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/errors"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error)
	Logout(ctx context.Context, actor models.Actor, refreshToken string) error
	ChangePassword(ctx context.Context, actor models.Actor, req models.ChangePasswordRequest) error
}

// AuthHandler serves the /auth routes.
type AuthHandler struct {
	service authService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Login godoc
// @Summary Sign in
// @Description Exchanges an official's email and password for an access and refresh token pair. The access token carries either an ADMIN or a SUPERVISOR profile.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := bindJSON(c, &req, "invalid login payload"); err != nil {
		response.Error(c, err)
		return
	}
	req.IP, req.UserAgent = c.ClientIP(), c.GetHeader("User-Agent")

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Refresh godoc
// @Summary Rotate tokens
// @Description Revokes the presented refresh token and issues a new pair.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshTokenRequest
	if err := bindJSON(c, &req, "invalid refresh payload"); err != nil {
		response.Error(c, err)
		return
	}
	req.IP, req.UserAgent = c.ClientIP(), c.GetHeader("User-Agent")

	res, err := h.service.RefreshToken(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Logout godoc
// @Summary Sign out
// @Description Revokes one of the caller's refresh tokens.
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.RefreshTokenRequest true "Refresh token"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if !signedIn(c) {
		return
	}
	var payload models.RefreshTokenRequest
	if err := bindJSON(c, &payload, "invalid logout payload"); err != nil {
		response.Error(c, err)
		return
	}
	token := strings.TrimSpace(payload.RefreshToken)
	if token == "" {
		response.Error(c, appErrors.Validation("refresh token required", appErrors.FieldError{Field: "refresh_token", Message: "is required"}))
		return
	}

	if err := h.service.Logout(c.Request.Context(), actorFromContext(c), token); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ChangePassword godoc
// @Summary Change password
// @Description Replaces the caller's password. All of their sessions are revoked.
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ChangePasswordRequest true "Old and new password"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	if !signedIn(c) {
		return
	}
	var req models.ChangePasswordRequest
	if err := bindJSON(c, &req, "invalid change password payload"); err != nil {
		response.Error(c, err)
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), actorFromContext(c), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Me godoc
// @Summary Current official
// @Description Returns the profile carried by the caller's access token.
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	if !signedIn(c) {
		return
	}
	response.JSON(c, http.StatusOK, middleware.Claims(c).Info(), nil)
}

// signedIn writes 401 and returns false when the request carries no verified claims.
func signedIn(c *gin.Context) bool {
	if middleware.Claims(c) == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return false
	}
	return true
}
