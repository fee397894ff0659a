package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/repository"
	appErrors "github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/errors"
)

const refreshTokenBytes = 32

type authOfficialRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Official, error)
	FindByID(ctx context.Context, id string) (*models.Official, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	RevokeOfficialRefreshTokens(ctx context.Context, officialID string) error
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error
}

// AuthConfig holds token lifetimes and signing settings.
type AuthConfig struct {
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	Issuer             string
	Audience           []string
	// SingleSession revokes every earlier refresh token on login.
	SingleSession bool
}

// AuthService signs officials in and out. Access tokens carry the role variant
// consumed by the JWT middleware; refresh tokens are opaque and stored.
type AuthService struct {
	repo      authOfficialRepository
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(repo authOfficialRepository, audit auditRecorder, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &AuthService{
		repo:      repo,
		audit:     audit,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type session struct {
	access  string
	claims  *models.JWTClaims
	refresh *models.RefreshToken
	issued  time.Time
}

// Login checks the credentials of an active official and opens a session.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := validate(s.validator, req, "invalid login payload"); err != nil {
		return nil, err
	}

	official, err := s.repo.FindByEmail(ctx, req.Email)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	case err != nil:
		return nil, appErrors.Storage(err, "failed to fetch official")
	}
	if !official.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}
	if bcrypt.CompareHashAndPassword([]byte(official.PasswordHash), []byte(req.Password)) != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	if s.config.SingleSession {
		if err := s.repo.RevokeOfficialRefreshTokens(ctx, official.ID); err != nil {
			s.logger.Warn("revoke earlier sessions failed", zap.String("official_id", official.ID), zap.Error(err))
		}
	}

	client := models.Actor{OfficialID: official.ID, IP: req.IP, UserAgent: req.UserAgent}
	sess, err := s.open(ctx, official, client)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateLastLogin(ctx, official.ID, sess.issued); err != nil {
		s.logger.Warn("update last login failed", zap.String("official_id", official.ID), zap.Error(err))
	}
	s.record(ctx, client, models.AuditActionLogin, `{"status":"success"}`)

	return &models.LoginResponse{
		AccessToken:  sess.access,
		RefreshToken: sess.refresh.Token,
		ExpiresIn:    int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:     sess.issued,
		Official:     sess.claims.Info(),
	}, nil
}

// RefreshToken rotates a live refresh token: the old one is revoked and a new pair issued.
func (s *AuthService) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	if err := validate(s.validator, req, "invalid refresh payload"); err != nil {
		return nil, err
	}

	stored, err := s.liveRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}

	official, err := s.repo.FindByID(ctx, stored.OfficialID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "official no longer exists")
	case err != nil:
		return nil, appErrors.Storage(err, "failed to load official")
	}
	if !official.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	// Only the caller that revokes the token opens a session.
	switch err := s.repo.RevokeRefreshToken(ctx, stored.ID, s.now()); {
	case errors.Is(err, repository.ErrRefreshTokenRevoked):
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token already used")
	case err != nil:
		return nil, appErrors.Storage(err, "failed to revoke refresh token")
	}

	client := models.Actor{OfficialID: official.ID, IP: req.IP, UserAgent: req.UserAgent}
	sess, err := s.open(ctx, official, client)
	if err != nil {
		return nil, err
	}
	s.record(ctx, client, models.AuditActionLogin, `{"refresh":"rotated"}`)

	return &models.RefreshTokenResponse{
		AccessToken:  sess.access,
		RefreshToken: sess.refresh.Token,
		ExpiresIn:    int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:     sess.issued,
	}, nil
}

// Logout revokes one of the caller's own refresh tokens.
func (s *AuthService) Logout(ctx context.Context, actor models.Actor, refreshToken string) error {
	stored, err := s.repo.FindRefreshToken(ctx, refreshToken)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrUnauthorized, "refresh token not found")
	case err != nil:
		return appErrors.Storage(err, "failed to load refresh token")
	}
	if stored.OfficialID != actor.OfficialID {
		return appErrors.Clone(appErrors.ErrForbidden, "token does not belong to official")
	}

	err = s.repo.RevokeRefreshToken(ctx, stored.ID, s.now())
	if err != nil && !errors.Is(err, repository.ErrRefreshTokenRevoked) {
		return appErrors.Storage(err, "failed to revoke refresh token")
	}
	s.record(ctx, actor, models.AuditActionLogout, `{"status":"logout"}`)
	return nil
}

// ChangePassword replaces the caller's password and ends all of their sessions.
func (s *AuthService) ChangePassword(ctx context.Context, actor models.Actor, req models.ChangePasswordRequest) error {
	if err := validate(s.validator, req, "invalid change password payload"); err != nil {
		return err
	}

	official, err := s.repo.FindByID(ctx, actor.OfficialID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "official not found")
	case err != nil:
		return appErrors.Storage(err, "failed to load official")
	}
	if bcrypt.CompareHashAndPassword([]byte(official.PasswordHash), []byte(req.OldPassword)) != nil {
		return appErrors.Clone(appErrors.ErrForbidden, "old password does not match")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Internal(err, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, official.ID, string(hash), s.now()); err != nil {
		return appErrors.Storage(err, "failed to update password")
	}
	if err := s.repo.RevokeOfficialRefreshTokens(ctx, official.ID); err != nil {
		s.logger.Warn("revoke sessions after password change failed", zap.String("official_id", official.ID), zap.Error(err))
	}

	s.record(ctx, actor, models.AuditActionPasswordChange, `{"status":"changed"}`)
	return nil
}

// ValidateToken verifies an HS256 access token and its role variant.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}

	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.config.AccessTokenSecret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}
	if !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if err := claims.CheckVariant(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) liveRefreshToken(ctx context.Context, value string) (*models.RefreshToken, error) {
	stored, err := s.repo.FindRefreshToken(ctx, value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token not found")
	case err != nil:
		return nil, appErrors.Storage(err, "failed to fetch refresh token")
	}
	if stored.Revoked || s.now().After(stored.ExpiresAt) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token is expired or revoked")
	}
	return stored, nil
}

// open signs an access token and stores a fresh refresh token for official.
func (s *AuthService) open(ctx context.Context, official *models.Official, client models.Actor) (*session, error) {
	issued := s.now()
	access, claims, err := s.signAccessToken(official, issued)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create access token")
	}

	value, err := randomToken()
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create refresh token")
	}
	refresh := &models.RefreshToken{
		ID:         uuid.NewString(),
		OfficialID: official.ID,
		Token:      value,
		ExpiresAt:  issued.Add(s.config.RefreshTokenExpiry),
		CreatedAt:  issued,
		IPAddress:  client.IP,
		UserAgent:  client.UserAgent,
	}
	if err := s.repo.CreateRefreshToken(ctx, refresh); err != nil {
		return nil, appErrors.Storage(err, "failed to persist refresh token")
	}
	return &session{access: access, claims: claims, refresh: refresh, issued: issued}, nil
}

func (s *AuthService) signAccessToken(official *models.Official, issued time.Time) (string, *models.JWTClaims, error) {
	claims := models.NewClaims(official)
	if claims == nil {
		return "", nil, fmt.Errorf("unsupported role %q", official.Role)
	}
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    s.config.Issuer,
		Subject:   official.ID,
		Audience:  s.config.Audience,
		ExpiresAt: jwt.NewNumericDate(issued.Add(s.config.AccessTokenExpiry)),
		IssuedAt:  jwt.NewNumericDate(issued),
		NotBefore: jwt.NewNumericDate(issued),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

func (s *AuthService) record(ctx context.Context, actor models.Actor, action, payload string) {
	if s.audit == nil {
		return
	}
	id := actor.OfficialID
	s.audit.Record(ctx, models.AuditLog{
		OfficialID: &id,
		Action:     action,
		Resource:   "auth",
		ResourceID: &id,
		NewValues:  []byte(payload),
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
		RequestID:  actor.RequestID,
	})
}

func randomToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
