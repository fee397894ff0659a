package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/middleware"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
	appErrors "github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/errors"
)

type fakeAuthSrv struct {
	loginReq    models.LoginRequest
	loginErr    error
	logoutToken string
	logoutActor models.Actor
	changeActor models.Actor
	changeReq   models.ChangePasswordRequest
}

func (f *fakeAuthSrv) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.loginReq = req
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.LoginResponse{AccessToken: "access", RefreshToken: "refresh", Official: models.OfficialInfo{ID: "a1", Role: models.RoleAdmin}}, nil
}

func (f *fakeAuthSrv) RefreshToken(_ context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	return &models.RefreshTokenResponse{AccessToken: "access-2", RefreshToken: "refresh-2"}, nil
}

func (f *fakeAuthSrv) Logout(_ context.Context, actor models.Actor, token string) error {
	f.logoutActor, f.logoutToken = actor, token
	return nil
}

func (f *fakeAuthSrv) ChangePassword(_ context.Context, actor models.Actor, req models.ChangePasswordRequest) error {
	f.changeActor, f.changeReq = actor, req
	return nil
}

func newAuthContext(method, target, body string, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.Header.Set("User-Agent", "test-agent")
	if claims != nil {
		c.Set(middleware.ContextClaimsKey, claims)
	}
	return c, rec
}

func TestAuthHandlerLogin(t *testing.T) {
	srv := &fakeAuthSrv{}
	h := NewAuthHandler(srv)

	c, rec := newAuthContext(http.MethodPost, "/auth/login", `{"email":"sharma@example.com","password":"secret"}`, nil)
	h.Login(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test-agent", srv.loginReq.UserAgent)
	assert.Contains(t, rec.Body.String(), `"access_token":"access"`)

	srv.loginErr = appErrors.ErrInvalidCredentials
	c, rec = newAuthContext(http.MethodPost, "/auth/login", `{"email":"sharma@example.com","password":"bad"}`, nil)
	h.Login(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newAuthContext(http.MethodPost, "/auth/login", `not-json`, nil)
	h.Login(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandlerSessionEndpointsUseClaims(t *testing.T) {
	srv := &fakeAuthSrv{}
	h := NewAuthHandler(srv)
	claims := models.NewClaims(&models.Official{ID: "s1", FullName: "Mrs. Verma", Role: models.RoleSupervisor, Block: "Koilwar"})

	c, rec := newAuthContext(http.MethodPost, "/auth/logout", `{"refresh_token":"rt"}`, claims)
	h.Logout(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, "rt", srv.logoutToken)
	assert.Equal(t, "s1", srv.logoutActor.OfficialID)
	assert.Equal(t, "test-agent", srv.logoutActor.UserAgent)
	_ = rec

	c, rec = newAuthContext(http.MethodPost, "/auth/logout", `{"refresh_token":"  "}`, claims)
	h.Logout(c)
	assert.Equal(t, http.StatusBadRequest, c.Writer.Status())
	assert.Contains(t, rec.Body.String(), `"field":"refresh_token"`)

	c, _ = newAuthContext(http.MethodPost, "/auth/logout", `{"refresh_token":"rt"}`, nil)
	h.Logout(c)
	assert.Equal(t, http.StatusUnauthorized, c.Writer.Status())

	c, _ = newAuthContext(http.MethodPost, "/auth/change-password", `{"old_password":"a","new_password":"bbbbbbbb"}`, claims)
	h.ChangePassword(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, "s1", srv.changeActor.OfficialID)
	assert.Equal(t, "Mrs. Verma", srv.changeActor.Name)

	c, rec = newAuthContext(http.MethodGet, "/auth/me", "", claims)
	h.Me(c)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data models.OfficialInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, models.RoleSupervisor, body.Data.Role)
	assert.Equal(t, "Koilwar", body.Data.Block)

	c, rec = newAuthContext(http.MethodGet, "/auth/me", "", nil)
	h.Me(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
