package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/portfolio-api/internal/middleware"
	"github.com/noah-isme/portfolio-api/internal/models"
	"github.com/noah-isme/portfolio-api/internal/service"
)

type stubUserRepo struct {
	user   *models.User
	tokens map[string]*models.RefreshToken
}

func newStubUserRepo(user *models.User) *stubUserRepo {
	return &stubUserRepo{user: user, tokens: make(map[string]*models.RefreshToken)}
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user != nil && s.user.Email == email {
		return s.user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubUserRepo) RecordFailedAttempt(ctx context.Context, id string, threshold int, lockedUntil time.Time) (int, error) {
	s.user.FailedLoginAttempts++
	return s.user.FailedLoginAttempts, nil
}

func (s *stubUserRepo) ResetFailedAttempts(ctx context.Context, id string) error {
	s.user.FailedLoginAttempts = 0
	return nil
}

func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (s *stubUserRepo) UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) error {
	s.user.PasswordHash = hash
	return nil
}

func (s *stubUserRepo) UpdateProfile(ctx context.Context, user *models.User) error {
	s.user = user
	return nil
}

func (s *stubUserRepo) CountOthersWithEmail(ctx context.Context, id, email string) (int, error) {
	return 0, nil
}

func (s *stubUserRepo) CountOthersWithUsername(ctx context.Context, id, username string) (int, error) {
	return 0, nil
}

func (s *stubUserRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	s.tokens[token.Token] = token
	return nil
}

func (s *stubUserRepo) FindActiveRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := s.tokens[token]; ok && !t.Revoked {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubUserRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) (bool, error) {
	for _, t := range s.tokens {
		if t.ID == id && !t.Revoked {
			t.Revoked = true
			t.RevokedAt = &revokedAt
			return true, nil
		}
	}
	return false, nil
}

func (s *stubUserRepo) RevokeUserRefreshToken(ctx context.Context, userID, token string, revokedAt time.Time) error {
	if t, ok := s.tokens[token]; ok && t.UserID == userID {
		t.Revoked = true
	}
	return nil
}

func (s *stubUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string, revokedAt time.Time) error {
	for _, t := range s.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

func buildAuthRouter(t *testing.T) (*gin.Engine, *stubUserRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("Sup3r@Secret"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := newStubUserRepo(&models.User{
		ID:           "user-1",
		Username:     "admin",
		Email:        "admin@example.com",
		PasswordHash: string(hash),
		IsActive:     true,
		IsAdmin:      true,
	})

	svc := service.NewAuthService(repo, validator.New(), zap.NewNop(), service.AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		Issuer:             "portfolio-api",
		MaxFailedAttempts:  5,
		LockoutDuration:    30 * time.Minute,
	})
	h := NewAuthHandler(svc, service.NewMetricsService())

	router := gin.New()
	router.POST("/auth/login", h.Login)
	router.POST("/auth/refresh", h.Refresh)
	router.POST("/auth/logout", middleware.JWT(svc), h.Logout)
	router.POST("/auth/change-password", middleware.JWT(svc), h.ChangePassword)
	router.GET("/auth/profile", middleware.JWT(svc), h.Profile)
	return router, repo
}

func postJSON(router *gin.Engine, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestLoginEndpointReturnsRawTokenPayload(t *testing.T) {
	router, _ := buildAuthRouter(t)

	w := postJSON(router, "/auth/login", `{"email":"admin@example.com","password":"Sup3r@Secret"}`, "")
	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Contains(t, payload, "access_token")
	assert.Contains(t, payload, "refresh_token")
	assert.Contains(t, payload, "expires_in")
	assert.Contains(t, payload, "user")
	assert.NotContains(t, payload, "success", "token payload is not wrapped in the envelope")
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestLoginEndpointRejectsBadPassword(t *testing.T) {
	router, _ := buildAuthRouter(t)

	w := postJSON(router, "/auth/login", `{"email":"admin@example.com","password":"wrong"}`, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"INVALID_CREDENTIALS"`)
}

func TestLoginEndpointLockedAccount(t *testing.T) {
	router, repo := buildAuthRouter(t)
	until := time.Now().UTC().Add(10 * time.Minute)
	repo.user.LockedUntil = &until

	w := postJSON(router, "/auth/login", `{"email":"admin@example.com","password":"Sup3r@Secret"}`, "")
	require.Equal(t, http.StatusLocked, w.Code)
	assert.Contains(t, w.Body.String(), `"ACCOUNT_LOCKED"`)
}

func TestRefreshEndpointRotates(t *testing.T) {
	router, _ := buildAuthRouter(t)

	login := postJSON(router, "/auth/login", `{"email":"admin@example.com","password":"Sup3r@Secret"}`, "")
	require.Equal(t, http.StatusOK, login.Code)

	var tokens struct {
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &tokens))

	first := postJSON(router, "/auth/refresh", `{"refresh_token":"`+tokens.RefreshToken+`"}`, "")
	require.Equal(t, http.StatusOK, first.Code)

	// The presented token was rotated out and cannot be replayed.
	replay := postJSON(router, "/auth/refresh", `{"refresh_token":"`+tokens.RefreshToken+`"}`, "")
	require.Equal(t, http.StatusUnauthorized, replay.Code)
	assert.Contains(t, replay.Body.String(), `"TOKEN_INVALID"`)
}

func TestRefreshEndpointUnknownToken(t *testing.T) {
	router, _ := buildAuthRouter(t)

	w := postJSON(router, "/auth/refresh", `{"refresh_token":"never-issued"}`, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"TOKEN_INVALID"`)
}

func TestProfileEndpointRequiresToken(t *testing.T) {
	router, _ := buildAuthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProfileEndpointWithToken(t *testing.T) {
	router, _ := buildAuthRouter(t)

	login := postJSON(router, "/auth/login", `{"email":"admin@example.com","password":"Sup3r@Secret"}`, "")
	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &tokens))

	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
	assert.Contains(t, w.Body.String(), `"admin@example.com"`)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestChangePasswordEndpointWrongCurrent(t *testing.T) {
	router, _ := buildAuthRouter(t)

	login := postJSON(router, "/auth/login", `{"email":"admin@example.com","password":"Sup3r@Secret"}`, "")
	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &tokens))

	w := postJSON(router, "/auth/change-password", `{"current_password":"nope","new_password":"N3w!Password"}`, tokens.AccessToken)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"WRONG_PASSWORD"`)
}

func TestLogoutEndpointRevokesSession(t *testing.T) {
	router, repo := buildAuthRouter(t)

	login := postJSON(router, "/auth/login", `{"email":"admin@example.com","password":"Sup3r@Secret"}`, "")
	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &tokens))

	w := postJSON(router, "/auth/logout", `{"refresh_token":"`+tokens.RefreshToken+`"}`, tokens.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, repo.tokens[tokens.RefreshToken].Revoked)
}

func TestLoginEndpointValidationErrorShape(t *testing.T) {
	router, _ := buildAuthRouter(t)

	w := postJSON(router, "/auth/login", `{"email":"not-an-email","password":""}`, "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var envelope struct {
		Success bool   `json:"success"`
		Code    string `json:"code"`
		Data    struct {
			ValidationErrors map[string]string `json:"validation_errors"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Code)
	assert.Equal(t, "Must be a valid email address", envelope.Data.ValidationErrors["email"])
	assert.Equal(t, "This field is required", envelope.Data.ValidationErrors["password"])
}
