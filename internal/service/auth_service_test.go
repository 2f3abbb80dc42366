package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/portfolio-api/internal/models"
	appErrors "github.com/noah-isme/portfolio-api/pkg/errors"
)

type mockUserRepo struct {
	findByEmailFn             func(ctx context.Context, email string) (*models.User, error)
	findByIDFn                func(ctx context.Context, id string) (*models.User, error)
	recordFailedAttemptFn     func(ctx context.Context, id string, threshold int, lockedUntil time.Time) (int, error)
	resetFailedAttemptsFn     func(ctx context.Context, id string) error
	updateLastLoginFn         func(ctx context.Context, id string, ts time.Time) error
	updatePasswordFn          func(ctx context.Context, id, hash string, changedAt time.Time) error
	updateProfileFn           func(ctx context.Context, user *models.User) error
	countOthersWithEmailFn    func(ctx context.Context, id, email string) (int, error)
	countOthersWithUsernameFn func(ctx context.Context, id, username string) (int, error)
	createRefreshTokenFn      func(ctx context.Context, token *models.RefreshToken) error
	findActiveRefreshTokenFn  func(ctx context.Context, token string) (*models.RefreshToken, error)
	revokeRefreshTokenFn      func(ctx context.Context, id string, revokedAt time.Time) (bool, error)
	revokeUserRefreshTokenFn  func(ctx context.Context, userID, token string, revokedAt time.Time) error
	revokeUserRefreshTokensFn func(ctx context.Context, userID string, revokedAt time.Time) error
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findByEmailFn(ctx, email)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockUserRepo) RecordFailedAttempt(ctx context.Context, id string, threshold int, lockedUntil time.Time) (int, error) {
	return m.recordFailedAttemptFn(ctx, id, threshold, lockedUntil)
}

func (m *mockUserRepo) ResetFailedAttempts(ctx context.Context, id string) error {
	if m.resetFailedAttemptsFn != nil {
		return m.resetFailedAttemptsFn(ctx, id)
	}
	return nil
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	if m.updateLastLoginFn != nil {
		return m.updateLastLoginFn(ctx, id, ts)
	}
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) error {
	return m.updatePasswordFn(ctx, id, hash, changedAt)
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, user *models.User) error {
	return m.updateProfileFn(ctx, user)
}

func (m *mockUserRepo) CountOthersWithEmail(ctx context.Context, id, email string) (int, error) {
	return m.countOthersWithEmailFn(ctx, id, email)
}

func (m *mockUserRepo) CountOthersWithUsername(ctx context.Context, id, username string) (int, error) {
	return m.countOthersWithUsernameFn(ctx, id, username)
}

func (m *mockUserRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	return m.createRefreshTokenFn(ctx, token)
}

func (m *mockUserRepo) FindActiveRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	return m.findActiveRefreshTokenFn(ctx, token)
}

func (m *mockUserRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) (bool, error) {
	return m.revokeRefreshTokenFn(ctx, id, revokedAt)
}

func (m *mockUserRepo) RevokeUserRefreshToken(ctx context.Context, userID, token string, revokedAt time.Time) error {
	return m.revokeUserRefreshTokenFn(ctx, userID, token, revokedAt)
}

func (m *mockUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string, revokedAt time.Time) error {
	return m.revokeUserRefreshTokensFn(ctx, userID, revokedAt)
}

var testClock = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestAuthService(repo *mockUserRepo) *AuthService {
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		Issuer:             "portfolio-api",
		MaxFailedAttempts:  5,
		LockoutDuration:    30 * time.Minute,
	})
	return svc.WithClock(func() time.Time { return testClock })
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func activeUser(t *testing.T) *models.User {
	t.Helper()
	return &models.User{
		ID:           "user-1",
		Username:     "admin",
		Email:        "admin@example.com",
		PasswordHash: hashPassword(t, "Sup3r@Secret"),
		IsActive:     true,
		IsAdmin:      true,
	}
}

func TestLoginSuccess(t *testing.T) {
	user := activeUser(t)
	user.FailedLoginAttempts = 3

	resetCalled := false
	var created *models.RefreshToken
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*models.User, error) {
			assert.Equal(t, "admin@example.com", email)
			return user, nil
		},
		resetFailedAttemptsFn: func(ctx context.Context, id string) error {
			resetCalled = true
			return nil
		},
		createRefreshTokenFn: func(ctx context.Context, token *models.RefreshToken) error {
			created = token
			return nil
		},
	}

	svc := newTestAuthService(repo)
	res, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "Sup3r@Secret",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, "admin@example.com", res.User.Email)
	assert.True(t, resetCalled, "successful login should clear the failure counter")

	require.NotNil(t, created)
	assert.Equal(t, user.ID, created.UserID)
	assert.Equal(t, testClock.Add(7*24*time.Hour), created.ExpiresAt)
	assert.False(t, created.Revoked)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.True(t, claims.IsAdmin)
}

func TestLoginUnknownEmailAndWrongPasswordIndistinguishable(t *testing.T) {
	user := activeUser(t)
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*models.User, error) {
			if email == user.Email {
				return user, nil
			}
			return nil, sql.ErrNoRows
		},
		recordFailedAttemptFn: func(ctx context.Context, id string, threshold int, lockedUntil time.Time) (int, error) {
			return 1, nil
		},
	}
	svc := newTestAuthService(repo)

	_, errUnknown := svc.Login(context.Background(), models.LoginRequest{
		Email: "nobody@example.com", Password: "whatever1",
	})
	_, errWrong := svc.Login(context.Background(), models.LoginRequest{
		Email: user.Email, Password: "wrong-password",
	})

	require.Error(t, errUnknown)
	require.Error(t, errWrong)
	assert.Equal(t, appErrors.FromError(errUnknown).Code, appErrors.FromError(errWrong).Code)
	assert.Equal(t, appErrors.FromError(errUnknown).Message, appErrors.FromError(errWrong).Message)
}

func TestLoginLocksAfterThresholdFailures(t *testing.T) {
	user := activeUser(t)
	user.FailedLoginAttempts = 4

	var capturedLockedUntil time.Time
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
		recordFailedAttemptFn: func(ctx context.Context, id string, threshold int, lockedUntil time.Time) (int, error) {
			assert.Equal(t, 5, threshold)
			capturedLockedUntil = lockedUntil
			return 5, nil
		},
	}
	svc := newTestAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email: user.Email, Password: "wrong-password",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAccountLocked.Code, appErrors.FromError(err).Code)
	assert.Equal(t, testClock.Add(30*time.Minute), capturedLockedUntil)
}

func TestLoginRejectsLockedAccountEvenWithCorrectPassword(t *testing.T) {
	user := activeUser(t)
	lockedUntil := testClock.Add(10 * time.Minute)
	user.LockedUntil = &lockedUntil
	user.FailedLoginAttempts = 5

	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
		recordFailedAttemptFn: func(ctx context.Context, id string, threshold int, lockedUntil time.Time) (int, error) {
			t.Fatal("a locked account must not consume an attempt")
			return 0, nil
		},
	}
	svc := newTestAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email: user.Email, Password: "Sup3r@Secret",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAccountLocked.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 423, appErrors.FromError(err).Status)
}

func TestLoginAllowedAfterLockWindowLapses(t *testing.T) {
	user := activeUser(t)
	lockedUntil := testClock.Add(-time.Minute)
	user.LockedUntil = &lockedUntil
	user.FailedLoginAttempts = 5

	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
		createRefreshTokenFn: func(ctx context.Context, token *models.RefreshToken) error {
			return nil
		},
	}
	svc := newTestAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email: user.Email, Password: "Sup3r@Secret",
	})
	require.NoError(t, err)
}

func TestLoginInactiveAccount(t *testing.T) {
	user := activeUser(t)
	user.IsActive = false

	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
	}
	svc := newTestAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email: user.Email, Password: "Sup3r@Secret",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAccountInactive.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 403, appErrors.FromError(err).Status)
}

func TestRefreshRotatesToken(t *testing.T) {
	user := activeUser(t)
	stored := &models.RefreshToken{
		ID:        "token-1",
		UserID:    user.ID,
		Token:     "old-refresh-value",
		ExpiresAt: testClock.Add(time.Hour),
	}

	var revokedID string
	var created *models.RefreshToken
	repo := &mockUserRepo{
		findActiveRefreshTokenFn: func(ctx context.Context, token string) (*models.RefreshToken, error) {
			assert.Equal(t, "old-refresh-value", token)
			return stored, nil
		},
		revokeRefreshTokenFn: func(ctx context.Context, id string, revokedAt time.Time) (bool, error) {
			revokedID = id
			return true, nil
		},
		findByIDFn: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
		createRefreshTokenFn: func(ctx context.Context, token *models.RefreshToken) error {
			created = token
			return nil
		},
	}
	svc := newTestAuthService(repo)

	res, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-refresh-value"})

	require.NoError(t, err)
	assert.Equal(t, "token-1", revokedID, "presented token must be revoked")
	require.NotNil(t, created)
	assert.NotEqual(t, "old-refresh-value", created.Token)
	assert.Equal(t, created.Token, res.RefreshToken)
}

func TestRefreshConcurrentLoserGetsInvalid(t *testing.T) {
	user := activeUser(t)
	stored := &models.RefreshToken{
		ID:        "token-1",
		UserID:    user.ID,
		Token:     "contested",
		ExpiresAt: testClock.Add(time.Hour),
	}

	repo := &mockUserRepo{
		findActiveRefreshTokenFn: func(ctx context.Context, token string) (*models.RefreshToken, error) {
			return stored, nil
		},
		revokeRefreshTokenFn: func(ctx context.Context, id string, revokedAt time.Time) (bool, error) {
			// Another request already claimed the token.
			return false, nil
		},
	}
	svc := newTestAuthService(repo)

	_, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: "contested"})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTokenInvalid.Code, appErrors.FromError(err).Code)
}

func TestRefreshExpiredTokenRevokedLazily(t *testing.T) {
	stored := &models.RefreshToken{
		ID:        "token-1",
		UserID:    "user-1",
		Token:     "stale",
		ExpiresAt: testClock.Add(-time.Second),
	}

	revoked := false
	repo := &mockUserRepo{
		findActiveRefreshTokenFn: func(ctx context.Context, token string) (*models.RefreshToken, error) {
			return stored, nil
		},
		revokeRefreshTokenFn: func(ctx context.Context, id string, revokedAt time.Time) (bool, error) {
			revoked = true
			return true, nil
		},
	}
	svc := newTestAuthService(repo)

	_, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTokenExpired.Code, appErrors.FromError(err).Code)
	assert.True(t, revoked, "expired token should be revoked when detected")
}

func TestRefreshTokenExpiryBoundary(t *testing.T) {
	// A token is usable strictly before expires_at; presenting it at the
	// exact deadline is already an expiry.
	stored := &models.RefreshToken{
		ID:        "token-1",
		UserID:    "user-1",
		Token:     "edge",
		ExpiresAt: testClock,
	}
	repo := &mockUserRepo{
		findActiveRefreshTokenFn: func(ctx context.Context, token string) (*models.RefreshToken, error) {
			return stored, nil
		},
		revokeRefreshTokenFn: func(ctx context.Context, id string, revokedAt time.Time) (bool, error) {
			return true, nil
		},
	}
	svc := newTestAuthService(repo)

	_, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: "edge"})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTokenExpired.Code, appErrors.FromError(err).Code)
	assert.False(t, stored.IsValid(testClock))
	assert.True(t, stored.IsValid(testClock.Add(-time.Nanosecond)))
}

func TestRefreshUnknownToken(t *testing.T) {
	repo := &mockUserRepo{
		findActiveRefreshTokenFn: func(ctx context.Context, token string) (*models.RefreshToken, error) {
			return nil, sql.ErrNoRows
		},
	}
	svc := newTestAuthService(repo)

	_, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: "never-issued"})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTokenInvalid.Code, appErrors.FromError(err).Code)
}

func TestLogoutScopedAndGlobal(t *testing.T) {
	var scopedToken string
	var globalUser string
	repo := &mockUserRepo{
		revokeUserRefreshTokenFn: func(ctx context.Context, userID, token string, revokedAt time.Time) error {
			scopedToken = token
			return nil
		},
		revokeUserRefreshTokensFn: func(ctx context.Context, userID string, revokedAt time.Time) error {
			globalUser = userID
			return nil
		},
	}
	svc := newTestAuthService(repo)

	require.NoError(t, svc.Logout(context.Background(), "user-1", "some-token"))
	assert.Equal(t, "some-token", scopedToken)
	assert.Empty(t, globalUser)

	require.NoError(t, svc.Logout(context.Background(), "user-1", ""))
	assert.Equal(t, "user-1", globalUser)
}

func TestChangePasswordRevokesAllSessions(t *testing.T) {
	user := activeUser(t)

	var storedHash string
	revokedAll := false
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
		updatePasswordFn: func(ctx context.Context, id, hash string, changedAt time.Time) error {
			storedHash = hash
			assert.Equal(t, testClock, changedAt)
			return nil
		},
		revokeUserRefreshTokensFn: func(ctx context.Context, userID string, revokedAt time.Time) error {
			revokedAll = true
			return nil
		},
	}
	svc := newTestAuthService(repo)

	err := svc.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{
		CurrentPassword: "Sup3r@Secret",
		NewPassword:     "N3w!Password",
	})

	require.NoError(t, err)
	assert.True(t, revokedAll)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(storedHash), []byte("N3w!Password")))
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	user := activeUser(t)
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}
	svc := newTestAuthService(repo)

	err := svc.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{
		CurrentPassword: "not-the-password",
		NewPassword:     "N3w!Password",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrWrongPassword.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 400, appErrors.FromError(err).Status)
}

func TestChangePasswordWeakNewPassword(t *testing.T) {
	svc := newTestAuthService(&mockUserRepo{})

	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		CurrentPassword: "Sup3r@Secret",
		NewPassword:     "alllowercase1!",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateProfileDuplicateEmail(t *testing.T) {
	user := activeUser(t)
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
		countOthersWithEmailFn: func(ctx context.Context, id, email string) (int, error) {
			return 1, nil
		},
	}
	svc := newTestAuthService(repo)

	email := "taken@example.com"
	_, err := svc.UpdateProfile(context.Background(), user.ID, models.UpdateProfileRequest{Email: &email})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenExpired(t *testing.T) {
	user := activeUser(t)
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
		createRefreshTokenFn: func(ctx context.Context, token *models.RefreshToken) error {
			return nil
		},
	}
	svc := newTestAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{
		Email: user.Email, Password: "Sup3r@Secret",
	})
	require.NoError(t, err)

	svc.WithClock(func() time.Time { return testClock.Add(2 * time.Hour) })
	_, err = svc.ValidateToken(res.AccessToken)
	require.Error(t, err)
}

func TestValidatePasswordStrength(t *testing.T) {
	assert.Empty(t, ValidatePasswordStrength("G00d!pass"))
	assert.NotEmpty(t, ValidatePasswordStrength("short"))
	assert.NotEmpty(t, ValidatePasswordStrength("nouppercase1!"))
	assert.NotEmpty(t, ValidatePasswordStrength("NOLOWERCASE1!"))
	assert.NotEmpty(t, ValidatePasswordStrength("NoDigits!!"))
	assert.NotEmpty(t, ValidatePasswordStrength("NoSpecial11"))
}
