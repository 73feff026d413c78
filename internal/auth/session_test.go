package auth

import (
	"testing"
	"time"

	"authapi_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSessionConfig() SessionConfig {
	return SessionConfig{
		AccessSecret:  "access-secret",
		AccessTTL:     15 * time.Minute,
		RefreshSecret: "refresh-secret",
		RefreshTTL:    24 * time.Hour,
		Issuer:        "authapi-test",
	}
}

func testUser(role models.UserRole) *models.User {
	u := &models.User{
		FullName: "Jane Doe",
		Username: "janedoe",
		Email:    "jane@example.com",
		Role:     role,
	}
	u.ID = "0b7a4c1e-7f43-4a57-9d0c-3f7f2c1d9e10"
	return u
}

func TestSessionIssuer_IssueAndVerify(t *testing.T) {
	t.Parallel()

	issuer := NewSessionIssuer(testSessionConfig())
	u := testUser(models.UserRoleUser)

	pair, err := issuer.Issue(u, models.UserRoleUser)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := issuer.VerifyAccess(pair.AccessToken, models.UserRoleUser)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, u.Email, claims.Email)
	assert.Equal(t, u.Username, claims.Username)
	assert.Equal(t, models.UserRoleUser, claims.Role)

	refresh, err := issuer.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, refresh.UserID)
	assert.Empty(t, refresh.Email)
}

func TestSessionIssuer_PairsAreUnique(t *testing.T) {
	t.Parallel()

	issuer := NewSessionIssuer(testSessionConfig())
	u := testUser(models.UserRoleUser)

	first, err := issuer.Issue(u, models.UserRoleUser)
	require.NoError(t, err)
	second, err := issuer.Issue(u, models.UserRoleUser)
	require.NoError(t, err)

	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)
}

func TestSessionIssuer_RoleMustMatchStoredRole(t *testing.T) {
	t.Parallel()

	issuer := NewSessionIssuer(testSessionConfig())

	_, err := issuer.Issue(testUser(models.UserRoleUser), models.UserRoleAdmin)
	assert.ErrorIs(t, err, ErrRoleMismatch)
}

func TestSessionIssuer_VerifyAccess_ExactRole(t *testing.T) {
	t.Parallel()

	issuer := NewSessionIssuer(testSessionConfig())

	userPair, err := issuer.Issue(testUser(models.UserRoleUser), models.UserRoleUser)
	require.NoError(t, err)
	adminPair, err := issuer.Issue(testUser(models.UserRoleAdmin), models.UserRoleAdmin)
	require.NoError(t, err)

	_, err = issuer.VerifyAccess(userPair.AccessToken, models.UserRoleAdmin)
	assert.ErrorIs(t, err, ErrInsufficientRole)

	_, err = issuer.VerifyAccess(adminPair.AccessToken, models.UserRoleUser)
	assert.ErrorIs(t, err, ErrInsufficientRole)

	_, err = issuer.VerifyAccess(adminPair.AccessToken, models.UserRoleAdmin)
	assert.NoError(t, err)
}

func TestSessionIssuer_RejectsInvalidTokens(t *testing.T) {
	t.Parallel()

	issuer := NewSessionIssuer(testSessionConfig())
	pair, err := issuer.Issue(testUser(models.UserRoleUser), models.UserRoleUser)
	require.NoError(t, err)

	otherCfg := testSessionConfig()
	otherCfg.AccessSecret = "another-secret"
	other := NewSessionIssuer(otherCfg)

	expired := NewSessionIssuer(testSessionConfig())
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	oldPair, err := expired.Issue(testUser(models.UserRoleUser), models.UserRoleUser)
	require.NoError(t, err)

	tests := []struct {
		name  string
		check func() error
	}{
		{"garbage", func() error { _, err := issuer.VerifyAccess("not-a-jwt", models.UserRoleUser); return err }},
		{"tampered", func() error {
			_, err := issuer.VerifyAccess(pair.AccessToken+"x", models.UserRoleUser)
			return err
		}},
		{"wrong secret", func() error { _, err := other.VerifyAccess(pair.AccessToken, models.UserRoleUser); return err }},
		{"expired", func() error { _, err := issuer.VerifyAccess(oldPair.AccessToken, models.UserRoleUser); return err }},
		{"refresh used as access", func() error {
			_, err := issuer.VerifyAccess(pair.RefreshToken, models.UserRoleUser)
			return err
		}},
		{"access used as refresh", func() error { _, err := issuer.ParseRefresh(pair.AccessToken); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.check(), ErrTokenInvalid)
		})
	}
}
