package repositories

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"authapi_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, repo UserRepository, username, email string) *models.User {
	t.Helper()
	u := &models.User{
		FullName:          "Jane Doe",
		Username:          username,
		Email:             email,
		PasswordHash:      "$2a$10$abcdefghijklmnopqrstuuS7oTP3N6gqFqK5gk5fQ3XnSx2l1kS6W",
		Role:              models.UserRoleUser,
		ConfirmationToken: "confirm-token",
	}
	require.NoError(t, repo.Create(context.Background(), u))
	require.NotEmpty(t, u.ID)
	return u
}

func TestMemoryUserRepository_DefaultReadHidesSensitiveFields(t *testing.T) {
	t.Parallel()
	repo := NewMemoryUserRepository()
	ctx := context.Background()
	u := seedUser(t, repo, "janedoe", "jane@example.com")

	got, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "janedoe", got.Username)
	assert.Empty(t, got.PasswordHash)
	assert.Empty(t, got.Role)
	assert.Empty(t, got.ConfirmationToken)

	got, err = repo.FindByID(ctx, u.ID, FieldPassword, FieldRole)
	require.NoError(t, err)
	assert.NotEmpty(t, got.PasswordHash)
	assert.Equal(t, models.UserRoleUser, got.Role)
	assert.Empty(t, got.ConfirmationToken)
}

func TestMemoryUserRepository_Uniqueness(t *testing.T) {
	t.Parallel()
	repo := NewMemoryUserRepository()
	ctx := context.Background()
	seedUser(t, repo, "janedoe", "jane@example.com")

	err := repo.Create(ctx, &models.User{Username: "other", Email: "jane@example.com"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	err = repo.Create(ctx, &models.User{Username: "janedoe", Email: "other@example.com"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	taken, err := repo.ExistsByUsername(ctx, "janedoe", "")
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestMemoryUserRepository_ConfirmAccountIsSingleUse(t *testing.T) {
	t.Parallel()
	repo := NewMemoryUserRepository()
	ctx := context.Background()
	u := seedUser(t, repo, "janedoe", "jane@example.com")

	require.NoError(t, repo.ConfirmAccount(ctx, u.ID, "confirm-token"))
	assert.ErrorIs(t, repo.ConfirmAccount(ctx, u.ID, "confirm-token"), ErrTokenMismatch)

	got, err := repo.FindByID(ctx, u.ID, FieldConfirmationToken)
	require.NoError(t, err)
	assert.True(t, got.IsAccountConfirmed)
	assert.Empty(t, got.ConfirmationToken)
}

func TestMemoryUserRepository_ConcurrentRotationHasOneWinner(t *testing.T) {
	t.Parallel()
	repo := NewMemoryUserRepository()
	ctx := context.Background()
	u := seedUser(t, repo, "janedoe", "jane@example.com")
	require.NoError(t, repo.SetRefreshToken(ctx, u.ID, "stale"))

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.RotateRefreshToken(ctx, u.ID, "stale", "next")
			if err == nil {
				atomic.AddInt32(&wins, 1)
			} else if !errors.Is(err, ErrTokenMismatch) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
}

func TestMemoryUserRepository_ConfirmEmailChange(t *testing.T) {
	t.Parallel()
	repo := NewMemoryUserRepository()
	ctx := context.Background()
	u := seedUser(t, repo, "janedoe", "jane@example.com")
	seedUser(t, repo, "johndoe", "john@example.com")

	// Act: the staged address gets taken by someone else
	require.NoError(t, repo.SetEmailChange(ctx, u.ID, "john@example.com", "change-token"))
	err := repo.ConfirmEmailChange(ctx, u.ID, "change-token")

	// Assert
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	require.NoError(t, repo.SetEmailChange(ctx, u.ID, "jane.new@example.com", "change-token-2"))
	assert.ErrorIs(t, repo.ConfirmEmailChange(ctx, u.ID, "change-token"), ErrTokenMismatch)
	require.NoError(t, repo.ConfirmEmailChange(ctx, u.ID, "change-token-2"))

	got, err := repo.FindByID(ctx, u.ID, FieldTempMail, FieldChangeEmailToken)
	require.NoError(t, err)
	assert.Equal(t, "jane.new@example.com", got.Email)
	assert.Empty(t, got.TempMail)
	assert.Empty(t, got.ChangeEmailConfirmationToken)
}

func TestMemoryUserRepository_ResetPasswordClearsSession(t *testing.T) {
	t.Parallel()
	repo := NewMemoryUserRepository()
	ctx := context.Background()
	u := seedUser(t, repo, "janedoe", "jane@example.com")
	require.NoError(t, repo.SetRefreshToken(ctx, u.ID, "refresh"))
	require.NoError(t, repo.SetToken(ctx, u.ID, models.TokenKindResetPassword, "reset-token"))

	assert.ErrorIs(t, repo.ResetPassword(ctx, u.ID, "wrong", "new-hash"), ErrTokenMismatch)
	require.NoError(t, repo.ResetPassword(ctx, u.ID, "reset-token", "new-hash"))

	got, err := repo.FindByID(ctx, u.ID, FieldPassword, FieldRefreshToken, FieldResetPasswordToken)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
	assert.Empty(t, got.RefreshToken)
	assert.Empty(t, got.ResetPasswordToken)
}

func TestMemoryUserRepository_UpdateProfileConflict(t *testing.T) {
	t.Parallel()
	repo := NewMemoryUserRepository()
	ctx := context.Background()
	u := seedUser(t, repo, "janedoe", "jane@example.com")
	seedUser(t, repo, "johndoe", "john@example.com")

	taken := "johndoe"
	assert.ErrorIs(t, repo.UpdateProfile(ctx, u.ID, ProfileUpdate{Username: &taken}), ErrUserAlreadyExists)

	own := "janedoe"
	name := "Jane Q Doe"
	require.NoError(t, repo.UpdateProfile(ctx, u.ID, ProfileUpdate{Username: &own, FullName: &name}))

	got, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Q Doe", got.FullName)
}

func TestMemoryUserRepository_UnknownUser(t *testing.T) {
	t.Parallel()
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	_, err := repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, repo.SetRefreshToken(ctx, "missing", "x"), ErrUserNotFound)
	assert.ErrorIs(t, repo.RotateRefreshToken(ctx, "missing", "x", "y"), ErrTokenMismatch)
}
