package repositories

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"authapi_backend/database"
	"authapi_backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newGormRepository connects to TEST_DATABASE_URL or skips the test.
func newGormRepository(t *testing.T) UserRepository {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}
	driver := os.Getenv("TEST_DATABASE_DRIVER")
	if driver == "" {
		driver = "postgres"
	}

	db, err := database.Open(driver, dsn)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return NewUserRepository(db)
}

func uniqueUser() *models.User {
	suffix := uuid.NewString()[:8]
	return &models.User{
		FullName:          "Jane Doe",
		Username:          "u" + suffix,
		Email:             suffix + "@example.com",
		PasswordHash:      "$2a$10$abcdefghijklmnopqrstuuS7oTP3N6gqFqK5gk5fQ3XnSx2l1kS6W",
		Role:              models.UserRoleUser,
		ConfirmationToken: "confirm-" + suffix,
	}
}

func TestUserRepository_Integration(t *testing.T) {
	repo := newGormRepository(t)
	ctx := context.Background()

	u := uniqueUser()
	require.NoError(t, repo.Create(ctx, u))

	t.Run("duplicate email", func(t *testing.T) {
		dup := uniqueUser()
		dup.Email = u.Email
		assert.ErrorIs(t, repo.Create(ctx, dup), ErrUserAlreadyExists)
	})

	t.Run("projection", func(t *testing.T) {
		got, err := repo.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Empty(t, got.PasswordHash)
		assert.Empty(t, got.ConfirmationToken)

		got, err = repo.FindByUsernameOrEmail(ctx, "", u.Email, FieldPassword, FieldRole)
		require.NoError(t, err)
		assert.Equal(t, u.PasswordHash, got.PasswordHash)
		assert.Equal(t, models.UserRoleUser, got.Role)
	})

	t.Run("confirm account once", func(t *testing.T) {
		require.NoError(t, repo.ConfirmAccount(ctx, u.ID, u.ConfirmationToken))
		assert.ErrorIs(t, repo.ConfirmAccount(ctx, u.ID, u.ConfirmationToken), ErrTokenMismatch)
	})

	t.Run("rotate refresh token once", func(t *testing.T) {
		require.NoError(t, repo.SetRefreshToken(ctx, u.ID, "stale"))

		var wins int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := repo.RotateRefreshToken(ctx, u.ID, "stale", "next-"+uuid.NewString())
				if err == nil {
					atomic.AddInt32(&wins, 1)
				} else if !errors.Is(err, ErrTokenMismatch) {
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins)
	})

	t.Run("confirm email change", func(t *testing.T) {
		newEmail := uuid.NewString()[:8] + "@example.org"
		require.NoError(t, repo.SetEmailChange(ctx, u.ID, newEmail, "change-token"))
		require.NoError(t, repo.ConfirmEmailChange(ctx, u.ID, "change-token"))

		got, err := repo.FindByID(ctx, u.ID, FieldTempMail)
		require.NoError(t, err)
		assert.Equal(t, newEmail, got.Email)
		assert.Empty(t, got.TempMail)
	})
}
