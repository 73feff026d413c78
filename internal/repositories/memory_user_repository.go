package repositories

import (
	"context"
	"errors"
	"sync"
	"time"

	"authapi_backend/internal/models"

	"github.com/google/uuid"
)

// MemoryUserRepository keeps users in process memory. It backs the "memory"
// database driver for local runs and the service and handler tests. Every
// conditional update runs under the write lock.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*models.User
	now   func() time.Time
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[string]*models.User),
		now:   time.Now,
	}
}

var _ UserRepository = (*MemoryUserRepository)(nil)

// project returns a copy of u with every sensitive field not in include zeroed.
func project(u *models.User, include []SensitiveField) *models.User {
	cp := *u
	keep := make(map[SensitiveField]bool, len(include))
	for _, f := range include {
		keep[f] = true
	}
	if !keep[FieldPassword] {
		cp.PasswordHash = ""
	}
	if !keep[FieldRole] {
		cp.Role = ""
	}
	if !keep[FieldConfirmationToken] {
		cp.ConfirmationToken = ""
	}
	if !keep[FieldResetPasswordToken] {
		cp.ResetPasswordToken = ""
	}
	if !keep[FieldChangeEmailToken] {
		cp.ChangeEmailConfirmationToken = ""
	}
	if !keep[FieldTempMail] {
		cp.TempMail = ""
	}
	if !keep[FieldRefreshToken] {
		cp.RefreshToken = ""
	}
	return &cp
}

func (r *MemoryUserRepository) takenLocked(column, value, excludeID string) bool {
	for id, u := range r.users {
		if id == excludeID {
			continue
		}
		switch column {
		case "username":
			if u.Username == value {
				return true
			}
		case "email":
			if u.Email == value {
				return true
			}
		}
	}
	return false
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.takenLocked("username", user.Username, "") || r.takenLocked("email", user.Email, "") {
		return ErrUserAlreadyExists
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = models.UserRoleUser
	}
	now := r.now()
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *MemoryUserRepository) find(ctx context.Context, include []SensitiveField, match func(*models.User) bool) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			return project(u, include), nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *MemoryUserRepository) FindByID(ctx context.Context, id string, include ...SensitiveField) (*models.User, error) {
	return r.find(ctx, include, func(u *models.User) bool { return u.ID == id })
}

func (r *MemoryUserRepository) FindByEmail(ctx context.Context, email string, include ...SensitiveField) (*models.User, error) {
	return r.find(ctx, include, func(u *models.User) bool { return u.Email == email })
}

func (r *MemoryUserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string, include ...SensitiveField) (*models.User, error) {
	if username == "" && email == "" {
		return nil, ErrUserNotFound
	}
	return r.find(ctx, include, func(u *models.User) bool {
		return (username != "" && u.Username == username) || (email != "" && u.Email == email)
	})
}

func (r *MemoryUserRepository) ExistsByUsername(ctx context.Context, username, excludeID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.takenLocked("username", username, excludeID), nil
}

func (r *MemoryUserRepository) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.takenLocked("email", email, excludeID), nil
}

// mutate runs fn on the stored user under the write lock. fn returns
// ErrTokenMismatch (or another error) to leave the record untouched.
func (r *MemoryUserRepository) mutate(ctx context.Context, id string, fn func(u *models.User) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	next := *u
	if err := fn(&next); err != nil {
		return err
	}
	next.UpdatedAt = r.now()
	r.users[id] = &next
	return nil
}

// mismatchIfMissing turns a missing user into ErrTokenMismatch, the same
// result a conditional UPDATE gives for an unknown id.
func mismatchIfMissing(err error) error {
	if errors.Is(err, ErrUserNotFound) {
		return ErrTokenMismatch
	}
	return err
}

func (r *MemoryUserRepository) SetToken(ctx context.Context, id string, kind models.TokenKind, token string) error {
	return r.mutate(ctx, id, func(u *models.User) error {
		switch kind {
		case models.TokenKindConfirmation:
			u.ConfirmationToken = token
		case models.TokenKindResetPassword:
			u.ResetPasswordToken = token
		case models.TokenKindChangeEmail:
			u.ChangeEmailConfirmationToken = token
		default:
			return errors.New("unknown token kind: " + string(kind))
		}
		return nil
	})
}

func (r *MemoryUserRepository) SetEmailChange(ctx context.Context, id, tempMail, token string) error {
	return r.mutate(ctx, id, func(u *models.User) error {
		u.TempMail = tempMail
		u.ChangeEmailConfirmationToken = token
		return nil
	})
}

func (r *MemoryUserRepository) ConfirmAccount(ctx context.Context, id, token string) error {
	return mismatchIfMissing(r.mutate(ctx, id, func(u *models.User) error {
		if u.IsAccountConfirmed || u.ConfirmationToken == "" || u.ConfirmationToken != token {
			return ErrTokenMismatch
		}
		u.IsAccountConfirmed = true
		u.ConfirmationToken = ""
		return nil
	}))
}

func (r *MemoryUserRepository) ResetPassword(ctx context.Context, id, token, passwordHash string) error {
	return mismatchIfMissing(r.mutate(ctx, id, func(u *models.User) error {
		if u.ResetPasswordToken == "" || u.ResetPasswordToken != token {
			return ErrTokenMismatch
		}
		u.PasswordHash = passwordHash
		u.ResetPasswordToken = ""
		u.RefreshToken = ""
		return nil
	}))
}

func (r *MemoryUserRepository) ConfirmEmailChange(ctx context.Context, id, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok || u.ChangeEmailConfirmationToken == "" || u.TempMail == "" || u.ChangeEmailConfirmationToken != token {
		return ErrTokenMismatch
	}
	if r.takenLocked("email", u.TempMail, id) {
		return ErrUserAlreadyExists
	}

	next := *u
	next.Email = u.TempMail
	next.TempMail = ""
	next.ChangeEmailConfirmationToken = ""
	next.UpdatedAt = r.now()
	r.users[id] = &next
	return nil
}

func (r *MemoryUserRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	return r.mutate(ctx, id, func(u *models.User) error {
		u.RefreshToken = token
		return nil
	})
}

func (r *MemoryUserRepository) RotateRefreshToken(ctx context.Context, id, presented, next string) error {
	return mismatchIfMissing(r.mutate(ctx, id, func(u *models.User) error {
		if u.RefreshToken == "" || u.RefreshToken != presented {
			return ErrTokenMismatch
		}
		u.RefreshToken = next
		return nil
	}))
}

func (r *MemoryUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.mutate(ctx, id, func(u *models.User) error {
		u.PasswordHash = passwordHash
		return nil
	})
}

func (r *MemoryUserRepository) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	if upd.Username != nil && r.takenLocked("username", *upd.Username, id) {
		return ErrUserAlreadyExists
	}

	next := *u
	if upd.FullName != nil {
		next.FullName = *upd.FullName
	}
	if upd.Username != nil {
		next.Username = *upd.Username
	}
	next.UpdatedAt = r.now()
	r.users[id] = &next
	return nil
}
