package repositories

import (
	"context"
	"errors"
	"time"

	"authapi_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrTokenMismatch is returned by conditional updates that matched no row.
	ErrTokenMismatch = errors.New("token does not match")
)

// SensitiveField is a users column that default reads leave zero-valued.
type SensitiveField string

const (
	FieldPassword           SensitiveField = "password"
	FieldRole               SensitiveField = "role"
	FieldConfirmationToken  SensitiveField = "confirmation_token"
	FieldResetPasswordToken SensitiveField = "reset_password_token"
	FieldChangeEmailToken   SensitiveField = "change_email_confirmation_token"
	FieldTempMail           SensitiveField = "temp_mail"
	FieldRefreshToken       SensitiveField = "refresh_token"
)

var publicColumns = []string{
	"id", "created_at", "updated_at", "full_name", "username", "email", "is_account_confirmed",
}

// TokenField maps a token kind to the column it is stored in.
func TokenField(kind models.TokenKind) SensitiveField {
	return SensitiveField(kind.Column())
}

// ProfileUpdate holds the profile fields to change. Nil fields are left as is.
type ProfileUpdate struct {
	FullName *string
	Username *string
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string, include ...SensitiveField) (*models.User, error)
	FindByEmail(ctx context.Context, email string, include ...SensitiveField) (*models.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string, include ...SensitiveField) (*models.User, error)
	ExistsByUsername(ctx context.Context, username, excludeID string) (bool, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)

	// Single-use tokens
	SetToken(ctx context.Context, id string, kind models.TokenKind, token string) error
	SetEmailChange(ctx context.Context, id, tempMail, token string) error
	ConfirmAccount(ctx context.Context, id, token string) error
	ResetPassword(ctx context.Context, id, token, passwordHash string) error
	ConfirmEmailChange(ctx context.Context, id, token string) error

	// Session
	SetRefreshToken(ctx context.Context, id, token string) error
	RotateRefreshToken(ctx context.Context, id, presented, next string) error

	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) error
}

type UserRepositoryImpl struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &UserRepositoryImpl{db: db}
}

func selectColumns(include []SensitiveField) []string {
	cols := make([]string, 0, len(publicColumns)+len(include))
	cols = append(cols, publicColumns...)
	for _, f := range include {
		cols = append(cols, string(f))
	}
	return cols
}

func (r *UserRepositoryImpl) findOne(ctx context.Context, include []SensitiveField, query interface{}, args ...interface{}) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Select(selectColumns(include)).
		Where(query, args...).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUserAlreadyExists
		}
		return err
	}
	return nil
}

func (r *UserRepositoryImpl) FindByID(ctx context.Context, id string, include ...SensitiveField) (*models.User, error) {
	return r.findOne(ctx, include, "id = ?", id)
}

func (r *UserRepositoryImpl) FindByEmail(ctx context.Context, email string, include ...SensitiveField) (*models.User, error) {
	return r.findOne(ctx, include, "email = ?", email)
}

func (r *UserRepositoryImpl) FindByUsernameOrEmail(ctx context.Context, username, email string, include ...SensitiveField) (*models.User, error) {
	switch {
	case username != "" && email != "":
		return r.findOne(ctx, include, "username = ? OR email = ?", username, email)
	case username != "":
		return r.findOne(ctx, include, "username = ?", username)
	case email != "":
		return r.findOne(ctx, include, "email = ?", email)
	default:
		return nil, ErrUserNotFound
	}
}

func (r *UserRepositoryImpl) exists(ctx context.Context, column, value, excludeID string) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.User{}).Where(column+" = ?", value)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *UserRepositoryImpl) ExistsByUsername(ctx context.Context, username, excludeID string) (bool, error) {
	return r.exists(ctx, "username", username, excludeID)
}

func (r *UserRepositoryImpl) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	return r.exists(ctx, "email", email, excludeID)
}

// update applies values to the rows matching the conditions. zeroRows is
// returned when nothing matched.
func (r *UserRepositoryImpl) update(ctx context.Context, values map[string]interface{}, zeroRows error, query interface{}, args ...interface{}) error {
	values["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).Model(&models.User{}).Where(query, args...).Updates(values)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrUserAlreadyExists
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return zeroRows
	}
	return nil
}

func (r *UserRepositoryImpl) SetToken(ctx context.Context, id string, kind models.TokenKind, token string) error {
	column := kind.Column()
	if column == "" {
		return errors.New("unknown token kind: " + string(kind))
	}
	return r.update(ctx, map[string]interface{}{column: token}, ErrUserNotFound, "id = ?", id)
}

func (r *UserRepositoryImpl) SetEmailChange(ctx context.Context, id, tempMail, token string) error {
	return r.update(ctx, map[string]interface{}{
		"temp_mail":                       tempMail,
		"change_email_confirmation_token": token,
	}, ErrUserNotFound, "id = ?", id)
}

// ConfirmAccount flips is_account_confirmed and clears the token in one
// statement, matching only an unconfirmed user holding that token.
func (r *UserRepositoryImpl) ConfirmAccount(ctx context.Context, id, token string) error {
	return r.update(ctx, map[string]interface{}{
		"is_account_confirmed": true,
		"confirmation_token":   "",
	}, ErrTokenMismatch,
		"id = ? AND confirmation_token = ? AND confirmation_token <> '' AND is_account_confirmed = ?",
		id, token, false)
}

// ResetPassword replaces the hash, clears the reset token and drops the
// stored refresh token.
func (r *UserRepositoryImpl) ResetPassword(ctx context.Context, id, token, passwordHash string) error {
	return r.update(ctx, map[string]interface{}{
		"password":             passwordHash,
		"reset_password_token": "",
		"refresh_token":        "",
	}, ErrTokenMismatch,
		"id = ? AND reset_password_token = ? AND reset_password_token <> ''",
		id, token)
}

// ConfirmEmailChange moves temp_mail into email. A unique violation on email
// surfaces as ErrUserAlreadyExists.
func (r *UserRepositoryImpl) ConfirmEmailChange(ctx context.Context, id, token string) error {
	return r.update(ctx, map[string]interface{}{
		"email":                           gorm.Expr("temp_mail"),
		"temp_mail":                       "",
		"change_email_confirmation_token": "",
	}, ErrTokenMismatch,
		"id = ? AND change_email_confirmation_token = ? AND change_email_confirmation_token <> '' AND temp_mail <> ''",
		id, token)
}

func (r *UserRepositoryImpl) SetRefreshToken(ctx context.Context, id, token string) error {
	return r.update(ctx, map[string]interface{}{"refresh_token": token}, ErrUserNotFound, "id = ?", id)
}

// RotateRefreshToken swaps presented for next only while presented is still
// the stored token, so two rotations with the same token cannot both win.
func (r *UserRepositoryImpl) RotateRefreshToken(ctx context.Context, id, presented, next string) error {
	return r.update(ctx, map[string]interface{}{"refresh_token": next}, ErrTokenMismatch,
		"id = ? AND refresh_token = ? AND refresh_token <> ''", id, presented)
}

func (r *UserRepositoryImpl) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.update(ctx, map[string]interface{}{"password": passwordHash}, ErrUserNotFound, "id = ?", id)
}

func (r *UserRepositoryImpl) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) error {
	values := map[string]interface{}{}
	if upd.FullName != nil {
		values["full_name"] = *upd.FullName
	}
	if upd.Username != nil {
		values["username"] = *upd.Username
	}
	return r.update(ctx, values, ErrUserNotFound, "id = ?", id)
}
