package auth

import (
	"errors"
	"unicode/utf8"

	"authapi_backend/internal/models"

	"golang.org/x/crypto/bcrypt"
)

const (
	// PasswordCost - фиксированная стоимость bcrypt
	PasswordCost      = 10
	MinPasswordLength = 6
	// bcrypt ignores everything past 72 bytes
	MaxPasswordBytes = 72
)

var (
	ErrPasswordTooShort      = errors.New("password must be at least 6 characters long")
	ErrPasswordTooLong       = errors.New("password must be at most 72 bytes long")
	ErrPasswordHashNotLoaded = errors.New("password hash was not loaded for this user")
)

// ValidatePassword проверяет длину пароля
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

// HashPassword создает bcrypt хеш пароля
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	return string(bytes), err
}

// CheckPasswordHash проверяет пароль против хеша
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// SetPassword stores a new hash on u. It reports false without hashing when
// the plaintext already matches the stored hash.
func SetPassword(u *models.User, plaintext string) (bool, error) {
	if err := ValidatePassword(plaintext); err != nil {
		return false, err
	}
	if u.PasswordHash != "" && CheckPasswordHash(plaintext, u.PasswordHash) {
		return false, nil
	}

	hash, err := HashPassword(plaintext)
	if err != nil {
		return false, err
	}
	u.PasswordHash = hash
	return true, nil
}

// VerifyPassword compares plaintext with the stored hash. The hash must have
// been loaded explicitly, default reads leave it empty.
func VerifyPassword(u *models.User, plaintext string) (bool, error) {
	if u.PasswordHash == "" {
		return false, ErrPasswordHashNotLoaded
	}
	return CheckPasswordHash(plaintext, u.PasswordHash), nil
}
