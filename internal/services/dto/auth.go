package dto

import "strings"

// RegisterRequest - запрос регистрации
type RegisterRequest struct {
	FullName string `json:"fullName" validate:"required,notblank,min=3,max=20"`
	Username string `json:"username" validate:"required,min=3,max=20,username"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// Normalize обрезает пробелы и приводит username и email к нижнему регистру
func (r *RegisterRequest) Normalize() {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Username = NormalizeUsername(r.Username)
	r.Email = NormalizeEmail(r.Email)
}

// LoginRequest - вход по username или email
type LoginRequest struct {
	Username string `json:"username" validate:"omitempty,min=3,max=20"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func (r *LoginRequest) Normalize() {
	r.Username = NormalizeUsername(r.Username)
	r.Email = NormalizeEmail(r.Email)
}

// UserTokenQuery - userId и одноразовый токен из ссылки в письме
type UserTokenQuery struct {
	UserID            string `form:"userId" json:"userId" validate:"required,uuid"`
	ConfirmationToken string `form:"confirmationToken" json:"confirmationToken" validate:"required"`
}

type UserIDQuery struct {
	UserID string `form:"userId" json:"userId" validate:"required,uuid"`
}

type RequestResetPasswordQuery struct {
	Email string `form:"email" json:"email" validate:"required,email"`
}

type ResetPasswordQuery struct {
	UserID             string `form:"userId" json:"userId" validate:"required,uuid"`
	ResetPasswordToken string `form:"resetPasswordToken" json:"resetPasswordToken" validate:"required"`
}

type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword" validate:"required,min=6,max=72"`
}

// RefreshTokenRequest - запрос обновления пары токенов
type RefreshTokenRequest struct {
	UserID       string `json:"userId" validate:"required,uuid"`
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6,max=72"`
}

type ChangeEmailRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
}

func (r *ChangeEmailRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}

// AuthenticationResponse - пара токенов в ответе на вход
type AuthenticationResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshTokenResponse - новая пара после ротации
type RefreshTokenResponse struct {
	NewAccessToken  string `json:"newAccessToken"`
	NewRefreshToken string `json:"newRefreshToken"`
}

func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
