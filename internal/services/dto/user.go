package dto

import (
	"strings"
	"time"

	"authapi_backend/internal/models"
)

// UpdateProfileRequest - пустое поле значит "не менять"
type UpdateProfileRequest struct {
	FullName string `json:"fullName" validate:"omitempty,min=3,max=20"`
	Username string `json:"username" validate:"omitempty,min=3,max=20,username"`
}

func (r *UpdateProfileRequest) Normalize() {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Username = NormalizeUsername(r.Username)
}

// UserResponse is the only shape a user leaves the API in. It has no
// credential, token or session fields.
type UserResponse struct {
	ID                 string                  `json:"id"`
	FullName           string                  `json:"fullName"`
	Username           string                  `json:"username"`
	Email              string                  `json:"email,omitempty"`
	IsAccountConfirmed bool                    `json:"isAccountConfirmed"`
	CreatedAt          time.Time               `json:"createdAt"`
	UpdatedAt          time.Time               `json:"updatedAt"`
	Authentication     *AuthenticationResponse `json:"authentication,omitempty"`
}

func NewUserResponse(u *models.User) *UserResponse {
	return &UserResponse{
		ID:                 u.ID,
		FullName:           u.FullName,
		Username:           u.Username,
		Email:              u.Email,
		IsAccountConfirmed: u.IsAccountConfirmed,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

// NewPublicProfileResponse also drops the email.
func NewPublicProfileResponse(u *models.User) *UserResponse {
	resp := NewUserResponse(u)
	resp.Email = ""
	return resp
}

// LoginResponse - пользователь вместе с токенами сессии
type LoginResponse struct {
	User *UserResponse `json:"user"`
}
