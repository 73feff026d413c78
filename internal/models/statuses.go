package models

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

func (r UserRole) Valid() bool {
	return r == UserRoleUser || r == UserRoleAdmin
}

// TokenKind identifies one of the single-use tokens stored on a user.
type TokenKind string

const (
	TokenKindConfirmation  TokenKind = "confirmation"
	TokenKindResetPassword TokenKind = "reset_password"
	TokenKindChangeEmail   TokenKind = "change_email"
)

// Column returns the users table column holding the token.
func (k TokenKind) Column() string {
	switch k {
	case TokenKindConfirmation:
		return "confirmation_token"
	case TokenKindResetPassword:
		return "reset_password_token"
	case TokenKindChangeEmail:
		return "change_email_confirmation_token"
	default:
		return ""
	}
}
