package models

// User is the only persisted entity. Credential, token and session columns are
// loaded only when a repository call asks for them.
type User struct {
	BaseModel
	FullName           string   `gorm:"size:20;not null"`
	Username           string   `gorm:"size:20;uniqueIndex;not null"`
	Email              string   `gorm:"size:254;uniqueIndex;not null"`
	PasswordHash       string   `gorm:"column:password;size:60;not null"`
	Role               UserRole `gorm:"type:varchar(20);not null;default:'user'"`
	IsAccountConfirmed bool     `gorm:"not null;default:false"`

	// Одноразовые токены
	ConfirmationToken            string `gorm:"size:255"`
	ResetPasswordToken           string `gorm:"size:255"`
	ChangeEmailConfirmationToken string `gorm:"size:255"`
	TempMail                     string `gorm:"size:254"`

	// Единственный действующий refresh token
	RefreshToken string `gorm:"type:text"`
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// TokenFor returns the stored single-use token of the given kind.
func (u *User) TokenFor(kind TokenKind) string {
	switch kind {
	case TokenKindConfirmation:
		return u.ConfirmationToken
	case TokenKindResetPassword:
		return u.ResetPasswordToken
	case TokenKindChangeEmail:
		return u.ChangeEmailConfirmationToken
	default:
		return ""
	}
}
