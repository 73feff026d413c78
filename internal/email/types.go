package email

// Email - одно исходящее письмо
type Email struct {
	To       string
	Subject  string
	HTMLBody string
}

// TemplateData - данные для шаблонов писем
type TemplateData struct {
	ProjectName string
	UserName    string
	ActionURL   string
	ActionText  string
}

// Имена встроенных шаблонов
const (
	TemplateAccountConfirmation = "account_confirmation"
	TemplatePasswordReset       = "password_reset"
	TemplateEmailChange         = "email_change"
)
