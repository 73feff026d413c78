package email

import "context"

// Provider delivers a rendered HTML email. Send returns only after the
// transport accepted or rejected the message.
type Provider interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// TemplateRenderer определяет интерфейс для рендеринга шаблонов
type TemplateRenderer interface {
	Render(templateName string, data TemplateData) (string, error)
}
