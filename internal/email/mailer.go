package email

import (
	"context"
	"fmt"
)

// Mailer renders the account emails and hands them to a Provider.
type Mailer struct {
	provider    Provider
	renderer    TemplateRenderer
	projectName string
}

func NewMailer(provider Provider, renderer TemplateRenderer, projectName string) *Mailer {
	return &Mailer{
		provider:    provider,
		renderer:    renderer,
		projectName: projectName,
	}
}

func (m *Mailer) SendAccountConfirmation(ctx context.Context, to, userName, link string) error {
	return m.send(ctx, to, TemplateAccountConfirmation, m.projectName+" Account confirmation",
		TemplateData{UserName: userName, ActionURL: link, ActionText: "Confirm account"})
}

func (m *Mailer) SendPasswordReset(ctx context.Context, to, userName, link string) error {
	return m.send(ctx, to, TemplatePasswordReset, m.projectName+" Password Reset",
		TemplateData{UserName: userName, ActionURL: link, ActionText: "Reset password"})
}

func (m *Mailer) SendEmailChange(ctx context.Context, to, userName, link string) error {
	return m.send(ctx, to, TemplateEmailChange, m.projectName+" Email change confirmation",
		TemplateData{UserName: userName, ActionURL: link, ActionText: "Confirm email"})
}

func (m *Mailer) send(ctx context.Context, to, templateName, subject string, data TemplateData) error {
	data.ProjectName = m.projectName
	body, err := m.renderer.Render(templateName, data)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", templateName, err)
	}
	return m.provider.Send(ctx, to, subject, body)
}
