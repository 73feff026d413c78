package email

import (
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// TemplateManager реализует TemplateRenderer для управления шаблонами email
type TemplateManager struct {
	templates map[string]*template.Template
	mutex     sync.RWMutex
}

// NewTemplateManager создает менеджер со встроенными шаблонами
func NewTemplateManager() (*TemplateManager, error) {
	tm := &TemplateManager{
		templates: make(map[string]*template.Template),
	}
	for name, text := range builtinTemplates {
		if err := tm.AddTemplate(name, text); err != nil {
			return nil, fmt.Errorf("failed to load builtin template %s: %w", name, err)
		}
	}
	return tm, nil
}

// Render рендерит шаблон с данными
func (tm *TemplateManager) Render(templateName string, data TemplateData) (string, error) {
	tm.mutex.RLock()
	tpl, exists := tm.templates[templateName]
	tm.mutex.RUnlock()

	if !exists {
		return "", fmt.Errorf("template not found: %s", templateName)
	}

	var buf strings.Builder
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// AddTemplate добавляет или заменяет шаблон
func (tm *TemplateManager) AddTemplate(name string, templateStr string) error {
	tpl, err := template.New(name).Parse(templateStr)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	tm.mutex.Lock()
	tm.templates[name] = tpl
	tm.mutex.Unlock()
	return nil
}

// LoadTemplates загружает *.html из директории поверх встроенных шаблонов
func (tm *TemplateManager) LoadTemplates(dirPath string) error {
	return filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read template file %s: %w", path, err)
		}

		templateName := strings.TrimSuffix(filepath.Base(path), ".html")
		if err := tm.AddTemplate(templateName, string(content)); err != nil {
			return fmt.Errorf("failed to add template %s: %w", templateName, err)
		}
		return nil
	})
}

var builtinTemplates = map[string]string{
	TemplateAccountConfirmation: accountConfirmationTemplate,
	TemplatePasswordReset:       passwordResetTemplate,
	TemplateEmailChange:         emailChangeTemplate,
}

const layoutHead = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.ProjectName}}</title></head>
<body style="font-family: Arial, sans-serif; color: #333;">
<div style="max-width: 600px; margin: 0 auto; padding: 20px;">`

const layoutTail = `
<p style="margin-top: 30px; font-size: 12px; color: #777;">If you did not request this, you can ignore this email.</p>
<p style="font-size: 12px; color: #777;">{{.ProjectName}}</p>
</div>
</body>
</html>`

const accountConfirmationTemplate = layoutHead + `
<h2>Welcome to {{.ProjectName}}, {{.UserName}}!</h2>
<p>Please confirm your account by clicking the link below.</p>
<p><a href="{{.ActionURL}}" style="background: #0079bf; color: #fff; padding: 10px 18px; text-decoration: none; border-radius: 4px;">{{.ActionText}}</a></p>
<p>Or paste this link into your browser:<br>{{.ActionURL}}</p>` + layoutTail

const passwordResetTemplate = layoutHead + `
<h2>Password reset</h2>
<p>Hi {{.UserName}}, we received a request to reset your {{.ProjectName}} password.</p>
<p><a href="{{.ActionURL}}" style="background: #0079bf; color: #fff; padding: 10px 18px; text-decoration: none; border-radius: 4px;">{{.ActionText}}</a></p>
<p>Or paste this link into your browser:<br>{{.ActionURL}}</p>` + layoutTail

const emailChangeTemplate = layoutHead + `
<h2>Confirm your new email</h2>
<p>Hi {{.UserName}}, confirm that this address should be used for your {{.ProjectName}} account.</p>
<p><a href="{{.ActionURL}}" style="background: #0079bf; color: #fff; padding: 10px 18px; text-decoration: none; border-radius: 4px;">{{.ActionText}}</a></p>
<p>Or paste this link into your browser:<br>{{.ActionURL}}</p>` + layoutTail
