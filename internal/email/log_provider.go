package email

import (
	"context"
	"log/slog"
)

// LogProvider используется для локальной разработки: письмо не отправляется,
// в лог пишутся только адресат и тема.
type LogProvider struct {
	log *slog.Logger
}

func NewLogProvider(log *slog.Logger) *LogProvider {
	if log == nil {
		log = slog.Default()
	}
	return &LogProvider{log: log}
}

func (p *LogProvider) Send(ctx context.Context, to, subject, htmlBody string) error {
	p.log.InfoContext(ctx, "Email delivery skipped (log driver)",
		"to", to,
		"subject", subject,
		"body_bytes", len(htmlBody),
	)
	return nil
}
