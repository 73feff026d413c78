package email

import (
	"context"
	"sync"
)

// RecordingProvider keeps sent messages in memory. Tests read them back and
// can make the next sends fail with FailWith.
type RecordingProvider struct {
	mu   sync.Mutex
	sent []Email
	err  error
}

func NewRecordingProvider() *RecordingProvider {
	return &RecordingProvider{}
}

func (p *RecordingProvider) Send(ctx context.Context, to, subject, htmlBody string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, Email{To: to, Subject: subject, HTMLBody: htmlBody})
	return nil
}

// FailWith makes every following Send return err. nil restores delivery.
func (p *RecordingProvider) FailWith(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *RecordingProvider) Sent() []Email {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Email, len(p.sent))
	copy(out, p.sent)
	return out
}

// Last returns the most recent message, false when nothing was sent.
func (p *RecordingProvider) Last() (Email, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.sent) == 0 {
		return Email{}, false
	}
	return p.sent[len(p.sent)-1], true
}
