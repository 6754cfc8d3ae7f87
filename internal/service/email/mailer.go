// Package email delivers contact notifications through Resend.
package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"

	"github.com/cvdeck/cv-deck/backend/internal/apperr"
	"github.com/cvdeck/cv-deck/backend/internal/config"
	"github.com/cvdeck/cv-deck/backend/pkg/sanitize"
)

// Notification is a contact submission that has already been sanitized.
type Notification struct {
	Name    string
	Email   string
	Message string
}

type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Mailer sends notification emails to the site owner.
type Mailer struct {
	emails emailSender
	from   string
	to     string
}

// NewMailer returns nil when notifications are not configured.
func NewMailer(cfg config.EmailConfig) *Mailer {
	if !cfg.Enabled() {
		return nil
	}
	client := resend.NewClient(cfg.APIKey)
	return &Mailer{emails: client.Emails, from: cfg.From, to: cfg.To}
}

// SendContactNotification emails n to the owner with Reply-To set to the
// submitter.
func (m *Mailer) SendContactNotification(ctx context.Context, n Notification) error {
	req := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{m.to},
		Subject: fmt.Sprintf("New contact form submission from %s", n.Name),
		Html:    renderNotification(n),
		ReplyTo: n.Email,
	}
	if _, err := m.emails.SendWithContext(ctx, req); err != nil {
		return apperr.Email("Failed to send notification email", err)
	}
	return nil
}

// renderNotification expects fields already entity-escaped.
func renderNotification(n Notification) string {
	var b strings.Builder
	b.WriteString("<h2>New contact form submission</h2>")
	fmt.Fprintf(&b, "<p><strong>Name:</strong> %s</p>", n.Name)
	fmt.Fprintf(&b, "<p><strong>Email:</strong> %s</p>", n.Email)
	b.WriteString("<p><strong>Message:</strong></p>")
	for _, para := range strings.Split(n.Message, "\n\n") {
		if strings.TrimSpace(para) == "" {
			continue
		}
		fmt.Fprintf(&b, "<p>%s</p>", strings.ReplaceAll(para, "\n", "<br>"))
	}
	return sanitize.HTML(b.String())
}
