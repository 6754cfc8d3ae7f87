package email

import (
	"context"
	"errors"
	"testing"

	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvdeck/cv-deck/backend/internal/apperr"
	"github.com/cvdeck/cv-deck/backend/internal/config"
)

type fakeSender struct {
	got *resend.SendEmailRequest
	err error
}

func (f *fakeSender) SendWithContext(_ context.Context, req *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &resend.SendEmailResponse{Id: "email_1"}, nil
}

func TestNewMailerRequiresFullConfig(t *testing.T) {
	assert.Nil(t, NewMailer(config.EmailConfig{APIKey: "re_x", From: "site@example.com"}))
	assert.NotNil(t, NewMailer(config.EmailConfig{APIKey: "re_x", From: "site@example.com", To: "me@example.com"}))
}

func TestSendContactNotification(t *testing.T) {
	sender := &fakeSender{}
	m := &Mailer{emails: sender, from: "site@example.com", to: "me@example.com"}

	err := m.SendContactNotification(context.Background(), Notification{
		Name:    "Jane",
		Email:   "jane@example.com",
		Message: "Line one\nline two\n\nSecond paragraph",
	})
	require.NoError(t, err)

	require.NotNil(t, sender.got)
	assert.Equal(t, []string{"me@example.com"}, sender.got.To)
	assert.Equal(t, "jane@example.com", sender.got.ReplyTo)
	assert.Equal(t, "New contact form submission from Jane", sender.got.Subject)
	assert.Contains(t, sender.got.Html, "<h2>New contact form submission</h2>")
	assert.Contains(t, sender.got.Html, "<p>Line one<br")
	assert.Contains(t, sender.got.Html, "<p>Second paragraph</p>")
}

func TestSendContactNotificationFailure(t *testing.T) {
	m := &Mailer{emails: &fakeSender{err: errors.New("quota exceeded")}, from: "a@b.c", to: "d@e.f"}
	err := m.SendContactNotification(context.Background(), Notification{Name: "Jane"})

	var emailErr *apperr.EmailError
	require.ErrorAs(t, err, &emailErr)
	status, msg := apperr.Status(err)
	assert.Equal(t, 500, status)
	assert.Equal(t, "Failed to send notification email", msg)
}
