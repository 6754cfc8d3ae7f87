// Package contact turns contact form posts and chat conversations into
// stored submissions and owner notifications.
package contact

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/cvdeck/cv-deck/backend/internal/apperr"
	contactModel "github.com/cvdeck/cv-deck/backend/internal/model/contact"
	"github.com/cvdeck/cv-deck/backend/internal/service/email"
	"github.com/cvdeck/cv-deck/backend/pkg/sanitize"
)

const (
	MsgInvalidForm     = "Invalid form data. Please check your inputs."
	MsgInvalidEmail    = "Invalid email address"
	MsgMissingFields   = "Missing required fields: name and (email or phone) are required"
	MsgFormThanks      = "Thank you for your message! I'll get back to you soon."
	MsgChatThanks      = "Thank you for your contact information! I'll get back to you soon."
	DefaultChatMessage = "Contact information from chat conversation"
)

var nonDigits = regexp.MustCompile(`\D`)

// Repository stores submissions.
type Repository interface {
	Create(ctx context.Context, rec contactModel.Record) (contactModel.Record, error)
}

// Notifier tells the owner about a new submission.
type Notifier interface {
	SendContactNotification(ctx context.Context, n email.Notification) error
}

// Created is a stored submission plus whether the owner was notified.
type Created struct {
	Record    contactModel.Record
	EmailSent bool
}

type Service struct {
	repo     Repository
	notifier Notifier
	validate *validator.Validate
	logger   *zap.Logger
}

// NewService builds the pipeline. A nil notifier skips notifications.
func NewService(repo Repository, notifier Notifier, logger *zap.Logger) *Service {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return &Service{repo: repo, notifier: notifier, validate: v, logger: logger.Named("contact")}
}

// SubmitForm validates a contact form post and stores it.
func (s *Service) SubmitForm(ctx context.Context, form contactModel.Form) (Created, error) {
	if err := s.ValidateForm(form); err != nil {
		return Created{}, err
	}
	return s.CreateSubmission(ctx, form)
}

// ValidateForm checks lengths and the email format, reporting a message per
// offending field.
func (s *Service) ValidateForm(form contactModel.Form) error {
	err := s.validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation(MsgInvalidForm, nil)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = fieldMessage(fe)
		}
	}
	return apperr.Validation(MsgInvalidForm, fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "name":
		if fe.Tag() == "max" {
			return "Name must be less than 100 characters"
		}
		return "Name must be at least 2 characters"
	case "email":
		return "Please enter a valid email address"
	case "message":
		if fe.Tag() == "max" {
			return "Message must be less than 1000 characters"
		}
		return "Message must be at least 10 characters"
	default:
		return "Invalid value"
	}
}

// CreateSubmission sanitizes, stores, and notifies. When the notification
// fails the submission stays stored and an EmailError is returned.
func (s *Service) CreateSubmission(ctx context.Context, form contactModel.Form) (Created, error) {
	addr := sanitize.Email(form.Email)
	if addr == "" {
		return Created{}, apperr.Validation(MsgInvalidEmail, map[string]string{"email": MsgInvalidEmail})
	}
	clean := contactModel.Record{
		Name:    sanitize.String(form.Name),
		Email:   addr,
		Message: sanitize.String(form.Message),
	}

	rec, err := s.repo.Create(ctx, clean)
	if err != nil {
		return Created{}, apperr.Database("Failed to insert contact submission", err)
	}

	created := Created{Record: rec}
	if s.notifier == nil {
		return created, nil
	}

	err = s.notifier.SendContactNotification(ctx, email.Notification{Name: rec.Name, Email: rec.Email, Message: rec.Message})
	if err != nil {
		s.logger.Warn("notification failed", zap.String("submission", rec.ID), zap.Error(err))
		return created, apperr.Email("Failed to send notification email", err)
	}
	created.EmailSent = true
	return created, nil
}

// SubmitChatContact stores a contact record assembled from a chat. It needs
// a name plus an email or a phone; phone-only records get a placeholder
// address derived from the digits.
func (s *Service) SubmitChatContact(ctx context.Context, sub contactModel.Submission) (contactModel.SubmitResult, error) {
	name := strings.TrimSpace(sub.Name)
	addr := strings.TrimSpace(sub.Email)
	phone := strings.TrimSpace(sub.Phone)
	company := strings.TrimSpace(sub.Company)

	if name == "" || (addr == "" && phone == "") {
		return contactModel.SubmitResult{}, &apperr.ValidationError{
			Message: MsgMissingFields,
			Missing: map[string]bool{"name": name == "", "email": addr == "", "phone": phone == ""},
		}
	}

	message := strings.TrimSpace(sub.Message)
	if message == "" {
		message = DefaultChatMessage
	}
	if company != "" {
		message = "Company: " + company + "\n\n" + message
	}
	if phone != "" && addr == "" {
		message = "Phone: " + phone + "\n\n" + message
	}
	if addr == "" {
		addr = "phone-" + nonDigits.ReplaceAllString(phone, "") + "@chat-contact.local"
	}

	created, err := s.CreateSubmission(ctx, contactModel.Form{Name: name, Email: addr, Message: strings.TrimSpace(message)})
	if err != nil {
		return contactModel.SubmitResult{}, err
	}
	return contactModel.SubmitResult{Success: true, Message: MsgChatThanks, EmailSent: created.EmailSent}, nil
}
