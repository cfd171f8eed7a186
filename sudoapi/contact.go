package sudoapi

import (
	"context"
	_ "embed"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/dardanova/dardanova"
	metrics "github.com/dardanova/dardanova/integrations/prometheus"
	"github.com/dardanova/dardanova/internal/config"
	"github.com/dardanova/dardanova/sudoapi/flags"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

//go:embed contact.html
var contactTemplate string

var (
	ErrContactIncomplete = Statusf(400, "Please fill in all required fields")
	ErrInvalidEmail      = Statusf(400, "Invalid email address")
)

// ContactMessage is a contact form submission. Phone is optional.
type ContactMessage struct {
	FullName string `json:"fullName" schema:"fullName"`
	Email    string `json:"email" schema:"email"`
	Subject  string `json:"subject" schema:"subject"`
	Message  string `json:"message" schema:"message"`
	Phone    string `json:"phone" schema:"phone"`
}

func (m *ContactMessage) normalize() {
	m.FullName = strings.TrimSpace(m.FullName)
	m.Email = strings.TrimSpace(m.Email)
	m.Subject = strings.TrimSpace(m.Subject)
	m.Message = strings.TrimSpace(m.Message)
	m.Phone = strings.TrimSpace(m.Phone)
}

// Validate checks that all required fields are present and the email is well formed.
func (m *ContactMessage) Validate() error {
	m.normalize()
	err := validation.ValidateStruct(m,
		validation.Field(&m.FullName, validation.Required),
		validation.Field(&m.Email, validation.Required),
		validation.Field(&m.Subject, validation.Required),
		validation.Field(&m.Message, validation.Required),
	)
	if err != nil {
		return ErrContactIncomplete
	}
	if err := validation.Validate(m.Email, is.EmailFormat); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

// RenderContactEmail substitutes the message into the contact email template.
// Values are escaped before substitution.
func RenderContactEmail(m *ContactMessage) string {
	phone := m.Phone
	if phone == "" {
		phone = "-"
	}
	return strings.NewReplacer(
		"{{name}}", html.EscapeString(m.FullName),
		"{{email}}", html.EscapeString(m.Email),
		"{{subject}}", html.EscapeString(m.Subject),
		"{{message}}", html.EscapeString(m.Message),
		"{{phone}}", html.EscapeString(phone),
	).Replace(contactTemplate)
}

func contactPlainText(m *ContactMessage) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Ad Soyad: %s\n", m.FullName)
	fmt.Fprintf(&sb, "E-posta: %s\n", m.Email)
	if m.Phone != "" {
		fmt.Fprintf(&sb, "Telefon: %s\n", m.Phone)
	}
	fmt.Fprintf(&sb, "Konu: %s\n\n", m.Subject)
	sb.WriteString(m.Message)
	sb.WriteString("\n")
	return sb.String()
}

// SendContactMessage forwards a contact form submission to the site inbox.
// Nothing is stored.
func (s *BaseAPI) SendContactMessage(ctx context.Context, m *ContactMessage) error {
	if m == nil {
		return ErrContactIncomplete
	}
	if err := m.Validate(); err != nil {
		metrics.ContactMessages.WithLabelValues("invalid").Inc()
		return err
	}

	to := config.Email.ContactTo
	if to == "" {
		to = config.Email.From
	}

	err := s.mailer.SendEmail(ctx, &dardanova.MailerMessage{
		To:      to,
		Subject: fmt.Sprintf("%s - %s", flags.ContactSubjectPrefix.Value(), m.FullName),
		ReplyTo: m.Email,

		PlainContent: contactPlainText(m),
		HTMLContent:  RenderContactEmail(m),
	})
	if err != nil {
		metrics.ContactMessages.WithLabelValues("failed").Inc()
		slog.WarnContext(ctx, "Couldn't send contact message", slog.Any("err", err))
		return WrapError(err, "Couldn't send message")
	}
	metrics.ContactMessages.WithLabelValues("sent").Inc()
	return nil
}
