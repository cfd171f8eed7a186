package email

import (
	"context"
	"log/slog"
	"net"
	"net/smtp"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dardanova/dardanova"
	"github.com/dardanova/dardanova/internal/config"
	"github.com/jordan-wright/email"
)

var _ dardanova.Mailer = &emailer{}

type emailer struct {
	host string
	auth smtp.Auth
	from string
}

func (e *emailer) SendEmail(ctx context.Context, msg *dardanova.MailerMessage) error {
	ctx, span := otel.Tracer("email").Start(ctx, "SendEmail")
	defer span.End()
	span.SetAttributes(attribute.String("email", msg.To), attribute.String("subject", msg.Subject))

	em := email.NewEmail()

	em.From = e.from
	em.To = []string{msg.To}
	if msg.ReplyTo != "" {
		em.ReplyTo = []string{msg.ReplyTo}
	}

	em.Subject = msg.Subject
	em.Text = []byte(msg.PlainContent)
	em.HTML = []byte(msg.HTMLContent)
	if err := em.Send(e.host, e.auth); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// NewMailer returns an SMTP mailer built from the email config section.
func NewMailer() (dardanova.Mailer, error) {
	host, _, err := net.SplitHostPort(config.Email.Host)
	if err != nil {
		return nil, err
	}
	from := config.Email.From
	if from == "" {
		from = config.Email.Username
	}
	return &emailer{config.Email.Host, smtp.PlainAuth("", config.Email.Username, config.Email.Password, host), from}, nil
}

var _ dardanova.Mailer = LogMailer{}

// LogMailer only logs messages. It is used when email is disabled.
type LogMailer struct{}

func (LogMailer) SendEmail(ctx context.Context, msg *dardanova.MailerMessage) error {
	slog.InfoContext(ctx, "Email not sent, mailer disabled", slog.String("to", msg.To), slog.String("subject", msg.Subject))
	return nil
}
