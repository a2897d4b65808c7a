package taskapp

import (
	"context"
	"fmt"

	"github.com/goliatone/go-errors"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridMailer delivers account notifications through SendGrid. The
// account service treats delivery as fire-and-forget, so failures here
// are logged by the caller and never reach the end user.
type SendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

var _ Mailer = (*SendGridMailer)(nil)

func NewSendGridMailer(apiKey, fromEmail, fromName string) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromEmail),
	}
}

func (m *SendGridMailer) SendWelcome(ctx context.Context, email, name string) error {
	subject := "Greetings."
	body := fmt.Sprintf("Welcome to the app %s, let me know how you get along with the app.", name)
	return m.send(ctx, email, name, subject, body)
}

func (m *SendGridMailer) SendCancellation(ctx context.Context, email, name string) error {
	subject := "Your account has been cancelled."
	body := fmt.Sprintf("Your account has been cancelled %s, could you let us know why you cancelled?", name)
	return m.send(ctx, email, name, subject, body)
}

func (m *SendGridMailer) send(ctx context.Context, email, name, subject, body string) error {
	to := mail.NewEmail(name, email)
	message := mail.NewSingleEmail(m.from, subject, to, body, "")

	response, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "sendgrid send failed")
	}

	if response.StatusCode >= 400 {
		return errors.New("sendgrid rejected message", errors.CategoryOperation).
			WithMetadata(map[string]any{"status": response.StatusCode})
	}

	return nil
}

// NoopMailer satisfies Mailer without sending anything. Useful in dev
// environments and tests that do not care about notifications.
type NoopMailer struct{}

var _ Mailer = NoopMailer{}

func (NoopMailer) SendWelcome(context.Context, string, string) error      { return nil }
func (NoopMailer) SendCancellation(context.Context, string, string) error { return nil }
