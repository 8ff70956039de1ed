// Package notify mails the configured recipients when the Hotjar settings
// change.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"hotjar/internal/config"
	"hotjar/internal/settings"
)

type emailClient interface {
	Send(message *mail.SGMailV3) (*rest.Response, error)
}

type Mailer struct {
	client     emailClient
	from       string
	recipients []string
}

var _ settings.Observer = (*Mailer)(nil)

func NewMailer(apiKey, from string, recipients []string) *Mailer {
	return &Mailer{
		client:     sendgrid.NewSendClient(apiKey),
		from:       from,
		recipients: recipients,
	}
}

// FromConfig returns a Mailer, or a no-op observer when mail is not
// configured.
func FromConfig(cfg *config.Config) settings.Observer {
	if !cfg.Notify.Enabled() {
		return Nop{}
	}
	return NewMailer(cfg.Notify.SendGridAPIKey, cfg.Notify.From, cfg.Notify.Emails)
}

func (m *Mailer) SettingsSaved(ctx context.Context, s settings.Settings) error {
	message := BuildChangeEmail(m.from, m.recipients, s)
	response, err := m.client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send settings mail: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}
	slog.InfoContext(ctx, "settings change mail sent", "recipients", len(m.recipients), "status", response.StatusCode)
	return nil
}

// BuildChangeEmail lists the saved values for every recipient.
func BuildChangeEmail(from string, recipients []string, s settings.Settings) *mail.SGMailV3 {
	message := mail.NewV3Mail()
	message.SetFrom(mail.NewEmail("Hotjar settings", from))
	message.Subject = "Hotjar settings changed"

	p := mail.NewPersonalization()
	for _, to := range recipients {
		p.AddTos(mail.NewEmail("", to))
	}
	message.AddPersonalizations(p)

	roles := "all users"
	if len(s.Roles) > 0 {
		roles = strings.Join(s.Roles, ", ")
	}
	body := fmt.Sprintf("The Hotjar settings were saved.\n\nHotjar ID: %s\nPage visibility: %d\nPages:\n%s\nRole visibility: %d\nRoles: %s\n",
		s.Account, s.VisibilityPages, s.Pages, s.VisibilityRoles, roles)
	message.AddContent(mail.NewContent("text/plain", body))
	return message
}

// Nop ignores saves.
type Nop struct{}

func (Nop) SettingsSaved(context.Context, settings.Settings) error { return nil }
