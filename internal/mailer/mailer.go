package mailer

import (
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog"
)

type Config struct {
	Host     string
	Port     int
	From     string
	Password string
	// BaseURL is the public URL of this service, used to build
	// verification links.
	BaseURL string
}

type Mailer struct {
	cfg Config
	log *zerolog.Logger
}

func NewMailer(cfg Config, log *zerolog.Logger) *Mailer {
	return &Mailer{cfg: cfg, log: log}
}

// SendVerificationEmail asks an anonymous registrant to confirm their
// address within the verification window.
func (m *Mailer) SendVerificationEmail(eventTitle, recipient, token string, timeoutMinutes int) error {
	link := fmt.Sprintf("%s/v1/registrations/verify?token=%s", m.cfg.BaseURL, token)
	subject := fmt.Sprintf("Confirm your registration for %s", eventTitle)
	body := fmt.Sprintf(
		"Hello!\n\nYou registered for \"%s\".\nPlease confirm your e-mail address within %d minutes by opening this link:\n\n%s\n\nIf you do not confirm in time, your spot will be released.",
		eventTitle, timeoutMinutes, link,
	)
	return m.send(recipient, subject, body)
}

// SendRegistrationEmail notifies a registrant about the state of their
// registration: approved, pending moderation, or rejected.
func (m *Mailer) SendRegistrationEmail(eventTitle, status, recipient string) error {
	var subject, body string
	switch status {
	case "approved":
		subject = fmt.Sprintf("You're in: %s", eventTitle)
		body = fmt.Sprintf("Hello!\n\nYour registration for \"%s\" is confirmed. See you there!", eventTitle)
	case "pending":
		subject = fmt.Sprintf("Registration received: %s", eventTitle)
		body = fmt.Sprintf("Hello!\n\nYour registration for \"%s\" was received and is awaiting approval by the organizers. We'll let you know once it is reviewed.", eventTitle)
	case "rejected":
		subject = fmt.Sprintf("Registration update: %s", eventTitle)
		body = fmt.Sprintf("Hello!\n\nUnfortunately the organizers could not approve your registration for \"%s\".", eventTitle)
	case "expired":
		subject = fmt.Sprintf("Registration expired: %s", eventTitle)
		body = fmt.Sprintf("Hello!\n\nYour registration for \"%s\" was removed because the e-mail address was not confirmed in time. You can register again at any point while spots remain.", eventTitle)
	default:
		return fmt.Errorf("unknown registration e-mail status %q", status)
	}
	return m.send(recipient, subject, body)
}

func (m *Mailer) send(recipient, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		m.cfg.From, recipient, subject, body,
	)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.From, m.cfg.Password, m.cfg.Host)

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{recipient}, []byte(msg)); err != nil {
		m.log.Warn().Msgf("failed to send e-mail to %s: %v", recipient, err)
		return fmt.Errorf("send email: %w", err)
	}

	m.log.Info().Msgf("e-mail sent to %s (subject: %s)", recipient, subject)
	return nil
}
