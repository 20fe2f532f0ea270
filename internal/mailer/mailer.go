// Package mailer delivers account verification emails.
package mailer

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"contacts-service/pkg/config"
)

// Mailer sends the verification link for an account.
type Mailer interface {
	SendVerification(ctx context.Context, to, token string) error
}

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// VerificationLink returns the public URL that confirms token.
func VerificationLink(publicURL, token string) string {
	return strings.TrimSuffix(publicURL, "/") + "/users/verify/" + url.PathEscape(token)
}

// VerificationMessage renders the verification email for to.
func VerificationMessage(publicURL, to, token string) Message {
	link := VerificationLink(publicURL, token)
	return Message{
		To:      to,
		Subject: "Verify your email",
		Text:    fmt.Sprintf("Confirm your email address by opening %s", link),
		HTML:    fmt.Sprintf(`<p>Confirm your email address:</p><p><a target="_blank" href="%s">Verify email</a></p>`, link),
	}
}

// LogMailer writes verification links to the log instead of sending them.
// It is used when SMTP is disabled.
type LogMailer struct {
	logger    *zap.Logger
	publicURL string
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *zap.Logger, publicURL string) *LogMailer {
	return &LogMailer{logger: logger, publicURL: publicURL}
}

func (m *LogMailer) SendVerification(_ context.Context, to, token string) error {
	m.logger.Info("Verification email (not sent, mail disabled)",
		zap.String("to", to),
		zap.String("link", VerificationLink(m.publicURL, token)),
	)
	return nil
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	client    *mail.Client
	from      string
	publicURL string
}

// NewSMTPMailer creates an SMTPMailer. Credentials switch on SMTP AUTH.
func NewSMTPMailer(cfg config.MailConfig, publicURL string) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.From, publicURL: publicURL}, nil
}

func (m *SMTPMailer) SendVerification(ctx context.Context, to, token string) error {
	msg, err := m.build(VerificationMessage(m.publicURL, to, token))
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}
	return nil
}

func (m *SMTPMailer) build(message Message) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(message.To); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(message.Subject)
	msg.SetBodyString(mail.TypeTextPlain, message.Text)
	msg.AddAlternativeString(mail.TypeTextHTML, message.HTML)
	return msg, nil
}

// New returns an SMTPMailer when mail is enabled and a LogMailer otherwise.
func New(cfg config.MailConfig, publicURL string, logger *zap.Logger) (Mailer, error) {
	if !cfg.Enabled {
		return NewLogMailer(logger, publicURL), nil
	}
	return NewSMTPMailer(cfg, publicURL)
}
