package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/HSouheill/gym_backend/config"
	"github.com/HSouheill/gym_backend/utils"
)

// Email is one outgoing message
type Email struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers transactional email
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// NewMailer picks the provider named by MAIL_PROVIDER
func NewMailer(cfg config.MailConfig, logger *logrus.Logger) (Mailer, error) {
	switch cfg.Provider {
	case "smtp":
		if cfg.SMTPHost == "" || cfg.SMTPUser == "" || cfg.SMTPPass == "" {
			return nil, errors.New("missing SMTP configuration: check SMTP_HOST, SMTP_USER and SMTP_PASS")
		}
		return NewSMTPMailer(cfg), nil
	case "sendgrid":
		if cfg.SendGridAPIKey == "" {
			return nil, errors.New("SENDGRID_API_KEY is not set")
		}
		return NewSendGridMailer(cfg), nil
	case "resend":
		if cfg.ResendAPIKey == "" {
			return nil, errors.New("RESEND_API_KEY is not set")
		}
		return NewResendMailer(cfg), nil
	case "log", "":
		return NewLogMailer(logger), nil
	}
	return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
}

// SMTPMailer sends through any SMTP relay with gomail
type SMTPMailer struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	from := cfg.From
	if from == "" {
		from = cfg.SMTPUser
	}
	return &SMTPMailer{
		dialer:   gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
		from:     from,
		fromName: cfg.FromName,
	}
}

func (m *SMTPMailer) Send(_ context.Context, email Email) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, m.fromName)
	msg.SetAddressHeader("To", email.To, email.ToName)
	msg.SetHeader("Subject", email.Subject)
	msg.SetBody("text/plain", email.Text)
	if email.HTML != "" {
		msg.AddAlternative("text/html", email.HTML)
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

type SendGridMailer struct {
	client   *sendgrid.Client
	from     string
	fromName string
}

func NewSendGridMailer(cfg config.MailConfig) *SendGridMailer {
	return &SendGridMailer{
		client:   sendgrid.NewSendClient(cfg.SendGridAPIKey),
		from:     cfg.From,
		fromName: cfg.FromName,
	}
}

func (m *SendGridMailer) Send(ctx context.Context, email Email) error {
	from := sgmail.NewEmail(m.fromName, m.from)
	to := sgmail.NewEmail(email.ToName, email.To)
	message := sgmail.NewSingleEmail(from, email.Subject, to, email.Text, email.HTML)

	response, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send failed: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed, status code: %d", response.StatusCode)
	}
	return nil
}

type ResendMailer struct {
	client *resend.Client
	from   string
}

func NewResendMailer(cfg config.MailConfig) *ResendMailer {
	from := cfg.From
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.From)
	}
	return &ResendMailer{client: resend.NewClient(cfg.ResendAPIKey), from: from}
}

func (m *ResendMailer) Send(ctx context.Context, email Email) error {
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{email.To},
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
	}
	if _, err := m.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("resend send failed: %w", err)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them. Development only.
type LogMailer struct {
	logger *logrus.Entry
}

func NewLogMailer(logger *logrus.Logger) *LogMailer {
	return &LogMailer{logger: logger.WithField("component", "mailer")}
}

func (m *LogMailer) Send(_ context.Context, email Email) error {
	m.logger.WithFields(logrus.Fields{
		"to":      utils.MaskEmail(email.To),
		"subject": email.Subject,
	}).Info(email.Text)
	return nil
}
