package auth

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/smtp"
	"net/url"
	"strings"

	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-errors"
)

// LogMailer writes messages to the logger instead of delivering them.
// It is the default so the flows work without an SMTP server.
type LogMailer struct {
	Logger Logger
}

func (m LogMailer) Deliver(ctx context.Context, to, subject, html string) error {
	logger := m.Logger
	if logger == nil {
		logger = defLogger{}
	}
	logger.Info("mail to=%s subject=%q bytes=%d", to, subject, len(html))
	return nil
}

// SMTPMailer delivers mail through a plain SMTP endpoint
type SMTPMailer struct {
	Addr     string // host:port
	From     string
	Username string
	Password string
}

func (m SMTPMailer) Deliver(ctx context.Context, to, subject, html string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	host := m.Addr
	if i := strings.IndexByte(host, ':'); i > 0 {
		host = host[:i]
	}

	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, host)
	}

	msg := strings.Join([]string{
		"From: " + m.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		html,
	}, "\r\n")

	if err := smtp.SendMail(m.Addr, auth, m.From, []string{to}, []byte(msg)); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "smtp delivery failed")
	}

	return nil
}

// EmailService renders the transactional email templates and hands the
// result to a Mailer. Token links point at the configured base URL.
type EmailService struct {
	engine  *django.Engine
	mailer  Mailer
	baseURL string
	logger  Logger
}

// NewEmailService builds the service around the embedded email templates
func NewEmailService(mailer Mailer, baseURL string, logger Logger) (*EmailService, error) {
	if mailer == nil {
		mailer = LogMailer{Logger: logger}
	}
	if logger == nil {
		logger = defLogger{}
	}

	engine := django.NewFileSystem(http.FS(GetEmailTemplatesFS()), ".html")
	if err := engine.Load(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load email templates")
	}

	return &EmailService{
		engine:  engine,
		mailer:  mailer,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}, nil
}

// SendResetPasswordEmail delivers the password reset link for the token
func (s *EmailService) SendResetPasswordEmail(ctx context.Context, to, token string) error {
	return s.send(ctx, to, "Reset password", "views/emails/reset_password", map[string]any{
		"reset_url": s.tokenURL("/reset-password", token),
	})
}

// SendVerificationEmail delivers the email verification link for the token
func (s *EmailService) SendVerificationEmail(ctx context.Context, to, token string) error {
	return s.send(ctx, to, "Email Verification", "views/emails/verify_email", map[string]any{
		"verify_url": s.tokenURL("/verify-email", token),
	})
}

func (s *EmailService) send(ctx context.Context, to, subject, template string, data map[string]any) error {
	var buf bytes.Buffer
	if err := s.engine.Render(&buf, template, data); err != nil {
		s.logger.Error("email render error", "template", template, "error", err)
		return errors.Wrap(err, errors.CategoryInternal, "failed to render email")
	}

	if err := s.mailer.Deliver(ctx, to, subject, buf.String()); err != nil {
		s.logger.Error("email delivery error", "to", to, "error", err)
		return err
	}

	return nil
}

func (s *EmailService) tokenURL(path, token string) string {
	return fmt.Sprintf("%s%s?token=%s", s.baseURL, path, url.QueryEscape(token))
}
