package auth

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/smtp"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/petermazzocco/project-journal/internal/config"
)

const emailTokenName = "journal_email_login"

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPMailer struct {
	cfg config.SMTPConfig
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(_ context.Context, to, subject, body string) error {
	if m.cfg.Host == "" {
		return fmt.Errorf("smtp host is not configured")
	}
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var a smtp.Auth
	if m.cfg.User != "" {
		a = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}
	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="utf-8"`,
		"",
		body,
	}, "\r\n")
	return smtp.SendMail(addr, a, m.cfg.From, []string{to}, []byte(msg))
}

// EmailLogin issues and verifies passwordless sign-in links. Tokens are
// signed and encrypted with keys derived from the session secret and stop
// verifying after ttl.
type EmailLogin struct {
	codec   *securecookie.SecureCookie
	mailer  Mailer
	baseURL string
}

func NewEmailLogin(secret string, ttl time.Duration, mailer Mailer, baseURL string) *EmailLogin {
	hashKey := sha256.Sum256([]byte("email-login-hash:" + secret))
	blockKey := sha256.Sum256([]byte("email-login-block:" + secret))
	codec := securecookie.New(hashKey[:], blockKey[:])
	codec.MaxAge(int(ttl.Seconds()))
	return &EmailLogin{
		codec:   codec,
		mailer:  mailer,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (e *EmailLogin) Token(email string) (string, error) {
	return e.codec.Encode(emailTokenName, email)
}

func (e *EmailLogin) Verify(token string) (string, error) {
	var email string
	if err := e.codec.Decode(emailTokenName, token, &email); err != nil {
		return "", fmt.Errorf("invalid sign-in link: %w", err)
	}
	return email, nil
}

func (e *EmailLogin) Link(token string) string {
	return e.baseURL + "/auth/email/callback?token=" + url.QueryEscape(token)
}

func (e *EmailLogin) Send(ctx context.Context, email string) error {
	token, err := e.Token(email)
	if err != nil {
		return fmt.Errorf("create sign-in token: %w", err)
	}
	body := "Use the link below to sign in to Project Journal.\r\n\r\n" + e.Link(token) + "\r\n"
	return e.mailer.Send(ctx, email, "Sign in to Project Journal", body)
}
