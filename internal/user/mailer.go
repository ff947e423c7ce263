package user

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/AutoHub/AutoHub/internal/common/config"
)

// Mailer 注册确认邮件的发送方。
type Mailer interface {
	SendRegistrationEmail(ctx context.Context, to, completeLink string) error
}

// SMTPMailer 通过 SMTP 发送邮件。
type SMTPMailer struct {
	cfg config.SMTPConfig
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) SendRegistrationEmail(ctx context.Context, to, completeLink string) error {
	if m.cfg.Host == "" {
		return fmt.Errorf("smtp host is empty")
	}
	from := m.cfg.From
	if from == "" {
		from = m.cfg.User
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	b.WriteString("Subject: Complete your AutoHub registration\r\n")
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&b, "Welcome to AutoHub!\r\n\r\nClick the link below to complete your registration:\r\n%s\r\n", completeLink)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	}
	return smtp.SendMail(addr, auth, from, []string{to}, []byte(b.String()))
}
