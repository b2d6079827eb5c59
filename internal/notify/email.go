package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/relsync/relsync/internal/config"
)

// emailSink sends messages over SMTP with STARTTLS.
type emailSink struct {
	cfg config.EmailConfig
}

func newEmailSink(cfg config.EmailConfig) *emailSink {
	return &emailSink{cfg: cfg}
}

func (e *emailSink) Name() string { return "email" }

func (e *emailSink) Send(ctx context.Context, msg Message) error {
	addr := fmt.Sprintf("%s:%d", e.cfg.SMTPHost, e.cfg.SMTPPort)

	var body strings.Builder
	fmt.Fprintf(&body, "From: %s\r\n", e.cfg.From)
	fmt.Fprintf(&body, "To: %s\r\n", strings.Join(e.cfg.To, ", "))
	fmt.Fprintf(&body, "Subject: %s\r\n", msg.Subject)
	body.WriteString("MIME-Version: 1.0\r\n")
	body.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	body.WriteString("\r\n")
	body.WriteString(msg.Body)

	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.SMTPHost)
	}

	if err := smtp.SendMail(addr, auth, e.cfg.From, e.cfg.To, []byte(body.String())); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}

	return nil
}
