package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/alejandrodnm/settlebot/internal/alert"
)

// EmailConfig agrupa las credenciales SMTP del sender.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// Email implementa alert.Sender por SMTP con STARTTLS.
type Email struct {
	cfg  EmailConfig
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmail crea un sender de alertas por correo.
func NewEmail(cfg EmailConfig) *Email {
	return &Email{cfg: cfg, send: smtp.SendMail}
}

// Send entrega la alerta como un correo de texto plano. Best-effort: el
// caller loguea el error y sigue.
func (e *Email) Send(ctx context.Context, ev alert.Event) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("notify.Email: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)
	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	}

	if err := e.send(addr, auth, e.cfg.From, e.cfg.To, e.message(ev)); err != nil {
		return fmt.Errorf("notify.Email: send: %w", err)
	}
	return nil
}

func (e *Email) message(ev alert.Event) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", e.cfg.From)
	fmt.Fprintf(&sb, "To: %s\r\n", strings.Join(e.cfg.To, ", "))
	fmt.Fprintf(&sb, "Subject: [%s] %s\r\n", ev.Severity.String(), ev.Title)
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(ev.Message)
	sb.WriteString("\r\n")
	return []byte(sb.String())
}
