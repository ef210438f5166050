package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/yamdb/yamdb-api/internal/api/metrics"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

const backendSMTP = "smtp"

// SMTPConfig holds the relay settings. Username may be empty for relays that
// accept unauthenticated submission.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer delivers messages through an SMTP relay.
type SMTPMailer struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

// Send hands msg to the relay. The context only bounds the wait; an
// in-flight SMTP session is not interrupted.
func (m *SMTPMailer) Send(ctx context.Context, msg ports.Message) error {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	errc := make(chan error, 1)
	go func() {
		errc <- m.send(addr, auth, m.cfg.From, []string{msg.To}, m.render(msg))
	}()

	var err error
	select {
	case err = <-errc:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		metrics.EmailsSentTotal.WithLabelValues(backendSMTP, "failed").Inc()
		return fmt.Errorf("smtp send to %s: %w", addr, err)
	}
	metrics.EmailsSentTotal.WithLabelValues(backendSMTP, "sent").Inc()
	return nil
}

func (m *SMTPMailer) render(msg ports.Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}
