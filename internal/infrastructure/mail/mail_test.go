package mail

import (
	"bytes"
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/yamdb/yamdb-api/internal/core/ports"
)

func TestSMTPMailer_Send(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "mail.local", Port: 25, From: "noreply@yamdb.local"})

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotTo, gotMsg = addr, a, to, string(msg)
		return nil
	}

	err := m.Send(context.Background(), ports.Message{To: "alice@example.com", Subject: "Hi", Body: "line1\nline2"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotAddr != "mail.local:25" || len(gotTo) != 1 || gotTo[0] != "alice@example.com" {
		t.Fatalf("unexpected envelope: %s %v", gotAddr, gotTo)
	}
	if gotAuth != nil {
		t.Fatal("expected no auth without username")
	}
	for _, want := range []string{"Subject: Hi\r\n", "To: alice@example.com\r\n", "\r\n\r\nline1\r\nline2"} {
		if !strings.Contains(gotMsg, want) {
			t.Fatalf("message missing %q:\n%s", want, gotMsg)
		}
	}
}

func TestSMTPMailer_SendFailure(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "mail.local", Port: 25, Username: "u", Password: "p"})
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("relay refused")
	}

	if err := m.Send(context.Background(), ports.Message{To: "bob@example.com"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestConsoleMailer_LogsMessage(t *testing.T) {
	var buf bytes.Buffer
	m := NewConsoleMailer(zerolog.New(&buf))

	if err := m.Send(context.Background(), ports.Message{To: "carol@example.com", Subject: "Code", Body: "abc"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(buf.String(), "carol@example.com") || !strings.Contains(buf.String(), "abc") {
		t.Fatalf("unexpected log output: %s", buf.String())
	}
}
