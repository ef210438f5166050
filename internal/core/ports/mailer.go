package ports

import "context"

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers outbound email. Send returns an error when the transport
// did not accept the message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
