package mail

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/yamdb/yamdb-api/internal/api/metrics"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

const backendConsole = "console"

// ConsoleMailer writes messages to the log instead of sending them. It is
// the development backend.
type ConsoleMailer struct {
	log zerolog.Logger
}

func NewConsoleMailer(log zerolog.Logger) *ConsoleMailer {
	return &ConsoleMailer{log: log}
}

func (m *ConsoleMailer) Send(_ context.Context, msg ports.Message) error {
	m.log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.Body).
		Msg("email")
	metrics.EmailsSentTotal.WithLabelValues(backendConsole, "sent").Inc()
	return nil
}
