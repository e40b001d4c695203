package notifier

import (
	"context"
	"log/slog"
)

// LogTransport writes messages to the log instead of sending them.
// Used for local runs and dry runs.
type LogTransport struct {
	logger *slog.Logger
}

func NewLogTransport(logger *slog.Logger) *LogTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTransport{logger: logger.With("component", "mail")}
}

func (t *LogTransport) Send(_ context.Context, msg Message) error {
	t.logger.Info("reminder email",
		"from", msg.From,
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}
