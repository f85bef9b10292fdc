package notify

import (
	"context"
	"log/slog"
)

// LogTransport writes each push to the logger. It never fails.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport returns a transport logging to l, or slog.Default when nil.
func NewLogTransport(l *slog.Logger) *LogTransport {
	if l == nil {
		l = slog.Default()
	}
	return &LogTransport{logger: l}
}

func (t *LogTransport) Name() string { return "log" }

func (t *LogTransport) Send(ctx context.Context, recipientID string, msg Message) error {
	t.logger.InfoContext(ctx, "push",
		slog.String("recipient_id", recipientID),
		slog.String("task_id", msg.TaskID),
		slog.String("subject", msg.Subject()),
	)
	return nil
}
