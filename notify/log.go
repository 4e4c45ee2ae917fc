package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes messages to a slog.Logger. It is meant for local
// development. The body, which carries the code, is logged only when
// IncludeBody is set.
type LogNotifier struct {
	Logger      *slog.Logger
	IncludeBody bool
}

// Deliver implements Notifier.
func (n LogNotifier) Deliver(ctx context.Context, to, subject, body string) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []slog.Attr{slog.String("to", to), slog.String("subject", subject)}
	if n.IncludeBody {
		attrs = append(attrs, slog.String("body", body))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "notification", attrs...)
	return nil
}
