package audit

import (
	"context"
	"log/slog"

	"drivepass/internal/domain"
)

// Worker drains the mirror inbox into a sink. Publish failures are logged and
// skipped: the durable store already holds the entry, and the stream is
// best-effort by contract.
type Worker struct {
	sink   Sink
	inbox  <-chan domain.AuditEntry
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan domain.AuditEntry, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry := <-w.inbox:
			if err := w.sink.Publish(ctx, entry); err != nil {
				w.logger.ErrorContext(ctx, "audit mirror publish failed",
					"case_id", entry.CaseID.String(),
					"action", entry.Action,
					"error", err,
				)
			}
		}
	}
}
