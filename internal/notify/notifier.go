// Package notify defines the outbound notification port. Delivery mechanics
// (channel, templating, applicant address resolution) belong to the external
// notification service; this service only hands over recipient, subject, and
// body. Sends are fire-and-forget from the workflow's perspective.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Notifier sends one message. Implementations must be safe for concurrent use.
type Notifier interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// LogNotifier writes notifications to the structured log. Used in local runs
// and wherever the real notification service is not wired.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	n.Logger.InfoContext(ctx, "notification",
		"recipient", recipient,
		"subject", subject,
		"body", body,
	)
	return nil
}

// Recorder captures sends for tests.
type Recorder struct {
	mu    sync.Mutex
	sends []RecordedSend
	Fail  error
}

type RecordedSend struct {
	Recipient string
	Subject   string
	Body      string
}

func (r *Recorder) Send(_ context.Context, recipient, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return r.Fail
	}
	r.sends = append(r.sends, RecordedSend{Recipient: recipient, Subject: subject, Body: body})
	return nil
}

// Sends returns a copy of everything sent so far.
func (r *Recorder) Sends() []RecordedSend {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordedSend, len(r.sends))
	copy(out, r.sends)
	return out
}
