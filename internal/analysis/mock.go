package analysis

import (
	"context"
	"sync"
	"time"

	"drivepass/internal/domain"
	id "drivepass/pkg/domain"
)

// MockClient returns deterministic assessments with a configurable latency to
// mimic real-world calls. Useful for local runs and tests; FailTimes injects
// transient failures before the first success.
type MockClient struct {
	Latency    time.Duration
	Assessment domain.Assessment
	FailTimes  int
	FailWith   error

	mu    sync.Mutex
	calls int
}

func (c *MockClient) Analyze(ctx context.Context, documentRefs []id.DocumentRef, _ Metadata) (*domain.Assessment, error) {
	if c.Latency > 0 {
		select {
		case <-time.After(c.Latency):
		case <-ctx.Done():
			return nil, ErrTimeout
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.calls <= c.FailTimes {
		if c.FailWith != nil {
			return nil, c.FailWith
		}
		return nil, ErrUnavailable
	}
	assessment := c.Assessment
	return &assessment, nil
}

// Calls reports how many times Analyze was invoked.
func (c *MockClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
