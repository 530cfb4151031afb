package tracing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
)

// recordingTransport keeps every event the client hands over.
type recordingTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (t *recordingTransport) Configure(options sentry.ClientOptions) {}

func (t *recordingTransport) SendEvent(event *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func (t *recordingTransport) Flush(timeout time.Duration) bool { return true }

func (t *recordingTransport) FlushWithContext(ctx context.Context) bool { return true }

func (t *recordingTransport) Close() {}

func (t *recordingTransport) Events() []*sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*sentry.Event(nil), t.events...)
}

// Transactions returns the transaction events.
func (t *recordingTransport) Transactions() []*sentry.Event {
	var out []*sentry.Event
	for _, e := range t.Events() {
		if e.Type == "transaction" {
			out = append(out, e)
		}
	}
	return out
}

// Errors returns the error events.
func (t *recordingTransport) Errors() []*sentry.Event {
	var out []*sentry.Event
	for _, e := range t.Events() {
		if e.Type != "transaction" {
			out = append(out, e)
		}
	}
	return out
}

// traceStatus returns the status recorded in a transaction's trace context.
func traceStatus(e *sentry.Event) string {
	return fmt.Sprint(e.Contexts["trace"]["status"])
}

// traceData returns the root span data, which the SDK sends as the
// transaction's extra fields.
func traceData(e *sentry.Event) map[string]interface{} {
	return e.Extra
}
