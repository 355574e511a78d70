package accounts

import (
	"context"
	"sync"

	"github.com/goliatone/go-accounts/activitymap"
	"github.com/goliatone/go-accounts/store"
	"github.com/goliatone/go-print"
)

// ActivityObjectTypes maps account tables to the object types used in
// normalized activity records.
var ActivityObjectTypes = []activitymap.Option{
	activitymap.WithObjectType("accounts", "account"),
	activitymap.WithObjectType("verification_tokens", "verification_token"),
}

// NewLoggerAuditSink writes every audit event to logger at debug level as
// a normalized activity record.
func NewLoggerAuditSink(logger Logger, opts ...activitymap.Option) store.AuditSink {
	if logger == nil {
		logger = nopLogger{}
	}
	opts = append(append([]activitymap.Option{}, ActivityObjectTypes...), opts...)
	return store.AuditSinkFunc(func(_ context.Context, event store.AuditEvent) error {
		activity := activitymap.Normalize(event, opts...)
		logger.Debug("activity %s %s by %s\n%s",
			activity.Verb,
			activity.ObjectID,
			activity.ActorID,
			print.MaybePrettyJSON(activity),
		)
		return nil
	})
}

// MemoryAuditSink keeps audit events in memory.
type MemoryAuditSink struct {
	mu     sync.Mutex
	events []store.AuditEvent
}

// Record implements store.AuditSink.
func (m *MemoryAuditSink) Record(_ context.Context, event store.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of the recorded events
func (m *MemoryAuditSink) Events() []store.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.AuditEvent, len(m.events))
	copy(out, m.events)
	return out
}

// FanOutAuditSink forwards events to every sink, returning the first error.
func FanOutAuditSink(sinks ...store.AuditSink) store.AuditSink {
	return store.AuditSinkFunc(func(ctx context.Context, event store.AuditEvent) error {
		var first error
		for _, s := range sinks {
			if s == nil {
				continue
			}
			if err := s.Record(ctx, event); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}
