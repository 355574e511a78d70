package store

import (
	"context"
	"time"
)

// AuditAction enumerates the mutations a store reports.
type AuditAction string

const (
	AuditCreated AuditAction = "entity.created"
	AuditSaved   AuditAction = "entity.saved"
	AuditRemoved AuditAction = "entity.removed"
)

// ActorRef identifies who triggered a mutation.
type ActorRef struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type,omitempty"`
}

// SystemActor is used when no caller identity is available.
var SystemActor = ActorRef{ID: "system", Type: "system"}

// Audit is the attribution threaded through every mutation.
type Audit struct {
	Actor    ActorRef
	Reason   string
	Metadata map[string]any
}

// AuditEvent is emitted after a mutation succeeds.
type AuditEvent struct {
	Action     AuditAction
	Entity     string
	EntityID   string
	Actor      ActorRef
	Reason     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// AuditSink consumes audit events.
type AuditSink interface {
	Record(ctx context.Context, event AuditEvent) error
}

// AuditSinkFunc adapts a function to the AuditSink interface.
type AuditSinkFunc func(ctx context.Context, event AuditEvent) error

// Record implements AuditSink.
func (f AuditSinkFunc) Record(ctx context.Context, event AuditEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopAuditSink struct{}

func (noopAuditSink) Record(context.Context, AuditEvent) error {
	return nil
}

func normalizeAuditSink(s AuditSink) AuditSink {
	if s == nil {
		return noopAuditSink{}
	}
	return s
}

func (a Audit) event(action AuditAction, schema *Schema, id string, at time.Time) AuditEvent {
	actor := a.Actor
	if actor.ID == "" {
		actor = SystemActor
	}

	var meta map[string]any
	if len(a.Metadata) > 0 {
		meta = make(map[string]any, len(a.Metadata))
		for k, v := range a.Metadata {
			meta[k] = v
		}
	}

	return AuditEvent{
		Action:     action,
		Entity:     schema.Name,
		EntityID:   id,
		Actor:      actor,
		Reason:     a.Reason,
		Metadata:   meta,
		OccurredAt: at,
	}
}
