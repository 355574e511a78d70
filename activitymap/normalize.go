package activitymap

import (
	"strings"
	"time"

	"github.com/goliatone/go-accounts/store"
)

const (
	// MetadataKeyActorType stores the actor type from store.ActorRef.Type.
	MetadataKeyActorType = "actor_type"
	// MetadataKeyReason stores the audit reason given by the caller.
	MetadataKeyReason = "reason"
)

const (
	defaultChannel = "accounts"
	defaultActorID = "system"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel       string
	actorFallback string
	objectTypes   map[string]string
}

// Normalize converts a store audit event into a flat activity record.
// The verb joins the object type and the action name: entity.saved on
// accounts, mapped to the "account" object type, reads "account.saved".
func Normalize(event store.AuditEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	objectType := strings.TrimSpace(event.Entity)
	if mapped, ok := options.objectTypes[objectType]; ok {
		objectType = mapped
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	return Normalized{
		ActorID:    firstNonEmpty(strings.TrimSpace(event.Actor.ID), options.actorFallback),
		Verb:       verb(objectType, event.Action),
		ObjectType: objectType,
		ObjectID:   strings.TrimSpace(event.EntityID),
		Channel:    options.channel,
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt,
	}
}

// WithDefaultChannel sets the channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithObjectType maps a table name to the object type reported downstream.
func WithObjectType(entity, objectType string) Option {
	return func(opts *normalizeOptions) {
		if opts.objectTypes == nil {
			opts.objectTypes = map[string]string{}
		}
		opts.objectTypes[strings.TrimSpace(entity)] = strings.TrimSpace(objectType)
	}
}

// WithActorFallback sets the actor id used when the event has none.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		actorFallback: defaultActorID,
	}
}

func verb(objectType string, action store.AuditAction) string {
	name := strings.TrimPrefix(string(action), "entity.")
	if objectType == "" {
		return name
	}
	return objectType + "." + name
}

func normalizeMetadata(event store.AuditEvent) map[string]any {
	metadata := cloneMap(event.Metadata)

	set := func(key, value string) {
		if value == "" {
			return
		}
		if metadata == nil {
			metadata = map[string]any{}
		}
		if _, exists := metadata[key]; !exists {
			metadata[key] = value
		}
	}

	set(MetadataKeyActorType, strings.TrimSpace(event.Actor.Type))
	set(MetadataKeyReason, strings.TrimSpace(event.Reason))

	return metadata
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
