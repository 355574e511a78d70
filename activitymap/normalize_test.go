package activitymap_test

import (
	"testing"
	"time"

	"github.com/goliatone/go-accounts/activitymap"
	"github.com/goliatone/go-accounts/store"
)

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := store.AuditEvent{
		Action:   store.AuditSaved,
		Entity:   "accounts",
		EntityID: "acc-100",
		Actor:    store.ActorRef{ID: "admin-42", Type: "admin"},
		Reason:   "account verification",
		Metadata: map[string]any{
			"token": "tok-1",
		},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	if out.ActorID != "admin-42" {
		t.Fatalf("expected actor_id admin-42, got %q", out.ActorID)
	}
	if out.Verb != "accounts.saved" {
		t.Fatalf("expected verb accounts.saved, got %q", out.Verb)
	}
	if out.ObjectType != "accounts" {
		t.Fatalf("expected object_type accounts, got %q", out.ObjectType)
	}
	if out.ObjectID != "acc-100" {
		t.Fatalf("expected object_id acc-100, got %q", out.ObjectID)
	}
	if out.Channel != "accounts" {
		t.Fatalf("expected channel accounts, got %q", out.Channel)
	}
	if !out.OccurredAt.Equal(ts) {
		t.Fatalf("expected occurred_at %v, got %v", ts, out.OccurredAt)
	}

	if out.Metadata["token"] != "tok-1" {
		t.Fatalf("expected metadata token tok-1, got %#v", out.Metadata["token"])
	}
	if out.Metadata[activitymap.MetadataKeyActorType] != "admin" {
		t.Fatalf("expected metadata actor_type admin, got %#v", out.Metadata[activitymap.MetadataKeyActorType])
	}
	if out.Metadata[activitymap.MetadataKeyReason] != "account verification" {
		t.Fatalf("expected metadata reason, got %#v", out.Metadata[activitymap.MetadataKeyReason])
	}

	if len(event.Metadata) != 1 {
		t.Fatalf("expected source metadata to remain unchanged, got %+v", event.Metadata)
	}
}

func TestNormalizeOptionOverrides(t *testing.T) {
	t.Parallel()

	event := store.AuditEvent{
		Action:   store.AuditRemoved,
		Entity:   "verification_tokens",
		EntityID: "tok-9",
		Actor:    store.ActorRef{Type: "user"},
		Metadata: map[string]any{
			activitymap.MetadataKeyActorType: "existing",
		},
	}

	out := activitymap.Normalize(
		event,
		activitymap.WithDefaultChannel("security"),
		activitymap.WithObjectType("verification_tokens", "verification_token"),
	)

	if out.Channel != "security" {
		t.Fatalf("expected channel security, got %q", out.Channel)
	}
	if out.ObjectType != "verification_token" {
		t.Fatalf("expected object_type verification_token, got %q", out.ObjectType)
	}
	if out.Verb != "verification_token.removed" {
		t.Fatalf("expected verb verification_token.removed, got %q", out.Verb)
	}
	if out.Metadata[activitymap.MetadataKeyActorType] != "existing" {
		t.Fatalf("expected existing actor_type preserved, got %#v", out.Metadata[activitymap.MetadataKeyActorType])
	}
	if _, ok := out.Metadata[activitymap.MetadataKeyReason]; ok {
		t.Fatalf("expected no reason key for empty reason")
	}
	if out.OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be set when input is zero")
	}
}

func TestNormalizeActorFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		event  store.AuditEvent
		opts   []activitymap.Option
		expect string
	}{
		{
			name:   "uses actor id when present",
			event:  store.AuditEvent{Actor: store.ActorRef{ID: "actor-1"}},
			expect: "actor-1",
		},
		{
			name:   "uses default fallback when actor missing",
			event:  store.AuditEvent{},
			expect: "system",
		},
		{
			name:   "uses configured fallback when actor missing",
			event:  store.AuditEvent{},
			opts:   []activitymap.Option{activitymap.WithActorFallback("job")},
			expect: "job",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := activitymap.Normalize(tc.event, tc.opts...)
			if out.ActorID != tc.expect {
				t.Fatalf("expected actor_id %q, got %q", tc.expect, out.ActorID)
			}
		})
	}
}

func TestNormalizeEmptyEntity(t *testing.T) {
	t.Parallel()

	out := activitymap.Normalize(store.AuditEvent{Action: store.AuditCreated})
	if out.Verb != "created" {
		t.Fatalf("expected verb created, got %q", out.Verb)
	}
}
