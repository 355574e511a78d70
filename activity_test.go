package accounts_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerAuditSink(t *testing.T) {
	var buf bytes.Buffer
	logger := accounts.NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	sink := accounts.NewLoggerAuditSink(logger)
	err := sink.Record(context.Background(), store.AuditEvent{
		Action:   store.AuditCreated,
		Entity:   "accounts",
		EntityID: "acc-1",
		Actor:    store.SystemActor,
		Metadata: map[string]any{"email": "pepe@example.com"},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "module=accounts")
	assert.Contains(t, out, "activity account.created acc-1 by system")
	assert.Contains(t, out, "pepe@example.com")
}

func TestFanOutAuditSink(t *testing.T) {
	first := &accounts.MemoryAuditSink{}
	second := &accounts.MemoryAuditSink{}
	boom := errors.New("boom")
	failing := store.AuditSinkFunc(func(context.Context, store.AuditEvent) error { return boom })

	sink := accounts.FanOutAuditSink(first, nil, failing, second)
	err := sink.Record(context.Background(), store.AuditEvent{Action: store.AuditSaved})
	assert.ErrorIs(t, err, boom)

	assert.Len(t, first.Events(), 1)
	assert.Len(t, second.Events(), 1)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "pepe@example.com", accounts.NormalizeEmail("  Pepe@Example.COM\t"))
	assert.Equal(t, "", accounts.NormalizeEmail("   "))
}

func TestIsEmailConflict(t *testing.T) {
	assert.True(t, accounts.IsEmailConflict(accounts.ErrEmailConflict.Clone()))
	assert.False(t, accounts.IsEmailConflict(errors.New("duplicate")))
	assert.False(t, accounts.IsEmailConflict(nil))
}
