package accounts

import (
	"context"
	"encoding/json"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

// DefaultMailQueueKey is the Redis list RedisQueueMailer pushes to
const DefaultMailQueueKey = "accounts:mail:outbox"

// Email is an HTML message addressed to a single recipient
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// MailerFunc adapts a function to the Mailer interface.
type MailerFunc func(ctx context.Context, email Email) error

// Send implements Mailer.
func (f MailerFunc) Send(ctx context.Context, email Email) error {
	if f == nil {
		return nil
	}
	return f(ctx, email)
}

// LogMailer prints emails instead of sending them, useful in development.
type LogMailer struct {
	Logger Logger
}

func (m LogMailer) Send(_ context.Context, email Email) error {
	logger := m.Logger
	if logger == nil {
		logger = NewLogger(nil)
	}
	logger.Info("====== SENDING EMAIL NOTIFICATION ======= to: %s subject: %q\n%s", email.To, email.Subject, email.HTML)
	return nil
}

// ListPusher is the subset of the redis client used to enqueue mail.
type ListPusher interface {
	RPush(ctx context.Context, key string, values ...any) *redis.IntCmd
}

// MailJob is the queued representation of an Email
type MailJob struct {
	Email
	QueuedAt time.Time `json:"queued_at"`
}

// RedisQueueMailer enqueues emails as JSON jobs on a Redis list for a
// delivery worker to consume.
type RedisQueueMailer struct {
	client ListPusher
	key    string
	now    func() time.Time
}

// NewRedisQueueMailer creates a mailer pushing to key, or
// DefaultMailQueueKey when key is empty.
func NewRedisQueueMailer(client ListPusher, key string) *RedisQueueMailer {
	if key == "" {
		key = DefaultMailQueueKey
	}
	return &RedisQueueMailer{
		client: client,
		key:    key,
		now:    time.Now,
	}
}

func (m *RedisQueueMailer) Send(ctx context.Context, email Email) error {
	payload, err := json.Marshal(MailJob{Email: email, QueuedAt: m.now().UTC()})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode mail job")
	}

	if err := m.client.RPush(ctx, m.key, payload).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to enqueue mail job").
			WithMetadata(map[string]any{"queue": m.key})
	}
	return nil
}
