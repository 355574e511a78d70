package accounts_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/store"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const linkBase = "https://accounts.example.com/"

var tokenInLink = regexp.MustCompile(`/account/verify/([0-9a-fA-F-]{36})`)

// MockMailer implements accounts.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, email accounts.Email) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

// MockListPusher implements accounts.ListPusher
type MockListPusher struct {
	mock.Mock
}

func (m *MockListPusher) RPush(ctx context.Context, key string, values ...any) *redis.IntCmd {
	args := m.Called(ctx, key, values)
	return args.Get(0).(*redis.IntCmd)
}

// outbox records sent emails
type outbox struct {
	mu   sync.Mutex
	sent []accounts.Email
	err  error
}

func (o *outbox) Send(_ context.Context, email accounts.Email) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, email)
	return o.err
}

func (o *outbox) emails() []accounts.Email {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]accounts.Email(nil), o.sent...)
}

func (o *outbox) last(t *testing.T) accounts.Email {
	t.Helper()
	sent := o.emails()
	require.NotEmpty(t, sent)
	return sent[len(sent)-1]
}

func tokenFromEmail(t *testing.T, email accounts.Email) string {
	t.Helper()
	m := tokenInLink.FindStringSubmatch(email.HTML)
	require.Len(t, m, 2, "no verification link in %q", email.HTML)
	return m[1]
}

type fixture struct {
	db     *bun.DB
	repo   accounts.RepositoryManager
	svc    *accounts.Service
	mail   *outbox
	audit  *accounts.MemoryAuditSink
	mu     sync.Mutex
	now    time.Time
	hasher accounts.PasswordHasher
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func quietLogger() accounts.Logger {
	return accounts.NewLogger(slog.NewTextHandler(io.Discard, nil))
}

func fastHasher() accounts.PasswordHasher {
	return accounts.Argon2Hasher{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}
}

func newFixture(t *testing.T, opts ...accounts.ServiceOption) *fixture {
	t.Helper()
	ctx := context.Background()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	require.NoError(t, accounts.RunMigrations(ctx, sqldb, "sqlite3"))

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
	})

	f := &fixture{
		db:     db,
		mail:   &outbox{},
		audit:  &accounts.MemoryAuditSink{},
		now:    time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC),
		hasher: fastHasher(),
	}

	f.repo, err = accounts.NewRepositoryManager(db,
		store.WithAuditSink(f.audit),
		store.WithLogger(quietLogger()),
	)
	require.NoError(t, err)

	base := []accounts.ServiceOption{
		accounts.WithMailer(f.mail),
		accounts.WithPasswordHasher(f.hasher),
		accounts.WithClock(f.clock),
		accounts.WithServiceLogger(quietLogger()),
	}
	f.svc = accounts.NewService(f.repo, append(base, opts...)...)
	return f
}

func (f *fixture) signup(t *testing.T, email, password string) string {
	t.Helper()
	res, err := f.svc.Signup(context.Background(), accounts.SignupPayload{
		Email:    email,
		Password: password,
	}, linkBase)
	require.NoError(t, err)
	require.Equal(t, accounts.SignupCreated, res)
	return tokenFromEmail(t, f.mail.last(t))
}

func (f *fixture) account(t *testing.T, email string) *accounts.Account {
	t.Helper()
	acc, found, err := f.repo.Accounts().FindOne(context.Background(),
		store.Where{"email": accounts.NormalizeEmail(email)},
		store.IncludeDeleted(),
	)
	require.NoError(t, err)
	require.True(t, found, "account %s not found", email)
	return acc
}

func (f *fixture) tokens(t *testing.T, acc *accounts.Account) []*accounts.VerificationToken {
	t.Helper()
	res, err := f.repo.VerificationTokens().Find(context.Background(), store.Where{"account_id": acc}, store.Page{})
	require.NoError(t, err)
	return res.Rows
}

func (f *fixture) countAccounts(t *testing.T, email string) int {
	t.Helper()
	res, err := f.repo.Accounts().Find(context.Background(),
		store.Where{"email": accounts.NormalizeEmail(email)},
		store.Page{},
		store.IncludeDeleted(),
	)
	require.NoError(t, err)
	return res.Total
}
