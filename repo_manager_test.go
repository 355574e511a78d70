package accounts_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

type brokenRepo struct{}

func (brokenRepo) Validate() error { return errors.New("not initialized") }
func (brokenRepo) MustValidate()   { panic("not initialized") }
func (brokenRepo) RunInTx(context.Context, *sql.TxOptions, func(context.Context, bun.Tx) error) error {
	return nil
}
func (brokenRepo) Accounts() *accounts.Accounts                     { return nil }
func (brokenRepo) VerificationTokens() *accounts.VerificationTokens { return nil }

func newMockRepo(t *testing.T) (accounts.RepositoryManager, sqlmock.Sqlmock) {
	t.Helper()

	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)

	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() {
		_ = db.Close()
	})

	repo, err := accounts.NewRepositoryManager(db)
	require.NoError(t, err)
	return repo, mock
}

var (
	_ accounts.RepositoryManager  = brokenRepo{}
	_ accounts.Validator          = brokenRepo{}
	_ accounts.TransactionManager = brokenRepo{}
)

func TestRepositoryManagerValidate(t *testing.T) {
	repo, _ := newMockRepo(t)
	assert.NoError(t, repo.Validate())
	assert.NotPanics(t, repo.MustValidate)
	assert.NotNil(t, repo.Accounts())
	assert.NotNil(t, repo.VerificationTokens())

	var validator accounts.Validator = repo
	assert.NoError(t, validator.Validate())

	var broken accounts.Validator = brokenRepo{}
	assert.Error(t, broken.Validate())
	assert.Panics(t, broken.MustValidate)
}

func TestRepositoryManagerRunInTx(t *testing.T) {
	t.Run("commits", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		err := repo.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
			return nil
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := repo.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("skips cancelled context", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		called := false
		err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestVerifyAccountRollsBackOnQueryError(t *testing.T) {
	repo, mock := newMockRepo(t)
	svc := accounts.NewService(repo, accounts.WithServiceLogger(quietLogger()))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "verification_tokens"`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := svc.VerifyAccount(context.Background(), "350399bc-c095-4bdc-a59c-3352d44848e4")
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, goerrors.CategoryInternal, richErr.Category)
	assert.Equal(t, 500, accounts.StatusFromError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResendRollsBackOnQueryError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mailer := &MockMailer{}
	svc := accounts.NewService(repo,
		accounts.WithServiceLogger(quietLogger()),
		accounts.WithMailer(mailer),
	)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "accounts"`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := svc.ResendVerification(context.Background(), "pepe@example.com", linkBase)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
	mailer.AssertNotCalled(t, "Send")
}
