package accounts

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-accounts/store"
	"github.com/uptrace/bun"
)

// Accounts stores Account records
type Accounts = store.Store[Account, *Account]

// VerificationTokens stores VerificationToken records
type VerificationTokens = store.Store[VerificationToken, *VerificationToken]

// Validator checks the manager was built with everything it needs
type Validator interface {
	Validate() error
	MustValidate()
}

// TransactionManager runs fn inside a database transaction
type TransactionManager interface {
	RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error
}

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Validator
	TransactionManager
	Accounts() *Accounts
	VerificationTokens() *VerificationTokens
}

type mngr struct {
	db                 *bun.DB
	accounts           *Accounts
	verificationTokens *VerificationTokens
}

// NewRepositoryManager builds the account stores on db. opts apply to
// every store.
func NewRepositoryManager(db *bun.DB, opts ...store.Option) (RepositoryManager, error) {
	accounts, err := store.New[Account](db, AccountSchema, opts...)
	if err != nil {
		return nil, err
	}

	tokenOpts := append([]store.Option{store.WithRelation("Account", accounts.Schema())}, opts...)
	tokens, err := store.New[VerificationToken](db, VerificationTokenSchema, tokenOpts...)
	if err != nil {
		return nil, err
	}

	return &mngr{
		db:                 db,
		accounts:           accounts,
		verificationTokens: tokens,
	}, nil
}

func (m mngr) Validate() error {
	if m.db == nil {
		return errors.New("repository manager requires a database")
	}

	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	if m.verificationTokens == nil {
		return errors.New("repository verificationTokens should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Accounts() *Accounts {
	return m.accounts
}

func (m mngr) VerificationTokens() *VerificationTokens {
	return m.verificationTokens
}
