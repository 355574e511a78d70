package accounts

import (
	"context"

	"github.com/goliatone/go-accounts/store"
	goerrors "github.com/goliatone/go-errors"
)

// CredentialsResult is the outcome of CheckCredentials. Unknown emails,
// unverified accounts and wrong passwords all yield Matched false.
type CredentialsResult struct {
	Matched bool
	Account *Account
}

// CheckCredentials matches email and password against verified accounts.
// The returned account only carries its id, hash and salt.
func (s *Service) CheckCredentials(ctx context.Context, email, password string) (CredentialsResult, error) {
	account, found, err := s.repo.Accounts().FindOne(ctx,
		store.Where{
			"email":    NormalizeEmail(email),
			"verified": true,
		},
		store.Columns("password_hash", "password_salt"),
	)
	if err != nil {
		return CredentialsResult{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account during verification")
	}

	if !found {
		// compare against a decoy so unknown emails cost the same as known ones
		salt, hash := s.decoy()
		s.hasher.Verify(password, salt, hash)
		return CredentialsResult{}, nil
	}

	if !s.hasher.Verify(password, account.PasswordSalt, account.PasswordHash) {
		return CredentialsResult{}, nil
	}

	return CredentialsResult{Matched: true, Account: account}, nil
}

func (s *Service) decoy() (string, string) {
	s.decoyOnce.Do(func() {
		salt, err := s.hasher.NewSalt()
		if err != nil {
			salt = "decoy-salt"
		}
		hash, err := s.hasher.Hash("decoy-password", salt)
		if err != nil {
			s.logger.Error("failed to build decoy hash: %v", err)
		}
		s.decoySalt, s.decoyHash = salt, hash
	})
	return s.decoySalt, s.decoyHash
}
