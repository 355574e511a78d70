package accounts

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-accounts/store"
	"github.com/uptrace/bun"
)

// DefaultTokenTTL is how long a verification link stays valid
const DefaultTokenTTL = 24 * time.Hour

// Service orchestrates the account lifecycle: signup, email verification,
// resending verification links and credential checks.
type Service struct {
	repo        RepositoryManager
	hasher      PasswordHasher
	mailer      Mailer
	renderer    *VerificationEmailRenderer
	logger      Logger
	now         func() time.Time
	tokenTTL    time.Duration
	defaultRole Role

	decoyOnce sync.Once
	decoySalt string
	decoyHash string
}

type ServiceOption func(*Service)

func WithPasswordHasher(h PasswordHasher) ServiceOption {
	return func(s *Service) {
		if h != nil {
			s.hasher = h
		}
	}
}

func WithMailer(m Mailer) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.mailer = m
		}
	}
}

func WithEmailRenderer(r *VerificationEmailRenderer) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.renderer = r
		}
	}
}

func WithServiceLogger(l Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTokenTTL sets the lifetime of new verification tokens
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDefaultRole sets the role given to new accounts, unknown roles are ignored
func WithDefaultRole(r Role) ServiceOption {
	return func(s *Service) {
		if r.IsValid() {
			s.defaultRole = r
		}
	}
}

// NewService creates a Service, it panics if repo is not valid.
func NewService(repo RepositoryManager, opts ...ServiceOption) *Service {
	repo.MustValidate()

	logger := NewLogger(nil)
	s := &Service{
		repo:        repo,
		hasher:      NewArgon2Hasher(),
		mailer:      LogMailer{Logger: logger},
		renderer:    MustVerificationEmailRenderer(""),
		logger:      logger,
		now:         time.Now,
		tokenTTL:    DefaultTokenTTL,
		defaultRole: RoleUser,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// Signup registers a new unverified account and mails its verification
// link built from linkBase.
func (s *Service) Signup(ctx context.Context, payload SignupPayload, linkBase string) (SignupResult, error) {
	var result SignupResult
	h := SignupHandler{svc: s}
	err := h.Execute(ctx, SignupMessage{
		SignupPayload: payload,
		LinkBase:      linkBase,
		OnResponse: func(resp *SignupResponse) {
			result = resp.Result
		},
	})
	return result, err
}

// VerifyAccount consumes tokenID and marks its account verified.
func (s *Service) VerifyAccount(ctx context.Context, tokenID string) (VerifyResult, error) {
	var result VerifyResult
	h := VerifyAccountHandler{svc: s}
	err := h.Execute(ctx, VerifyAccountMessage{
		Token: tokenID,
		OnResponse: func(resp *VerifyAccountResponse) {
			result = resp.Result
		},
	})
	return result, err
}

// ResendVerification mails the verification link of the account again,
// issuing a token only when no live one exists.
func (s *Service) ResendVerification(ctx context.Context, email, linkBase string) (ResendResult, error) {
	var result ResendResult
	h := ResendVerificationHandler{svc: s}
	err := h.Execute(ctx, ResendVerificationMessage{
		Email:    email,
		LinkBase: linkBase,
		OnResponse: func(resp *ResendVerificationResponse) {
			result = resp.Result
		},
	})
	return result, err
}

func (s *Service) issueTokenTx(ctx context.Context, tx bun.IDB, account *Account, audit store.Audit) (*VerificationToken, error) {
	return s.repo.VerificationTokens().CreateTx(ctx, tx, &VerificationToken{
		AccountID: account.ID,
		ExpiresAt: s.clock().Add(s.tokenTTL),
	}, audit)
}

// removeTokensTx deletes every token owned by account
func (s *Service) removeTokensTx(ctx context.Context, tx bun.IDB, account *Account, audit store.Audit) error {
	tokens := s.repo.VerificationTokens()
	for {
		res, err := tokens.FindTx(ctx, tx, store.Where{"account_id": account}, store.Page{})
		if err != nil {
			return err
		}

		if len(res.Rows) == 0 {
			return nil
		}

		for _, t := range res.Rows {
			if err := tokens.RemoveTx(ctx, tx, t, audit); err != nil {
				return err
			}
		}
	}
}

// sendVerification renders and sends the link. Mail is sent after the
// transaction commits and failures are logged, not returned.
func (s *Service) sendVerification(ctx context.Context, to, linkBase string, token *VerificationToken) {
	email, err := s.renderer.Render(to, VerificationLink(linkBase, token.ID), token.ExpiresAt)
	if err != nil {
		s.logger.Error("verification email render failed for %s: %v", to, err)
		return
	}

	if err := s.mailer.Send(ctx, email); err != nil {
		s.logger.Error("verification email delivery failed for %s: %v", to, err)
	}
}
