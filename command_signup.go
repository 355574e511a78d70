package accounts

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-accounts/store"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// SignupResult is the outcome of a signup attempt
type SignupResult int

const (
	// SignupCreated means a new account and token were created and mailed
	SignupCreated SignupResult = iota + 1
	// SignupAlreadyCreated means a verified account owns the email
	SignupAlreadyCreated
	// SignupAwaitingVerification means an unverified account owns the email,
	// callers should offer a resend instead
	SignupAwaitingVerification
)

func (r SignupResult) String() string {
	switch r {
	case SignupCreated:
		return "created"
	case SignupAlreadyCreated:
		return "already_created"
	case SignupAwaitingVerification:
		return "awaiting_verification"
	default:
		return "unknown"
	}
}

// SignupPayload holds the account data provided by the user
type SignupPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (p SignupPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, validation.Length(3, 320), is.Email),
		validation.Field(&p.Password, validation.Required, validation.Length(8, 128)),
	)
}

type SignupMessage struct {
	SignupPayload
	LinkBase   string
	OnResponse func(resp *SignupResponse)
}

func (e SignupMessage) Type() string { return "account.signup" }

type SignupResponse struct {
	Result  SignupResult
	Account *Account
	Token   *VerificationToken
}

type SignupHandler struct {
	svc *Service
}

func (h *SignupHandler) Execute(ctx context.Context, event SignupMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account signup",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignupHandler) execute(ctx context.Context, event SignupMessage) error {
	event.Email = NormalizeEmail(event.Email)
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid signup payload")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	svc := h.svc
	email := event.Email
	audit := auditFrom(ctx, "account signup", map[string]any{"email": email})
	resp := &SignupResponse{}

	err := svc.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, found, err := svc.repo.Accounts().FindOneTx(ctx, tx,
			store.Where{"email": email},
			store.Columns("verified"),
		)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up account")
		}

		if found {
			if existing.Verified {
				resp.Result = SignupAlreadyCreated
			} else {
				resp.Result = SignupAwaitingVerification
			}
			return nil
		}

		salt, err := svc.hasher.NewSalt()
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate password salt")
		}

		hash, err := svc.hasher.Hash(event.Password, salt)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		account, err := svc.repo.Accounts().CreateTx(ctx, tx, &Account{
			Email:        email,
			PasswordHash: hash,
			PasswordSalt: salt,
			Verified:     false,
			Role:         svc.defaultRole,
		}, audit)
		if err != nil {
			if store.IsConflict(err) {
				return ErrEmailConflict.Clone().WithMetadata(map[string]any{"email": email})
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create account")
		}

		token, err := svc.issueTokenTx(ctx, tx, account, audit)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create verification token")
		}

		resp.Result = SignupCreated
		resp.Account = account
		resp.Token = token
		return nil
	})

	if err != nil {
		if store.IsConflict(err) {
			return ErrEmailConflict.Clone().WithMetadata(map[string]any{"email": email})
		}
		return passthrough(err, "account signup transaction failed")
	}

	if resp.Result == SignupCreated {
		svc.logger.Info("account created for %s", email)
		svc.sendVerification(ctx, email, event.LinkBase, resp.Token)
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
