package accounts

import (
	"context"
	"time"

	"github.com/goliatone/go-accounts/store"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// ResendResult is the outcome of a resend request
type ResendResult int

const (
	ResendOK ResendResult = iota + 1
	ResendNotFound
)

func (r ResendResult) String() string {
	switch r {
	case ResendOK:
		return "sent"
	case ResendNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

type ResendVerificationMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
	LinkBase   string `json:"-"`
	OnResponse func(resp *ResendVerificationResponse)
}

func (p ResendVerificationMessage) Type() string { return "account.verification.resend" }

type ResendVerificationResponse struct {
	Result ResendResult
	Token  *VerificationToken
	// Reused is true when a live token was sent again instead of a new one
	Reused bool
}

type ResendVerificationHandler struct {
	svc *Service
}

func (h *ResendVerificationHandler) Execute(ctx context.Context, event ResendVerificationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during verification resend",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ResendVerificationHandler) execute(ctx context.Context, event ResendVerificationMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	svc := h.svc
	email := NormalizeEmail(event.Email)
	resp := &ResendVerificationResponse{Result: ResendNotFound}

	err := svc.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if email == "" {
			return nil
		}

		account, found, err := svc.repo.Accounts().FindOneTx(ctx, tx, store.Where{"email": email})
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for verification resend")
		}
		if !found {
			return nil
		}

		tokens := svc.repo.VerificationTokens()
		live, found, err := tokens.FindOneTx(ctx, tx,
			store.Where{
				"account_id": account,
				"expires_at": store.Gt(svc.clock()),
			},
			store.OrderBy("expires_at", "desc"),
		)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve verification token")
		}

		resp.Result = ResendOK
		if found {
			resp.Token = live
			resp.Reused = true
			return nil
		}

		audit := auditFrom(ctx, "verification resend", map[string]any{"email": email})
		if err := svc.removeTokensTx(ctx, tx, account, audit); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to remove stale verification tokens")
		}

		if resp.Token, err = svc.issueTokenTx(ctx, tx, account, audit); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create verification token")
		}
		return nil
	})

	if err != nil {
		return passthrough(err, "failed to resend verification")
	}

	if resp.Result == ResendOK {
		svc.sendVerification(ctx, email, event.LinkBase, resp.Token)
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
