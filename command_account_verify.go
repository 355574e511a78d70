package accounts

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-accounts/store"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// VerifyResult is the outcome of consuming a verification token
type VerifyResult int

const (
	VerifyOK VerifyResult = iota + 1
	// VerifyNotFound covers unknown, consumed and expired tokens
	VerifyNotFound
)

func (r VerifyResult) String() string {
	switch r {
	case VerifyOK:
		return "verified"
	case VerifyNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

type VerifyAccountMessage struct {
	Token      string `json:"token" example:"350399bc-c095-4bdc-a59c-3352d44848e4" doc:"Verification token"`
	OnResponse func(resp *VerifyAccountResponse)
}

func (e VerifyAccountMessage) Type() string { return "account.verify" }

type VerifyAccountResponse struct {
	Result  VerifyResult
	Expired bool
	Account *Account
}

type VerifyAccountHandler struct {
	svc *Service
}

func (h *VerifyAccountHandler) Execute(ctx context.Context, event VerifyAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during account verification")
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyAccountHandler) execute(ctx context.Context, event VerifyAccountMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	svc := h.svc
	resp := &VerifyAccountResponse{Result: VerifyNotFound}
	tokenID := strings.TrimSpace(event.Token)

	err := svc.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if tokenID == "" {
			return nil
		}

		token, found, err := svc.repo.VerificationTokens().FindOneTx(ctx, tx,
			store.Where{"id": tokenID},
			store.Relations("Account"),
		)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve verification token")
		}

		// a missing token is part of the expected flow, not an application error
		if !found || token.Account == nil || token.Account.ID == "" || token.Account.DeletedAt != nil {
			return nil
		}

		if token.Expired(svc.clock()) {
			resp.Expired = true
			return nil
		}

		account := token.Account
		audit := auditFrom(ctx, "account verification", map[string]any{"token": token.ID})

		account.Verified = true
		if err := svc.repo.Accounts().SaveTx(ctx, tx, account, audit); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark account verified")
		}

		if err := svc.removeTokensTx(ctx, tx, account, audit); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to remove verification tokens")
		}

		resp.Result = VerifyOK
		resp.Account = account
		return nil
	})

	if err != nil {
		return passthrough(err, "failed to execute account verification")
	}

	if resp.Result == VerifyOK {
		svc.logger.Info("account %s verified", resp.Account.ID)
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
