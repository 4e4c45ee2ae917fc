package sessionkit

import (
	"context"
	"errors"
	"strings"

	"github.com/saraha-app/sessionkit/credential"
	"github.com/saraha-app/sessionkit/internal"
	"github.com/saraha-app/sessionkit/password"
)

// Register creates an unverified account and sends it a verify_account code.
// A failed delivery is reported in RegisterResult.Delivery; the account is
// created regardless and ResendOTP can be used to try again.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	hash, err := e.hashPassword(ctx, req.Password)
	if err != nil {
		return nil, err
	}
	id, err := internal.NewAccountID()
	if err != nil {
		return nil, e.internalErr(ctx, "generate account id", err)
	}
	acct, err := credential.NewAccount(id, req.Username, req.Email, hash, e.now())
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	code, err := e.otp.Issue(acct, PurposeVerifyAccount)
	if err != nil {
		return nil, e.internalErr(ctx, "issue otp", err)
	}

	if err := e.store.Create(ctx, acct); err != nil {
		err = e.storeErr(ctx, "create account", err)
		if errors.Is(err, ErrDuplicateAccount) {
			e.metricInc(MetricRegisterDuplicate)
		}
		e.emitAudit(ctx, auditEventRegister, false, "", "", err, nil)
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.metricInc(MetricOTPIssued)
	e.emitAudit(ctx, auditEventRegister, true, acct.ID, "", nil, nil)

	return &RegisterResult{
		Account:  viewOf(acct),
		Delivery: e.deliver(ctx, acct.ID, acct.Email, PurposeVerifyAccount, code),
	}, nil
}

// CompleteVerification checks a verify_account code. On success the account
// becomes verified and the caller is signed in.
func (e *Engine) CompleteVerification(ctx context.Context, email, code string) (*Session, error) {
	acct, err := e.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, e.storeErr(ctx, "load account", err)
	}
	if acct.Verified {
		return nil, ErrAlreadyVerified
	}

	pair, err := e.issuePair(ctx, acct.ID)
	if err != nil {
		return nil, err
	}

	var evicted int
	updated, err := e.store.Update(ctx, acct.ID, func(a *credential.Account) (bool, error) {
		if a.Verified {
			return false, ErrAlreadyVerified
		}
		changed, err := e.otp.Verify(a, PurposeVerifyAccount, code)
		if err != nil {
			return changed, challengeErr(err)
		}
		a.MarkVerified()
		a.TouchLogin(e.now())
		evicted = len(a.Ledger.Insert(pair.record))
		return true, nil
	})
	if err != nil {
		err = e.storeErr(ctx, "verify account", err)
		e.metricInc(MetricVerificationFailure)
		e.emitAudit(ctx, auditEventVerify, false, acct.ID, "", err, nil)
		return nil, err
	}

	e.noteEvictions(evicted)
	e.metricInc(MetricVerificationSuccess)
	e.emitAudit(ctx, auditEventVerify, true, acct.ID, pair.record.ID, nil, nil)
	return e.session(updated, pair), nil
}

// ResendOTP replaces the pending code for purpose and delivers the new one.
func (e *Engine) ResendOTP(ctx context.Context, email string, purpose Purpose) (*Delivery, error) {
	if !purpose.Valid() {
		return nil, ErrChallengeMissing
	}
	acct, err := e.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, e.storeErr(ctx, "load account", err)
	}
	return e.issueChallenge(ctx, acct.ID, purpose)
}

// issueChallenge installs a fresh code for purpose and delivers it.
func (e *Engine) issueChallenge(ctx context.Context, accountID string, purpose Purpose) (*Delivery, error) {
	var code string
	updated, err := e.store.Update(ctx, accountID, func(a *credential.Account) (bool, error) {
		if purpose == PurposeVerifyAccount && a.Verified {
			return false, ErrAlreadyVerified
		}
		var err error
		code, err = e.otp.Issue(a, purpose)
		if err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, e.storeErr(ctx, "issue otp", err)
	}

	e.metricInc(MetricOTPIssued)
	e.emitAudit(ctx, auditEventOTPIssued, true, accountID, "", nil, func() map[string]string {
		return map[string]string{"purpose": string(purpose)}
	})
	delivery := e.deliver(ctx, accountID, updated.Email, purpose, code)
	return &delivery, nil
}

// hashPassword hashes a new password. Inputs the hasher rejects are
// reported as invalid credentials.
func (e *Engine) hashPassword(ctx context.Context, secret string) (string, error) {
	hash, err := e.passwordHash.Hash(secret)
	switch {
	case err == nil:
		return hash, nil
	case errors.Is(err, password.ErrSecretTooLong), errors.Is(err, password.ErrInvalidUTF8):
		return "", ErrInvalidCredentials
	}
	return "", e.internalErr(ctx, "hash password", err)
}

func (e *Engine) noteEvictions(n int) {
	if n > 0 && e.metrics != nil {
		e.metrics.Add(MetricLedgerEviction, uint64(n))
	}
}
