package sessionkit

import (
	"context"
	"errors"

	"github.com/saraha-app/sessionkit/credential"
)

// RequestPasswordReset sends a reset_password code if an account with email
// exists. The result is identical whether or not it does; only backend
// failures are returned.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) (*Delivery, error) {
	e.metricInc(MetricPasswordResetRequest)

	acct, err := e.store.GetByEmail(ctx, email)
	if errors.Is(err, credential.ErrNotFound) {
		e.emitAudit(ctx, auditEventPasswordResetRequest, false, "", "", ErrNotFound, nil)
		return &Delivery{Sent: true}, nil
	}
	if err != nil {
		return nil, e.storeErr(ctx, "load account", err)
	}

	delivery, err := e.issueChallenge(ctx, acct.ID, PurposeResetPassword)
	if err != nil {
		return nil, err
	}
	e.emitAudit(ctx, auditEventPasswordResetRequest, true, acct.ID, "", nil, nil)
	if !delivery.Sent {
		// Do not reveal that the address exists through a delivery warning.
		return &Delivery{Sent: true}, nil
	}
	return delivery, nil
}

// ResetPassword sets a new password using a reset_password code. Every
// session of the account is revoked. An unknown email fails with
// ErrChallengeMissing, the same as an account with no pending reset.
func (e *Engine) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	hash, err := e.hashPassword(ctx, newPassword)
	if err != nil {
		return err
	}

	acct, err := e.store.GetByEmail(ctx, email)
	if errors.Is(err, credential.ErrNotFound) {
		e.metricInc(MetricPasswordResetFailure)
		return ErrChallengeMissing
	}
	if err != nil {
		return e.storeErr(ctx, "load account", err)
	}

	var revoked int
	_, err = e.store.Update(ctx, acct.ID, func(a *credential.Account) (bool, error) {
		changed, err := e.otp.Verify(a, PurposeResetPassword, code)
		if err != nil {
			return changed, challengeErr(err)
		}
		if err := a.SetPasswordHash(hash); err != nil {
			return false, err
		}
		revoked = a.Ledger.RevokeAll()
		return true, nil
	})
	if err != nil {
		err = e.storeErr(ctx, "reset password", err)
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditEventPasswordReset, false, acct.ID, "", err, nil)
		return err
	}

	e.metricInc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, auditEventPasswordReset, true, acct.ID, "", nil, func() map[string]string {
		return map[string]string{"revoked": itoa(revoked)}
	})
	return nil
}

// RequestPasswordChangeOTP sends a change_password code to an authenticated
// account.
func (e *Engine) RequestPasswordChangeOTP(ctx context.Context, accountID string) (*Delivery, error) {
	return e.issueChallenge(ctx, accountID, PurposeChangePassword)
}

// ChangePassword replaces the password of an authenticated account. It
// needs both the current password and a change_password code; if either is
// wrong nothing is modified apart from clearing an expired code. Every
// session of the account is revoked on success.
func (e *Engine) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	acct, err := e.store.GetByID(ctx, req.AccountID)
	if err != nil {
		return e.storeErr(ctx, "load account", err)
	}
	if !e.passwordHash.Verify(req.CurrentPassword, acct.PasswordHash) {
		e.metricInc(MetricPasswordChangeFailure)
		e.emitAudit(ctx, auditEventPasswordChange, false, acct.ID, "", ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}

	hash, err := e.hashPassword(ctx, req.NewPassword)
	if err != nil {
		return err
	}

	seenHash := acct.PasswordHash
	var revoked int
	_, err = e.store.Update(ctx, acct.ID, func(a *credential.Account) (bool, error) {
		if a.PasswordHash != seenHash {
			return false, ErrInvalidCredentials
		}
		changed, err := e.otp.Verify(a, PurposeChangePassword, req.Code)
		if err != nil {
			return changed, challengeErr(err)
		}
		if err := a.SetPasswordHash(hash); err != nil {
			return false, err
		}
		revoked = a.Ledger.RevokeAll()
		return true, nil
	})
	if err != nil {
		err = e.storeErr(ctx, "change password", err)
		e.metricInc(MetricPasswordChangeFailure)
		e.emitAudit(ctx, auditEventPasswordChange, false, acct.ID, "", err, nil)
		return err
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChange, true, acct.ID, "", nil, func() map[string]string {
		return map[string]string{"revoked": itoa(revoked)}
	})
	return nil
}
