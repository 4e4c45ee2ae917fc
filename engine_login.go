package sessionkit

import (
	"context"
	"errors"

	"github.com/saraha-app/sessionkit/credential"
	"github.com/saraha-app/sessionkit/internal/rate"
)

// Login authenticates email and password and starts a new session. Checks
// run in order: the account must exist, be active, be verified, and the
// password must match.
func (e *Engine) Login(ctx context.Context, email, password string) (*Session, error) {
	email = credential.NormalizeEmail(email)
	ip := clientIPFromContext(ctx)

	if err := e.checkLoginRate(ctx, email, ip); err != nil {
		return nil, err
	}

	acct, err := e.store.GetByEmail(ctx, email)
	if err != nil {
		err = e.storeErr(ctx, "load account", err)
		if errors.Is(err, ErrNotFound) {
			e.loginFailed(ctx, email, ip, "", err)
		}
		return nil, err
	}
	if !acct.IsActive {
		e.loginFailed(ctx, email, ip, acct.ID, ErrUnauthorized)
		return nil, ErrUnauthorized
	}
	if !acct.Verified {
		e.loginFailed(ctx, email, ip, acct.ID, ErrNotVerified)
		return nil, ErrNotVerified
	}
	if !e.passwordHash.Verify(password, acct.PasswordHash) {
		e.loginFailed(ctx, email, ip, acct.ID, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	var upgraded string
	if e.config.Password.UpgradeOnLogin && e.passwordHash.NeedsUpgrade(acct.PasswordHash) {
		if h, err := e.passwordHash.Hash(password); err == nil {
			upgraded = h
		} else {
			e.logger.WarnContext(ctx, "sessionkit: password rehash failed", "account_id", acct.ID, "err", err)
		}
	}

	pair, err := e.issuePair(ctx, acct.ID)
	if err != nil {
		return nil, err
	}

	var evicted int
	seenHash := acct.PasswordHash
	updated, err := e.store.Update(ctx, acct.ID, func(a *credential.Account) (bool, error) {
		if !a.IsActive {
			return false, ErrUnauthorized
		}
		// The password changed between verification and this update.
		if a.PasswordHash != seenHash {
			return false, ErrInvalidCredentials
		}
		evicted = len(a.Ledger.Insert(pair.record))
		a.TouchLogin(e.now())
		if upgraded != "" {
			if err := a.SetPasswordHash(upgraded); err != nil {
				return false, err
			}
		}
		return true, nil
	})
	if err != nil {
		err = e.storeErr(ctx, "start session", err)
		e.loginFailed(ctx, email, ip, acct.ID, err)
		return nil, err
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.ResetLogin(ctx, email); err != nil {
			e.logger.WarnContext(ctx, "sessionkit: reset login counter failed", "err", err)
		}
	}

	e.noteEvictions(evicted)
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, acct.ID, pair.record.ID, nil, nil)
	return e.session(updated, pair), nil
}

func (e *Engine) checkLoginRate(ctx context.Context, email, ip string) error {
	if e.rateLimiter == nil {
		return nil
	}
	err := e.rateLimiter.CheckLogin(ctx, email, ip)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", ErrRateLimited, nil)
		return ErrRateLimited
	}
	return e.internalErr(ctx, "check login rate", err)
}

func (e *Engine) loginFailed(ctx context.Context, email, ip, accountID string, cause error) {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, accountID, "", cause, nil)
	if e.rateLimiter == nil || errors.Is(cause, ErrInternal) {
		return
	}
	if err := e.rateLimiter.IncrementLogin(ctx, email, ip); err != nil {
		e.logger.WarnContext(ctx, "sessionkit: record failed login", "err", err)
	}
}
