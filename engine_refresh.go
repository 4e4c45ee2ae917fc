package sessionkit

import (
	"context"
	"errors"

	"github.com/saraha-app/sessionkit/credential"
)

// Refresh exchanges a refresh token for a new pair. Each refresh token is
// single-use: presenting one that is unknown, revoked or already exchanged
// revokes every session of the account and fails with
// ErrTokenReuseDetected.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := e.jwtManager.ParseRefresh(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrInvalidToken, nil)
		return nil, ErrInvalidToken
	}

	acct, err := e.store.GetByID(ctx, claims.UID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, e.storeErr(ctx, "load account", err)
	}

	// Argon2 verification happens before the atomic section; inside it only
	// the digest is compared.
	var matchedHash string
	if rec := acct.Ledger.Find(claims.ID); rec != nil && e.passwordHash.Verify(refreshToken, rec.Hash) {
		matchedHash = rec.Hash
	}

	var pair *issuedPair
	if matchedHash != "" {
		if pair, err = e.issuePair(ctx, acct.ID); err != nil {
			return nil, err
		}
	}

	var evicted, revoked int
	updated, err := e.store.Update(ctx, acct.ID, func(a *credential.Account) (bool, error) {
		cur := a.Ledger.Find(claims.ID)
		if pair == nil || cur == nil || !cur.Live(e.now()) || cur.Hash != matchedHash {
			revoked = a.Ledger.RevokeAll()
			return revoked > 0, ErrTokenReuseDetected
		}
		a.Ledger.Revoke(cur.ID)
		evicted = len(a.Ledger.Insert(pair.record))
		return true, nil
	})
	if err != nil {
		err = e.storeErr(ctx, "rotate refresh token", err)
		e.metricInc(MetricRefreshFailure)
		if errors.Is(err, ErrTokenReuseDetected) {
			e.metricInc(MetricRefreshReuseDetected)
			e.logger.WarnContext(ctx, "sessionkit: refresh token reuse detected",
				"account_id", acct.ID, "record_id", claims.ID, "revoked", revoked)
			e.emitAudit(ctx, auditEventRefreshReuse, false, acct.ID, claims.ID, err, nil)
		}
		return nil, err
	}

	e.noteEvictions(evicted)
	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, acct.ID, pair.record.ID, nil, func() map[string]string {
		return map[string]string{"rotated_from": claims.ID}
	})
	return e.session(updated, pair), nil
}
