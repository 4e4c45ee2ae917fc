package sessionkit

import (
	"context"

	"github.com/saraha-app/sessionkit/credential"
	"github.com/saraha-app/sessionkit/internal"
)

// Logout revokes whatever the presented tokens identify. It never fails:
// absent, malformed or foreign tokens are ignored and the result reports
// what was actually revoked. Calling it twice is harmless.
//
// The access token is blacklisted until its own expiry if its signature is
// valid, even when it has already expired. The refresh token's ledger record
// is revoked if the token still matches it.
func (e *Engine) Logout(ctx context.Context, accessToken, refreshToken string) LogoutResult {
	var result LogoutResult
	var accountID, recordID string

	if accessToken != "" {
		if claims, err := e.jwtManager.ParseAccessSignature(accessToken); err == nil {
			accountID = claims.UID
			err := e.blacklist.Add(ctx, credential.BlacklistEntry{
				Fingerprint: internal.Fingerprint(accessToken),
				ExpiresAt:   claims.ExpiresAt.Time,
			})
			if err != nil {
				e.logger.WarnContext(ctx, "sessionkit: blacklist access token failed", "err", err)
			} else {
				result.AccessRevoked = true
			}
		}
	}

	if refreshToken != "" {
		if claims, err := e.jwtManager.ParseRefresh(refreshToken); err == nil {
			recordID = claims.ID
			if accountID == "" {
				accountID = claims.UID
			}
			result.RefreshRevoked = e.revokeRefresh(ctx, claims.UID, claims.ID, refreshToken)
		}
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, result.AccessRevoked || result.RefreshRevoked, accountID, recordID, nil, func() map[string]string {
		return map[string]string{
			"access_revoked":  boolString(result.AccessRevoked),
			"refresh_revoked": boolString(result.RefreshRevoked),
		}
	})
	return result
}

// revokeRefresh revokes the record behind a presented refresh token and
// reports whether the record ends up revoked.
func (e *Engine) revokeRefresh(ctx context.Context, accountID, recordID, token string) bool {
	acct, err := e.store.GetByID(ctx, accountID)
	if err != nil {
		e.logger.DebugContext(ctx, "sessionkit: logout account lookup failed", "err", err)
		return false
	}
	rec := acct.Ledger.Find(recordID)
	if rec == nil || !e.passwordHash.Verify(token, rec.Hash) {
		return false
	}

	matchedHash := rec.Hash
	found := false
	_, err = e.store.Update(ctx, accountID, func(a *credential.Account) (bool, error) {
		cur := a.Ledger.Find(recordID)
		if cur == nil || cur.Hash != matchedHash {
			found = false
			return false, nil
		}
		found = true
		return a.Ledger.Revoke(recordID), nil
	})
	if err != nil {
		e.logger.WarnContext(ctx, "sessionkit: revoke refresh record failed", "account_id", accountID, "err", err)
		return false
	}
	return found
}

// LogoutAll revokes every refresh record of the account and returns how
// many were live before. Access tokens already issued stay valid until
// they expire.
func (e *Engine) LogoutAll(ctx context.Context, accountID string) (int, error) {
	var revoked int
	_, err := e.store.Update(ctx, accountID, func(a *credential.Account) (bool, error) {
		revoked = a.Ledger.RevokeAll()
		return revoked > 0, nil
	})
	if err != nil {
		return 0, e.storeErr(ctx, "logout all", err)
	}

	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, auditEventLogoutAll, true, accountID, "", nil, func() map[string]string {
		return map[string]string{"revoked": itoa(revoked)}
	})
	return revoked, nil
}
