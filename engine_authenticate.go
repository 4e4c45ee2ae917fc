package sessionkit

import (
	"context"
	"time"

	"github.com/saraha-app/sessionkit/internal"
)

// Authenticate validates an access token for a protected request. The token
// must verify, must not be blacklisted, and must belong to an existing
// active account. Every rejection is ErrUnauthorized.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*Principal, error) {
	started := time.Now()
	defer func() { e.metrics.Observe(MetricAuthenticateLatency, time.Since(started)) }()

	principal, err := e.authenticate(ctx, accessToken)
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		if Classify(err) == ErrInternal {
			return nil, err
		}
		return nil, ErrUnauthorized
	}
	e.metricInc(MetricAuthenticateSuccess)
	return principal, nil
}

func (e *Engine) authenticate(ctx context.Context, accessToken string) (*Principal, error) {
	claims, err := e.jwtManager.ParseAccess(accessToken)
	if err != nil {
		return nil, ErrUnauthorized
	}

	revoked, err := e.blacklist.Contains(ctx, internal.Fingerprint(accessToken), e.now())
	if err != nil {
		return nil, e.internalErr(ctx, "check blacklist", err)
	}
	if revoked {
		return nil, ErrUnauthorized
	}

	acct, err := e.store.GetByID(ctx, claims.UID)
	if err != nil {
		return nil, e.storeErr(ctx, "load account", err)
	}
	if !acct.IsActive {
		return nil, ErrUnauthorized
	}

	return &Principal{
		AccountID: acct.ID,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Profile returns the public view of an account.
func (e *Engine) Profile(ctx context.Context, accountID string) (*AccountView, error) {
	acct, err := e.store.GetByID(ctx, accountID)
	if err != nil {
		return nil, e.storeErr(ctx, "load account", err)
	}
	view := viewOf(acct)
	return &view, nil
}

// FederatedLogin is reserved for third-party sign-in. It always fails with
// ErrFederationUnavailable.
func (e *Engine) FederatedLogin(ctx context.Context, provider, assertion string) (*Session, error) {
	e.emitAudit(ctx, auditEventFederatedLogin, false, "", "", ErrFederationUnavailable, func() map[string]string {
		return map[string]string{"provider": provider}
	})
	return nil, ErrFederationUnavailable
}
