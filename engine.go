package sessionkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/saraha-app/sessionkit/credential"
	"github.com/saraha-app/sessionkit/internal"
	internalaudit "github.com/saraha-app/sessionkit/internal/audit"
	"github.com/saraha-app/sessionkit/internal/rate"
	"github.com/saraha-app/sessionkit/jwt"
	"github.com/saraha-app/sessionkit/notify"
	"github.com/saraha-app/sessionkit/otp"
	"github.com/saraha-app/sessionkit/password"
)

// Engine runs every credential and session flow. It keeps no per-account
// state in memory; all of it lives in the Store. An Engine is safe for
// concurrent use.
type Engine struct {
	config       Config
	store        credential.Store
	blacklist    credential.Blacklist
	rateLimiter  *rate.Limiter
	notifier     notify.Notifier
	logger       *slog.Logger
	now          func() time.Time
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	passwordHash *password.Argon2
	otp          *otp.Manager
	jwtManager   *jwt.Manager
}

// Close flushes pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were dropped.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// issuedPair is a freshly minted token pair together with the ledger record
// that must be inserted for the refresh token to be usable.
type issuedPair struct {
	tokens TokenPair
	record credential.RefreshRecord
}

// issuePair mints an access and refresh token for uid and hashes the refresh
// token. It touches no storage.
func (e *Engine) issuePair(ctx context.Context, uid string) (*issuedPair, error) {
	now := e.now()

	recordID, err := internal.NewTokenID(now)
	if err != nil {
		return nil, e.internalErr(ctx, "generate refresh id", err)
	}
	accessID, err := internal.NewTokenID(now)
	if err != nil {
		return nil, e.internalErr(ctx, "generate access id", err)
	}

	refreshToken, refreshClaims, err := e.jwtManager.CreateRefresh(uid, recordID)
	if err != nil {
		return nil, e.internalErr(ctx, "sign refresh token", err)
	}
	accessToken, accessClaims, err := e.jwtManager.CreateAccess(uid, accessID)
	if err != nil {
		return nil, e.internalErr(ctx, "sign access token", err)
	}
	digest, err := e.passwordHash.Hash(refreshToken)
	if err != nil {
		return nil, e.internalErr(ctx, "hash refresh token", err)
	}

	rec := credential.RefreshRecord{
		ID:        recordID,
		Hash:      digest,
		IssuedAt:  refreshClaims.IssuedAt.Time.UTC(),
		ExpiresAt: refreshClaims.ExpiresAt.Time.UTC(),
	}
	if e.config.Ledger.RecordClientInfo {
		rec.UserAgent = userAgentFromContext(ctx)
		rec.OriginIP = clientIPFromContext(ctx)
	}

	return &issuedPair{
		tokens: TokenPair{
			AccessToken:      accessToken,
			RefreshToken:     refreshToken,
			AccessExpiresAt:  accessClaims.ExpiresAt.Time.UTC(),
			RefreshExpiresAt: rec.ExpiresAt,
		},
		record: rec,
	}, nil
}

func (e *Engine) session(acct *credential.Account, pair *issuedPair) *Session {
	return &Session{
		Account: viewOf(acct),
		Tokens:  pair.tokens,
	}
}

// storeErr maps a credential.Store error onto the taxonomy. Errors already
// in the taxonomy pass through.
func (e *Engine) storeErr(ctx context.Context, op string, err error) error {
	var pub *Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &pub):
		return err
	case errors.Is(err, credential.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, credential.ErrDuplicate):
		return ErrDuplicateAccount
	}
	return e.internalErr(ctx, op, err)
}

func (e *Engine) internalErr(ctx context.Context, op string, err error) error {
	e.logger.ErrorContext(ctx, "sessionkit: operation failed", "op", op, "err", err)
	return fmt.Errorf("%w: %s: %v", ErrInternal, op, err)
}

// challengeErr maps otp errors onto the taxonomy.
func challengeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, otp.ErrMissing):
		return ErrChallengeMissing
	case errors.Is(err, otp.ErrExpired):
		return ErrChallengeExpired
	case errors.Is(err, otp.ErrMismatch):
		return ErrChallengeMismatch
	case errors.Is(err, otp.ErrAttemptsExceeded):
		return ErrTooManyAttempts
	}
	return err
}
