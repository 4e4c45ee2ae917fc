package sessionkit

import (
	"errors"
	"net/http"
)

// Code is the stable, client-facing identifier of a failure.
type Code string

// Error is a client-facing failure. Every error returned by the Engine either
// is one of the sentinels below or wraps ErrInternal; use errors.Is to match
// and Classify to obtain the public form.
type Error struct {
	Code    Code
	Message string
	// Status is the suggested HTTP status for transports.
	Status int
}

func (e *Error) Error() string { return string(e.Code) + ": " + e.Message }

var (
	// ErrDuplicateAccount means the username or email is already registered.
	ErrDuplicateAccount = &Error{Code: "duplicate_account", Message: "an account with this username or email already exists", Status: http.StatusConflict}
	// ErrNotFound means no account matches.
	ErrNotFound = &Error{Code: "not_found", Message: "account not found", Status: http.StatusNotFound}
	// ErrNotVerified means the account has not completed email verification.
	ErrNotVerified = &Error{Code: "not_verified", Message: "account is not verified", Status: http.StatusForbidden}
	// ErrAlreadyVerified means the account is verified already.
	ErrAlreadyVerified = &Error{Code: "already_verified", Message: "account is already verified", Status: http.StatusConflict}
	// ErrChallengeMissing means no one-time code is pending for this flow.
	ErrChallengeMissing = &Error{Code: "challenge_missing", Message: "no verification code is pending", Status: http.StatusBadRequest}
	// ErrChallengeExpired means the one-time code expired.
	ErrChallengeExpired = &Error{Code: "challenge_expired", Message: "verification code has expired", Status: http.StatusBadRequest}
	// ErrChallengeMismatch means the one-time code is wrong.
	ErrChallengeMismatch = &Error{Code: "challenge_mismatch", Message: "verification code is invalid", Status: http.StatusBadRequest}
	// ErrTooManyAttempts means the pending code was discarded after repeated wrong guesses.
	ErrTooManyAttempts = &Error{Code: "too_many_attempts", Message: "too many incorrect codes; request a new one", Status: http.StatusTooManyRequests}
	// ErrInvalidCredentials means the password is wrong.
	ErrInvalidCredentials = &Error{Code: "invalid_credentials", Message: "invalid credentials", Status: http.StatusUnauthorized}
	// ErrInvalidToken means a presented token is malformed, forged or expired.
	ErrInvalidToken = &Error{Code: "invalid_token", Message: "invalid or expired token", Status: http.StatusUnauthorized}
	// ErrTokenReuseDetected means a refresh token was presented that is no
	// longer valid for its account. Every session of the account has been revoked.
	ErrTokenReuseDetected = &Error{Code: "token_reuse_detected", Message: "refresh token reuse detected; all sessions revoked", Status: http.StatusUnauthorized}
	// ErrUnauthorized means the access token does not authorize the request.
	ErrUnauthorized = &Error{Code: "unauthorized", Message: "unauthorized", Status: http.StatusUnauthorized}
	// ErrRateLimited means too many failed logins were recorded recently.
	ErrRateLimited = &Error{Code: "rate_limited", Message: "too many attempts; try again later", Status: http.StatusTooManyRequests}
	// ErrFederationUnavailable is returned by FederatedLogin.
	ErrFederationUnavailable = &Error{Code: "federation_unavailable", Message: "third-party sign-in is not available", Status: http.StatusNotImplemented}
	// ErrInternal covers storage and transport failures. Details are logged, never returned.
	ErrInternal = &Error{Code: "internal", Message: "internal error", Status: http.StatusInternalServerError}
	// ErrEngineConfigInvalid is returned by Builder.Build for an unusable configuration.
	ErrEngineConfigInvalid = errors.New("sessionkit: invalid engine configuration")
)

var taxonomy = []*Error{
	ErrDuplicateAccount,
	ErrNotFound,
	ErrNotVerified,
	ErrAlreadyVerified,
	ErrChallengeMissing,
	ErrChallengeExpired,
	ErrChallengeMismatch,
	ErrTooManyAttempts,
	ErrInvalidCredentials,
	ErrInvalidToken,
	ErrTokenReuseDetected,
	ErrUnauthorized,
	ErrRateLimited,
	ErrFederationUnavailable,
}

// Classify maps any error to its client-facing form. Nil stays nil;
// anything outside the taxonomy becomes ErrInternal.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	for _, e := range taxonomy {
		if errors.Is(err, e) {
			return e
		}
	}
	return ErrInternal
}
