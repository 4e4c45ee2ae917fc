// Package sessionkit manages credentials and sessions for the Saraha
// anonymous-messaging service: registration with email verification, login,
// refresh-token rotation with reuse detection, logout, and password reset
// and change guarded by one-time codes.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Sessions
//
// Every session is an access token paired with a refresh token. Refresh
// tokens are single-use: each exchange revokes the presented token and
// issues a new pair. A refresh token presented after it was exchanged is
// treated as stolen, and every session of the account is revoked. At most
// [credential.MaxLedgerSize] refresh records are kept per account; the oldest
// is evicted first.
//
// # Errors
//
// Every error returned by the Engine is one of the *Error sentinels in
// errors.go or wraps [ErrInternal]. Use [Classify] to obtain the
// client-facing form.
//
// # Architecture boundaries
//
// Persistence lives in package credential, one-time codes in otp, token
// signing in jwt and hashing in password. The Engine orchestrates them and
// owns no mutable state apart from counters and the audit channel.
package sessionkit
