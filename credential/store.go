package credential

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no account matches a lookup.
	ErrNotFound = errors.New("credential: account not found")
	// ErrDuplicate is returned by Create when the username or email is taken.
	ErrDuplicate = errors.New("credential: duplicate account")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("credential: store unavailable")
	// ErrConflict is returned when an optimistic update keeps losing races.
	ErrConflict = errors.New("credential: too many concurrent updates")
	// ErrCorrupt is returned when a persisted record cannot be decoded.
	ErrCorrupt = errors.New("credential: corrupt record")
)

// UpdateFunc mutates acct in place. It reports whether acct changed and
// must be persisted. Changes are committed whenever changed is true, even
// if err is non-nil; err is then returned to the caller of Update.
//
// UpdateFunc may run more than once when concurrent writers collide, so it
// must derive everything from acct and must not retain it.
type UpdateFunc func(acct *Account) (changed bool, err error)

// Store persists accounts.
type Store interface {
	// Create inserts acct. It fails with ErrDuplicate when the username
	// (case-insensitively) or the email is already registered.
	Create(ctx context.Context, acct *Account) error
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	// Update applies fn to the current state of the account atomically with
	// respect to every other Update of the same account.
	Update(ctx context.Context, id string, fn UpdateFunc) (*Account, error)
}

// Sweeper deletes refresh records that can no longer be used.
type Sweeper interface {
	// SweepExpiredRefresh deletes unrevoked records whose expiry is at or before now.
	SweepExpiredRefresh(ctx context.Context, now time.Time) (int, error)
	// SweepRevokedRefresh deletes every revoked record.
	SweepRevokedRefresh(ctx context.Context) (int, error)
}

// BlacklistEntry rejects the access token with the given fingerprint until ExpiresAt.
type BlacklistEntry struct {
	Fingerprint string
	ExpiresAt   time.Time
}

// Blacklist is the global set of revoked access-token fingerprints.
type Blacklist interface {
	Add(ctx context.Context, entry BlacklistEntry) error
	// Contains reports whether a live entry exists for fingerprint at now.
	Contains(ctx context.Context, fingerprint string, now time.Time) (bool, error)
	// SweepExpired deletes entries whose expiry is at or before now.
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}
