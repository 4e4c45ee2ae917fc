package otp

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/saraha-app/sessionkit/credential"
	"github.com/saraha-app/sessionkit/internal"
)

const (
	// DefaultTTL is how long an issued code stays acceptable.
	DefaultTTL = 10 * time.Minute
	// DefaultDigits is the width of an issued code.
	DefaultDigits = 6
	// DefaultMaxAttempts is how many wrong codes a challenge survives.
	DefaultMaxAttempts = 5
)

var (
	// ErrMissing means no challenge for the requested purpose is pending.
	ErrMissing = errors.New("otp: no pending challenge")
	// ErrExpired means the pending challenge has expired. It has been cleared.
	ErrExpired = errors.New("otp: challenge expired")
	// ErrMismatch means the submitted code is wrong.
	ErrMismatch = errors.New("otp: code mismatch")
	// ErrAttemptsExceeded means too many wrong codes were submitted. The
	// challenge has been cleared and a new code must be requested.
	ErrAttemptsExceeded = errors.New("otp: too many attempts")
	// ErrInvalidPurpose is returned for purposes outside the known set.
	ErrInvalidPurpose = errors.New("otp: invalid purpose")
)

// Config configures a Manager. Zero values take the defaults.
type Config struct {
	TTL    time.Duration
	Digits int
	// MaxAttempts is the number of wrong codes after which the challenge is
	// discarded.
	MaxAttempts int
	Now         func() time.Time
	// Generate overrides code generation. It is used by tests.
	Generate func(digits int) (string, error)
}

// Manager issues and verifies challenges.
type Manager struct {
	ttl         time.Duration
	digits      int
	maxAttempts int
	now         func() time.Time
	generate    func(int) (string, error)
}

// NewManager returns a Manager for cfg.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		ttl:         cfg.TTL,
		digits:      cfg.Digits,
		maxAttempts: cfg.MaxAttempts,
		now:         cfg.Now,
		generate:    cfg.Generate,
	}
	if m.ttl <= 0 {
		m.ttl = DefaultTTL
	}
	if m.digits == 0 {
		m.digits = DefaultDigits
	}
	if m.maxAttempts <= 0 {
		m.maxAttempts = DefaultMaxAttempts
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.generate == nil {
		m.generate = internal.NewOTP
	}
	return m
}

// TTL returns the lifetime of issued codes.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue installs a fresh challenge for purpose on acct, replacing any
// previous one, and returns the plaintext code.
func (m *Manager) Issue(acct *credential.Account, purpose credential.Purpose) (string, error) {
	if !purpose.Valid() {
		return "", ErrInvalidPurpose
	}

	code, err := m.generate(m.digits)
	if err != nil {
		return "", err
	}

	now := m.now().UTC()
	acct.SetChallenge(credential.Challenge{
		Digest:    internal.Fingerprint(code),
		Purpose:   purpose,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	})
	return code, nil
}

// Verify checks code against the challenge pending on acct.
//
// A challenge issued for another purpose is reported as ErrMissing and left
// in place. An expired challenge is cleared and reported as ErrExpired. A
// wrong code is counted and reported as ErrMismatch; the wrong code that
// reaches the attempt limit clears the challenge and reports
// ErrAttemptsExceeded. On success the challenge is cleared. Verify reports
// whether it modified acct, and callers must persist acct when it did.
func (m *Manager) Verify(acct *credential.Account, purpose credential.Purpose, code string) (changed bool, err error) {
	c := acct.Challenge
	if c == nil || c.Purpose != purpose {
		return false, ErrMissing
	}
	if c.Expired(m.now()) {
		acct.ClearChallenge()
		return true, ErrExpired
	}

	submitted := internal.Fingerprint(code)
	if subtle.ConstantTimeCompare([]byte(submitted), []byte(c.Digest)) != 1 {
		c.Attempts++
		if c.Attempts >= m.maxAttempts {
			acct.ClearChallenge()
			return true, ErrAttemptsExceeded
		}
		return true, ErrMismatch
	}

	acct.ClearChallenge()
	return true, nil
}
