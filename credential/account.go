package credential

import (
	"errors"
	"strings"
	"time"
)

// Purpose binds an OTP challenge to the flow it was issued for.
type Purpose string

const (
	PurposeVerifyAccount  Purpose = "verify_account"
	PurposeResetPassword  Purpose = "reset_password"
	PurposeChangePassword Purpose = "change_password"
)

// Valid reports whether p is one of the known purposes.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeVerifyAccount, PurposeResetPassword, PurposeChangePassword:
		return true
	}
	return false
}

var (
	// ErrEmptyPasswordHash is returned when a mutator is handed an empty digest.
	ErrEmptyPasswordHash = errors.New("credential: password hash must not be empty")
	// ErrInvalidAccount is returned by NewAccount for missing identity fields.
	ErrInvalidAccount = errors.New("credential: account requires id, username and email")
)

// Challenge is a pending one-time code. Only a digest of the code is kept.
type Challenge struct {
	Digest    string    `json:"digest"`
	Purpose   Purpose   `json:"purpose"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	// Attempts counts wrong codes submitted against this challenge.
	Attempts int `json:"attempts,omitempty"`
}

// Expired reports whether the challenge is no longer acceptable at now.
func (c *Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Account is the persisted credential record.
type Account struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"password_hash"`
	Verified     bool       `json:"verified"`
	IsActive     bool       `json:"is_active"`
	Challenge    *Challenge `json:"challenge,omitempty"`
	Ledger       Ledger     `json:"ledger"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// NormalizeEmail lower-cases and trims an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UsernameKey returns the case-insensitive lookup key for a username.
func UsernameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// NewAccount builds an unverified, active account.
func NewAccount(id, username, email, passwordHash string, now time.Time) (*Account, error) {
	username = strings.TrimSpace(username)
	email = NormalizeEmail(email)
	if id == "" || username == "" || email == "" {
		return nil, ErrInvalidAccount
	}
	if passwordHash == "" {
		return nil, ErrEmptyPasswordHash
	}

	return &Account{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now.UTC(),
	}, nil
}

// UsernameKey returns the account's case-insensitive username key.
func (a *Account) UsernameKey() string {
	return UsernameKey(a.Username)
}

// SetPasswordHash replaces the password digest.
func (a *Account) SetPasswordHash(hash string) error {
	if hash == "" {
		return ErrEmptyPasswordHash
	}
	a.PasswordHash = hash
	return nil
}

// MarkVerified flips the account to verified. There is no inverse.
func (a *Account) MarkVerified() {
	a.Verified = true
}

// SetChallenge installs c, replacing any existing challenge.
func (a *Account) SetChallenge(c Challenge) {
	a.Challenge = &c
}

// ClearChallenge removes the pending challenge, if any.
func (a *Account) ClearChallenge() {
	a.Challenge = nil
}

// TouchLogin records a successful login at now.
func (a *Account) TouchLogin(now time.Time) {
	t := now.UTC()
	a.LastLoginAt = &t
}

// Clone returns a deep copy of a.
func (a *Account) Clone() *Account {
	out := *a
	if a.Challenge != nil {
		c := *a.Challenge
		out.Challenge = &c
	}
	if a.LastLoginAt != nil {
		t := *a.LastLoginAt
		out.LastLoginAt = &t
	}
	out.Ledger = a.Ledger.clone()
	return &out
}
