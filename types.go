package sessionkit

import (
	"time"

	"github.com/saraha-app/sessionkit/credential"
	internalaudit "github.com/saraha-app/sessionkit/internal/audit"
	"github.com/saraha-app/sessionkit/notify"
)

// Purpose selects the flow a one-time code belongs to.
type Purpose = credential.Purpose

const (
	PurposeVerifyAccount  = credential.PurposeVerifyAccount
	PurposeResetPassword  = credential.PurposeResetPassword
	PurposeChangePassword = credential.PurposeChangePassword
)

// Notifier delivers one-time codes. See package notify for implementations.
type Notifier = notify.Notifier

// AccountView is the public projection of an account. It never carries
// secrets.
type AccountView struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Verified    bool       `json:"verified"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

func viewOf(acct *credential.Account) AccountView {
	return AccountView{
		ID:          acct.ID,
		Username:    acct.Username,
		Email:       acct.Email,
		Verified:    acct.Verified,
		CreatedAt:   acct.CreatedAt,
		LastLoginAt: acct.LastLoginAt,
	}
}

// TokenPair is an access token and the refresh token issued with it. The
// refresh token is returned exactly once and never stored in plaintext.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// Session is the result of every flow that authenticates the caller.
type Session struct {
	Account AccountView `json:"account"`
	Tokens  TokenPair   `json:"tokens"`
}

// Delivery reports the outcome of handing a code to the Notifier. A failed
// delivery never fails the operation that issued the code.
type Delivery struct {
	Sent    bool   `json:"sent"`
	Warning string `json:"warning,omitempty"`
}

// RegisterRequest carries the registration input.
type RegisterRequest struct {
	Username string
	Email    string
	Password string
}

// RegisterResult is returned by Register.
type RegisterResult struct {
	Account  AccountView `json:"account"`
	Delivery Delivery    `json:"delivery"`
}

// ChangePasswordRequest carries the change-password input.
type ChangePasswordRequest struct {
	AccountID       string
	CurrentPassword string
	NewPassword     string
	Code            string
}

// LogoutResult reports what Logout managed to revoke.
type LogoutResult struct {
	AccessRevoked  bool `json:"accessRevoked"`
	RefreshRevoked bool `json:"refreshRevoked"`
}

// Principal identifies the caller behind a valid access token.
type Principal struct {
	AccountID string
	TokenID   string
	ExpiresAt time.Time
}

// AuditEvent is emitted for security-relevant operations.
type AuditEvent = internalaudit.Event

// AuditSink consumes audit events.
type AuditSink = internalaudit.Sink

// NoOpSink discards audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink buffers audit events in a channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes audit events as JSON lines.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink logs audit events through slog.
type SlogSink = internalaudit.SlogSink

// MultiSink fans audit events out to several sinks.
type MultiSink = internalaudit.MultiSink

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink { return internalaudit.NewChannelSink(buffer) }

// NewJSONWriterSink returns a JSONWriterSink.
var NewJSONWriterSink = internalaudit.NewJSONWriterSink
