// Package notify delivers one-time codes to account owners.
//
// The session engine depends only on [Notifier]. This package ships a
// discard implementation, a structured-log implementation for development,
// an SMTP implementation, and [Chain], which tries several notifiers in
// order until one succeeds.
package notify
