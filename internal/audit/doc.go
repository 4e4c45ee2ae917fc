// Package audit relays security-relevant events from the session engine to
// pluggable sinks without blocking request paths.
//
// # Components
//
//   - [Event]: one record with timestamp, type, account, ledger record, client metadata.
//   - [Sink]: consumer interface (channel, JSON lines, slog, fan-out, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full semantics.
//
// The engine decides which events to emit; this package only buffers and delivers them.
package audit
