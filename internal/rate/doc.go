// Package rate implements Redis-backed fixed-window counters used to
// throttle failed logins.
//
// # Window semantics
//
// INCR plus EXPIRE on the first hit of a window. Key layout:
//   - <prefix>:rl:login:<email>  failed logins per normalized email
//   - <prefix>:rl:loginip:<ip>   failed logins per client IP (optional)
//
// # What this package must NOT do
//
//   - Decide policy beyond the configured budget.
//   - Be imported outside the sessionkit module.
package rate
