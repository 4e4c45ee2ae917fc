// Package cleanup periodically removes refresh records and blacklist entries
// that can no longer authorize anything.
//
// Jobs run on a cron schedule. A failing or panicking job is logged and the
// schedule continues.
package cleanup
