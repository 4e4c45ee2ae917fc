// Package credential owns the account record and its refresh-token ledger,
// the global access-token blacklist, and their persistence.
//
// # Model
//
// [Account] carries identity fields, verification state, the password
// digest, at most one OTP [Challenge] and a bounded [Ledger] of
// [RefreshRecord] values. Every invariant of the record is enforced by its
// constructor and mutators; callers never assign the guarded fields
// directly.
//
// # Persistence
//
// [Store] offers atomic read-modify-write per account through [Store.Update].
// [RedisStore] implements it with WATCH/MULTI/EXEC and [PostgresStore] with a
// row lock held for the duration of a transaction. Both also implement
// [Blacklist] and [Sweeper].
//
// # What this package must NOT do
//
//   - Hash, sign or interpret tokens.
//   - Import the root sessionkit package.
//   - Persist plaintext passwords, codes or tokens.
package credential
