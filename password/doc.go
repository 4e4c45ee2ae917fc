// Package password implements one-way secret hashing with Argon2id.
//
// # Output format
//
// Digests are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>
//
// The same [Argon2] instance hashes login passwords and refresh tokens, so
// neither is ever stored in a usable form.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy is the
// caller's concern. [Argon2.NeedsUpgrade] lets the caller rehash digests that
// were produced with weaker parameters after a successful login.
//
// # What this package must NOT do
//
//   - Store or retrieve secrets.
//   - Import any other sessionkit package.
//   - Log plaintext secrets or digests.
package password
