// Package jwt signs and verifies the access and refresh tokens issued by the
// session engine.
//
// Access and refresh tokens are signed with separate keys and carry a "typ"
// claim, so a token of one kind is never accepted as the other. Refresh
// tokens carry the ledger record identifier as their "jti".
package jwt
