// Package middleware adapts the Engine to net/http.
//
// [RequireAuth] guards protected routes with Engine.Authenticate and puts
// the resulting principal in the request context. [RefreshToken],
// [SetRefreshCookie] and [ClearRefreshCookie] move the refresh token
// between the cookie and the response. [ClientInfo] forwards the caller's
// IP and User-Agent to the Engine.
//
// This package makes no authentication decisions of its own.
package middleware
