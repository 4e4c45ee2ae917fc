// Package otp issues and verifies the short numeric codes that gate account
// verification, password reset and password change.
//
// A [Manager] operates on a [credential.Account] in memory: Issue installs a
// new challenge and Verify consumes it. Persisting the mutation, and
// delivering the code, are the caller's job.
package otp
