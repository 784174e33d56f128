// Package amyrose is a session security core for authentication services.
//
// It issues, encodes, validates, and invalidates three kinds of ephemeral
// security tokens (authentication, verification, and captcha sessions) and
// enforces per-account role and permission grants. Persistence goes through
// a generic soft-deleting repository over bun; session tokens travel as
// signed HMAC JWTs attached to HTTP cookies at the fiber boundary.
package amyrose
