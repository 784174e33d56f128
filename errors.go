package amyrose

import (
	"github.com/goliatone/go-errors"
)

// Text codes discriminate the error kinds callers can act on.
const (
	TextCodeEmptyField          = "EMPTY_FIELD"
	TextCodeRecordNotFound      = "RECORD_NOT_FOUND"
	TextCodeSessionDecode       = "SESSION_DECODE"
	TextCodeSessionNotFound     = "SESSION_NOT_FOUND"
	TextCodeSessionInvalid      = "SESSION_INVALID"
	TextCodeSessionExpired      = "SESSION_EXPIRED"
	TextCodeUnknownLocation     = "UNKNOWN_LOCATION"
	TextCodeVerificationAttempt = "VERIFICATION_ATTEMPT"
)

// NewEmptyFieldError reports a required field that was provided empty.
func NewEmptyFieldError(field string) *errors.Error {
	return errors.New(field+" is empty", errors.CategoryValidation).
		WithTextCode(TextCodeEmptyField).
		WithMetadata(map[string]any{"field": field})
}

// NewRecordNotFound reports a lookup that matched no live record.
func NewRecordNotFound(model string) *errors.Error {
	return errors.New(model+" not found", errors.CategoryNotFound).
		WithTextCode(TextCodeRecordNotFound).
		WithMetadata(map[string]any{"model": model})
}

// NewDecodeError reports a missing or structurally invalid session token.
// Callers surface it as "unauthenticated", not as a hard failure.
func NewDecodeError(kind, reason string) *errors.Error {
	return errors.New("could not decode "+kind+": "+reason, errors.CategoryAuth).
		WithTextCode(TextCodeSessionDecode).
		WithMetadata(map[string]any{"session": kind})
}

// NewSessionError reports a session that decoded but is unusable. The text
// code pins down why: not found, invalidated, or expired.
func NewSessionError(kind, textCode, reason string) *errors.Error {
	return errors.New(kind+" "+reason, errors.CategoryAuth).
		WithTextCode(textCode).
		WithMetadata(map[string]any{"session": kind})
}

// NewUnknownLocationError reports a request arriving from an IP address with
// no prior authentication session for the same owner.
func NewUnknownLocationError(kind string) *errors.Error {
	return errors.New(kind+" used from an unknown location", errors.CategoryAuth).
		WithTextCode(TextCodeUnknownLocation).
		WithMetadata(map[string]any{"session": kind})
}

// NewVerificationAttemptError reports a failed code comparison. The session
// backing the attempt is burned before this error is returned.
func NewVerificationAttemptError(kind string) *errors.Error {
	return errors.New("submitted code does not match "+kind, errors.CategoryAuth).
		WithTextCode(TextCodeVerificationAttempt).
		WithMetadata(map[string]any{"session": kind})
}

func hasTextCode(err error, codes ...string) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	for _, code := range codes {
		if richErr.TextCode == code {
			return true
		}
	}
	return false
}

// IsEmptyFieldError checks for empty-field validation failures.
func IsEmptyFieldError(err error) bool {
	return hasTextCode(err, TextCodeEmptyField)
}

// IsRecordNotFound checks for repository lookups that matched nothing.
func IsRecordNotFound(err error) bool {
	return hasTextCode(err, TextCodeRecordNotFound)
}

// IsDecodeError checks for absent or malformed session tokens.
func IsDecodeError(err error) bool {
	return hasTextCode(err, TextCodeSessionDecode)
}

// IsSessionError checks for any session-level failure: the token decoded but
// the session is missing, invalidated, expired, location-rejected, or burned
// by a failed attempt.
func IsSessionError(err error) bool {
	return hasTextCode(err,
		TextCodeSessionNotFound,
		TextCodeSessionInvalid,
		TextCodeSessionExpired,
		TextCodeUnknownLocation,
		TextCodeVerificationAttempt,
	)
}

// IsSessionInvalidError checks for consumed or invalidated sessions.
func IsSessionInvalidError(err error) bool {
	return hasTextCode(err, TextCodeSessionInvalid)
}

// IsSessionExpiredError checks for sessions past their expiry window.
func IsSessionExpiredError(err error) bool {
	return hasTextCode(err, TextCodeSessionExpired)
}

// IsUnknownLocationError checks for IP binding rejections.
func IsUnknownLocationError(err error) bool {
	return hasTextCode(err, TextCodeUnknownLocation)
}

// IsVerificationAttemptError checks for failed single-attempt comparisons.
func IsVerificationAttemptError(err error) bool {
	return hasTextCode(err, TextCodeVerificationAttempt)
}
