package taskapp

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// ErrInvalidCredential is returned for every failed signup or login,
// whether the email is unknown, already taken, or the password is wrong
// or too weak. A single shape keeps account enumeration off the table.
var ErrInvalidCredential = errors.New("unable to authenticate with provided credentials", errors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIAL")

// ErrUnauthenticated rejects a request carrying a missing, malformed,
// expired, or revoked bearer token. Callers never learn which.
var ErrUnauthenticated = errors.New("please authenticate", errors.CategoryAuth).
	WithTextCode("UNAUTHENTICATED").
	WithCode(errors.CodeUnauthorized)

// ErrInvalidUpdate rejects a field update containing any key outside the
// allowed set. The whole operation fails before a single field changes.
var ErrInvalidUpdate = errors.New("invalid updates", errors.CategoryValidation).
	WithTextCode("INVALID_UPDATE")

// ErrTokenExpired signals a well-signed token past its expiry.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED").
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed signals a token that cannot be parsed or whose
// signature does not verify.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED").
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString rejects empty input where a value is required.
var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryBadInput)

// ErrMismatchedHashAndPassword is the normalized bcrypt mismatch error.
var ErrMismatchedHashAndPassword = errors.New("password does not match", errors.CategoryAuth).
	WithTextCode("PASSWORD_MISMATCH")

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTokenExpired) || strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTokenMalformed) ||
		strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
