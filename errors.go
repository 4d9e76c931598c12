package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// ErrIncorrectCredentials is returned for unknown emails and wrong passwords
// alike; the two causes are deliberately indistinguishable to the caller.
var ErrIncorrectCredentials = goerrors.New("Incorrect email or password", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("INCORRECT_CREDENTIALS")

// ErrPleaseAuthenticate is the collapsed failure for refresh verification
var ErrPleaseAuthenticate = goerrors.New("Please authenticate", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("AUTH_REQUIRED")

// ErrPasswordResetFailed is the collapsed failure for the reset flow
var ErrPasswordResetFailed = goerrors.New("Password reset failed", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("PASSWORD_RESET_FAILED")

// ErrEmailVerifyFailed is the collapsed failure for the verification flow
var ErrEmailVerifyFailed = goerrors.New("Email verification failed", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("EMAIL_VERIFY_FAILED")

// ErrTokenExpired signals a syntactically valid token past its exp claim
var ErrTokenExpired = goerrors.New("Token expired", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("TOKEN_EXPIRED")

// ErrTokenMalformed covers bad signatures and unparseable tokens
var ErrTokenMalformed = goerrors.New("Token malformed", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("TOKEN_MALFORMED")

// ErrTokenNotFound means the store has no active record for the token
var ErrTokenNotFound = goerrors.New("Token not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound).
	WithTextCode("TOKEN_NOT_FOUND")

// ErrEmailTaken signals a duplicate email on registration or update
var ErrEmailTaken = goerrors.New("Email already taken", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict).
	WithTextCode("EMAIL_TAKEN")

// ErrUserNotFound is the missing principal error
var ErrUserNotFound = goerrors.New("User not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound).
	WithTextCode("USER_NOT_FOUND")

// ErrNoEmptyString rejects empty passwords before hashing
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode("EMPTY_PASSWORD")

// ErrMismatchedHashAndPassword is the bcrypt comparison failure
var ErrMismatchedHashAndPassword = goerrors.New("mismatched hash and password", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("PASSWORD_MISMATCH")

// ErrUnableToDecodeSession means a valid token carried claims we could not read
var ErrUnableToDecodeSession = goerrors.New("Unable to decode session", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("SESSION_DECODE_FAILED")

// ErrNotAuthenticated is the guard failure for requests without a usable token
var ErrNotAuthenticated = goerrors.New("Please authenticate", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("AUTH_REQUIRED")

// ErrInsufficientRights is the guard failure for authenticated but unauthorized requests
var ErrInsufficientRights = goerrors.New("Forbidden", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode("FORBIDDEN")

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
