package apperrors

import "net/http"

// ErrorCode represents the type of error surfaced to API clients
type ErrorCode string

const (
	// Session lifecycle
	ErrSessionInvalid        ErrorCode = "SESSION_INVALID"
	ErrSessionNotFound       ErrorCode = "SESSION_NOT_FOUND"
	ErrCannotTerminateActive ErrorCode = "CANNOT_TERMINATE_CURRENT_SESSION"

	// Credentials
	ErrUserNotFound       ErrorCode = "USER_NOT_FOUND"
	ErrInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrUsernameTaken      ErrorCode = "USERNAME_TAKEN"
	ErrEmailTaken         ErrorCode = "EMAIL_TAKEN"
	ErrEmailAlreadySet    ErrorCode = "EMAIL_ALREADY_SET"
	ErrPasswordsMustDiffer ErrorCode = "PASSWORDS_MUST_BE_DIFFERENT"

	// Password reset challenge
	ErrChallengeActive  ErrorCode = "CHALLENGE_ALREADY_ACTIVE"
	ErrChallengeExpired ErrorCode = "CHALLENGE_EXPIRED"
	ErrTooManyAttempts  ErrorCode = "TOO_MANY_ATTEMPTS"
	ErrIncorrectCode    ErrorCode = "INCORRECT_CODE"
	ErrNotVerified      ErrorCode = "NOT_VERIFIED"

	// Engagement
	ErrNoOpRating   ErrorCode = "NO_OP_RATING"
	ErrPostNotFound ErrorCode = "POST_NOT_FOUND"

	// Generic
	ErrValidation    ErrorCode = "VALIDATION_ERROR"
	ErrUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrRateLimited   ErrorCode = "RATE_LIMITED"
	ErrInternalError ErrorCode = "INTERNAL_ERROR"
)

// StatusCodeMap maps ErrorCode to HTTP status code
var StatusCodeMap = map[ErrorCode]int{
	ErrSessionInvalid:        http.StatusUnauthorized,
	ErrSessionNotFound:       http.StatusNotFound,
	ErrCannotTerminateActive: http.StatusBadRequest,
	ErrUserNotFound:          http.StatusNotFound,
	ErrInvalidCredentials:    http.StatusUnauthorized,
	ErrUsernameTaken:         http.StatusConflict,
	ErrEmailTaken:            http.StatusConflict,
	ErrEmailAlreadySet:       http.StatusConflict,
	ErrPasswordsMustDiffer:   http.StatusBadRequest,
	ErrChallengeActive:       http.StatusConflict,
	ErrChallengeExpired:      http.StatusBadRequest,
	ErrTooManyAttempts:       http.StatusTooManyRequests,
	ErrIncorrectCode:         http.StatusBadRequest,
	ErrNotVerified:           http.StatusBadRequest,
	ErrNoOpRating:            http.StatusBadRequest,
	ErrPostNotFound:          http.StatusNotFound,
	ErrValidation:            http.StatusUnprocessableEntity,
	ErrUnauthorized:          http.StatusUnauthorized,
	ErrRateLimited:           http.StatusTooManyRequests,
	ErrInternalError:         http.StatusInternalServerError,
}

// StatusCode returns the HTTP status code for this error code
func (e ErrorCode) StatusCode() int {
	if code, ok := StatusCodeMap[e]; ok {
		return code
	}
	return http.StatusInternalServerError
}
