package apperrors

import (
	"errors"
	"fmt"
)

// APIError represents a standardized API error response
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Status  int       `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New creates an APIError for the given code with its mapped HTTP status
func New(code ErrorCode, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Status:  code.StatusCode(),
	}
}

// WithDetails adds additional details to an error
func (e *APIError) WithDetails(details string) *APIError {
	e.Details = details
	return e
}

// Is lets errors.Is match two APIErrors by code
func (e *APIError) Is(target error) bool {
	var other *APIError
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// AsAPIError extracts an *APIError from an error chain, or wraps the error
// as an INTERNAL_ERROR so handlers always have a typed failure to render.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Internal("internal server error").WithDetails(err.Error())
}

// Constructors for the failure modes this core surfaces.

func SessionInvalid() *APIError {
	return New(ErrSessionInvalid, "refresh token is invalid or expired")
}

func SessionNotFound() *APIError {
	return New(ErrSessionNotFound, "session not found")
}

func CannotTerminateCurrentSession() *APIError {
	return New(ErrCannotTerminateActive, "cannot terminate the current session")
}

func UserNotFound() *APIError {
	return New(ErrUserNotFound, "user not found")
}

func InvalidCredentials() *APIError {
	return New(ErrInvalidCredentials, "invalid credentials")
}

func UsernameTaken() *APIError {
	return New(ErrUsernameTaken, "username already taken")
}

func EmailTaken() *APIError {
	return New(ErrEmailTaken, "email already taken")
}

func EmailAlreadySet() *APIError {
	return New(ErrEmailAlreadySet, "account already has an email")
}

func PasswordsMustDiffer() *APIError {
	return New(ErrPasswordsMustDiffer, "new password must differ from the old one")
}

func ChallengeAlreadyActive() *APIError {
	return New(ErrChallengeActive, "a reset challenge is already in flight")
}

func ChallengeExpiredOrMissing() *APIError {
	return New(ErrChallengeExpired, "reset challenge expired or missing")
}

func TooManyAttempts() *APIError {
	return New(ErrTooManyAttempts, "too many incorrect attempts, restart the reset flow")
}

func IncorrectCode() *APIError {
	return New(ErrIncorrectCode, "incorrect code")
}

func NotVerified() *APIError {
	return New(ErrNotVerified, "reset challenge has not been verified")
}

func NoOpRating() *APIError {
	return New(ErrNoOpRating, "rating already in the requested state")
}

func PostNotFound() *APIError {
	return New(ErrPostNotFound, "post not found")
}

func ValidationError(message string) *APIError {
	return New(ErrValidation, message)
}

func Unauthorized(message string) *APIError {
	return New(ErrUnauthorized, message)
}

func Internal(message string) *APIError {
	return New(ErrInternalError, message)
}
