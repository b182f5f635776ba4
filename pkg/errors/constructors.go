package errors

import (
	"errors"
	"fmt"
)

// New creates a new Error with the specified code and message.
// Use this for creating errors without an underlying cause.
//
// Example:
//
//	err := errors.New(errors.CodeTokenFormat, "token is not a compact JWS")
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with the specified code and formatted message.
//
// Example:
//
//	err := errors.Newf(errors.CodeMissingClaim, "required claim %q is missing", name)
func Newf(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context. The wrapped error
// becomes the Cause of the new error. If err is nil, Wrap returns nil.
//
// Example:
//
//	body, err := io.ReadAll(resp.Body)
//	if err != nil {
//	    return errors.Wrap(err, errors.CodeKeyFetch, "could not retrieve signing keys")
//	}
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with a formatted message. The wrapped error
// becomes the Cause of the new error. If err is nil, Wrapf returns nil.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// MissingClaim creates a TOKEN_004 error naming the absent claim. The claim
// name is recorded both in the message and as a structured detail.
//
// Example:
//
//	err := errors.MissingClaim("realm_access")
func MissingClaim(claim string) *Error {
	return Newf(CodeMissingClaim, "required claim %q is missing", claim).
		WithDetail("claim", claim)
}

// Validation creates a new validation error.
func Validation(message string) *Error {
	return New(CodeValidation, message)
}

// Validationf creates a new validation error with a formatted message.
func Validationf(format string, args ...any) *Error {
	return Newf(CodeValidation, format, args...)
}

// NotFound creates a new not found error.
func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

// Internal creates a new internal error. Use this for unexpected system
// failures that should not expose details to users.
func Internal(message string) *Error {
	return New(CodeInternal, message)
}

// Persistence creates a STORE_001 error for a user-mapping write that
// reported no effect or otherwise failed.
func Persistence(message string) *Error {
	return New(CodePersistence, message)
}

// FromError converts a standard error to an *Error. If the error is already
// an *Error, it is returned as-is. Otherwise it is wrapped as an internal
// error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	return Wrap(err, CodeInternal, "an unexpected error occurred")
}
