package errors

import (
	"errors"
)

// AsError attempts to convert an error to an *Error.
// Returns the Error and true if successful, nil and false otherwise.
// This function traverses the error chain using errors.As.
//
// Example:
//
//	if e, ok := errors.AsError(err); ok {
//	    slog.Warn("request rejected", "code", e.Code, "message", e.Message)
//	}
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetCode returns the error code from an error.
// If the error is not an *Error or is nil, returns an empty string.
func GetCode(err error) Code {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// HasCode checks if an error has the specified error code.
// Returns false if the error is nil or not an *Error.
func HasCode(err error, code Code) bool {
	return GetCode(err) == code
}

// IsTokenError checks if the error is a token validation failure (TOKEN_xxx).
func IsTokenError(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "TOKEN"
}

// IsExpired checks if the error is specifically a token expiry (TOKEN_005).
// Expiry is classified distinctly because clients recover from it by
// refreshing their token rather than by correcting the request.
func IsExpired(err error) bool {
	return HasCode(err, CodeTokenExpired)
}

// IsKeyFetch checks if the error is a signing-key retrieval failure
// (KEYS_xxx). These are infrastructure faults, not client faults.
func IsKeyFetch(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "KEYS"
}

// IsAccountNotLinked checks if the error indicates a verified subject with
// no local account mapping (ACCT_xxx).
func IsAccountNotLinked(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "ACCT"
}

// IsPersistence checks if the error is a user-mapping persistence failure
// (STORE_xxx).
func IsPersistence(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "STORE"
}

// IsValidation checks if the error is a validation error (VAL_xxx).
func IsValidation(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "VAL"
}

// IsNotFound checks if the error is a not found error (NF_xxx).
func IsNotFound(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "NF"
}

// IsInternal checks if the error is an internal error (INT_xxx).
func IsInternal(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "INT"
}

// IsTimeout checks if the error is a timeout error (TIMEOUT_xxx).
func IsTimeout(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "TIMEOUT"
}

// IsRetryable checks if the error is potentially retryable. Timeout and
// unavailable errors are considered retryable; persistence errors are left
// to the caller (the store never retries internally).
func IsRetryable(err error) bool {
	e, ok := AsError(err)
	if !ok {
		return false
	}
	switch e.Code.Category() {
	case "TIMEOUT", "UNAVAIL":
		return true
	default:
		return false
	}
}

// IsClientError checks if the error maps to a 4xx HTTP-equivalent status.
func IsClientError(err error) bool {
	e, ok := AsError(err)
	if !ok {
		return false
	}
	status := e.HTTPStatus()
	return status >= 400 && status < 500
}

// IsServerError checks if the error maps to a 5xx HTTP-equivalent status.
func IsServerError(err error) bool {
	e, ok := AsError(err)
	if !ok {
		return false
	}
	return e.HTTPStatus() >= 500
}
