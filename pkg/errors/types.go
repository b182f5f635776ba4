package errors

import (
	"fmt"
	"net/http"
)

// Wire codes emitted on REST error responses. Every classified failure is
// surfaced to clients as one of these two codes, with the finer-grained
// [Code] retained internally for logging and tests.
const (
	// RESTInvalidRequest is the wire code for client-caused failures
	// (HTTP-equivalent status below 500).
	RESTInvalidRequest = "rest_invalid_request"

	// RESTInternalServerError is the wire code for infrastructure failures
	// (HTTP-equivalent status 500 and above).
	RESTInternalServerError = "rest_internal_server_error"
)

// Error represents a structured error with a code, message, and optional
// cause. It implements the standard error interface and provides additional
// context for error handling, logging, and API responses.
//
// Error is designed to be:
//   - Immutable: fields are not modified after creation
//   - Chainable: supports error wrapping via the Cause field
//   - Structured: provides a machine-readable code and HTTP status
type Error struct {
	// Code is the machine-readable error code (e.g., "TOKEN_005").
	Code Code

	// Message is the human-readable error message. It may be shown to end
	// users and must not contain sensitive information such as raw tokens
	// or credentials.
	Message string

	// Cause is the underlying error that caused this error, if any.
	// Use Unwrap() to access the cause for error chain inspection.
	Cause error

	// Details contains additional structured data about the error, such as
	// the name of a missing claim or a resource identifier.
	Details map[string]any
}

// Error implements the error interface, returning the error message.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of this error, supporting
// errors.Unwrap() and errors.Is() from the standard library.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the HTTP-equivalent status code for this error.
// Token expiry and unlinked accounts map to 401 Unauthorized; the remaining
// token and validation codes map to 400; key retrieval, persistence,
// configuration, and internal faults map to 5xx.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeTokenExpired:
		return http.StatusUnauthorized
	}
	switch e.Code.Category() {
	case "TOKEN", "VAL":
		return http.StatusBadRequest
	case "ACCT":
		return http.StatusUnauthorized
	case "NF":
		return http.StatusNotFound
	case "KEYS", "STORE", "CFG", "INT":
		return http.StatusInternalServerError
	case "UNAVAIL":
		return http.StatusServiceUnavailable
	case "TIMEOUT":
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// RESTCode returns the wire code emitted for this error on REST responses:
// [RESTInternalServerError] for server faults, [RESTInvalidRequest] for
// everything the client can correct.
func (e *Error) RESTCode() string {
	if e.HTTPStatus() >= http.StatusInternalServerError {
		return RESTInternalServerError
	}
	return RESTInvalidRequest
}

// WithDetail returns a new Error with a single detail key-value pair added.
// The original error is not modified.
func (e *Error) WithDetail(key string, value any) *Error {
	newDetails := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		newDetails[k] = v
	}
	newDetails[key] = value
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Cause:   e.Cause,
		Details: newDetails,
	}
}

// Format implements fmt.Formatter for detailed error output.
// Use %v for standard output, %+v for detailed output including the cause
// chain.
func (e *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprintf(s, "Error{Code: %q, Message: %q", e.Code, e.Message)
			if len(e.Details) > 0 {
				fmt.Fprintf(s, ", Details: %v", e.Details)
			}
			if e.Cause != nil {
				fmt.Fprintf(s, ", Cause: %+v", e.Cause)
			}
			fmt.Fprint(s, "}")
			return
		}
		fallthrough
	case 's':
		fmt.Fprint(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}
