// Package errors provides standardized error types and error handling
// utilities for RealmGate. It defines the error categories used throughout
// the authentication pipeline, machine-readable error codes, and helper
// functions for creating, wrapping, and inspecting errors.
//
// # Error Categories
//
// The package defines categories that map to the failure modes of bearer
// token authentication and subject mapping:
//
//   - Token errors: malformed tokens, disallowed algorithms, bad signatures,
//     missing claims, expiry
//   - Key errors: signing-key (JWKS) retrieval failures
//   - Account errors: subjects with no local account mapping
//   - Store errors: user-mapping persistence failures
//   - Validation errors: invalid input, missing required fields
//   - NotFound, Configuration, Internal, Unavailable, Timeout errors
//
// # Error Codes
//
// Each error includes a machine-readable code (e.g., "TOKEN_005") usable for
// error tracking, alerting, and client-side handling. Codes follow the
// pattern CATEGORY_XXX. Every code also maps to an HTTP-equivalent status
// via [Error.HTTPStatus] and to one of the two wire codes emitted on REST
// responses via [Error.RESTCode] ("rest_invalid_request" for client faults,
// "rest_internal_server_error" for infrastructure faults).
//
// # Usage
//
// Create a new error:
//
//	err := errors.New(errors.CodeSignature, "token signature did not match any signing key")
//
// Wrap an existing error:
//
//	err := errors.Wrap(err, errors.CodeKeyFetch, "could not retrieve signing keys")
//
// Check error category:
//
//	if errors.IsTokenError(err) {
//	    // client fault; reject the request without alerting
//	}
package errors
