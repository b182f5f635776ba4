// Package testutil provides shared test helpers: structured error
// assertions, RSA key fixtures, token signing, and an in-process JWKS
// endpoint.
//
// All helpers accept [testing.TB] and call t.Helper() so failures report
// the caller's file and line.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rgerr "github.com/RealmGate/realmgate-core/pkg/errors"
)

// RequireErrorCode halts the test if err is nil, is not a *rgerr.Error,
// or does not carry the expected code.
//
// Example:
//
//	_, err := validator.Validate(ctx, raw)
//	testutil.RequireErrorCode(t, err, rgerr.CodeTokenExpired)
func RequireErrorCode(t testing.TB, err error, code rgerr.Code, msgAndArgs ...any) {
	t.Helper()
	require.Error(t, err, msgAndArgs...)
	rgErr, ok := rgerr.AsError(err)
	require.True(t, ok, "expected *rgerr.Error, got %T: %v", err, err)
	require.Equal(t, code, rgErr.Code,
		"error code mismatch: got %q, want %q (message: %s)",
		rgErr.Code, code, rgErr.Message)
}

// AssertErrorCode records a failure without halting if err is nil, is not
// a *rgerr.Error, or carries a different code. Use it in table-driven
// tests where all rows should run.
func AssertErrorCode(t testing.TB, err error, code rgerr.Code, msgAndArgs ...any) bool {
	t.Helper()
	if !assert.Error(t, err, msgAndArgs...) {
		return false
	}
	rgErr, ok := rgerr.AsError(err)
	if !assert.True(t, ok, "expected *rgerr.Error, got %T: %v", err, err) {
		return false
	}
	return assert.Equal(t, code, rgErr.Code,
		"error code mismatch: got %q, want %q (message: %s)",
		rgErr.Code, code, rgErr.Message)
}
