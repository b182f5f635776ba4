package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsError(t *testing.T) {
	t.Parallel()

	e := New(CodeSignature, "bad signature")
	got, ok := AsError(e)
	require.True(t, ok)
	assert.Equal(t, e, got)

	got, ok = AsError(fmt.Errorf("wrapped: %w", e))
	require.True(t, ok)
	assert.Equal(t, e, got)

	_, ok = AsError(errors.New("plain"))
	assert.False(t, ok)

	_, ok = AsError(nil)
	assert.False(t, ok)
}

func TestGetCode(t *testing.T) {
	t.Parallel()
	assert.Equal(t, CodeTokenExpired, GetCode(New(CodeTokenExpired, "expired")))
	assert.Equal(t, Code(""), GetCode(errors.New("plain")))
	assert.Equal(t, Code(""), GetCode(nil))
}

func TestHasCode(t *testing.T) {
	t.Parallel()
	err := New(CodeAccountNotLinked, "user not registered")
	assert.True(t, HasCode(err, CodeAccountNotLinked))
	assert.False(t, HasCode(err, CodeTokenExpired))
	assert.False(t, HasCode(nil, CodeAccountNotLinked))
}

func TestCategoryChecks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		check func(error) bool
		hit   *Error
		miss  *Error
	}{
		{"IsTokenError", IsTokenError, New(CodeTokenFormat, "m"), New(CodeKeyFetch, "m")},
		{"IsKeyFetch", IsKeyFetch, New(CodeKeyFetch, "m"), New(CodeSignature, "m")},
		{"IsAccountNotLinked", IsAccountNotLinked, New(CodeAccountNotLinked, "m"), New(CodeNotFound, "m")},
		{"IsPersistence", IsPersistence, New(CodePersistence, "m"), New(CodeInternal, "m")},
		{"IsValidation", IsValidation, New(CodeValidation, "m"), New(CodeTokenFormat, "m")},
		{"IsNotFound", IsNotFound, New(CodeNotFound, "m"), New(CodeValidation, "m")},
		{"IsInternal", IsInternal, New(CodeInternalDatabase, "m"), New(CodePersistence, "m")},
		{"IsTimeout", IsTimeout, New(CodeTimeoutDatabase, "m"), New(CodeInternal, "m")},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.True(t, tt.check(tt.hit), "expected hit for %s", tt.hit.Code)
			assert.False(t, tt.check(tt.miss), "expected miss for %s", tt.miss.Code)
			assert.False(t, tt.check(errors.New("plain")))
			assert.False(t, tt.check(nil))
		})
	}
}

func TestIsExpired(t *testing.T) {
	t.Parallel()
	assert.True(t, IsExpired(New(CodeTokenExpired, "expired")))
	// Other token errors are not expiry; callers map them to a different
	// response status.
	assert.False(t, IsExpired(New(CodeSignature, "bad signature")))
	assert.False(t, IsExpired(nil))
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()
	assert.True(t, IsRetryable(New(CodeTimeout, "m")))
	assert.True(t, IsRetryable(New(CodeUnavailableDependency, "m")))
	assert.False(t, IsRetryable(New(CodePersistence, "m")), "store errors are the caller's retry decision")
	assert.False(t, IsRetryable(New(CodeTokenExpired, "m")))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestIsClientError_IsServerError(t *testing.T) {
	t.Parallel()

	client := []*Error{
		New(CodeTokenFormat, "m"),
		New(CodeTokenExpired, "m"),
		New(CodeAccountNotLinked, "m"),
		New(CodeValidation, "m"),
		New(CodeNotFound, "m"),
	}
	server := []*Error{
		New(CodeKeyFetch, "m"),
		New(CodePersistence, "m"),
		New(CodeInternal, "m"),
		New(CodeUnavailableDependency, "m"),
		New(CodeTimeout, "m"),
	}

	for _, e := range client {
		assert.True(t, IsClientError(e), "%s should be a client error", e.Code)
		assert.False(t, IsServerError(e), "%s should not be a server error", e.Code)
	}
	for _, e := range server {
		assert.True(t, IsServerError(e), "%s should be a server error", e.Code)
		assert.False(t, IsClientError(e), "%s should not be a client error", e.Code)
	}

	assert.False(t, IsClientError(nil))
	assert.False(t, IsServerError(nil))
}
