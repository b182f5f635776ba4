package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "TOKEN_001", CodeTokenFormat.String())
	assert.Equal(t, "KEYS_001", CodeKeyFetch.String())
	assert.Equal(t, "STORE_001", CodePersistence.String())
}

func TestCode_Category(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code Code
		want string
	}{
		{CodeTokenFormat, "TOKEN"},
		{CodeUnsupportedAlgorithm, "TOKEN"},
		{CodeSignature, "TOKEN"},
		{CodeMissingClaim, "TOKEN"},
		{CodeTokenExpired, "TOKEN"},
		{CodeAudienceMismatch, "TOKEN"},
		{CodeKeyFetch, "KEYS"},
		{CodeAccountNotLinked, "ACCT"},
		{CodePersistence, "STORE"},
		{CodeValidation, "VAL"},
		{CodeNotFound, "NF"},
		{CodeConfiguration, "CFG"},
		{CodeInternal, "INT"},
		{CodeUnavailableDependency, "UNAVAIL"},
		{CodeTimeoutDatabase, "TIMEOUT"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.code.Category(), "category of %s", tt.code)
	}
}

func TestCode_Category_NoUnderscore(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "BOGUS", Code("BOGUS").Category())
	assert.Equal(t, "", Code("").Category())
}

// Codes are part of the wire contract with operators and dashboards; this
// test pins them so an accidental rename shows up as a failure.
func TestCode_Values_AreStable(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Code("TOKEN_001"), CodeTokenFormat)
	assert.Equal(t, Code("TOKEN_002"), CodeUnsupportedAlgorithm)
	assert.Equal(t, Code("TOKEN_003"), CodeSignature)
	assert.Equal(t, Code("TOKEN_004"), CodeMissingClaim)
	assert.Equal(t, Code("TOKEN_005"), CodeTokenExpired)
	assert.Equal(t, Code("TOKEN_006"), CodeAudienceMismatch)
	assert.Equal(t, Code("KEYS_001"), CodeKeyFetch)
	assert.Equal(t, Code("ACCT_001"), CodeAccountNotLinked)
	assert.Equal(t, Code("STORE_001"), CodePersistence)
}
