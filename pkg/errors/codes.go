package errors

// Code represents a machine-readable error code for categorizing errors.
// Error codes follow the pattern CATEGORY_XXX where CATEGORY is a short
// identifier (e.g., TOKEN, KEYS, STORE) and XXX is a three-digit numeric
// code.
//
// Error codes are designed to be:
//   - Stable: codes do not change once assigned
//   - Unique: each error condition has a distinct code
//   - Machine-readable: suitable for automated error handling
type Code string

// Error code categories and their HTTP-equivalent status:
//
//	TOKEN_xxx   - token validation failures (400; expiry is 401)
//	KEYS_xxx    - signing-key retrieval failures (500)
//	ACCT_xxx    - account resolution failures (401)
//	STORE_xxx   - user-mapping persistence failures (500)
//	VAL_xxx     - validation errors (400)
//	NF_xxx      - not found errors (404)
//	CFG_xxx     - configuration errors (500)
//	INT_xxx     - internal errors (500)
//	UNAVAIL_xxx - dependency unavailable (503)
//	TIMEOUT_xxx - operation timed out (504)
const (
	// Token validation failures (TOKEN_xxx). All are client-caused. They map
	// to HTTP 400 except CodeTokenExpired, which maps to 401 so that clients
	// can distinguish the common, recoverable case of a stale access token.

	// CodeTokenFormat indicates the compact token could not be parsed.
	CodeTokenFormat Code = "TOKEN_001"

	// CodeUnsupportedAlgorithm indicates the token header declared an
	// algorithm outside the fixed allow-list.
	CodeUnsupportedAlgorithm Code = "TOKEN_002"

	// CodeSignature indicates no signing key verified the token signature.
	CodeSignature Code = "TOKEN_003"

	// CodeMissingClaim indicates a required claim is absent from the payload.
	CodeMissingClaim Code = "TOKEN_004"

	// CodeTokenExpired indicates the token's exp claim is in the past.
	CodeTokenExpired Code = "TOKEN_005"

	// CodeAudienceMismatch indicates the aud claim does not include the
	// configured client identifier. Only produced when audience enforcement
	// is enabled.
	CodeAudienceMismatch Code = "TOKEN_006"

	// Signing-key retrieval failures (KEYS_xxx) - HTTP 500.

	// CodeKeyFetch indicates the JWKS endpoint could not be reached or
	// returned an unusable response.
	CodeKeyFetch Code = "KEYS_001"

	// Account resolution failures (ACCT_xxx) - HTTP 401.

	// CodeAccountNotLinked indicates the token verified but its subject has
	// no local account mapping.
	CodeAccountNotLinked Code = "ACCT_001"

	// Persistence failures (STORE_xxx) - HTTP 500.

	// CodePersistence indicates a user-mapping write reported no effect or
	// otherwise failed.
	CodePersistence Code = "STORE_001"

	// Validation errors (VAL_xxx) - HTTP 400.

	// CodeValidation indicates a general validation failure.
	CodeValidation Code = "VAL_001"

	// CodeValidationRequired indicates a required field is missing.
	CodeValidationRequired Code = "VAL_002"

	// Not found errors (NF_xxx) - HTTP 404.

	// CodeNotFound indicates a requested resource does not exist.
	CodeNotFound Code = "NF_001"

	// Configuration errors (CFG_xxx) - HTTP 500.

	// CodeConfiguration indicates invalid or unloadable configuration.
	CodeConfiguration Code = "CFG_001"

	// Internal errors (INT_xxx) - HTTP 500.

	// CodeInternal indicates a general internal error.
	CodeInternal Code = "INT_001"

	// CodeInternalDatabase indicates a database operation failed.
	CodeInternalDatabase Code = "INT_002"

	// Unavailable errors (UNAVAIL_xxx) - HTTP 503.

	// CodeUnavailableDependency indicates a dependent service is unreachable.
	CodeUnavailableDependency Code = "UNAVAIL_001"

	// Timeout errors (TIMEOUT_xxx) - HTTP 504.

	// CodeTimeout indicates a general timeout.
	CodeTimeout Code = "TIMEOUT_001"

	// CodeTimeoutDatabase indicates a database operation timed out.
	CodeTimeoutDatabase Code = "TIMEOUT_002"
)

// String returns the string representation of the error code.
func (c Code) String() string {
	return string(c)
}

// Category returns the category prefix of the error code (e.g., "TOKEN").
func (c Code) Category() string {
	s := string(c)
	for i, r := range s {
		if r == '_' {
			return s[:i]
		}
	}
	return s
}
