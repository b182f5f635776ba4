package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// SigningKey is an RSA key pair with a key ID, ready to sign tokens and to
// be published through a JWKS endpoint.
type SigningKey struct {
	KeyID   string
	Private *rsa.PrivateKey
}

// NewSigningKey generates a 2048-bit RSA key pair under the given key ID.
func NewSigningKey(t testing.TB, keyID string) *SigningKey {
	t.Helper()

	private, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err, "failed to generate RSA key")

	return &SigningKey{KeyID: keyID, Private: private}
}

// JWK returns the public half of the key as a JWK map.
func (k *SigningKey) JWK() map[string]any {
	pub := &k.Private.PublicKey
	return map[string]any{
		"kty": "RSA",
		"alg": "RS256",
		"use": "sig",
		"kid": k.KeyID,
		"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

// Sign produces a compact RS256 token with the given claims, using the
// key's ID in the token header.
func (k *SigningKey) Sign(t testing.TB, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = k.KeyID

	raw, err := token.SignedString(k.Private)
	require.NoError(t, err, "failed to sign token")
	return raw
}

// SignWithoutKeyID produces a compact RS256 token whose header carries no
// key ID, forcing verifiers to try every published key.
func (k *SigningKey) SignWithoutKeyID(t testing.TB, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)

	raw, err := token.SignedString(k.Private)
	require.NoError(t, err, "failed to sign token")
	return raw
}

// SignWithMethod produces a token signed with an arbitrary method. Used to
// exercise algorithm allow-list rejection paths.
func (k *SigningKey) SignWithMethod(t testing.TB, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(method, claims)
	token.Header["kid"] = k.KeyID

	raw, err := token.SignedString(key)
	require.NoError(t, err, "failed to sign token")
	return raw
}

// StandardClaims returns a claim set that passes validation: subject,
// realm_access, and an expiry one hour out.
func StandardClaims(subject string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":          subject,
		"realm_access": map[string]any{"roles": []any{"user"}},
		"exp":          time.Now().Add(time.Hour).Unix(),
		"iat":          time.Now().Unix(),
	}
}

// JWKSServer starts an httptest server that publishes the given keys as a
// JWKS document at every path. It is closed when the test finishes.
// The returned counter reports how many requests the server has observed.
func JWKSServer(t testing.TB, keys ...*SigningKey) (*httptest.Server, *int) {
	t.Helper()

	jwks := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		jwks = append(jwks, k.JWK())
	}

	body, err := json.Marshal(map[string]any{"keys": jwks})
	require.NoError(t, err)

	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	return srv, &hits
}

// BrokenJWKSServer starts a server that always responds with the given
// status code and body.
func BrokenJWKSServer(t testing.TB, status int, body string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}
