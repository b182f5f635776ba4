package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RealmGate/realmgate-core/internal/testutil"
	"github.com/RealmGate/realmgate-core/pkg/auth"
	"github.com/RealmGate/realmgate-core/pkg/cache"
	rgerr "github.com/RealmGate/realmgate-core/pkg/errors"
)

// stubIssuer records the principal it saw and returns a fixed pair.
type stubIssuer struct {
	pair      *auth.TokenPair
	err       error
	principal auth.Principal
}

func (s *stubIssuer) IssueSession(_ context.Context, principal auth.Principal) (*auth.TokenPair, error) {
	s.principal = principal
	return s.pair, s.err
}

// newLoginHandler wires a validator against a JWKS endpoint for the key.
func newLoginHandler(t *testing.T, key *testutil.SigningKey, resolver auth.SubjectResolver, issuer auth.SessionIssuer) http.Handler {
	t.Helper()

	srv, _ := testutil.JWKSServer(t, key)
	cfg := auth.Config{JWKSURL: srv.URL}
	validator := auth.NewValidator(cfg, auth.NewKeySetCache(cfg, cache.NewMemory()))
	return auth.LoginHandler(validator, resolver, issuer, nil)
}

func postLogin(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func loginBody(t *testing.T, token string) string {
	t.Helper()
	body, err := json.Marshal(map[string]string{"access_token": token})
	require.NoError(t, err)
	return string(body)
}

func TestLoginHandler_Success(t *testing.T) {
	t.Parallel()

	key := testutil.NewSigningKey(t, "kid-1")
	issuer := &stubIssuer{pair: &auth.TokenPair{
		AccessToken: "session-abc",
		ExpiresIn:   86400,
		TokenType:   "Bearer",
	}}
	handler := newLoginHandler(t, key, stubResolver{"sub-42": 42}, issuer)

	token := key.Sign(t, testutil.StandardClaims("sub-42"))
	rec := postLogin(t, handler, loginBody(t, token))
	require.Equal(t, http.StatusOK, rec.Code)

	var pair auth.TokenPair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	assert.Equal(t, "session-abc", pair.AccessToken)
	assert.Equal(t, 86400, pair.ExpiresIn)

	assert.Equal(t, int64(42), issuer.principal.UserID)
	assert.Equal(t, "sub-42", issuer.principal.Subject)
}

func TestLoginHandler_MissingToken(t *testing.T) {
	t.Parallel()

	key := testutil.NewSigningKey(t, "kid-1")
	handler := newLoginHandler(t, key, stubResolver{}, &stubIssuer{})

	rec := postLogin(t, handler, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginHandler_InvalidBody(t *testing.T) {
	t.Parallel()

	key := testutil.NewSigningKey(t, "kid-1")
	handler := newLoginHandler(t, key, stubResolver{}, &stubIssuer{})

	rec := postLogin(t, handler, `{broken`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginHandler_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	key := testutil.NewSigningKey(t, "kid-1")
	handler := newLoginHandler(t, key, stubResolver{}, &stubIssuer{})

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginHandler_ExpiredToken(t *testing.T) {
	t.Parallel()

	key := testutil.NewSigningKey(t, "kid-1")
	handler := newLoginHandler(t, key, stubResolver{"sub-42": 42}, &stubIssuer{})

	claims := testutil.StandardClaims("sub-42")
	claims["exp"] = time.Now().Add(-2 * time.Hour).Unix()

	rec := postLogin(t, handler, loginBody(t, key.Sign(t, claims)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginHandler_UnlinkedSubject(t *testing.T) {
	t.Parallel()

	key := testutil.NewSigningKey(t, "kid-1")
	handler := newLoginHandler(t, key, stubResolver{}, &stubIssuer{})

	token := key.Sign(t, testutil.StandardClaims("sub-ghost"))
	rec := postLogin(t, handler, loginBody(t, token))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginHandler_IssuerFailure(t *testing.T) {
	t.Parallel()

	key := testutil.NewSigningKey(t, "kid-1")
	issuer := &stubIssuer{err: rgerr.New(rgerr.CodeInternal, "auth: session signing key unavailable")}
	handler := newLoginHandler(t, key, stubResolver{"sub-42": 42}, issuer)

	token := key.Sign(t, testutil.StandardClaims("sub-42"))
	rec := postLogin(t, handler, loginBody(t, token))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPasswordIssuer_Exchange(t *testing.T) {
	t.Parallel()

	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("grant_type") != "password" || r.Form.Get("password") != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"token-abc","expires_in":300,"token_type":"Bearer"}`))
	}))
	t.Cleanup(idp.Close)

	issuer := auth.NewPasswordIssuer(auth.Config{
		JWKSURL:  "https://unused.example.com/certs",
		TokenURL: idp.URL,
		ClientID: "storl-app",
	})

	pair, err := issuer.Exchange(context.Background(), "alex", "pw")
	require.NoError(t, err)
	assert.Equal(t, "token-abc", pair.AccessToken)

	_, err = issuer.Exchange(context.Background(), "alex", "nope")
	testutil.RequireErrorCode(t, err, rgerr.CodeValidation)
}

func TestPasswordIssuer_NoEndpointConfigured(t *testing.T) {
	t.Parallel()

	issuer := auth.NewPasswordIssuer(auth.Config{JWKSURL: "https://unused.example.com/certs"})

	_, err := issuer.Exchange(context.Background(), "alex", "pw")
	testutil.RequireErrorCode(t, err, rgerr.CodeConfiguration)
}
