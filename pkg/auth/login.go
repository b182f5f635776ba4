package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	rgerr "github.com/RealmGate/realmgate-core/pkg/errors"
)

// TokenPair is an issued token set, either from the provider's token
// endpoint or from a local session issuer.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// SessionIssuer mints a local session token for an authenticated
// principal. The application owns session format and lifetime; the
// login handler only hands over who was authenticated.
type SessionIssuer interface {
	IssueSession(ctx context.Context, principal Principal) (*TokenPair, error)
}

// PasswordIssuer exchanges end-user credentials for provider tokens
// using the OAuth resource owner password grant. It exists for
// first-party clients that collect credentials directly and need an
// access token to present to [LoginHandler].
type PasswordIssuer struct {
	tokenURL     string
	clientID     string
	clientSecret string
	client       HTTPClient
}

// NewPasswordIssuer creates an issuer for the configured token endpoint.
func NewPasswordIssuer(cfg Config) *PasswordIssuer {
	cfg.applyDefaults()
	return &PasswordIssuer{
		tokenURL:     cfg.TokenURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		client:       cfg.HTTPClient,
	}
}

// Exchange posts the password grant and returns the provider's tokens.
// Rejected credentials come back as [rgerr.CodeValidation]; an
// unreachable provider as [rgerr.CodeUnavailableDependency].
func (p *PasswordIssuer) Exchange(ctx context.Context, username, password string) (*TokenPair, error) {
	if p.tokenURL == "" {
		return nil, rgerr.New(rgerr.CodeConfiguration, "auth: token endpoint is not configured")
	}

	form := url.Values{
		"grant_type": {"password"},
		"client_id":  {p.clientID},
		"username":   {username},
		"password":   {password},
	}
	if p.clientSecret != "" {
		form.Set("client_secret", p.clientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, rgerr.Wrap(err, rgerr.CodeInternal, "auth: failed to create token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, rgerr.Wrap(err, rgerr.CodeUnavailableDependency,
			"auth: token endpoint request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSResponseSize))
	if err != nil {
		return nil, rgerr.Wrap(err, rgerr.CodeInternal, "auth: failed to read token response")
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var pair TokenPair
		if err := json.Unmarshal(body, &pair); err != nil {
			return nil, rgerr.Wrap(err, rgerr.CodeInternal, "auth: failed to parse token response")
		}
		return &pair, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, rgerr.New(rgerr.CodeValidation, "auth: credentials were rejected")
	default:
		return nil, rgerr.Newf(rgerr.CodeUnavailableDependency,
			"auth: token endpoint returned status %d", resp.StatusCode)
	}
}

// loginRequest is the JSON body accepted by the login handler.
type loginRequest struct {
	AccessToken string `json:"access_token"`
}

// LoginHandler returns an HTTP handler that trades a provider access
// token for a local session. POST a JSON body with access_token; the
// token is validated, its subject resolved to a local account, and the
// issuer mints the session pair for the response. Failures use the same
// error body and classification as the middleware: expired tokens and
// unlinked accounts are 401, other token problems 400, key set failures
// 500.
func LoginHandler(validator *Validator, resolver SubjectResolver, issuer SessionIssuer, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			WriteError(w, rgerr.New(rgerr.CodeValidation, "auth: login requires POST"))
			return
		}

		var req loginRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxTokenSize)).Decode(&req); err != nil {
			WriteError(w, rgerr.Wrap(err, rgerr.CodeValidation, "auth: invalid login body"))
			return
		}
		if req.AccessToken == "" {
			WriteError(w, rgerr.New(rgerr.CodeValidationRequired,
				"auth: access_token is required"))
			return
		}

		claims, err := validator.Validate(r.Context(), req.AccessToken)
		if err != nil {
			logger.WarnContext(r.Context(), "login token rejected", "error", err)
			WriteError(w, err)
			return
		}

		userID, err := resolver.ResolveSubject(r.Context(), claims.Subject)
		if err != nil {
			logger.WarnContext(r.Context(), "login subject not linked",
				"subject", claims.Subject,
				"error", err,
			)
			WriteError(w, err)
			return
		}

		principal := Principal{UserID: userID, Subject: claims.Subject, Roles: claims.Roles}
		pair, err := issuer.IssueSession(r.Context(), principal)
		if err != nil {
			logger.ErrorContext(r.Context(), "session issuance failed",
				"user_id", userID,
				"error", err,
			)
			WriteError(w, err)
			return
		}

		logger.InfoContext(r.Context(), "login succeeded", "user_id", userID)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(pair)
	})
}
