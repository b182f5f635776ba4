package auth

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	rgerr "github.com/RealmGate/realmgate-core/pkg/errors"
)

// allowedAlgorithms is the signing algorithm allow-list. The provider
// signs access tokens with RS256; everything else, including "none", is
// rejected before signature verification.
var allowedAlgorithms = []string{"RS256"}

// requiredClaims must be present in every accepted token.
var requiredClaims = []string{"sub", "realm_access"}

// Claims is the validated content of an accepted access token.
type Claims struct {
	// Subject is the provider-side account identifier (the sub claim).
	Subject string

	// Roles are the realm roles carried in realm_access.roles.
	Roles []string

	// Audience is the aud claim, normalized to a slice.
	Audience []string

	// ExpiresAt is the token expiry.
	ExpiresAt time.Time

	// Raw exposes the full claim set for callers that need provider
	// specific claims beyond the ones parsed above.
	Raw map[string]any
}

// HasRole reports whether the token carries the given realm role.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// Validator verifies RS256 access tokens against the provider key set.
// It is safe for concurrent use.
type Validator struct {
	keys            *KeySetCache
	leeway          time.Duration
	enforceAudience bool
	clientID        string
	tracer          trace.Tracer

	// now is swapped in tests.
	now func() time.Time
}

// NewValidator creates a Validator using keys from the given cache.
func NewValidator(cfg Config, keys *KeySetCache) *Validator {
	cfg.applyDefaults()
	return &Validator{
		keys:            keys,
		leeway:          cfg.ClockSkew,
		enforceAudience: cfg.EnforceAudience,
		clientID:        cfg.ClientID,
		tracer:          otel.Tracer(tracerName),
		now:             time.Now,
	}
}

// Validate verifies a compact token string and returns its claims.
//
// Checks run in order: token shape, signing algorithm, signature against
// the provider key set, required claims (sub, realm_access, exp), expiry,
// and optionally audience. Each failure carries a distinct code:
//
//   - [rgerr.CodeTokenFormat]: empty, oversized, or malformed token
//   - [rgerr.CodeUnsupportedAlgorithm]: signed with anything but RS256
//   - [rgerr.CodeSignature]: signature or signing key rejected
//   - [rgerr.CodeMissingClaim]: a required claim is absent
//   - [rgerr.CodeTokenExpired]: exp is in the past
//   - [rgerr.CodeAudienceMismatch]: aud does not contain the client ID
//   - [rgerr.CodeKeyFetch]: the provider key set could not be fetched
func (v *Validator) Validate(ctx context.Context, tokenStr string) (*Claims, error) {
	ctx, span := v.tracer.Start(ctx, "auth.Validator.Validate")
	defer span.End()

	claims, err := v.validate(ctx, tokenStr)
	if err != nil {
		finishSpan(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("auth.subject", claims.Subject))
	return claims, nil
}

func (v *Validator) validate(ctx context.Context, tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, rgerr.New(rgerr.CodeTokenFormat, "auth: token must not be empty")
	}
	if len(tokenStr) > maxTokenSize {
		return nil, rgerr.New(rgerr.CodeTokenFormat, "auth: token exceeds maximum size")
	}

	// Inspect the header before any verification so the algorithm check
	// fires even for tokens whose signature would never verify.
	unverified, _, err := jwt.NewParser().ParseUnverified(tokenStr, jwt.MapClaims{})
	if err != nil || unverified == nil {
		return nil, rgerr.New(rgerr.CodeTokenFormat, "auth: token is malformed")
	}

	alg, _ := unverified.Header["alg"].(string)
	if !slices.Contains(allowedAlgorithms, alg) {
		return nil, rgerr.Newf(rgerr.CodeUnsupportedAlgorithm,
			"auth: signing algorithm %q is not permitted", alg)
	}

	// Claim validation is done by hand below so that a missing claim and
	// an expired token report distinct codes regardless of check order
	// inside the library.
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		kid, ok := token.Header["kid"].(string)
		if ok && kid != "" {
			return v.keys.KeyByID(ctx, kid)
		}
		// No key ID in the header: try every key in the set.
		set, err := v.keys.Keys(ctx)
		if err != nil {
			return nil, err
		}
		candidates := jwt.VerificationKeySet{}
		for _, key := range set.All() {
			candidates.Keys = append(candidates.Keys, key)
		}
		return candidates, nil
	},
		jwt.WithValidMethods(allowedAlgorithms),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, classifyError(err)
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, rgerr.New(rgerr.CodeTokenFormat, "auth: unable to extract claims")
	}

	for _, name := range requiredClaims {
		if _, present := mc[name]; !present {
			return nil, rgerr.MissingClaim(name)
		}
	}

	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, rgerr.MissingClaim("exp")
	}
	if v.now().After(exp.Add(v.leeway)) {
		return nil, rgerr.New(rgerr.CodeTokenExpired, "auth: token has expired")
	}

	audience := audienceClaim(mc)
	if v.enforceAudience && !slices.Contains(audience, v.clientID) {
		return nil, rgerr.Newf(rgerr.CodeAudienceMismatch,
			"auth: token audience does not include client %q", v.clientID)
	}

	sub, _ := mc["sub"].(string)
	if sub == "" {
		return nil, rgerr.MissingClaim("sub")
	}

	return &Claims{
		Subject:   sub,
		Roles:     realmRoles(mc),
		Audience:  audience,
		ExpiresAt: exp.Time,
		Raw:       map[string]any(mc),
	}, nil
}

// realmRoles extracts realm_access.roles, tolerating absent or oddly
// typed entries.
func realmRoles(mc jwt.MapClaims) []string {
	access, ok := mc["realm_access"].(map[string]any)
	if !ok {
		return nil
	}
	rawRoles, ok := access["roles"].([]any)
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(rawRoles))
	for _, r := range rawRoles {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}

// audienceClaim normalizes the aud claim, which may be a string or a list.
func audienceClaim(mc jwt.MapClaims) []string {
	switch aud := mc["aud"].(type) {
	case string:
		return []string{aud}
	case []any:
		out := make([]string, 0, len(aud))
		for _, a := range aud {
			if s, ok := a.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// classifyError converts token library errors to *[rgerr.Error] values.
// Errors that already carry a code pass through unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var rgError *rgerr.Error
	if errors.As(err, &rgError) {
		return rgError
	}

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return rgerr.Wrap(err, rgerr.CodeTokenExpired, "auth: token has expired")
	case errors.Is(err, jwt.ErrTokenMalformed):
		return rgerr.Wrap(err, rgerr.CodeTokenFormat, "auth: token is malformed")
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return rgerr.Wrap(err, rgerr.CodeSignature, "auth: token signature is invalid")
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return rgerr.Wrap(err, rgerr.CodeSignature, "auth: token is unverifiable")
	case strings.Contains(err.Error(), "signing method"):
		return rgerr.Wrap(err, rgerr.CodeUnsupportedAlgorithm, "auth: signing algorithm is not permitted")
	default:
		return rgerr.Wrap(err, rgerr.CodeTokenFormat, "auth: token validation failed")
	}
}
