package auth

import (
	"net/http"
	"time"

	rgerr "github.com/RealmGate/realmgate-core/pkg/errors"
)

// Defaults for key-set caching and upstream fetches.
const (
	// DefaultKeySetTTL is how long a fetched key set is reused before
	// being refreshed from the identity provider.
	DefaultKeySetTTL = 24 * time.Hour

	// DefaultHTTPTimeout bounds a single key-set fetch.
	DefaultHTTPTimeout = 10 * time.Second

	// DefaultClockSkew is the accepted clock difference between this
	// service and the token issuer.
	DefaultClockSkew = 30 * time.Second
)

// maxTokenSize is the maximum accepted size for a compact token string.
// Larger tokens are rejected before any parsing happens.
const maxTokenSize = 8192

// HTTPClient abstracts the client used for key-set fetches and token
// exchanges. The standard [http.Client] satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the settings for the bearer authentication components.
type Config struct {
	// JWKSURL is the identity provider's key-set endpoint, e.g.
	// "https://idp.example.com/realms/main/protocol/openid-connect/certs".
	JWKSURL string `env:"JWKS_URL" yaml:"jwks_url" required:"true"`

	// ClientID is this service's OAuth client identifier. Used as the
	// expected audience when EnforceAudience is set.
	ClientID string `env:"CLIENT_ID" yaml:"client_id"`

	// EnforceAudience requires the token's aud claim to contain ClientID.
	// Off by default; identity providers differ on whether access tokens
	// carry the client in aud.
	EnforceAudience bool `env:"ENFORCE_AUDIENCE" yaml:"enforce_audience"`

	// TokenURL is the identity provider's token endpoint, used by the
	// login handler for the password credentials exchange. Optional.
	TokenURL string `env:"TOKEN_URL" yaml:"token_url"`

	// ClientSecret accompanies ClientID on token exchanges. Optional.
	ClientSecret string `env:"CLIENT_SECRET" yaml:"-"`

	// KeySetTTL is how long fetched signing keys are cached.
	KeySetTTL time.Duration `env:"KEYSET_TTL" envDefault:"24h" yaml:"keyset_ttl"`

	// HTTPTimeout bounds requests to the identity provider.
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s" yaml:"http_timeout"`

	// ClockSkew is the leeway applied to time-based claim checks.
	ClockSkew time.Duration `env:"CLOCK_SKEW" envDefault:"30s" yaml:"clock_skew"`

	// RoutePrefix restricts the HTTP middleware to paths under this
	// prefix. Empty means all paths are guarded.
	RoutePrefix string `env:"ROUTE_PREFIX" yaml:"route_prefix"`

	// HTTPClient overrides the client used for identity provider
	// requests. If nil, a client with HTTPTimeout is used.
	HTTPClient HTTPClient `yaml:"-"`
}

// Validate checks the configuration, returning a *[rgerr.Error] with code
// [rgerr.CodeValidation] on the first invalid field.
func (c *Config) Validate() error {
	if c.JWKSURL == "" {
		return rgerr.New(rgerr.CodeValidationRequired, "auth: JWKS URL must not be empty")
	}
	if c.EnforceAudience && c.ClientID == "" {
		return rgerr.New(rgerr.CodeValidation, "auth: client ID is required when audience enforcement is on")
	}
	if c.KeySetTTL < 0 {
		return rgerr.New(rgerr.CodeValidation, "auth: key set TTL must be non-negative")
	}
	if c.HTTPTimeout < 0 {
		return rgerr.New(rgerr.CodeValidation, "auth: HTTP timeout must be non-negative")
	}
	if c.ClockSkew < 0 {
		return rgerr.New(rgerr.CodeValidation, "auth: clock skew must be non-negative")
	}
	return nil
}

// applyDefaults fills zero-valued durations and the HTTP client.
func (c *Config) applyDefaults() {
	if c.KeySetTTL == 0 {
		c.KeySetTTL = DefaultKeySetTTL
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.ClockSkew == 0 {
		c.ClockSkew = DefaultClockSkew
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.HTTPTimeout}
	}
}
