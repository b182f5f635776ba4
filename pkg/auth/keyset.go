package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/RealmGate/realmgate-core/pkg/cache"
	rgerr "github.com/RealmGate/realmgate-core/pkg/errors"
)

// keySetCachePrefix namespaces key-set entries in a shared cache.
const keySetCachePrefix = "realmgate:jwks:"

// maxJWKSResponseSize limits the key-set response body (1 MB).
const maxJWKSResponseSize = 1 << 20

// KeySet holds the RSA public keys published by the identity provider,
// indexed by key ID.
type KeySet struct {
	keys map[string]*rsa.PublicKey
}

// Key returns the public key with the given ID.
func (s *KeySet) Key(kid string) (*rsa.PublicKey, bool) {
	key, ok := s.keys[kid]
	return key, ok
}

// Len reports the number of usable keys in the set.
func (s *KeySet) Len() int {
	return len(s.keys)
}

// All returns every key in the set, for verifying tokens that do not
// name a key ID in their header.
func (s *KeySet) All() []*rsa.PublicKey {
	keys := make([]*rsa.PublicKey, 0, len(s.keys))
	for _, key := range s.keys {
		keys = append(keys, key)
	}
	return keys
}

// KeySetCache fetches the identity provider's JWKS document and caches the
// raw response in an injected [cache.Cache]. The cached document survives
// process restarts when the cache is shared (e.g. Redis), keeping fetch
// traffic to the provider at one request per TTL window.
//
// KeySetCache is safe for concurrent use.
type KeySetCache struct {
	url    string
	ttl    time.Duration
	client HTTPClient
	store  cache.Cache
	tracer trace.Tracer
}

// NewKeySetCache creates a key-set cache for the configured JWKS URL.
// The cfg must have passed Validate.
func NewKeySetCache(cfg Config, store cache.Cache) *KeySetCache {
	cfg.applyDefaults()
	return &KeySetCache{
		url:    cfg.JWKSURL,
		ttl:    cfg.KeySetTTL,
		client: cfg.HTTPClient,
		store:  store,
		tracer: otel.Tracer(tracerName),
	}
}

// Keys returns the current key set, fetching from the provider only when
// the cached document is absent or expired.
//
// Returns a *[rgerr.Error] with code [rgerr.CodeKeyFetch] when the
// document cannot be fetched or parsed.
func (c *KeySetCache) Keys(ctx context.Context) (*KeySet, error) {
	ctx, span := c.tracer.Start(ctx, "auth.KeySetCache.Keys")
	defer span.End()

	raw, found, err := c.store.Get(ctx, c.cacheKey())
	if err == nil && found {
		if set, parseErr := parseKeySet(raw); parseErr == nil {
			span.SetAttributes(attribute.Bool("auth.jwks_cache_hit", true))
			return set, nil
		}
		// Cached document no longer parses; fall through to a fresh fetch.
	}
	span.SetAttributes(attribute.Bool("auth.jwks_cache_hit", false))

	set, err := c.refresh(ctx)
	if err != nil {
		finishSpan(span, err)
		return nil, err
	}
	return set, nil
}

// KeyByID returns the public key with the given ID. When the ID is absent
// from the cached document the cache is refreshed once before giving up,
// which covers provider-side key rotation inside the TTL window.
//
// An unknown key after refresh comes back as [rgerr.CodeSignature], since
// a token referencing an untrusted key cannot be verified.
func (c *KeySetCache) KeyByID(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	set, err := c.Keys(ctx)
	if err != nil {
		return nil, err
	}
	if key, ok := set.Key(kid); ok {
		return key, nil
	}

	set, err = c.refresh(ctx)
	if err != nil {
		return nil, err
	}
	if key, ok := set.Key(kid); ok {
		return key, nil
	}

	return nil, rgerr.Newf(rgerr.CodeSignature,
		"auth: signing key %q is not in the provider key set", kid)
}

// Invalidate drops the cached document so the next call fetches fresh.
func (c *KeySetCache) Invalidate(ctx context.Context) error {
	return c.store.Delete(ctx, c.cacheKey())
}

// refresh fetches the JWKS document, stores the raw response under the
// TTL, and returns the parsed set.
func (c *KeySetCache) refresh(ctx context.Context) (*KeySet, error) {
	raw, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}

	set, err := parseKeySet(raw)
	if err != nil {
		return nil, err
	}

	// A store failure only costs an extra fetch next time.
	_ = c.store.Set(ctx, c.cacheKey(), raw, c.ttl)

	return set, nil
}

func (c *KeySetCache) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, rgerr.Wrap(err, rgerr.CodeKeyFetch,
			"auth: failed to create key set request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, rgerr.Wrapf(err, rgerr.CodeKeyFetch,
			"auth: key set request to %s failed", c.url)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, rgerr.Newf(rgerr.CodeKeyFetch,
			"auth: key set endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSResponseSize))
	if err != nil {
		return nil, rgerr.Wrap(err, rgerr.CodeKeyFetch,
			"auth: failed to read key set response")
	}
	return body, nil
}

func (c *KeySetCache) cacheKey() string {
	return keySetCachePrefix + c.url
}

// jwksDocument is the JSON shape of a JWKS endpoint response. Only the
// fields needed for RSA key reconstruction are read.
type jwksDocument struct {
	Keys []jwkEntry `json:"keys"`
}

type jwkEntry struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// parseKeySet builds a KeySet from a raw JWKS document. Non-RSA entries
// and entries without a key ID are skipped; malformed RSA entries are
// skipped rather than failing the whole set.
func parseKeySet(raw []byte) (*KeySet, error) {
	var doc jwksDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, rgerr.Wrap(err, rgerr.CodeKeyFetch,
			"auth: failed to parse key set JSON")
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kid == "" || k.Kty != "RSA" {
			continue
		}
		pub, err := parseRSAPublicKey(k.N, k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}

	if len(keys) == 0 {
		return nil, rgerr.New(rgerr.CodeKeyFetch,
			"auth: key set contains no usable RSA keys")
	}

	return &KeySet{keys: keys}, nil
}

// parseRSAPublicKey constructs an *rsa.PublicKey from base64url-encoded
// modulus (n) and exponent (e) values.
func parseRSAPublicKey(nBase64, eBase64 string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nBase64)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to decode RSA modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(eBase64)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to decode RSA exponent: %w", err)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}
