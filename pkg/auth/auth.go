// Package auth implements bearer-token authentication against an OpenID
// Connect identity provider.
//
// Incoming requests carry an RS256-signed access token in the
// Authorization header. The [Validator] verifies the signature against the
// provider's published key set ([KeySetCache]), checks the claims this
// service requires, and hands the verified subject to a resolver that maps
// it to a local account. The [Gate] orchestrates this as a chain of
// [Strategy] implementations so transports (HTTP middleware, gRPC
// interceptors) share one authentication path.
//
// # Wiring
//
//	cfg := auth.Config{JWKSURL: "https://idp.example.com/realms/main/protocol/openid-connect/certs"}
//	keys := auth.NewKeySetCache(cfg, cache.NewMemory())
//	validator := auth.NewValidator(cfg, keys)
//	gate := auth.NewGate(auth.NewBearerStrategy(validator, resolver))
//	handler := auth.Middleware(gate, cfg, logger)(mux)
//
// All failures are *[errors.Error] values whose codes determine wire
// status: expired tokens and unlinked accounts reject with 401, other
// claim problems with 400, key-set or store failures with 500.
package auth

import (
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the OpenTelemetry instrumentation scope for auth spans.
const tracerName = "github.com/RealmGate/realmgate-core/pkg/auth"

// finishSpan records a non-nil error on the span and marks it failed.
func finishSpan(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
