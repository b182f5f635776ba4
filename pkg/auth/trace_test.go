package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/RealmGate/realmgate-core/internal/testutil"
	"github.com/RealmGate/realmgate-core/pkg/auth"
	"github.com/RealmGate/realmgate-core/pkg/cache"
)

// withSpanRecorder installs a recording tracer provider for the duration
// of the test. Not parallel: the provider is process-global.
func withSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	return recorder
}

func spanNames(recorder *tracetest.SpanRecorder) []string {
	spans := recorder.Ended()
	names := make([]string, 0, len(spans))
	for _, s := range spans {
		names = append(names, s.Name())
	}
	return names
}

func TestGate_EmitsSpans(t *testing.T) {
	recorder := withSpanRecorder(t)

	key := testutil.NewSigningKey(t, "kid-1")
	srv, _ := testutil.JWKSServer(t, key)
	cfg := auth.Config{JWKSURL: srv.URL}
	validator := auth.NewValidator(cfg, auth.NewKeySetCache(cfg, cache.NewMemory()))
	gate := auth.NewGate(auth.NewBearerStrategy(validator, stubResolver{"sub-42": 42}))

	decision := gate.Authenticate(context.Background(), auth.Credentials{
		Authorization: "Bearer " + key.Sign(t, testutil.StandardClaims("sub-42")),
	})
	require.Equal(t, auth.StateAuthenticated, decision.State)

	names := spanNames(recorder)
	assert.Contains(t, names, "auth.Gate.Authenticate")
	assert.Contains(t, names, "auth.Validator.Validate")
	assert.Contains(t, names, "auth.KeySetCache.Keys")
}
