package auth

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	rgerr "github.com/RealmGate/realmgate-core/pkg/errors"
)

// State is the outcome of a strategy's attempt at a request.
type State int

const (
	// StateSkipped means the strategy found no credentials it handles.
	// The gate moves on to the next strategy.
	StateSkipped State = iota

	// StateAuthenticated means the strategy verified the caller.
	StateAuthenticated

	// StateRejected means the strategy found credentials it handles but
	// they failed verification. The gate stops; later strategies do not
	// get a second try at bad credentials.
	StateRejected
)

// Decision is a strategy's verdict. Principal is set when State is
// StateAuthenticated; Err when State is StateRejected.
type Decision struct {
	State     State
	Principal *Principal
	Err       error
}

// Skip returns the decision strategies use when the request carries no
// credentials they understand.
func Skip() Decision {
	return Decision{State: StateSkipped}
}

// Accept returns an authenticated decision for the given principal.
func Accept(p *Principal) Decision {
	return Decision{State: StateAuthenticated, Principal: p}
}

// Reject returns a rejected decision carrying the classified error.
func Reject(err error) Decision {
	return Decision{State: StateRejected, Err: err}
}

// Credentials is the transport-independent credential material handed to
// strategies. HTTP middleware fills it from headers, gRPC interceptors
// from metadata.
type Credentials struct {
	// Authorization is the raw Authorization header value, empty when
	// the request carries none.
	Authorization string
}

// Strategy is one way of authenticating a request. Strategies that do not
// recognize the presented credentials return a skipped decision so the
// gate can try the next one.
type Strategy interface {
	// Name identifies the strategy in logs and spans.
	Name() string

	// Authenticate inspects the credentials and returns a verdict.
	Authenticate(ctx context.Context, creds Credentials) Decision
}

// Gate runs an ordered chain of strategies. The first strategy that does
// not skip settles the request; a fully skipped chain leaves the request
// anonymous and the caller decides what that means.
//
// Gate is safe for concurrent use.
type Gate struct {
	strategies []Strategy
	tracer     trace.Tracer
}

// NewGate creates a gate over the given strategies, tried in order.
func NewGate(strategies ...Strategy) *Gate {
	return &Gate{
		strategies: strategies,
		tracer:     otel.Tracer(tracerName),
	}
}

// Authenticate runs the chain and returns the settling decision.
func (g *Gate) Authenticate(ctx context.Context, creds Credentials) Decision {
	ctx, span := g.tracer.Start(ctx, "auth.Gate.Authenticate")
	defer span.End()

	for _, s := range g.strategies {
		decision := s.Authenticate(ctx, creds)
		if decision.State == StateSkipped {
			continue
		}

		span.SetAttributes(attribute.String("auth.strategy", s.Name()))
		if decision.State == StateRejected {
			finishSpan(span, decision.Err)
		}
		return decision
	}

	span.SetAttributes(attribute.Bool("auth.anonymous", true))
	return Skip()
}

// SurfaceError merges an upstream authentication error with this gate's
// decision. An error already recorded by an earlier layer wins; otherwise
// a rejection's error surfaces. Used where the gate sits inside a larger
// pipeline that may have failed authentication before it ran.
func SurfaceError(existing error, decision Decision) error {
	if existing != nil {
		return existing
	}
	if decision.State == StateRejected {
		return decision.Err
	}
	return nil
}

// SubjectResolver maps a verified token subject to a local account ID.
// Implementations return [rgerr.CodeAccountNotLinked] when no account is
// linked to the subject.
type SubjectResolver interface {
	ResolveSubject(ctx context.Context, subject string) (int64, error)
}

// BearerStrategy authenticates requests carrying "Authorization: Bearer"
// tokens. Requests without a bearer header are skipped; everything else
// either authenticates or rejects with a classified error.
type BearerStrategy struct {
	validator *Validator
	resolver  SubjectResolver
}

// NewBearerStrategy creates the strategy from a validator and a resolver.
func NewBearerStrategy(validator *Validator, resolver SubjectResolver) *BearerStrategy {
	return &BearerStrategy{validator: validator, resolver: resolver}
}

// Name implements [Strategy].
func (s *BearerStrategy) Name() string {
	return "bearer"
}

// Authenticate implements [Strategy]. The bearer prefix is matched case
// insensitively per RFC 6750; a header using a different scheme (Basic,
// Digest) is skipped rather than rejected.
func (s *BearerStrategy) Authenticate(ctx context.Context, creds Credentials) Decision {
	token, ok := extractBearer(creds.Authorization)
	if !ok {
		return Skip()
	}

	claims, err := s.validator.Validate(ctx, token)
	if err != nil {
		return Reject(err)
	}

	userID, err := s.resolver.ResolveSubject(ctx, claims.Subject)
	if err != nil {
		return Reject(err)
	}

	return Accept(&Principal{
		UserID:  userID,
		Subject: claims.Subject,
		Roles:   claims.Roles,
	})
}

// extractBearer pulls the token out of an Authorization header value.
// Returns ok=false when the header is empty or uses another scheme.
func extractBearer(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

// NotLinked builds the rejection returned when a verified subject has no
// local account. It maps to a 401 on the wire.
func NotLinked(subject string) error {
	return rgerr.Newf(rgerr.CodeAccountNotLinked,
		"auth: no account is linked to subject %q", subject)
}
