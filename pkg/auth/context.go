package auth

import "context"

// Principal is the authenticated caller attached to a request context
// after the gate accepts it.
type Principal struct {
	// UserID is the local account identifier the token subject maps to.
	UserID int64

	// Subject is the provider-side account identifier from the token.
	Subject string

	// Roles are the realm roles carried by the token.
	Roles []string
}

type principalKey struct{}

// WithPrincipal returns a context carrying the principal.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal attached to the context, if any.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok
}
