package requestctx

import "context"

// Principal identifies the authenticated caller of a request.
type Principal struct {
	ParticipantID string
	SessionID     string
	GM            bool
}

// principalContextKey is the context key for the authenticated principal.
type principalContextKey struct{}

// WithPrincipal stores the authenticated caller in context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the caller stored in context and whether one
// was present.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
