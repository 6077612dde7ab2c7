package shared

import "context"

// PrincipalRef identifies the authenticated actor attached to a request.
// The access guard stores it in the request context after token
// verification; it never outlives the request.
type PrincipalRef struct {
	ID   int64
	Role Role
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal reference in context.
func ContextWithPrincipal(ctx context.Context, p PrincipalRef) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal reference from context.
func PrincipalFromContext(ctx context.Context) (PrincipalRef, bool) {
	p, ok := ctx.Value(principalContextKey{}).(PrincipalRef)
	return p, ok
}
