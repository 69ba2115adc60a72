package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/storefronthq/storefront-backend/pkg/enums"
)

// Principal is the authenticated caller, decoded exactly once at the
// boundary. Handlers never touch the raw token.
type Principal struct {
	Kind enums.PrincipalKind
	ID   uuid.UUID
}

type contextKey string

const ctxPrincipal contextKey = "principal"

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	if p, ok := ctx.Value(ctxPrincipal).(Principal); ok {
		return p, true
	}
	return Principal{}, false
}

// WithPrincipal injects the principal into the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPrincipal, p)
}
