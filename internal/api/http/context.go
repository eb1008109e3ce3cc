package http

import (
	"context"

	"chitfund-backend/internal/security"
)

type contextKey int

const claimsKey contextKey = iota

func withClaims(ctx context.Context, claims *security.OperatorClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the operator the auth middleware admitted, or nil
// on public routes.
func ClaimsFromContext(ctx context.Context) *security.OperatorClaims {
	claims, _ := ctx.Value(claimsKey).(*security.OperatorClaims)
	return claims
}
