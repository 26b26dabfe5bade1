package auth

import (
	"context"

	"microshop/internal/domain"
)

type ctxKey int

const (
	principalKey ctxKey = iota
	tokenKey
)

// WithPrincipal returns a child context carrying the caller and the raw token
// it presented. The values die with the request context.
func WithPrincipal(ctx context.Context, p domain.Principal, token string) context.Context {
	ctx = context.WithValue(ctx, principalKey, p)
	return context.WithValue(ctx, tokenKey, token)
}

func PrincipalFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey).(domain.Principal)
	return p, ok
}

// TokenFrom returns the raw token of the authenticated caller, or "".
func TokenFrom(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey).(string)
	return t
}
