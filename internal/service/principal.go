package service

import (
	"context"

	"github.com/google/uuid"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	AccountID uuid.UUID
	Admin     bool
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok || p.AccountID == uuid.Nil {
		return Principal{}, false
	}
	return p, true
}

func requireAdmin(ctx context.Context) error {
	p, ok := PrincipalFrom(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	if !p.Admin {
		return ErrUnauthorized
	}
	return nil
}
