package middleware

import (
	"context"

	"github.com/angelmondragon/sweetshop-backend/pkg/enums"
)

type principalKey struct{}

type shopperKey struct{}

// Principal is the authenticated admin behind a request.
type Principal struct {
	AdminID  string
	Role     enums.AdminRole
	AccessID string
}

// WithPrincipal stores the admin for downstream handlers.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the admin set by AdminAuth, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

func AdminIDFromContext(ctx context.Context) string {
	p, _ := PrincipalFromContext(ctx)
	return p.AdminID
}

func RoleFromContext(ctx context.Context) enums.AdminRole {
	p, _ := PrincipalFromContext(ctx)
	return p.Role
}

// SessionIDFromContext returns the shopper session resolved by ShopperSession.
func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(shopperKey{}).(string)
	return id
}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, shopperKey{}, sessionID)
}
