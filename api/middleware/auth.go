package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/sweetshop-backend/api/responses"
	pkgauth "github.com/angelmondragon/sweetshop-backend/pkg/auth"
	"github.com/angelmondragon/sweetshop-backend/pkg/auth/session"
	"github.com/angelmondragon/sweetshop-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
)

const bearerScheme = "bearer"

// BearerToken returns the credential from "Authorization: Bearer <token>".
// Any other scheme yields an empty string.
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return ""
	}
	return strings.TrimSpace(token)
}

// AdminAuth admits requests carrying a live admin access token. The token's
// jti must still map to a refresh session so logout takes effect immediately.
func AdminAuth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := authenticate(r.Context(), cfg, verifier, BearerToken(r))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithPrincipal(r.Context(), p)
			if logg != nil {
				ctx = logg.WithAdminID(ctx, p.AdminID)
				ctx = logg.WithField(ctx, "admin_role", p.Role.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(ctx context.Context, cfg config.JWTConfig, verifier session.AccessSessionChecker, token string) (Principal, error) {
	if token == "" {
		return Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgauth.ParseAccessToken(cfg, token)
	if err != nil {
		return Principal{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	p := Principal{AdminID: claims.AdminID.String(), Role: claims.Role, AccessID: claims.ID}
	if p.AccessID == "" {
		return Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if verifier == nil {
		return p, nil
	}

	live, err := verifier.HasSession(ctx, p.AccessID)
	switch {
	case err != nil:
		return Principal{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
	case !live:
		return Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
	}
	return p, nil
}
