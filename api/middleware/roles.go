package middleware

import (
	"net/http"
	"slices"

	"github.com/angelmondragon/sweetshop-backend/api/responses"
	"github.com/angelmondragon/sweetshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
)

// RequireRole must run after AdminAuth. With no roles listed nobody passes.
func RequireRole(logg *logger.Logger, roles ...enums.AdminRole) func(http.Handler) http.Handler {
	allowed := make(map[enums.AdminRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if _, ok := allowed[role]; ok {
				next.ServeHTTP(w, r)
				return
			}
			required := make([]string, 0, len(roles))
			for _, want := range roles {
				required = append(required, string(want))
			}
			slices.Sort(required)
			err := pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted").
				WithDetails(map[string]any{"role": string(role), "required": required})
			responses.WriteError(r.Context(), logg, w, err)
		})
	}
}
