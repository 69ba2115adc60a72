package middleware

import (
	"net/http"

	"github.com/storefronthq/storefront-backend/api/responses"
	"github.com/storefronthq/storefront-backend/pkg/enums"
	pkgerrors "github.com/storefronthq/storefront-backend/pkg/errors"
	"github.com/storefronthq/storefront-backend/pkg/logger"
)

// RequirePrincipal rejects requests whose authenticated principal is not
// of the given kind. Every admin route runs behind
// RequirePrincipal(enums.PrincipalKindAdmin); there are no exceptions.
func RequirePrincipal(kind enums.PrincipalKind, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			if principal.Kind != kind {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "access denied"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
