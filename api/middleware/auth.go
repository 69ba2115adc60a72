package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/storefronthq/storefront-backend/api/responses"
	pkgauth "github.com/storefronthq/storefront-backend/pkg/auth"
	"github.com/storefronthq/storefront-backend/pkg/config"
	"github.com/storefronthq/storefront-backend/pkg/enums"
	pkgerrors "github.com/storefronthq/storefront-backend/pkg/errors"
	"github.com/storefronthq/storefront-backend/pkg/logger"
)

type principalResolver interface {
	ResolvePrincipal(ctx context.Context, kind enums.PrincipalKind, id uuid.UUID) error
}

// Auth validates a bearer token, confirms the principal still exists in
// the table named by the claim kind, and seeds the request context.
func Auth(cfg config.JWTConfig, resolver principalResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			if !claims.Kind.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token"))
				return
			}

			id, err := claims.PrincipalID()
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token subject"))
				return
			}

			if resolver != nil {
				if err := resolver.ResolvePrincipal(r.Context(), claims.Kind, id); err != nil {
					responses.WriteError(r.Context(), logg, w, err)
					return
				}
			}

			ctx := WithPrincipal(r.Context(), Principal{Kind: claims.Kind, ID: id})
			if logg != nil {
				ctx = logg.WithPrincipal(ctx, claims.Kind.String(), id.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
