package controllers

import (
	"net/http"

	"github.com/storefronthq/storefront-backend/api/responses"
	"github.com/storefronthq/storefront-backend/pkg/db"
	pkgerrors "github.com/storefronthq/storefront-backend/pkg/errors"
	"github.com/storefronthq/storefront-backend/pkg/logger"
	pkgredis "github.com/storefronthq/storefront-backend/pkg/redis"
)

// LivenessHandler reports that the process is up.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteOK(w, map[string]string{"status": "ok"})
	}
}

// ReadinessHandler reports whether the datastore dependencies answer.
func ReadinessHandler(db db.Pinger, cache pkgredis.Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{}

		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unreachable"))
				return
			}
			checks["database"] = "ok"
		}
		if cache != nil {
			if err := cache.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unreachable"))
				return
			}
			checks["redis"] = "ok"
		}

		checks["status"] = "ready"
		responses.WriteOK(w, checks)
	}
}
