package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/storefronthq/storefront-backend/api/responses"
	"github.com/storefronthq/storefront-backend/internal/uploads"
	pkgerrors "github.com/storefronthq/storefront-backend/pkg/errors"
	"github.com/storefronthq/storefront-backend/pkg/logger"
)

// ServeUploadHandler streams a stored product image. The filename is
// validated against the uploads directory before anything is read.
func ServeUploadHandler(svc *uploads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "uploads service unavailable"))
			return
		}

		path, err := svc.Resolve(chi.URLParam(r, "filename"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		http.ServeFile(w, r, path)
	}
}
