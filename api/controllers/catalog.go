package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/storefronthq/storefront-backend/api/middleware"
	"github.com/storefronthq/storefront-backend/api/responses"
	"github.com/storefronthq/storefront-backend/api/validators"
	"github.com/storefronthq/storefront-backend/internal/catalog"
	pkgerrors "github.com/storefronthq/storefront-backend/pkg/errors"
	"github.com/storefronthq/storefront-backend/pkg/logger"
	"github.com/storefronthq/storefront-backend/pkg/pagination"
)

// ListProductsHandler serves the public catalog browse endpoint.
func ListProductsHandler(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		page, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		perPage, err := validators.ParseQueryInt(r, "per_page", 0, 1, pagination.MaxPerPage)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		result, err := svc.List(r.Context(), catalog.ListInput{
			Category:  validators.SanitizeString(query.Get("category"), 100),
			Search:    validators.SanitizeString(query.Get("search"), 255),
			SortBy:    strings.TrimSpace(query.Get("sort_by")),
			SortOrder: strings.TrimSpace(query.Get("sort_order")),
			Page:      pagination.Params{Page: page, PerPage: perPage},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteOK(w, result)
	}
}

// ProductDetailHandler serves a single public product view.
func ProductDetailHandler(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		id, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteOK(w, product)
	}
}

// CategoriesHandler lists the distinct product categories.
func CategoriesHandler(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		categories, err := svc.Categories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteOK(w, map[string]any{"categories": categories})
	}
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").
			WithDetails(map[string]any{"field": name})
	}
	return id, nil
}

func requirePrincipal(r *http.Request) (middleware.Principal, error) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return middleware.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return principal, nil
}
