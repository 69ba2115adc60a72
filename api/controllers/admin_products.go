package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/storefronthq/storefront-backend/api/responses"
	"github.com/storefronthq/storefront-backend/api/validators"
	"github.com/storefronthq/storefront-backend/internal/admin"
	"github.com/storefronthq/storefront-backend/internal/catalog"
	"github.com/storefronthq/storefront-backend/internal/uploads"
	"github.com/storefronthq/storefront-backend/pkg/config"
	pkgerrors "github.com/storefronthq/storefront-backend/pkg/errors"
	"github.com/storefronthq/storefront-backend/pkg/logger"
	"github.com/storefronthq/storefront-backend/pkg/pagination"
)

type updateProductRequest struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=255"`
	Category    *string          `json:"category" validate:"omitempty,max=100"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock" validate:"omitempty,min=0"`
	Image       *string          `json:"image"`
	Rating      *float64         `json:"rating" validate:"omitempty,min=0,max=5"`
	Description *string          `json:"description"`
}

// AdminListProductsHandler reuses the catalog browse surface for the
// back office, same filters and sorting.
func AdminListProductsHandler(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return ListProductsHandler(svc, logg)
}

// AdminCreateProductHandler accepts a multipart form so the listing and
// its image arrive in one request.
func AdminCreateProductHandler(svc admin.Service, imageStore *uploads.Service, cfg config.UploadsConfig, logg *logger.Logger) http.HandlerFunc {
	maxMemory := int64(cfg.MaxUploadMB) << 20
	if maxMemory <= 0 {
		maxMemory = 10 << 20
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		if err := r.ParseMultipartForm(maxMemory); err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}

		input := admin.CreateProductInput{
			Name:     validators.SanitizeString(r.FormValue("name"), 255),
			Category: validators.SanitizeString(r.FormValue("category"), 100),
		}

		price, err := parseFormDecimal(r, "price", true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.Price = price

		stock, err := parseFormInt(r, "stock")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.Stock = stock

		if raw := strings.TrimSpace(r.FormValue("rating")); raw != "" {
			rating, parseErr := strconv.ParseFloat(raw, 64)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "rating must be numeric"))
				return
			}
			input.Rating = &rating
		}
		if raw := strings.TrimSpace(r.FormValue("description")); raw != "" {
			input.Description = &raw
		}

		file, header, err := r.FormFile("image")
		switch {
		case err == nil:
			defer file.Close()
			if imageStore == nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeInternal, "image store unavailable"))
				return
			}
			stored, saveErr := imageStore.Save(r.Context(), header.Filename, file)
			if saveErr != nil {
				responses.WriteError(r.Context(), logg, w, saveErr)
				return
			}
			input.Image = stored
		case errors.Is(err, http.ErrMissingFile):
			// Image is optional; listings can go live without one.
		default:
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading image upload"))
			return
		}

		product, err := svc.CreateProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteJSON(w, http.StatusCreated, product)
	}
}

// AdminUpdateProductHandler applies a partial JSON update to a listing.
func AdminUpdateProductHandler(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		id, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), id, admin.UpdateProductInput{
			Name:        req.Name,
			Category:    req.Category,
			Price:       req.Price,
			Stock:       req.Stock,
			Image:       req.Image,
			Rating:      req.Rating,
			Description: req.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteOK(w, product)
	}
}

// AdminDeleteProductHandler removes a listing.
func AdminDeleteProductHandler(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		id, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteOK(w, map[string]string{"message": "product deleted"})
	}
}

func parseFormDecimal(r *http.Request, field string, required bool) (decimal.Decimal, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		if required {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, field+" is required")
		}
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, field+" must be numeric")
	}
	return value, nil
}

func parseFormInt(r *http.Request, field string) (int, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, field+" must be an integer")
	}
	return value, nil
}

func parsePageParams(r *http.Request) (pagination.Params, error) {
	page, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
	if err != nil {
		return pagination.Params{}, err
	}
	perPage, err := validators.ParseQueryInt(r, "per_page", 0, 1, pagination.MaxPerPage)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Page: page, PerPage: perPage}, nil
}
