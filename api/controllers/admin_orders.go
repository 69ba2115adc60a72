package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/storefronthq/storefront-backend/api/responses"
	"github.com/storefronthq/storefront-backend/api/validators"
	"github.com/storefronthq/storefront-backend/internal/admin"
	pkgerrors "github.com/storefronthq/storefront-backend/pkg/errors"
	"github.com/storefronthq/storefront-backend/pkg/logger"
)

type updateOrderStatusRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
	Status  string    `json:"status" validate:"required"`
}

// AdminListOrdersHandler pages through every order with the buyer resolved.
func AdminListOrdersHandler(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		page, err := parsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListOrders(r.Context(), page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteOK(w, result)
	}
}

// AdminOrderDetailHandler returns one order regardless of owner.
func AdminOrderDetailHandler(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		id, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.OrderDetail(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteOK(w, order)
	}
}

// AdminUpdateOrderStatusHandler moves an order along its lifecycle.
func AdminUpdateOrderStatusHandler(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		var req updateOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.UpdateOrderStatus(r.Context(), req.OrderID, req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteOK(w, order)
	}
}

// AdminDashboardStatsHandler recomputes the dashboard from live tables.
func AdminDashboardStatsHandler(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		stats, err := svc.DashboardStats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteOK(w, stats)
	}
}
