package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/storefronthq/storefront-backend/api/responses"
	"github.com/storefronthq/storefront-backend/api/validators"
	"github.com/storefronthq/storefront-backend/internal/orders"
	pkgerrors "github.com/storefronthq/storefront-backend/pkg/errors"
	"github.com/storefronthq/storefront-backend/pkg/logger"
)

type placeOrderItem struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type placeOrderRequest struct {
	Items []placeOrderItem `json:"items" validate:"required,min=1,dive"`
}

// PlaceOrderHandler creates an order from the shopper's cart.
func PlaceOrderHandler(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req placeOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]orders.CartItem, 0, len(req.Items))
		for _, item := range req.Items {
			items = append(items, orders.CartItem{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			})
		}

		order, err := svc.PlaceOrder(r.Context(), principal.ID, items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteJSON(w, http.StatusCreated, order)
	}
}
