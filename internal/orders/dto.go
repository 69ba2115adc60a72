package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefronthq/storefront-backend/pkg/db/models"
	"github.com/storefronthq/storefront-backend/pkg/enums"
	"github.com/storefronthq/storefront-backend/pkg/pagination"
)

// CartItem is one requested line of a new order.
type CartItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// LineItemDTO projects one stored line item. UnitPrice is the price
// captured at purchase time, not the product's current price.
type LineItemDTO struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// OrderDTO projects an order with its derived total.
type OrderDTO struct {
	ID        uuid.UUID         `json:"id"`
	Status    enums.OrderStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	Total     decimal.Decimal   `json:"total"`
	Items     []LineItemDTO     `json:"items"`
}

// OrderListResult is one page of orders.
type OrderListResult struct {
	Orders []OrderDTO      `json:"orders"`
	Meta   pagination.Meta `json:"meta"`
}

// ComputeTotal derives an order total from its line items. Totals are
// never stored; this is the single source of truth.
func ComputeTotal(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// ToOrderDTO maps an order row (items preloaded) to its projection.
func ToOrderDTO(order *models.Order) OrderDTO {
	items := make([]LineItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, LineItemDTO{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
			LineTotal: item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}
	return OrderDTO{
		ID:        order.ID,
		Status:    order.Status,
		CreatedAt: order.CreatedAt,
		Total:     ComputeTotal(order.Items),
		Items:     items,
	}
}
