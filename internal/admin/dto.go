package admin

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefronthq/storefront-backend/internal/orders"
	"github.com/storefronthq/storefront-backend/pkg/db/models"
	"github.com/storefronthq/storefront-backend/pkg/pagination"
)

// CustomerDTO is the resolved buyer shown on admin order views.
type CustomerDTO struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

// OrderDTO is the admin projection of an order: the shopper projection
// plus the resolved customer.
type OrderDTO struct {
	orders.OrderDTO
	Customer *CustomerDTO `json:"customer,omitempty"`
}

// OrderListResult is one admin page of orders.
type OrderListResult struct {
	Orders []OrderDTO      `json:"orders"`
	Meta   pagination.Meta `json:"meta"`
}

// ActivityDTO is one recent-order line on the dashboard.
type ActivityDTO struct {
	OrderID   uuid.UUID       `json:"order_id"`
	Username  string          `json:"username"`
	Status    string          `json:"status"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

// DashboardStats is recomputed from the live tables on every request.
type DashboardStats struct {
	TotalProducts    int64           `json:"total_products"`
	LowStockProducts int64           `json:"low_stock_products"`
	TotalOrders      int64           `json:"total_orders"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	RecentOrders     []ActivityDTO   `json:"recent_orders"`
}

func toAdminOrderDTO(order *models.Order) OrderDTO {
	dto := OrderDTO{OrderDTO: orders.ToOrderDTO(order)}
	if order.User != nil {
		dto.Customer = &CustomerDTO{
			ID:       order.User.ID,
			Username: order.User.Username,
			Email:    order.User.Email,
		}
	}
	return dto
}
