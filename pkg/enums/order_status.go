package enums

import "fmt"

// OrderStatus is the fixed lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

var orderStatuses = map[OrderStatus]struct{}{
	OrderStatusPending:    {},
	OrderStatusProcessing: {},
	OrderStatusShipped:    {},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

func (s OrderStatus) String() string {
	return string(s)
}

func (s OrderStatus) IsValid() bool {
	_, ok := orderStatuses[s]
	return ok
}

// ParseOrderStatus validates a caller-supplied status value.
func ParseOrderStatus(value string) (OrderStatus, error) {
	status := OrderStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid order status %q", value)
	}
	return status, nil
}
