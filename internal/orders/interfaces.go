package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storefronthq/storefront-backend/pkg/db/models"
	"github.com/storefronthq/storefront-backend/pkg/enums"
	"github.com/storefronthq/storefront-backend/pkg/pagination"
)

// Repository defines order persistence. WithTx rebinds the repository to
// an open transaction so PlaceOrder can run every write atomically.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error

	// DecrementStock is the single compare-and-swap guarding stock. It
	// returns false when no row matched, either because the product does
	// not exist or because stock was below qty.
	DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error)
	FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)

	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.Order, int64, error)
	ListAll(ctx context.Context, page pagination.Params) ([]models.Order, int64, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (int64, error)

	CountOrders(ctx context.Context) (int64, error)
	ListRecent(ctx context.Context, limit int) ([]models.Order, error)
	ListAllItems(ctx context.Context) ([]models.OrderItem, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type totalsCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	OrderTotalKey(orderID string) string
}
