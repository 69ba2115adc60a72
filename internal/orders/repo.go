package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storefronthq/storefront-backend/pkg/db/models"
	"github.com/storefronthq/storefront-backend/pkg/enums"
	"github.com/storefronthq/storefront-backend/pkg/pagination"
)

type repo struct {
	db *gorm.DB
}

// NewRepository builds an order repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repo{db: db}
}

func (r *repo) WithTx(tx *gorm.DB) Repository {
	return &repo{db: tx}
}

func (r *repo) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repo) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

// DecrementStock runs the conditional update in one statement. The
// stock >= qty predicate is what makes concurrent placements safe; there
// is deliberately no separate read-then-write step.
func (r *repo) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repo) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("User").
		First(&order, "id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repo) ListByUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.Order, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Callers normalize the params; page arrives ready to use.
	var orders []models.Order
	if err := base.
		Preload("Items").
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.PerPage).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *repo) ListAll(ctx context.Context, page pagination.Params) ([]models.Order, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Order{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	if err := base.
		Preload("Items").
		Preload("User").
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.PerPage).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *repo) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", status)
	return res.RowsAffected, res.Error
}

func (r *repo) CountOrders(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Count(&count).Error
	return count, err
}

func (r *repo) ListRecent(ctx context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListAllItems loads every line item for dashboard revenue recomputes.
func (r *repo) ListAllItems(ctx context.Context) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := r.db.WithContext(ctx).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
