package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/storefronthq/storefront-backend/internal/catalog"
	"github.com/storefronthq/storefront-backend/internal/orders"
	"github.com/storefronthq/storefront-backend/pkg/config"
	"github.com/storefronthq/storefront-backend/pkg/db/models"
	"github.com/storefronthq/storefront-backend/pkg/enums"
	pkgerrors "github.com/storefronthq/storefront-backend/pkg/errors"
	"github.com/storefronthq/storefront-backend/pkg/pagination"
)

// defaultCategory is applied when a product is created without one.
const defaultCategory = "Uncategorized"

const recentActivityLimit = 5

type productStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
	CountProducts(ctx context.Context) (int64, error)
	CountLowStock(ctx context.Context, threshold int) (int64, error)
}

type orderStore interface {
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListAll(ctx context.Context, page pagination.Params) ([]models.Order, int64, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (int64, error)
	CountOrders(ctx context.Context) (int64, error)
	ListRecent(ctx context.Context, limit int) ([]models.Order, error)
	ListAllItems(ctx context.Context) ([]models.OrderItem, error)
}

// CreateProductInput holds the validated payload to create a listing.
type CreateProductInput struct {
	Name        string
	Category    string
	Price       decimal.Decimal
	Stock       int
	Image       string
	Rating      *float64
	Description *string
}

// UpdateProductInput holds optional mutation values for a listing.
type UpdateProductInput struct {
	Name        *string
	Category    *string
	Price       *decimal.Decimal
	Stock       *int
	Image       *string
	Rating      *float64
	Description *string
}

// Service exposes the back-office management surface.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*catalog.ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*catalog.ProductDTO, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ListOrders(ctx context.Context, page pagination.Params) (*OrderListResult, error)
	OrderDetail(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status string) (*OrderDTO, error)
	DashboardStats(ctx context.Context) (*DashboardStats, error)
}

type service struct {
	products productStore
	orders   orderStore
	cfg      config.DashboardConfig
}

// NewService constructs the admin service.
func NewService(products productStore, orderRepo orderStore, cfg config.DashboardConfig) (Service, error) {
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if cfg.LowStockThreshold <= 0 {
		cfg.LowStockThreshold = 10
	}
	return &service{products: products, orders: orderRepo, cfg: cfg}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*catalog.ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
	}

	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = defaultCategory
	}

	product := &models.Product{
		ID:          uuid.New(),
		Name:        name,
		Category:    category,
		Price:       input.Price,
		Stock:       input.Stock,
		Image:       input.Image,
		Rating:      input.Rating,
		Description: input.Description,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating product")
	}

	dto := catalog.ToProductDTO(product)
	return &dto, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*catalog.ProductDTO, error) {
	product, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name must not be empty")
		}
		product.Name = name
	}
	if input.Category != nil {
		product.Category = strings.TrimSpace(*input.Category)
		if product.Category == "" {
			product.Category = defaultCategory
		}
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
		}
		product.Price = *input.Price
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
		}
		product.Stock = *input.Stock
	}
	if input.Image != nil {
		product.Image = *input.Image
	}
	if input.Rating != nil {
		product.Rating = input.Rating
	}
	if input.Description != nil {
		product.Description = input.Description
	}

	if err := s.products.Update(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating product")
	}

	dto := catalog.ToProductDTO(product)
	return &dto, nil
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	affected, err := s.products.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting product")
	}
	if affected == 0 {
		return productNotFound(id)
	}
	return nil
}

func (s *service) ListOrders(ctx context.Context, page pagination.Params) (*OrderListResult, error) {
	page = page.Normalize()
	rows, total, err := s.orders.ListAll(ctx, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}

	dtos := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, toAdminOrderDTO(&rows[i]))
	}
	return &OrderListResult{
		Orders: dtos,
		Meta:   pagination.NewMeta(page, total),
	}, nil
}

func (s *service) OrderDetail(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.orders.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, orderNotFound(orderID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	dto := toAdminOrderDTO(order)
	return &dto, nil
}

// UpdateOrderStatus only accepts values from the fixed lifecycle enum.
func (s *service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status string) (*OrderDTO, error) {
	parsed, err := enums.ParseOrderStatus(status)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	affected, err := s.orders.UpdateStatus(ctx, orderID, parsed)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order status")
	}
	if affected == 0 {
		return nil, orderNotFound(orderID)
	}

	return s.OrderDetail(ctx, orderID)
}

func (s *service) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	totalProducts, err := s.products.CountProducts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting products")
	}
	lowStock, err := s.products.CountLowStock(ctx, s.cfg.LowStockThreshold)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting low stock")
	}
	totalOrders, err := s.orders.CountOrders(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting orders")
	}
	items, err := s.orders.ListAllItems(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order items")
	}
	recent, err := s.orders.ListRecent(ctx, recentActivityLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading recent orders")
	}

	activities := make([]ActivityDTO, 0, len(recent))
	for i := range recent {
		order := &recent[i]
		activity := ActivityDTO{
			OrderID:   order.ID,
			Status:    order.Status.String(),
			Total:     orders.ComputeTotal(order.Items),
			CreatedAt: order.CreatedAt,
		}
		if order.User != nil {
			activity.Username = order.User.Username
		}
		activities = append(activities, activity)
	}

	return &DashboardStats{
		TotalProducts:    totalProducts,
		LowStockProducts: lowStock,
		TotalOrders:      totalOrders,
		TotalRevenue:     orders.ComputeTotal(items),
		RecentOrders:     activities,
	}, nil
}

func (s *service) loadProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, productNotFound(id)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	return product, nil
}

func productNotFound(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
		WithDetails(map[string]any{"product_id": id})
}

func orderNotFound(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
		WithDetails(map[string]any{"order_id": id})
}
