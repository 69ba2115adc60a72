package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/storefronthq/storefront-backend/pkg/db/models"
	"github.com/storefronthq/storefront-backend/pkg/enums"
	pkgerrors "github.com/storefronthq/storefront-backend/pkg/errors"
	"github.com/storefronthq/storefront-backend/pkg/pagination"
)

const totalCacheTTL = time.Hour

// Service exposes shopper-facing order operations.
type Service interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, items []CartItem) (*OrderDTO, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page pagination.Params) (*OrderListResult, error)
	GetForUser(ctx context.Context, orderID, userID uuid.UUID) (*OrderDTO, error)
	Total(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error)
}

type service struct {
	repo  Repository
	tx    txRunner
	cache totalsCache
}

// NewService constructs the order service. The cache is optional; when
// absent, totals are recomputed on every read.
func NewService(repo Repository, tx txRunner, cache totalsCache) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, cache: cache}, nil
}

// PlaceOrder creates the order and all its line items in one transaction.
// Each line decrements stock through a conditional update; any line that
// cannot be satisfied rolls the whole order back.
func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID, items []CartItem) (*OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	for _, item := range items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if item.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order := &models.Order{
			ID:     uuid.New(),
			UserID: userID,
			Status: enums.OrderStatusPending,
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order")
		}

		lines := make([]models.OrderItem, 0, len(items))
		for _, item := range items {
			ok, err := repo.DecrementStock(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrementing stock")
			}

			product, loadErr := repo.FindProduct(ctx, item.ProductID)
			if !ok {
				if errors.Is(loadErr, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
						WithDetails(map[string]any{"product_id": item.ProductID})
				}
				if loadErr != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, loadErr, "loading product")
				}
				return pkgerrors.New(pkgerrors.CodeInsufficientStock,
					fmt.Sprintf("insufficient stock for %s", product.Name)).
					WithDetails(map[string]any{
						"product_id":   product.ID,
						"product_name": product.Name,
						"available":    product.Stock,
						"requested":    item.Quantity,
					})
			}
			if loadErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, loadErr, "loading product")
			}

			lines = append(lines, models.OrderItem{
				ID:        uuid.New(),
				OrderID:   order.ID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Price:     product.Price,
			})
		}

		if err := repo.CreateOrderItems(ctx, lines); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order items")
		}

		order.Items = lines
		created = order
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "placing order")
	}

	s.invalidateTotal(ctx, created.ID)

	dto := ToOrderDTO(created)
	return &dto, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, page pagination.Params) (*OrderListResult, error) {
	page = page.Normalize()
	orders, total, err := s.repo.ListByUser(ctx, userID, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}

	dtos := make([]OrderDTO, 0, len(orders))
	for i := range orders {
		dtos = append(dtos, ToOrderDTO(&orders[i]))
	}
	return &OrderListResult{
		Orders: dtos,
		Meta:   pagination.NewMeta(page, total),
	}, nil
}

// GetForUser loads an order owned by userID. Orders belonging to someone
// else come back as not-found so the id space leaks nothing.
func (s *service) GetForUser(ctx context.Context, orderID, userID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, orderNotFound(orderID)
	}
	dto := ToOrderDTO(order)
	return &dto, nil
}

// Total returns the derived order total through the read-through cache.
// Cache failures fall back to recomputing from the line items.
func (s *service) Total(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	var key string
	if s.cache != nil {
		key = s.cache.OrderTotalKey(orderID.String())
		if raw, err := s.cache.Get(ctx, key); err == nil {
			if total, parseErr := decimal.NewFromString(raw); parseErr == nil {
				return total, nil
			}
		}
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return decimal.Zero, err
	}

	total := ComputeTotal(order.Items)
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, total.String(), totalCacheTTL)
	}
	return total, nil
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, orderNotFound(orderID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

func (s *service) invalidateTotal(ctx context.Context, orderID uuid.UUID) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, s.cache.OrderTotalKey(orderID.String()))
}

func orderNotFound(orderID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
		WithDetails(map[string]any{"order_id": orderID})
}
