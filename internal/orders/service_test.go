package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/storefronthq/storefront-backend/pkg/db/models"
	"github.com/storefronthq/storefront-backend/pkg/enums"
	pkgerrors "github.com/storefronthq/storefront-backend/pkg/errors"
	"github.com/storefronthq/storefront-backend/pkg/pagination"
)

func newDBService(t *testing.T, conn *gorm.DB, cache totalsCache) Service {
	t.Helper()
	svc, err := NewService(NewRepository(conn), gormTxRunner{conn: conn}, cache)
	require.NoError(t, err)
	return svc
}

func TestPlaceOrderHappyPath(t *testing.T) {
	conn := openTestDB(t)
	svc := newDBService(t, conn, nil)
	ctx := context.Background()

	user := mustCreateUser(t, conn)
	mug := mustCreateProduct(t, conn, "Mug", "9.99", 5)
	kettle := mustCreateProduct(t, conn, "Kettle", "39.50", 2)

	order, err := svc.PlaceOrder(ctx, user.ID, []CartItem{
		{ProductID: mug.ID, Quantity: 2},
		{ProductID: kettle.ID, Quantity: 1},
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPending, order.Status)
	require.Len(t, order.Items, 2)
	require.True(t, order.Total.Equal(decimal.RequireFromString("59.48")))

	require.Equal(t, 3, productStock(t, conn, mug.ID))
	require.Equal(t, 1, productStock(t, conn, kettle.ID))
}

func TestPlaceOrderInsufficientStockRollsBack(t *testing.T) {
	conn := openTestDB(t)
	svc := newDBService(t, conn, nil)
	ctx := context.Background()

	user := mustCreateUser(t, conn)
	mug := mustCreateProduct(t, conn, "Mug", "9.99", 5)
	kettle := mustCreateProduct(t, conn, "Kettle", "39.50", 2)

	_, err := svc.PlaceOrder(ctx, user.ID, []CartItem{
		{ProductID: mug.ID, Quantity: 1},
		{ProductID: kettle.ID, Quantity: 5},
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeInsufficientStock, pkgerrors.As(err).Code())

	// The first line's decrement must have been rolled back with the rest.
	require.Equal(t, 5, productStock(t, conn, mug.ID))
	require.Equal(t, 2, productStock(t, conn, kettle.ID))

	var orderCount, itemCount int64
	require.NoError(t, conn.Model(&models.Order{}).Count(&orderCount).Error)
	require.NoError(t, conn.Model(&models.OrderItem{}).Count(&itemCount).Error)
	require.Zero(t, orderCount)
	require.Zero(t, itemCount)
}

func TestPlaceOrderUnknownProductRollsBack(t *testing.T) {
	conn := openTestDB(t)
	svc := newDBService(t, conn, nil)
	ctx := context.Background()

	user := mustCreateUser(t, conn)
	mug := mustCreateProduct(t, conn, "Mug", "9.99", 5)

	_, err := svc.PlaceOrder(ctx, user.ID, []CartItem{
		{ProductID: mug.ID, Quantity: 1},
		{ProductID: uuid.New(), Quantity: 1},
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
	require.Equal(t, 5, productStock(t, conn, mug.ID))

	var orderCount int64
	require.NoError(t, conn.Model(&models.Order{}).Count(&orderCount).Error)
	require.Zero(t, orderCount)
}

func TestPlaceOrderValidation(t *testing.T) {
	conn := openTestDB(t)
	svc := newDBService(t, conn, nil)
	ctx := context.Background()

	user := mustCreateUser(t, conn)
	mug := mustCreateProduct(t, conn, "Mug", "9.99", 5)

	cases := []struct {
		name   string
		userID uuid.UUID
		items  []CartItem
	}{
		{"empty cart", user.ID, nil},
		{"zero quantity", user.ID, []CartItem{{ProductID: mug.ID, Quantity: 0}}},
		{"negative quantity", user.ID, []CartItem{{ProductID: mug.ID, Quantity: -1}}},
		{"missing product id", user.ID, []CartItem{{Quantity: 1}}},
		{"missing user", uuid.Nil, []CartItem{{ProductID: mug.ID, Quantity: 1}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.PlaceOrder(ctx, tc.userID, tc.items)
			require.Error(t, err)
			require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
		})
	}

	require.Equal(t, 5, productStock(t, conn, mug.ID))
}

func TestLineItemPriceSurvivesProductPriceChange(t *testing.T) {
	conn := openTestDB(t)
	svc := newDBService(t, conn, nil)
	ctx := context.Background()

	user := mustCreateUser(t, conn)
	mug := mustCreateProduct(t, conn, "Mug", "10.00", 5)

	placed, err := svc.PlaceOrder(ctx, user.ID, []CartItem{{ProductID: mug.ID, Quantity: 2}})
	require.NoError(t, err)

	require.NoError(t, conn.Model(&models.Product{}).
		Where("id = ?", mug.ID).
		Update("price", decimal.RequireFromString("99.00")).Error)

	reloaded, err := svc.GetForUser(ctx, placed.ID, user.ID)
	require.NoError(t, err)
	require.True(t, reloaded.Total.Equal(decimal.RequireFromString("20.00")))
	require.True(t, reloaded.Items[0].UnitPrice.Equal(decimal.RequireFromString("10.00")))
}

func TestGetForUserOwnership(t *testing.T) {
	conn := openTestDB(t)
	svc := newDBService(t, conn, nil)
	ctx := context.Background()

	owner := mustCreateUser(t, conn)
	stranger := mustCreateUser(t, conn)
	mug := mustCreateProduct(t, conn, "Mug", "9.99", 5)

	placed, err := svc.PlaceOrder(ctx, owner.ID, []CartItem{{ProductID: mug.ID, Quantity: 1}})
	require.NoError(t, err)

	_, err = svc.GetForUser(ctx, placed.ID, stranger.ID)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	got, err := svc.GetForUser(ctx, placed.ID, owner.ID)
	require.NoError(t, err)
	require.Equal(t, placed.ID, got.ID)
}

func TestListByUserComputesTotals(t *testing.T) {
	conn := openTestDB(t)
	svc := newDBService(t, conn, nil)
	ctx := context.Background()

	user := mustCreateUser(t, conn)
	mug := mustCreateProduct(t, conn, "Mug", "9.99", 10)

	_, err := svc.PlaceOrder(ctx, user.ID, []CartItem{{ProductID: mug.ID, Quantity: 3}})
	require.NoError(t, err)

	result, err := svc.ListByUser(ctx, user.ID, pagination.Params{Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, result.Orders, 1)
	require.True(t, result.Orders[0].Total.Equal(decimal.RequireFromString("29.97")))
	require.EqualValues(t, 1, result.Meta.Total)
}

// The service is the one place that clamps pagination inputs; the
// repository trusts what it receives.
func TestListByUserNormalizesParamsBeforeRepo(t *testing.T) {
	repo := newStubOrderRepo()
	svc, err := NewService(repo, passthroughTx{}, nil)
	require.NoError(t, err)

	result, err := svc.ListByUser(context.Background(), uuid.New(), pagination.Params{Page: -3, PerPage: 0})
	require.NoError(t, err)

	require.Equal(t, 1, repo.lastListParams.Page)
	require.Equal(t, pagination.DefaultPerPage, repo.lastListParams.PerPage)
	require.Equal(t, 1, result.Meta.Page)
	require.Equal(t, pagination.DefaultPerPage, result.Meta.PerPage)
}

type memTotalsCache struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemTotalsCache() *memTotalsCache {
	return &memTotalsCache{values: map[string]string{}}
}

func (c *memTotalsCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.values[key]; ok {
		return v, nil
	}
	return "", gorm.ErrRecordNotFound
}

func (c *memTotalsCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value.(string)
	return nil
}

func (c *memTotalsCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}

func (c *memTotalsCache) OrderTotalKey(orderID string) string {
	return "sf:order_total:" + orderID
}

func TestTotalReadsThroughCache(t *testing.T) {
	conn := openTestDB(t)
	cache := newMemTotalsCache()
	svc := newDBService(t, conn, cache)
	ctx := context.Background()

	user := mustCreateUser(t, conn)
	mug := mustCreateProduct(t, conn, "Mug", "10.00", 5)

	placed, err := svc.PlaceOrder(ctx, user.ID, []CartItem{{ProductID: mug.ID, Quantity: 2}})
	require.NoError(t, err)

	total, err := svc.Total(ctx, placed.ID)
	require.NoError(t, err)
	require.True(t, total.Equal(decimal.RequireFromString("20.00")))
	require.Len(t, cache.values, 1)

	// Second read comes from the cache even when the rows are gone.
	require.NoError(t, conn.Where("order_id = ?", placed.ID).Delete(&models.OrderItem{}).Error)
	cached, err := svc.Total(ctx, placed.ID)
	require.NoError(t, err)
	require.True(t, cached.Equal(total))
}

// stubOrderRepo is an in-memory Repository whose stock decrement is a
// mutex-guarded compare-and-swap, mirroring the SQL conditional update.
type stubOrderRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]*models.Product
	orders   map[uuid.UUID]*models.Order
	items    []models.OrderItem

	lastListParams pagination.Params
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{
		products: map[uuid.UUID]*models.Product{},
		orders:   map[uuid.UUID]*models.Order{},
	}
}

func (s *stubOrderRepo) WithTx(*gorm.DB) Repository { return s }

func (s *stubOrderRepo) CreateOrder(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = order
	return nil
}

func (s *stubOrderRepo) CreateOrderItems(_ context.Context, items []models.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, items...)
	return nil
}

func (s *stubOrderRepo) DecrementStock(_ context.Context, productID uuid.UUID, qty int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	product, ok := s.products[productID]
	if !ok || product.Stock < qty {
		return false, nil
	}
	product.Stock -= qty
	return true, nil
}

func (s *stubOrderRepo) FindProduct(_ context.Context, productID uuid.UUID) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if product, ok := s.products[productID]; ok {
		copied := *product
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrderRepo) FindOrder(_ context.Context, orderID uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if order, ok := s.orders[orderID]; ok {
		return order, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrderRepo) ListByUser(_ context.Context, _ uuid.UUID, page pagination.Params) ([]models.Order, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastListParams = page
	return nil, 0, nil
}

func (s *stubOrderRepo) ListAll(context.Context, pagination.Params) ([]models.Order, int64, error) {
	return nil, 0, nil
}

func (s *stubOrderRepo) UpdateStatus(context.Context, uuid.UUID, enums.OrderStatus) (int64, error) {
	return 0, nil
}

func (s *stubOrderRepo) CountOrders(context.Context) (int64, error) { return 0, nil }

func (s *stubOrderRepo) ListRecent(context.Context, int) ([]models.Order, error) { return nil, nil }

func (s *stubOrderRepo) ListAllItems(context.Context) ([]models.OrderItem, error) { return nil, nil }

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func TestConcurrentPlacementNeverOversells(t *testing.T) {
	repo := newStubOrderRepo()
	product := &models.Product{
		ID:    uuid.New(),
		Name:  "Limited",
		Price: decimal.RequireFromString("5.00"),
		Stock: 20,
	}
	repo.products[product.ID] = product

	svc, err := NewService(repo, passthroughTx{}, nil)
	require.NoError(t, err)

	const attempts = 50
	userID := uuid.New()

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PlaceOrder(context.Background(), userID, []CartItem{
				{ProductID: product.ID, Quantity: 1},
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, stockouts int
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		require.Equal(t, pkgerrors.CodeInsufficientStock, pkgerrors.As(err).Code())
		stockouts++
	}

	require.Equal(t, 20, successes)
	require.Equal(t, 30, stockouts)
	require.Equal(t, 0, repo.products[product.ID].Stock)
	require.Len(t, repo.items, 20)
}
