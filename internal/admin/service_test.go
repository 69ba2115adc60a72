package admin

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/storefronthq/storefront-backend/internal/catalog"
	"github.com/storefronthq/storefront-backend/internal/orders"
	"github.com/storefronthq/storefront-backend/pkg/config"
	"github.com/storefronthq/storefront-backend/pkg/db/models"
	"github.com/storefronthq/storefront-backend/pkg/enums"
	pkgerrors "github.com/storefronthq/storefront-backend/pkg/errors"
	"github.com/storefronthq/storefront-backend/pkg/pagination"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:admin_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, conn.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
	))
	return conn
}

func newTestService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(
		catalog.NewRepository(conn),
		orders.NewRepository(conn),
		config.DashboardConfig{LowStockThreshold: 10},
	)
	require.NoError(t, err)
	return svc
}

func mustCreateUser(t *testing.T, conn *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
	}
	require.NoError(t, conn.Create(user).Error)
	return user
}

func mustCreateOrder(t *testing.T, conn *gorm.DB, userID uuid.UUID, createdAt time.Time, lines ...models.OrderItem) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:        uuid.New(),
		UserID:    userID,
		Status:    enums.OrderStatusPending,
		CreatedAt: createdAt,
	}
	require.NoError(t, conn.Create(order).Error)
	for i := range lines {
		lines[i].ID = uuid.New()
		lines[i].OrderID = order.ID
	}
	if len(lines) > 0 {
		require.NoError(t, conn.Create(&lines).Error)
	}
	return order
}

func TestCreateProductDefaultsCategory(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn)

	dto, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:  "Mug",
		Price: decimal.RequireFromString("9.99"),
		Stock: 5,
	})
	require.NoError(t, err)
	require.Equal(t, "Uncategorized", dto.Category)
	require.Equal(t, 5, dto.Stock)
}

func TestCreateProductValidation(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateProductInput
	}{
		{"missing name", CreateProductInput{Price: decimal.NewFromInt(1)}},
		{"negative price", CreateProductInput{Name: "x", Price: decimal.NewFromInt(-1)}},
		{"negative stock", CreateProductInput{Name: "x", Price: decimal.NewFromInt(1), Stock: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateProduct(ctx, tc.input)
			require.Error(t, err)
			require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
		})
	}
}

func TestUpdateProductPartial(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:     "Mug",
		Category: "Kitchen",
		Price:    decimal.RequireFromString("9.99"),
		Stock:    5,
	})
	require.NoError(t, err)

	newPrice := decimal.RequireFromString("12.50")
	newStock := 9
	updated, err := svc.UpdateProduct(ctx, created.ID, UpdateProductInput{
		Price: &newPrice,
		Stock: &newStock,
	})
	require.NoError(t, err)
	require.True(t, updated.Price.Equal(newPrice))
	require.Equal(t, 9, updated.Stock)
	// Untouched fields survive the partial update.
	require.Equal(t, "Mug", updated.Name)
	require.Equal(t, "Kitchen", updated.Category)
}

func TestUpdateProductNotFound(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn)

	name := "x"
	_, err := svc.UpdateProduct(context.Background(), uuid.New(), UpdateProductInput{Name: &name})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestDeleteProduct(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:  "Mug",
		Price: decimal.RequireFromString("9.99"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, created.ID))

	err = svc.DeleteProduct(ctx, created.ID)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestUpdateOrderStatus(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	user := mustCreateUser(t, conn, "buyer")
	order := mustCreateOrder(t, conn, user.ID, time.Now())

	dto, err := svc.UpdateOrderStatus(ctx, order.ID, "Shipped")
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusShipped, dto.Status)

	_, err = svc.UpdateOrderStatus(ctx, order.ID, "Teleported")
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.UpdateOrderStatus(ctx, uuid.New(), "Shipped")
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestListOrdersResolvesCustomer(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	user := mustCreateUser(t, conn, "buyer")
	product := &models.Product{
		ID: uuid.New(), Name: "Mug", Category: "X",
		Price: decimal.RequireFromString("10.00"), Stock: 5,
	}
	require.NoError(t, conn.Create(product).Error)

	mustCreateOrder(t, conn, user.ID, time.Now(), models.OrderItem{
		ProductID: product.ID, Quantity: 2, Price: product.Price,
	})

	result, err := svc.ListOrders(ctx, pagination.Params{Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, result.Orders, 1)
	require.NotNil(t, result.Orders[0].Customer)
	require.Equal(t, "buyer", result.Orders[0].Customer.Username)
	require.True(t, result.Orders[0].Total.Equal(decimal.RequireFromString("20.00")))
}

func TestDashboardStats(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	lowStock := &models.Product{
		ID: uuid.New(), Name: "Low", Category: "X",
		Price: decimal.RequireFromString("5.00"), Stock: 3,
	}
	healthy := &models.Product{
		ID: uuid.New(), Name: "Healthy", Category: "X",
		Price: decimal.RequireFromString("8.00"), Stock: 50,
	}
	require.NoError(t, conn.Create(lowStock).Error)
	require.NoError(t, conn.Create(healthy).Error)

	user := mustCreateUser(t, conn, "buyer")
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		mustCreateOrder(t, conn, user.ID, base.Add(time.Duration(i)*time.Minute), models.OrderItem{
			ProductID: lowStock.ID, Quantity: 1, Price: decimal.RequireFromString("5.00"),
		})
	}

	stats, err := svc.DashboardStats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, stats.TotalProducts)
	require.EqualValues(t, 1, stats.LowStockProducts)
	require.EqualValues(t, 7, stats.TotalOrders)
	require.True(t, stats.TotalRevenue.Equal(decimal.RequireFromString("35.00")))
	require.Len(t, stats.RecentOrders, 5)
	require.Equal(t, "buyer", stats.RecentOrders[0].Username)
	// Newest first.
	require.True(t, stats.RecentOrders[0].CreatedAt.After(stats.RecentOrders[4].CreatedAt))
}

func TestOrderDetailNotFound(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn)

	_, err := svc.OrderDetail(context.Background(), uuid.New())
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
