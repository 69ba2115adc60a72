package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/storefronthq/storefront-backend/pkg/db/models"
	"github.com/storefronthq/storefront-backend/pkg/enums"
	"github.com/storefronthq/storefront-backend/pkg/pagination"
)

func TestDecrementStockConditional(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	product := mustCreateProduct(t, conn, "Mug", "9.99", 5)

	ok, err := repo.DecrementStock(ctx, product.ID, 3)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, productStock(t, conn, product.ID))

	// Requesting more than what's left matches no row and changes nothing.
	ok, err = repo.DecrementStock(ctx, product.ID, 3)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 2, productStock(t, conn, product.ID))

	ok, err = repo.DecrementStock(ctx, uuid.New(), 1)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUpdateStatus(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	user := mustCreateUser(t, conn)
	order := &models.Order{ID: uuid.New(), UserID: user.ID, Status: enums.OrderStatusPending}
	require.NoError(t, repo.CreateOrder(ctx, order))

	affected, err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusShipped)
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	reloaded, err := repo.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusShipped, reloaded.Status)

	affected, err = repo.UpdateStatus(ctx, uuid.New(), enums.OrderStatusShipped)
	require.NoError(t, err)
	require.EqualValues(t, 0, affected)
}

func TestListByUserNewestFirst(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	user := mustCreateUser(t, conn)
	other := mustCreateUser(t, conn)

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		order := &models.Order{
			ID:        uuid.New(),
			UserID:    user.ID,
			Status:    enums.OrderStatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, repo.CreateOrder(ctx, order))
		ids = append(ids, order.ID)
	}
	require.NoError(t, repo.CreateOrder(ctx, &models.Order{
		ID: uuid.New(), UserID: other.ID, Status: enums.OrderStatusPending,
	}))

	orders, total, err := repo.ListByUser(ctx, user.ID, pagination.Params{Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, orders, 3)
	require.Equal(t, ids[2], orders[0].ID)
	require.Equal(t, ids[0], orders[2].ID)
}

func TestFindOrderPreloadsItems(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	user := mustCreateUser(t, conn)
	product := mustCreateProduct(t, conn, "Mug", "9.99", 5)

	order := &models.Order{ID: uuid.New(), UserID: user.ID, Status: enums.OrderStatusPending}
	require.NoError(t, repo.CreateOrder(ctx, order))
	require.NoError(t, repo.CreateOrderItems(ctx, []models.OrderItem{{
		ID:        uuid.New(),
		OrderID:   order.ID,
		ProductID: product.ID,
		Quantity:  2,
		Price:     product.Price,
	}}))

	loaded, err := repo.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	require.Equal(t, product.ID, loaded.Items[0].ProductID)
	require.NotNil(t, loaded.User)
	require.Equal(t, user.Username, loaded.User.Username)
}
