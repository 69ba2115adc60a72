package orders

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/storefronthq/storefront-backend/pkg/db/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:orders_%s?mode=memory&cache=shared", uuid.NewString())
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

// gormTxRunner satisfies the service's transaction dependency using a
// plain GORM connection, so rollbacks are exercised for real in tests.
type gormTxRunner struct {
	conn *gorm.DB
}

func (g gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.conn.WithContext(ctx).Transaction(fn)
}

func mustCreateUser(t *testing.T, conn *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Username:     fmt.Sprintf("user_%s", uuid.NewString()[:8]),
		Email:        fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		PasswordHash: "hash",
	}
	require.NoError(t, conn.Create(user).Error)
	return user
}

func mustCreateProduct(t *testing.T, conn *gorm.DB, name, price string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:       uuid.New(),
		Name:     name,
		Category: "Test",
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

func productStock(t *testing.T, conn *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var product models.Product
	require.NoError(t, conn.First(&product, "id = ?", id).Error)
	return product.Stock
}
