package catalog

import (
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

	dsn := fmt.Sprintf("file:catalog_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, conn.AutoMigrate(&models.Product{}))
	return conn
}

func mustCreateProduct(t *testing.T, conn *gorm.DB, name, category string, price string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:       uuid.New(),
		Name:     name,
		Category: category,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}
