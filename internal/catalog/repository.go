package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storefronthq/storefront-backend/pkg/db/models"
	"github.com/storefronthq/storefront-backend/pkg/pagination"
)

// sortColumns whitelists the orderable columns. Anything else falls back
// to the id sort so callers can never inject raw SQL through sort params.
var sortColumns = map[string]string{
	"id":    "id",
	"name":  "name",
	"price": "price",
}

// ListQuery carries normalized catalog filters.
type ListQuery struct {
	Category  string
	Search    string
	SortBy    string
	SortOrder string
	Page      pagination.Params
}

// Repository owns product persistence for both the public catalog and the
// admin management surface.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// List returns one catalog page plus the total row count for the filters.
func (r *Repository) List(ctx context.Context, q ListQuery) ([]models.Product, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Product{})

	if q.Category != "" {
		base = base.Where("category = ?", q.Category)
	}
	if q.Search != "" {
		base = base.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q.Search)+"%")
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := sortColumns[strings.ToLower(q.SortBy)]
	if !ok {
		column = "id"
	}
	direction := "ASC"
	if strings.EqualFold(q.SortOrder, "desc") {
		direction = "DESC"
	}

	page := q.Page.Normalize()
	var products []models.Product
	if err := base.
		Order(column + " " + direction).
		Offset(page.Offset()).
		Limit(page.PerPage).
		Find(&products).Error; err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// FindByID loads a single product.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// Categories returns the distinct category names in the catalog.
func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// Create inserts a new product row.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Update persists all fields of the product row.
func (r *Repository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// Delete removes a product and reports how many rows went away.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	return res.RowsAffected, res.Error
}

// CountProducts returns the catalog size.
func (r *Repository) CountProducts(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&count).Error
	return count, err
}

// CountLowStock counts products under the given stock threshold.
func (r *Repository) CountLowStock(ctx context.Context, threshold int) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("stock < ?", threshold).
		Count(&count).Error
	return count, err
}
