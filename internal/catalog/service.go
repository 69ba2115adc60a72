package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/storefronthq/storefront-backend/pkg/config"
	"github.com/storefronthq/storefront-backend/pkg/db/models"
	pkgerrors "github.com/storefronthq/storefront-backend/pkg/errors"
	"github.com/storefronthq/storefront-backend/pkg/pagination"
)

type productStore interface {
	List(ctx context.Context, q ListQuery) ([]models.Product, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Categories(ctx context.Context) ([]string, error)
}

// ProductDTO is the public catalog projection of a product row.
type ProductDTO struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Stock       int             `json:"stock"`
	Rating      *float64        `json:"rating,omitempty"`
	Description *string         `json:"description,omitempty"`
}

// ListInput carries the raw catalog browse filters.
type ListInput struct {
	Category  string
	Search    string
	SortBy    string
	SortOrder string
	Page      pagination.Params
}

// ListResult is one catalog page plus its metadata.
type ListResult struct {
	Products []ProductDTO    `json:"products"`
	Meta     pagination.Meta `json:"meta"`
}

// Service exposes the public catalog read surface.
type Service interface {
	List(ctx context.Context, input ListInput) (*ListResult, error)
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	Categories(ctx context.Context) ([]string, error)
}

type service struct {
	repo productStore
	cfg  config.CatalogConfig
}

// NewService constructs the catalog service.
func NewService(repo productStore, cfg config.CatalogConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo, cfg: cfg}, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	page := s.pageDefaults(input.Page)

	products, total, err := s.repo.List(ctx, ListQuery{
		Category:  input.Category,
		Search:    input.Search,
		SortBy:    input.SortBy,
		SortOrder: input.SortOrder,
		Page:      page,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing products")
	}

	dtos := make([]ProductDTO, 0, len(products))
	for i := range products {
		dtos = append(dtos, ToProductDTO(&products[i]))
	}

	return &ListResult{
		Products: dtos,
		Meta:     pagination.NewMeta(page, total),
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	dto := ToProductDTO(product)
	return &dto, nil
}

func (s *service) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing categories")
	}
	return categories, nil
}

// pageDefaults applies the configured catalog page size before the shared
// pagination clamps run.
func (s *service) pageDefaults(page pagination.Params) pagination.Params {
	if page.PerPage <= 0 && s.cfg.DefaultPageSize > 0 {
		page.PerPage = s.cfg.DefaultPageSize
	}
	if s.cfg.MaxPageSize > 0 && page.PerPage > s.cfg.MaxPageSize {
		page.PerPage = s.cfg.MaxPageSize
	}
	return page.Normalize()
}

// ToProductDTO maps a product row to its public projection.
func ToProductDTO(product *models.Product) ProductDTO {
	return ProductDTO{
		ID:          product.ID,
		Name:        product.Name,
		Category:    product.Category,
		Price:       product.Price,
		Image:       product.Image,
		Stock:       product.Stock,
		Rating:      product.Rating,
		Description: product.Description,
	}
}
