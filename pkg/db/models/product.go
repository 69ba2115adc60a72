package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog listing. Stock carries a CHECK (stock >= 0) in the
// migration; order placement only ever decrements it through a conditional
// update so the constraint is a backstop, not the primary guard.
type Product struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name        string          `gorm:"column:name;type:text;not null"`
	Category    string          `gorm:"column:category;type:text;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	Image       string          `gorm:"column:image;type:text"`
	Stock       int             `gorm:"column:stock;not null;default:0"`
	Rating      *float64        `gorm:"column:rating;type:numeric(3,2)"`
	Description *string         `gorm:"column:description;type:text"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
