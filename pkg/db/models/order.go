package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/storefronthq/storefront-backend/pkg/enums"
)

// Order is a placed purchase. The total is never stored; it is always
// derived from the line items so a later product price change can never
// corrupt historical orders.
type Order struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	Status    enums.OrderStatus `gorm:"column:status;type:text;not null;default:'Pending'"`
	User      *User             `gorm:"foreignKey:UserID"`
	Items     []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
