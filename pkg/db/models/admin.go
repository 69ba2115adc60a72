package models

import (
	"time"

	"github.com/google/uuid"
)

// Admin is a back-office principal, kept in a separate table from User.
type Admin struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Username     string    `gorm:"column:username;type:text;not null;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}
