package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a shopper identity. Admins live in their own table;
// the two id spaces only overlap by coincidence, never by meaning.
type User struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Username     string    `gorm:"column:username;type:text;not null;uniqueIndex"`
	Email        string    `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
