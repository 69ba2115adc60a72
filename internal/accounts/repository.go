package accounts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storefronthq/storefront-backend/pkg/db/models"
)

// Repository owns persistence for both principal tables. Users and admins
// never share a table; resolving one kind never consults the other.
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

// CreateUser inserts a new user row.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindUserByEmail loads a user by lowercase email.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUserByID loads a user by primary key.
func (r *Repository) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUserByUsernameOrEmail is the registration pre-check for duplicates.
func (r *Repository) FindUserByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		First(&user, "username = ? OR email = ?", username, email).
		Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindAdminByUsername loads an admin by username.
func (r *Repository) FindAdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.WithContext(ctx).First(&admin, "username = ?", username).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

// FindAdminByID loads an admin by primary key.
func (r *Repository) FindAdminByID(ctx context.Context, id uuid.UUID) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.WithContext(ctx).First(&admin, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}
