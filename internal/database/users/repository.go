// Package users provides database operations for admin accounts.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	admin, err := repo.GetByEmail(ctx, "admin@example.com")
package users

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/library"
)

// ErrDuplicateEmail is returned by Create when the email is already registered.
var ErrDuplicateEmail = library.Conflict("Email already registered")

// Repository handles all admin user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new admin user. Email must already be normalised.
func (r *Repository) Create(ctx context.Context, user *entities.AdminUser) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	return nil
}

// GetByEmail retrieves an admin user by normalised email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*entities.AdminUser, error) {
	var user entities.AdminUser
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetByID retrieves an admin user by ID.
func (r *Repository) GetByID(ctx context.Context, id uint) (*entities.AdminUser, error) {
	var user entities.AdminUser
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// Count returns the number of admin accounts.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.AdminUser{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count admin users: %w", err)
	}
	return count, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return library.ErrNotFound
	}
	return err
}
