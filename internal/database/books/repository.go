// Package books provides database operations for the book catalogue.
//
// The Repository implements both library.BookStore (lifecycle and listing)
// and library.StatsStore (dashboard aggregates).
//
// # Interface Implementation
//
//	var _ library.BookStore = (*Repository)(nil)
//	var _ library.StatsStore = (*Repository)(nil)
//
// # Usage
//
//	repo := books.NewRepository(db)
//	page, total, err := repo.List(ctx, library.BookQuery{Search: "dune"}.Normalize())
package books

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/library"
)

var (
	_ library.BookStore  = (*Repository)(nil)
	_ library.StatsStore = (*Repository)(nil)
)

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) books(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&entities.Book{})
}

// Create inserts a new book.
func (r *Repository) Create(ctx context.Context, book *entities.Book) error {
	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

// Get retrieves a book by ID, removed or not, with its remover resolved.
func (r *Repository) Get(ctx context.Context, id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.WithContext(ctx).Preload("RemovedBy").First(&book, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, library.ErrNotFound
		}
		return nil, fmt.Errorf("get book %d: %w", id, err)
	}
	return &book, nil
}

// Update overwrites the descriptive fields of a book and returns the fresh record.
func (r *Repository) Update(ctx context.Context, id uint, fields entities.BookFields, now time.Time) (*entities.Book, error) {
	columns := fields.Columns()
	columns["updated_at"] = now
	result := r.books(ctx).Where("id = ?", id).Updates(columns)
	if result.Error != nil {
		return nil, fmt.Errorf("update book %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, library.ErrNotFound
	}
	return r.Get(ctx, id)
}

// TransitionBorrow flips is_borrowed away from `from` in a single conditional
// UPDATE, so two concurrent callers cannot both succeed.
func (r *Repository) TransitionBorrow(ctx context.Context, id uint, from bool, borrowedBy string, now time.Time) (*entities.Book, error) {
	updates := map[string]any{
		"is_borrowed": !from,
		"updated_at":  now,
	}
	if from {
		updates["borrowed_by"] = nil
		updates["borrowed_date"] = nil
	} else {
		updates["borrowed_by"] = borrowedBy
		updates["borrowed_date"] = now
	}

	result := r.books(ctx).
		Where("id = ? AND removed = ? AND is_borrowed = ?", id, false, from).
		Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("update borrow state of book %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, r.transitionConflict(ctx, id, from)
	}
	return r.Get(ctx, id)
}

// transitionConflict explains why a guarded borrow transition matched no rows.
func (r *Repository) transitionConflict(ctx context.Context, id uint, from bool) error {
	book, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	available := book.BorrowState().Available()
	switch {
	case book.Removed:
		return library.ErrBookRemoved
	case !from && !available:
		return library.ErrAlreadyBorrowed
	case from && available:
		return library.ErrNotBorrowed
	}
	// The row changed back between the UPDATE and the read.
	return library.ErrStateChanged
}

// Remove soft-deletes a book. Re-removing overwrites the removal metadata.
func (r *Repository) Remove(ctx context.Context, id uint, reason string, removedBy uint, now time.Time) error {
	result := r.books(ctx).Where("id = ?", id).Updates(map[string]any{
		"removed":        true,
		"removal_reason": reason,
		"removed_by_id":  removedBy,
		"removed_at":     now,
		"updated_at":     now,
	})
	if result.Error != nil {
		return fmt.Errorf("remove book %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return library.ErrNotFound
	}
	return nil
}

// List returns one page of active books matching q plus the total match count.
// q must already be normalised.
func (r *Repository) List(ctx context.Context, q library.BookQuery) ([]entities.Book, int64, error) {
	base := applyQuery(r.books(ctx), q).Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}

	var books []entities.Book
	err := base.Order(listingOrder).Offset(q.Offset()).Limit(q.Limit).Find(&books).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list books: %w", err)
	}
	return books, total, nil
}

// ListRemoved returns removed books, most recently removed first.
func (r *Repository) ListRemoved(ctx context.Context) ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.WithContext(ctx).
		Preload("RemovedBy").
		Where("removed = ?", true).
		Order("removed_at DESC, id ASC").
		Find(&books).Error
	if err != nil {
		return nil, fmt.Errorf("list removed books: %w", err)
	}
	return books, nil
}

// DistinctGenres returns the sorted set of genres among active books.
func (r *Repository) DistinctGenres(ctx context.Context) ([]string, error) {
	var genres []string
	err := active(r.books(ctx)).Distinct().Order("genre ASC").Pluck("genre", &genres).Error
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	return genres, nil
}
