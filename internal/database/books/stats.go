package books

import (
	"context"
	"fmt"
	"time"

	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/library"
)

// CountActive counts non-removed books, optionally narrowed by borrow status.
func (r *Repository) CountActive(ctx context.Context, status library.BookStatus) (int64, error) {
	var count int64
	query := applyQuery(r.books(ctx), library.BookQuery{Status: status})
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count active books: %w", err)
	}
	return count, nil
}

// CountRemoved counts soft-deleted books.
func (r *Repository) CountRemoved(ctx context.Context) (int64, error) {
	var count int64
	if err := r.books(ctx).Where("removed = ?", true).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count removed books: %w", err)
	}
	return count, nil
}

type genreTotal struct {
	Genre string
	Total int64
}

// GenreCounts groups active books by genre, largest group first.
func (r *Repository) GenreCounts(ctx context.Context) ([]library.GenreCount, error) {
	var rows []genreTotal
	err := active(r.books(ctx)).
		Select("genre, COUNT(*) AS total").
		Group("genre").
		Order("total DESC, genre ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count books by genre: %w", err)
	}

	counts := make([]library.GenreCount, 0, len(rows))
	for _, row := range rows {
		counts = append(counts, library.GenreCount{Genre: row.Genre, Count: row.Total})
	}
	return counts, nil
}

// CountCreatedSince counts active books created at or after since.
func (r *Repository) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	if err := active(r.books(ctx)).Where("created_at >= ?", since.UTC()).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count new books: %w", err)
	}
	return count, nil
}

// CountRemovedSince counts books removed at or after since.
func (r *Repository) CountRemovedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.books(ctx).
		Where("removed = ? AND removed_at >= ?", true, since.UTC()).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count recently removed books: %w", err)
	}
	return count, nil
}

// RecentBooks returns the n newest active books.
func (r *Repository) RecentBooks(ctx context.Context, n int) ([]entities.Book, error) {
	var books []entities.Book
	if err := active(r.books(ctx)).Order(listingOrder).Limit(n).Find(&books).Error; err != nil {
		return nil, fmt.Errorf("list recent books: %w", err)
	}
	return books, nil
}

// BorrowedBooks returns active borrowed books, most recently lent first.
func (r *Repository) BorrowedBooks(ctx context.Context) ([]entities.Book, error) {
	var books []entities.Book
	err := active(r.books(ctx)).
		Where("is_borrowed = ?", true).
		Order("borrowed_date DESC, id ASC").
		Find(&books).Error
	if err != nil {
		return nil, fmt.Errorf("list borrowed books: %w", err)
	}
	return books, nil
}

// CreatedBetween returns creation times of active books in [from, to).
func (r *Repository) CreatedBetween(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	var created []time.Time
	err := active(r.books(ctx)).
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC()).
		Pluck("created_at", &created).Error
	if err != nil {
		return nil, fmt.Errorf("list creation times: %w", err)
	}
	return created, nil
}
