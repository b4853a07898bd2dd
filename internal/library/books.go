// Package library holds the catalogue's domain rules: book lifecycle, listing
// queries and dashboard aggregates. Storage is reached through the BookStore and
// StatsStore interfaces; every operation takes the calling Principal explicitly.
package library

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mrlokans/librarian/internal/entities"
)

// BookStore is the persistence contract for book records.
type BookStore interface {
	Create(ctx context.Context, book *entities.Book) error
	Get(ctx context.Context, id uint) (*entities.Book, error)
	Update(ctx context.Context, id uint, fields entities.BookFields, now time.Time) (*entities.Book, error)
	// TransitionBorrow atomically moves a non-removed book out of the `from` borrow
	// state. borrowedBy is only used when from is false.
	TransitionBorrow(ctx context.Context, id uint, from bool, borrowedBy string, now time.Time) (*entities.Book, error)
	Remove(ctx context.Context, id uint, reason string, removedBy uint, now time.Time) error
	List(ctx context.Context, q BookQuery) ([]entities.Book, int64, error)
	ListRemoved(ctx context.Context) ([]entities.Book, error)
	DistinctGenres(ctx context.Context) ([]string, error)
}

// Auditor receives a record of every successful catalogue change.
type Auditor interface {
	LogBook(userID uint, action string, bookID uint, description string)
}

// Audit actions recorded for books.
const (
	ActionBookCreate = "book_create"
	ActionBookUpdate = "book_update"
	ActionBookBorrow = "book_borrow"
	ActionBookReturn = "book_return"
	ActionBookRemove = "book_remove"
)

// BookService implements the book lifecycle on top of a BookStore.
type BookService struct {
	store   BookStore
	auditor Auditor
	now     func() time.Time
}

// NewBookService creates a BookService. auditor may be nil.
func NewBookService(store BookStore, auditor Auditor) *BookService {
	return &BookService{
		store:   store,
		auditor: auditor,
		now:     time.Now,
	}
}

// SetClock overrides the time source.
func (s *BookService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *BookService) audit(p Principal, action string, book *entities.Book, description string) {
	if s.auditor == nil || book == nil {
		return
	}
	s.auditor.LogBook(p.UserID, action, book.ID, description)
}

// List returns one page of non-removed books matching q.
func (s *BookService) List(ctx context.Context, p Principal, q BookQuery) ([]entities.Book, PageInfo, error) {
	if err := requireAuth(p); err != nil {
		return nil, PageInfo{}, err
	}
	q = q.Normalize()

	books, total, err := s.store.List(ctx, q)
	if err != nil {
		return nil, PageInfo{}, wrapStoreError("fetch books", err)
	}
	if books == nil {
		books = []entities.Book{}
	}
	return books, NewPageInfo(q.Page, q.Limit, total), nil
}

// Get returns a book by ID, including removed books.
func (s *BookService) Get(ctx context.Context, p Principal, id uint) (*entities.Book, error) {
	if err := requireAuth(p); err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, ErrNotFound
	}
	book, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, wrapStoreError("fetch book", err)
	}
	return book, nil
}

// Create adds a new, available book.
func (s *BookService) Create(ctx context.Context, p Principal, fields entities.BookFields) (*entities.Book, error) {
	if err := requireAuth(p); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	fields = NormalizeBookFields(fields)
	if err := ValidateBookFields(fields, now.Year()); err != nil {
		return nil, err
	}

	book := &entities.Book{CreatedAt: now, UpdatedAt: now}
	fields.Apply(book)
	if err := s.store.Create(ctx, book); err != nil {
		return nil, wrapStoreError("add book", err)
	}

	s.audit(p, ActionBookCreate, book, "Added book: "+book.Title)
	return book, nil
}

// Update replaces the descriptive fields of a book. Borrow and removal state are untouched.
func (s *BookService) Update(ctx context.Context, p Principal, id uint, fields entities.BookFields) (*entities.Book, error) {
	if err := requireAuth(p); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	fields = NormalizeBookFields(fields)
	if err := ValidateBookFields(fields, now.Year()); err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, ErrNotFound
	}

	book, err := s.store.Update(ctx, id, fields, now)
	if err != nil {
		return nil, wrapStoreError("update book", err)
	}

	s.audit(p, ActionBookUpdate, book, "Updated book: "+book.Title)
	return book, nil
}

func validateBorrower(borrowedBy string) (string, error) {
	borrowedBy = normalizeText(borrowedBy)
	var v Validator
	v.Check(borrowedBy != "", "Borrower name is required")
	v.Check(utf8.RuneCountInString(borrowedBy) <= 256, "Borrower name must be at most 256 characters")
	return borrowedBy, v.Err()
}

// Borrow marks an available book as borrowed by borrowedBy.
// It fails with ErrAlreadyBorrowed or ErrBookRemoved when the book is not available.
func (s *BookService) Borrow(ctx context.Context, p Principal, id uint, borrowedBy string) (*entities.Book, error) {
	if err := requireAuth(p); err != nil {
		return nil, err
	}
	borrowedBy, err := validateBorrower(borrowedBy)
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, ErrNotFound
	}

	book, err := s.store.TransitionBorrow(ctx, id, false, borrowedBy, s.now().UTC())
	if err != nil {
		return nil, wrapStoreError("update book status", err)
	}

	s.audit(p, ActionBookBorrow, book, "Lent book to "+borrowedBy)
	return book, nil
}

// Return marks a borrowed book as available again.
// It fails with ErrNotBorrowed or ErrBookRemoved when the book is not out.
func (s *BookService) Return(ctx context.Context, p Principal, id uint) (*entities.Book, error) {
	if err := requireAuth(p); err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, ErrNotFound
	}

	book, err := s.store.TransitionBorrow(ctx, id, true, "", s.now().UTC())
	if err != nil {
		return nil, wrapStoreError("update book status", err)
	}

	s.audit(p, ActionBookReturn, book, "Returned book: "+book.Title)
	return book, nil
}

// ToggleBorrow flips the borrow state of a book: an available book becomes
// borrowed by borrowedBy, a borrowed book is returned. The flip is applied against
// the state observed when the call started, so a concurrent change yields
// ErrStateChanged instead of a double flip.
func (s *BookService) ToggleBorrow(ctx context.Context, p Principal, id uint, borrowedBy string) (*entities.Book, error) {
	current, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if current.Removed {
		return nil, ErrBookRemoved
	}

	var book *entities.Book
	if current.BorrowState().Available() {
		book, err = s.Borrow(ctx, p, id, borrowedBy)
	} else {
		book, err = s.Return(ctx, p, id)
	}
	if errors.Is(err, ErrAlreadyBorrowed) || errors.Is(err, ErrNotBorrowed) {
		return nil, ErrStateChanged
	}
	return book, err
}

// Remove soft-deletes a book, recording why and by whom. Removing an already
// removed book overwrites the previous removal metadata.
func (s *BookService) Remove(ctx context.Context, p Principal, id uint, reason string) error {
	if err := requireAuth(p); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	var v Validator
	v.Check(reason != "", "Removal reason is required")
	v.Check(utf8.RuneCountInString(reason) <= 1000, "Removal reason must be at most 1000 characters")
	if err := v.Err(); err != nil {
		return err
	}
	if id == 0 {
		return ErrNotFound
	}

	if err := s.store.Remove(ctx, id, reason, p.UserID, s.now().UTC()); err != nil {
		return wrapStoreError("remove book", err)
	}

	s.audit(p, ActionBookRemove, &entities.Book{ID: id}, "Removed book: "+reason)
	return nil
}

// ListRemoved returns every removed book, most recently removed first, with the
// removing admin resolved.
func (s *BookService) ListRemoved(ctx context.Context, p Principal) ([]entities.Book, error) {
	if err := requireAuth(p); err != nil {
		return nil, err
	}
	books, err := s.store.ListRemoved(ctx)
	if err != nil {
		return nil, wrapStoreError("fetch removed books", err)
	}
	if books == nil {
		books = []entities.Book{}
	}
	return books, nil
}

// Genres returns the distinct genres of the active catalogue.
func (s *BookService) Genres(ctx context.Context, p Principal) ([]string, error) {
	if err := requireAuth(p); err != nil {
		return nil, err
	}
	genres, err := s.store.DistinctGenres(ctx)
	if err != nil {
		return nil, wrapStoreError("fetch genres", err)
	}
	if genres == nil {
		genres = []string{}
	}
	return genres, nil
}
