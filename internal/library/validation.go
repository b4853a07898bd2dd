package library

import (
	"fmt"
	"unicode/utf8"

	"github.com/mrlokans/librarian/internal/entities"
)

const MinBookYear = 1800

// Validator collects rule violations so callers can report all of them at once.
type Validator struct {
	messages []string
}

// Check records msg when ok is false.
func (v *Validator) Check(ok bool, msg string) {
	if !ok {
		v.messages = append(v.messages, msg)
	}
}

// Err returns a *ValidationError, or nil when every check passed.
func (v *Validator) Err() error {
	if len(v.messages) == 0 {
		return nil
	}
	return NewValidationError(v.messages...)
}

// NormalizeBookFields trims whitespace and NFC-normalises every text field.
func NormalizeBookFields(f entities.BookFields) entities.BookFields {
	f.Title = normalizeText(f.Title)
	f.Author = normalizeText(f.Author)
	f.Genre = normalizeText(f.Genre)
	f.ISBN = normalizeText(f.ISBN)
	f.Description = normalizeText(f.Description)
	return f
}

// ValidateBookFields checks normalised fields. currentYear bounds the publication year.
func ValidateBookFields(f entities.BookFields, currentYear int) error {
	var v Validator
	v.Check(f.Title != "", "Title is required")
	v.Check(f.Author != "", "Author is required")
	v.Check(f.Genre != "", "Genre is required")
	v.Check(f.Year >= MinBookYear && f.Year <= currentYear,
		fmt.Sprintf("Year must be between %d and %d", MinBookYear, currentYear))
	v.Check(utf8.RuneCountInString(f.Title) <= 512, "Title must be at most 512 characters")
	v.Check(utf8.RuneCountInString(f.Author) <= 256, "Author must be at most 256 characters")
	v.Check(utf8.RuneCountInString(f.Genre) <= 128, "Genre must be at most 128 characters")
	v.Check(utf8.RuneCountInString(f.ISBN) <= 32, "ISBN must be at most 32 characters")
	return v.Err()
}
