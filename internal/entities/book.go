package entities

import (
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

type Book struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"index;size:512;not null" json:"title"`
	Author      string `gorm:"index;size:256;not null" json:"author"`
	Genre       string `gorm:"index;size:128;not null" json:"genre"`
	Year        int    `json:"year"`
	ISBN        string `gorm:"size:32" json:"isbn"`
	Description string `gorm:"type:text" json:"description"`

	IsBorrowed   bool       `gorm:"index;not null;default:false" json:"isBorrowed"`
	BorrowedBy   *string    `gorm:"size:256" json:"borrowedBy"`
	BorrowedDate *time.Time `json:"borrowedDate"`

	// Soft delete. A removed book is never physically deleted and has no way back.
	Removed       bool       `gorm:"index;not null;default:false" json:"removed"`
	RemovalReason *string    `gorm:"size:1000" json:"removalReason"`
	RemovedByID   *uint      `gorm:"index" json:"removedById"`
	RemovedBy     *AdminUser `gorm:"foreignKey:RemovedByID" json:"removedBy,omitempty"`
	RemovedAt     *time.Time `gorm:"index" json:"removedAt"`

	// Case-folded copies of the searchable columns. SQLite's LOWER() only
	// knows ASCII, so matching happens against these instead.
	TitleFold  string `gorm:"index;size:512;not null;default:''" json:"-"`
	AuthorFold string `gorm:"index;size:256;not null;default:''" json:"-"`
	GenreFold  string `gorm:"index;size:128;not null;default:''" json:"-"`
	ISBNFold   string `gorm:"column:isbn_fold;size:32;not null;default:''" json:"-"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Book) TableName() string {
	return "books"
}

// BeforeSave keeps the folded search columns in step with the originals.
func (b *Book) BeforeSave(*gorm.DB) error {
	b.TitleFold = Fold(b.Title)
	b.AuthorFold = Fold(b.Author)
	b.GenreFold = Fold(b.Genre)
	b.ISBNFold = Fold(b.ISBN)
	return nil
}

// Fold returns the Unicode case-folded, NFC form of s used for
// case-insensitive matching.
func Fold(s string) string {
	// A Caser carries state and must not be shared between goroutines.
	return cases.Fold().String(norm.NFC.String(s))
}

// BorrowState is either available (zero value) or borrowed by someone since a point in time.
type BorrowState struct {
	By    string
	Since time.Time
}

// Available reports whether nobody holds the book.
func (s BorrowState) Available() bool {
	return s.By == "" && s.Since.IsZero()
}

// BorrowState returns the borrow variant of the book.
func (b *Book) BorrowState() BorrowState {
	if !b.IsBorrowed {
		return BorrowState{}
	}
	var st BorrowState
	if b.BorrowedBy != nil {
		st.By = *b.BorrowedBy
	}
	if b.BorrowedDate != nil {
		st.Since = *b.BorrowedDate
	}
	return st
}

// BookFields are the descriptive attributes an admin may edit.
type BookFields struct {
	Title       string `json:"title" yaml:"title"`
	Author      string `json:"author" yaml:"author"`
	Genre       string `json:"genre" yaml:"genre"`
	Year        int    `json:"year" yaml:"year"`
	ISBN        string `json:"isbn" yaml:"isbn"`
	Description string `json:"description" yaml:"description"`
}

// Apply copies the descriptive fields onto the book.
func (f BookFields) Apply(b *Book) {
	b.Title = f.Title
	b.Author = f.Author
	b.Genre = f.Genre
	b.Year = f.Year
	b.ISBN = f.ISBN
	b.Description = f.Description
}

// Columns returns the column updates that overwrite a book's descriptive
// fields, folded search columns included.
func (f BookFields) Columns() map[string]any {
	return map[string]any{
		"title":       f.Title,
		"author":      f.Author,
		"genre":       f.Genre,
		"year":        f.Year,
		"isbn":        f.ISBN,
		"description": f.Description,
		"title_fold":  Fold(f.Title),
		"author_fold": Fold(f.Author),
		"genre_fold":  Fold(f.Genre),
		"isbn_fold":   Fold(f.ISBN),
	}
}
