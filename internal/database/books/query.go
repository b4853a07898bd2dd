package books

import (
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/library"
)

// likeEscaper escapes LIKE metacharacters so user input matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a case-folded "%term%" pattern for use with ESCAPE '\'.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(entities.Fold(term)) + "%"
}

// active restricts a query to books that have not been removed.
func active(db *gorm.DB) *gorm.DB {
	return db.Where("removed = ?", false)
}

// applyQuery translates a normalised BookQuery into predicates on db.
// Text filters match the *_fold columns, since SQLite's LOWER() leaves
// non-ASCII letters alone. Sorting and paging are applied separately by List.
func applyQuery(db *gorm.DB, q library.BookQuery) *gorm.DB {
	db = active(db)

	if q.Search != "" {
		pattern := containsPattern(q.Search)
		db = db.Where(
			`(title_fold LIKE ? ESCAPE '\' OR author_fold LIKE ? ESCAPE '\' OR isbn_fold LIKE ? ESCAPE '\')`,
			pattern, pattern, pattern,
		)
	}
	if q.Genre != "" {
		db = db.Where(`genre_fold LIKE ? ESCAPE '\'`, containsPattern(q.Genre))
	}

	switch q.Status {
	case library.StatusBorrowed:
		db = db.Where("is_borrowed = ?", true)
	case library.StatusAvailable:
		db = db.Where("is_borrowed = ?", false)
	}
	return db
}

// listingOrder is newest first with a stable tie-break so pages never overlap.
const listingOrder = "created_at DESC, id ASC"
