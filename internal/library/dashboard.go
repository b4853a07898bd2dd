package library

import (
	"context"
	"time"

	"github.com/mrlokans/librarian/internal/entities"
)

const (
	DefaultRecentBooks = 5
	ActivityWindow     = 7 * 24 * time.Hour
)

// GenreCount is one bucket of the genre distribution.
type GenreCount struct {
	Genre string `json:"_id"`
	Count int64  `json:"count"`
}

// StatsStore is the aggregate read contract the dashboard needs.
// Every method except CountRemoved and CountRemovedSince ignores removed books.
type StatsStore interface {
	CountActive(ctx context.Context, status BookStatus) (int64, error)
	CountRemoved(ctx context.Context) (int64, error)
	GenreCounts(ctx context.Context) ([]GenreCount, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
	CountRemovedSince(ctx context.Context, since time.Time) (int64, error)
	RecentBooks(ctx context.Context, n int) ([]entities.Book, error)
	BorrowedBooks(ctx context.Context) ([]entities.Book, error)
	CreatedBetween(ctx context.Context, from, to time.Time) ([]time.Time, error)
}

type Stats struct {
	TotalBooks     int64          `json:"totalBooks"`
	BorrowedBooks  int64          `json:"borrowedBooks"`
	AvailableBooks int64          `json:"availableBooks"`
	RemovedBooks   int64          `json:"removedBooks"`
	GenreStats     []GenreCount   `json:"genreStats"`
	RecentActivity RecentActivity `json:"recentActivity"`
}

type RecentActivity struct {
	Added   int64 `json:"added"`
	Removed int64 `json:"removed"`
}

type StatusChart struct {
	Available int64 `json:"available"`
	Borrowed  int64 `json:"borrowed"`
}

type MonthlyCount struct {
	Month int   `json:"month"`
	Added int64 `json:"added"`
}

// Dashboard computes the aggregate views shown on the admin dashboard.
type Dashboard struct {
	store StatsStore
	loc   *time.Location
	now   func() time.Time
}

// NewDashboard creates a Dashboard. Calendar months are bucketed in loc
// (time.Local when nil).
func NewDashboard(store StatsStore, loc *time.Location) *Dashboard {
	if loc == nil {
		loc = time.Local
	}
	return &Dashboard{store: store, loc: loc, now: time.Now}
}

// SetClock overrides the time source.
func (d *Dashboard) SetClock(now func() time.Time) {
	d.now = now
}

// Stats returns catalogue counts, the genre distribution and the last week's activity.
func (d *Dashboard) Stats(ctx context.Context, p Principal) (*Stats, error) {
	if err := requireAuth(p); err != nil {
		return nil, err
	}
	const op = "fetch dashboard statistics"

	var stats Stats
	var err error
	if stats.TotalBooks, err = d.store.CountActive(ctx, StatusAny); err != nil {
		return nil, wrapStoreError(op, err)
	}
	if stats.BorrowedBooks, err = d.store.CountActive(ctx, StatusBorrowed); err != nil {
		return nil, wrapStoreError(op, err)
	}
	if stats.AvailableBooks, err = d.store.CountActive(ctx, StatusAvailable); err != nil {
		return nil, wrapStoreError(op, err)
	}
	if stats.RemovedBooks, err = d.store.CountRemoved(ctx); err != nil {
		return nil, wrapStoreError(op, err)
	}
	if stats.GenreStats, err = d.store.GenreCounts(ctx); err != nil {
		return nil, wrapStoreError(op, err)
	}
	if stats.GenreStats == nil {
		stats.GenreStats = []GenreCount{}
	}

	since := d.now().Add(-ActivityWindow).UTC()
	if stats.RecentActivity.Added, err = d.store.CountCreatedSince(ctx, since); err != nil {
		return nil, wrapStoreError(op, err)
	}
	if stats.RecentActivity.Removed, err = d.store.CountRemovedSince(ctx, since); err != nil {
		return nil, wrapStoreError(op, err)
	}
	return &stats, nil
}

// RecentBooks returns the n most recently added active books (DefaultRecentBooks when n < 1).
func (d *Dashboard) RecentBooks(ctx context.Context, p Principal, n int) ([]entities.Book, error) {
	if err := requireAuth(p); err != nil {
		return nil, err
	}
	if n < 1 {
		n = DefaultRecentBooks
	}
	books, err := d.store.RecentBooks(ctx, n)
	if err != nil {
		return nil, wrapStoreError("fetch recent books", err)
	}
	if books == nil {
		books = []entities.Book{}
	}
	return books, nil
}

// BorrowedBooks returns every book currently out, most recently lent first.
func (d *Dashboard) BorrowedBooks(ctx context.Context, p Principal) ([]entities.Book, error) {
	if err := requireAuth(p); err != nil {
		return nil, err
	}
	books, err := d.store.BorrowedBooks(ctx)
	if err != nil {
		return nil, wrapStoreError("fetch borrowed books", err)
	}
	if books == nil {
		books = []entities.Book{}
	}
	return books, nil
}

// StatusChart returns the available/borrowed split of the active catalogue.
func (d *Dashboard) StatusChart(ctx context.Context, p Principal) (*StatusChart, error) {
	if err := requireAuth(p); err != nil {
		return nil, err
	}
	const op = "fetch status chart data"

	var chart StatusChart
	var err error
	if chart.Available, err = d.store.CountActive(ctx, StatusAvailable); err != nil {
		return nil, wrapStoreError(op, err)
	}
	if chart.Borrowed, err = d.store.CountActive(ctx, StatusBorrowed); err != nil {
		return nil, wrapStoreError(op, err)
	}
	return &chart, nil
}

// MonthlyActivity returns twelve entries, one per month of year, counting active
// books added in that month. A year < 1 means the current year.
func (d *Dashboard) MonthlyActivity(ctx context.Context, p Principal, year int) ([]MonthlyCount, error) {
	if err := requireAuth(p); err != nil {
		return nil, err
	}
	if year < 1 {
		year = d.now().In(d.loc).Year()
	}

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, d.loc)
	to := from.AddDate(1, 0, 0)
	created, err := d.store.CreatedBetween(ctx, from.UTC(), to.UTC())
	if err != nil {
		return nil, wrapStoreError("fetch monthly activity", err)
	}

	months := make([]MonthlyCount, 12)
	for i := range months {
		months[i].Month = i + 1
	}
	for _, t := range created {
		local := t.In(d.loc)
		if local.Year() != year {
			continue
		}
		months[local.Month()-1].Added++
	}
	return months, nil
}
