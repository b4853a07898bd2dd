package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/entities"
)

// Models lists every entity managed by AutoMigrate.
var Models = []any{
	&entities.AdminUser{},
	&entities.Book{},
	&entities.AuditEvent{},
}

type Database struct {
	DB     *gorm.DB
	Driver config.DatabaseDriver
}

// Options tweak how the connection is opened.
type Options struct {
	LogLevel logger.LogLevel
}

// NewDatabase opens the configured database and migrates the schema.
func NewDatabase(cfg config.Database) (*Database, error) {
	return Open(cfg, Options{LogLevel: logger.Warn})
}

// Open is NewDatabase with explicit options. Tests use it to silence gorm.
func Open(cfg config.Database, opts Options) (*Database, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(opts.LogLevel),
		TranslateError: true,
		// Timestamps are stored in UTC so range queries compare consistently on SQLite.
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := backfillFoldedColumns(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	driver := cfg.Driver
	if driver == "" {
		driver = config.DatabaseDriverSQLite
	}
	log.Printf("Database initialized successfully (%s)", driver)

	return &Database{DB: db, Driver: driver}, nil
}

// backfillFoldedColumns fills the search columns of rows written before they
// existed. Rows saved since then are kept current by entities.Book.BeforeSave.
func backfillFoldedColumns(db *gorm.DB) error {
	var stale []entities.Book
	return db.Where("title_fold = ? AND title <> ?", "", "").
		FindInBatches(&stale, 200, func(tx *gorm.DB, _ int) error {
			for _, b := range stale {
				columns := map[string]any{
					"title_fold":  entities.Fold(b.Title),
					"author_fold": entities.Fold(b.Author),
					"genre_fold":  entities.Fold(b.Genre),
					"isbn_fold":   entities.Fold(b.ISBN),
				}
				if err := tx.Model(&entities.Book{}).Where("id = ?", b.ID).UpdateColumns(columns).Error; err != nil {
					return err
				}
			}
			return nil
		}).Error
}

func dialectorFor(cfg config.Database) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", config.DatabaseDriverSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("database path is required for sqlite")
		}
		return sqlite.Open(sqliteDSN(cfg.Path)), nil
	case config.DatabaseDriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("DATABASE_DSN is required for postgres")
		}
		return postgres.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// sqliteDSN adds a busy timeout and WAL journaling to plain file paths.
func sqliteDSN(path string) string {
	if path == ":memory:" || strings.Contains(path, "?") {
		return path
	}
	return path + "?_busy_timeout=5000&_journal_mode=WAL"
}

// SQLDB returns the underlying connection pool.
func (d *Database) SQLDB() (*sql.DB, error) {
	return d.DB.DB()
}

// Ping checks connectivity.
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
