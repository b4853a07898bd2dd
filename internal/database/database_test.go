package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/entities"
)

// setupTestDB creates a fresh database in a temp dir
func setupTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(config.Database{
		Driver: config.DatabaseDriverSQLite,
		Path:   filepath.Join(t.TempDir(), "test.db"),
	}, Options{LogLevel: logger.Silent})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_MigratesSchema(t *testing.T) {
	db := setupTestDB(t)

	assert.Equal(t, config.DatabaseDriverSQLite, db.Driver)
	for _, model := range []any{&entities.Book{}, &entities.AdminUser{}, &entities.AuditEvent{}} {
		assert.True(t, db.DB.Migrator().HasTable(model), "%T table missing", model)
	}
	assert.True(t, db.DB.Migrator().HasIndex(&entities.AdminUser{}, "Email"))
}

func TestOpen_DefaultsToSQLite(t *testing.T) {
	db, err := Open(config.Database{Path: filepath.Join(t.TempDir(), "x.db")}, Options{LogLevel: logger.Silent})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, config.DatabaseDriverSQLite, db.Driver)
}

func TestOpen_ConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Database
		want string
	}{
		{name: "sqlite without path", cfg: config.Database{Driver: config.DatabaseDriverSQLite}, want: "database path is required"},
		{name: "postgres without dsn", cfg: config.Database{Driver: config.DatabaseDriverPostgres}, want: "DATABASE_DSN is required"},
		{name: "unknown driver", cfg: config.Database{Driver: "oracle"}, want: `unsupported database driver "oracle"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.cfg, Options{})
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "lib.db?_busy_timeout=5000&_journal_mode=WAL", sqliteDSN("lib.db"))
	assert.Equal(t, ":memory:", sqliteDSN(":memory:"))
	assert.Equal(t, "lib.db?mode=ro", sqliteDSN("lib.db?mode=ro"))
}

func TestDatabase_PingAndClose(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Ping(ctx))

	sqlDB, err := db.SQLDB()
	require.NoError(t, err)
	assert.NotNil(t, sqlDB)

	require.NoError(t, db.Close())
	assert.Error(t, db.Ping(ctx))
}

func TestOpen_BackfillsFoldedColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	cfg := config.Database{Driver: config.DatabaseDriverSQLite, Path: path}

	db, err := Open(cfg, Options{LogLevel: logger.Silent})
	require.NoError(t, err)
	book := &entities.Book{Title: "Élan", Author: "Ørsted", Genre: "Ästhetik"}
	require.NoError(t, db.DB.Create(book).Error)
	// Simulate a row written before the folded columns were introduced.
	require.NoError(t, db.DB.Exec(
		"UPDATE books SET title_fold = '', author_fold = '', genre_fold = '', isbn_fold = '' WHERE id = ?", book.ID,
	).Error)
	require.NoError(t, db.Close())

	db, err = Open(cfg, Options{LogLevel: logger.Silent})
	require.NoError(t, err)
	defer db.Close()

	var got entities.Book
	require.NoError(t, db.DB.First(&got, book.ID).Error)
	assert.Equal(t, "élan", got.TitleFold)
	assert.Equal(t, "ørsted", got.AuthorFold)
	assert.Equal(t, "ästhetik", got.GenreFold)
}
