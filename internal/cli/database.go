// Package cli implements the maintenance subcommands dispatched from main.
package cli

import (
	"fmt"
	"path/filepath"

	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database"
)

// openDatabase opens the configured database. A non-empty sqlitePath
// overrides DATABASE_PATH for the sqlite driver.
func openDatabase(cfg config.Database, sqlitePath string) (*database.Database, error) {
	if sqlitePath != "" {
		abs, err := filepath.Abs(sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for database: %w", err)
		}
		cfg.Path = abs
	}

	db, err := database.NewDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}
