// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup (sqlite or postgres) and migrations
//	├── books/           # Book catalogue: listing queries, borrow transitions, aggregates
//	├── users/           # Admin accounts
//	└── audit/           # Audit trail
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase(cfg.Database)
//
//	booksRepo := books.NewRepository(db.DB)
//	usersRepo := users.NewRepository(db.DB)
//
// # Interface Implementations
//
//   - books.Repository: implements library.BookStore and library.StatsStore
//   - users.Repository: implements auth.UserStore
//   - audit.Repository: used by audit.Service and the cleanup task
//
// Repositories translate gorm.ErrRecordNotFound into library.ErrNotFound;
// other errors are returned wrapped and become generic service errors upstream.
package database
