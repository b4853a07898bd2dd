package http

import (
	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/library"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Domain services
	Books     *library.BookService
	Dashboard *library.Dashboard
	// Audit serves /api/audit when set.
	Audit AuditLog

	// Authentication
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	AuthConfig     config.Auth
	AuthAuditor    auth.Auditor
	// CSRFSecret enables CSRF protection when non-empty.
	CSRFSecret []byte

	// Health checks
	Database Pinger
	Version  string

	// Cross-cutting limits
	AllowedOrigins []string
	RateLimit      config.RateLimit
	MaxBodyBytes   int64

	// StaticPath enables the bundled pages when non-empty.
	StaticPath string
}
