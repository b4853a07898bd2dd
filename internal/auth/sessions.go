package auth

import (
	"context"
	"database/sql"
	"encoding/gob"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/redis/go-redis/v9"

	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/library"
)

// Session data keys
const (
	SessionKeyUserID    = "user_id"
	SessionKeyUserEmail = "user_email"
	SessionKeyUserName  = "user_name"
	SessionKeyLoginAt   = "login_at"
)

func init() {
	gob.Register(time.Time{})
}

// SessionManager wraps scs.SessionManager with application-specific methods.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionStore builds the scs.Store selected by cfg.Store.
// sqlDB is required for the database store and rdb for the redis store.
func NewSessionStore(cfg config.Session, sqlDB *sql.DB, rdb redis.UniversalClient) (scs.Store, error) {
	switch cfg.Store {
	case "", config.SessionStoreDatabase:
		if sqlDB == nil {
			return nil, fmt.Errorf("database session store requires a sqlite connection")
		}
		_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			expiry REAL NOT NULL
		);
		CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
		if err != nil {
			return nil, fmt.Errorf("failed to create sessions table: %w", err)
		}
		return sqlite3store.New(sqlDB), nil
	case config.SessionStoreRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis session store requires a redis client")
		}
		return NewRedisStore(rdb, DefaultRedisPrefix), nil
	case config.SessionStoreMemory:
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unsupported session store %q", cfg.Store)
	}
}

// NewSessionManager creates a configured session manager on top of store.
// Sessions expire a fixed lifetime after login regardless of activity.
func NewSessionManager(store scs.Store, cfg config.Auth) *SessionManager {
	sm := scs.New()
	sm.Store = store

	sm.Lifetime = cfg.SessionLifetime
	if sm.Lifetime <= 0 {
		sm.Lifetime = 24 * time.Hour
	}

	sm.Cookie.Name = "session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteStrictMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}
}

// Close stops the store's background expiry sweep, if it runs one.
func (sm *SessionManager) Close() {
	if s, ok := sm.Store.(interface{ StopCleanup() }); ok {
		s.StopCleanup()
	}
}

// CreateSession creates a new session for a user after successful authentication.
func (sm *SessionManager) CreateSession(ctx context.Context, user *entities.AdminUser) error {
	// Renew token to prevent session fixation
	if err := sm.RenewToken(ctx); err != nil {
		return err
	}

	// Stored as int to match GetInt() retrieval
	sm.Put(ctx, SessionKeyUserID, int(user.ID))
	sm.Put(ctx, SessionKeyUserEmail, user.Email)
	sm.Put(ctx, SessionKeyUserName, user.Name)
	sm.Put(ctx, SessionKeyLoginAt, time.Now().UTC())

	return nil
}

// DestroySession removes all session data and invalidates the session.
func (sm *SessionManager) DestroySession(ctx context.Context) error {
	return sm.Destroy(ctx)
}

// GetUserID retrieves the user ID from the session.
// Returns 0 if not authenticated.
func (sm *SessionManager) GetUserID(ctx context.Context) uint {
	return uint(sm.GetInt(ctx, SessionKeyUserID))
}

// IsAuthenticated returns true if the request has a valid session.
func (sm *SessionManager) IsAuthenticated(ctx context.Context) bool {
	return sm.GetUserID(ctx) != 0
}

// SessionPrincipal reads the identity cached in the session without touching the database.
func (sm *SessionManager) SessionPrincipal(ctx context.Context) library.Principal {
	userID := sm.GetUserID(ctx)
	if userID == 0 {
		return library.Principal{}
	}
	return library.Principal{
		UserID: userID,
		Email:  sm.GetString(ctx, SessionKeyUserEmail),
		Name:   sm.GetString(ctx, SessionKeyUserName),
	}
}

// LoginAt returns when the session was established.
func (sm *SessionManager) LoginAt(ctx context.Context) time.Time {
	return sm.GetTime(ctx, SessionKeyLoginAt)
}
