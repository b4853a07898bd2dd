// Package entrypoint wires configuration, storage, services and the HTTP
// server into a running process.
package entrypoint

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/mrlokans/librarian/internal/audit"
	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database"
	auditrepo "github.com/mrlokans/librarian/internal/database/audit"
	"github.com/mrlokans/librarian/internal/database/books"
	"github.com/mrlokans/librarian/internal/database/users"
	http_controllers "github.com/mrlokans/librarian/internal/http"
	"github.com/mrlokans/librarian/internal/library"
	"github.com/mrlokans/librarian/internal/scheduler"
	"github.com/mrlokans/librarian/internal/tasks"
)

// MaintenanceJobName is the scheduler and audit action name of the nightly cleanup.
const MaintenanceJobName = "audit_cleanup"

// App holds every long-lived component of a running server.
type App struct {
	cfg *config.Config

	db       *database.Database
	redis    *redis.Client
	sessions *auth.SessionManager
	audit    *audit.Service
	router   *http_controllers.Router
	tasks    *tasks.Client
	cron     *scheduler.MaintenanceScheduler
	server   *http.Server
}

// Run builds the application and serves until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, version string) error {
	log.Printf("Starting Librarian v%s", version)

	app, err := New(cfg, version)
	if err != nil {
		return err
	}
	defer app.Close()

	return app.Serve(ctx)
}

// New opens storage and constructs every service. Call Close to release them.
func New(cfg *config.Config, version string) (*App, error) {
	app := &App{cfg: cfg}
	if err := app.init(version); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) init(version string) error {
	cfg := a.cfg

	var err error
	a.db, err = database.NewDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	var sqlDB *sql.DB
	if a.db.Driver == config.DatabaseDriverSQLite {
		if sqlDB, err = a.db.SQLDB(); err != nil {
			return fmt.Errorf("failed to get SQL DB for sessions: %w", err)
		}
	}
	var rdb redis.UniversalClient
	if cfg.Session.Store == config.SessionStoreRedis {
		if a.redis, err = connectRedis(cfg.Redis); err != nil {
			return err
		}
		rdb = a.redis
	}

	store, err := auth.NewSessionStore(cfg.Session, sqlDB, rdb)
	if err != nil {
		return fmt.Errorf("failed to initialize session store: %w", err)
	}
	a.sessions = auth.NewSessionManager(store, cfg.Auth)
	log.Printf("Session store: %s", sessionStoreName(cfg.Session.Store))

	a.audit = audit.NewService(auditrepo.NewRepository(a.db.DB))
	authService := auth.NewService(users.NewRepository(a.db.DB), cfg.Auth)
	bookRepo := books.NewRepository(a.db.DB)

	secret, err := csrfSecret(cfg.Auth)
	if err != nil {
		return err
	}

	a.router = http_controllers.NewRouter(http_controllers.RouterConfig{
		Books:          library.NewBookService(bookRepo, a.audit),
		Dashboard:      library.NewDashboard(bookRepo, cfg.Dashboard.Location()),
		Audit:          a.audit,
		AuthService:    authService,
		SessionManager: a.sessions,
		AuthConfig:     cfg.Auth,
		AuthAuditor:    a.audit,
		CSRFSecret:     secret,
		Database:       a.db,
		Version:        version,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimit:      cfg.RateLimit,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		StaticPath:     cfg.UI.StaticPath,
	})

	if cfg.Tasks.Enabled {
		a.tasks, err = tasks.NewClient(tasks.DBPath(cfg.Database.Path), cfg.Tasks)
		if err != nil {
			return fmt.Errorf("failed to initialize task queue: %w", err)
		}
		a.tasks.Register(tasks.NewCleanupAuditEventsQueue(a.audit, a.audit))
	}
	a.cron = scheduler.NewMaintenanceScheduler(MaintenanceJobName, cfg.Maintenance.Schedule, a.maintenanceJob(), a.audit)

	a.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if hasUsers, err := authService.HasUsers(context.Background()); err == nil && !hasUsers {
		log.Printf("No admin users found. Register the first administrator via POST /api/auth/register or the create-admin command.")
	}

	return nil
}

// maintenanceJob enqueues audit cleanup when the task queue runs, and
// cleans up inline otherwise.
func (a *App) maintenanceJob() scheduler.Job {
	days := a.cfg.Audit.RetentionDays
	if days <= 0 {
		days = tasks.DefaultAuditRetentionDays
	}

	if a.tasks != nil {
		return func(ctx context.Context) error {
			id, err := a.tasks.EnqueueAuditCleanup(ctx, days)
			if err == nil {
				log.Printf("[SCHEDULER] queued audit cleanup task %s", id)
			}
			return err
		}
	}
	return func(ctx context.Context) error {
		deleted, err := a.audit.DeleteOldEvents(ctx, time.Duration(days)*24*time.Hour)
		if err == nil {
			log.Printf("[SCHEDULER] deleted %d audit events older than %d days", deleted, days)
		}
		return err
	}
}

// Serve listens on the configured address until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return a.ServeListener(ctx, ln)
}

// ServeListener runs the HTTP server, task workers and maintenance scheduler
// as one group. Cancelling ctx, or any of them failing, shuts all of them down.
func (a *App) ServeListener(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	// Workers get their own context so in-flight tasks can drain during Stop.
	taskCtx, cancelTasks := context.WithCancel(context.Background())
	defer cancelTasks()
	if a.tasks != nil {
		a.tasks.Start(taskCtx)
	}

	if err := a.cron.Start(gctx); err != nil {
		ln.Close()
		return err
	}

	g.Go(func() error {
		log.Printf("Starting server at %s", ln.Addr())
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		timeout := time.Duration(a.cfg.Global.ShutdownTimeoutInSeconds) * time.Second
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		log.Printf("Shutdown Server, waiting %v before killing", timeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		a.cron.Stop()
		if a.tasks != nil {
			a.tasks.Stop(shutdownCtx)
			cancelTasks()
		}
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		log.Println("Server exiting")
		return nil
	})

	return g.Wait()
}

// Close releases everything New opened. It is safe on a partially built App.
func (a *App) Close() {
	if a.router != nil {
		a.router.Close()
	}
	if a.sessions != nil {
		a.sessions.Close()
	}
	if a.tasks != nil {
		if err := a.tasks.Close(); err != nil {
			log.Printf("Error closing task client: %v", err)
		}
	}
	if a.audit != nil {
		a.audit.Wait()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Printf("Error closing redis client: %v", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}
}

func connectRedis(cfg config.Redis) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// csrfSecret returns nil when CSRF protection is off. A configured secret is
// used as hex when it decodes, raw bytes otherwise.
func csrfSecret(cfg config.Auth) ([]byte, error) {
	if !cfg.CSRFEnabled {
		return nil, nil
	}
	if cfg.SessionSecret != "" {
		if secret, err := hex.DecodeString(cfg.SessionSecret); err == nil {
			return secret, nil
		}
		return []byte(cfg.SessionSecret), nil
	}

	secret, err := auth.GenerateSessionSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSRF secret: %w", err)
	}
	log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
	return hex.DecodeString(secret)
}

func sessionStoreName(s config.SessionStore) string {
	if s == "" {
		return string(config.SessionStoreDatabase)
	}
	return string(s)
}
