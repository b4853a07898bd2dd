package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type DatabaseDriver string

const (
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
)

type SessionStore string

const (
	SessionStoreDatabase SessionStore = "database" // scs sqlite3store on the main DB
	SessionStoreRedis    SessionStore = "redis"
	SessionStoreMemory   SessionStore = "memory"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Auth
		Session
		Redis
		CORS
		RateLimit
		Audit
		Tasks
		Maintenance
		UI
		Dashboard
	}

	HTTP struct {
		Port         int32
		Host         string
		MaxBodyBytes int64
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Driver DatabaseDriver
		Path   string // SQLite file
		DSN    string // Postgres connection string
	}
	Auth struct {
		SessionSecret     string
		SessionLifetime   time.Duration
		BcryptCost        int
		SecureCookies     bool // Set to false for local dev without HTTPS
		AllowRegistration bool
		CSRFEnabled       bool

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	Session struct {
		Store SessionStore
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	CORS struct {
		AllowedOrigins []string
	}
	RateLimit struct {
		RequestsPerSecond float64
		Burst             int
	}
	Audit struct {
		RetentionDays int // Days to keep audit events (default: 90)
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Maintenance struct {
		Schedule string // Cron format: "0 3 * * *" = daily at 03:00
	}
	UI struct {
		StaticPath string
	}
	Dashboard struct {
		Timezone string
	}
)

// Location resolves the configured dashboard timezone, falling back to time.Local.
func (d Dashboard) Location() *time.Location {
	if d.Timezone == "" || strings.EqualFold(d.Timezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		log.Printf("WARNING: unknown DASHBOARD_TIMEZONE %q, using local time", d.Timezone)
		return time.Local
	}
	return loc
}

// loadEnvFiles populates the process environment from the given files.
// Variables already present in the environment win; missing files are skipped.
func loadEnvFiles(files ...string) {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			log.Printf("WARNING: failed to load %s: %v", f, err)
		}
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func NewConfig() *Config {
	loadEnvFiles(DefaultEnvFiles...)

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 3000)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("max_body_bytes", 10<<20) // 10MB, matches the JSON body limit
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_driver", string(DatabaseDriverSQLite))
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_dsn", "")
	v.SetDefault("static_path", "")
	v.SetDefault("dashboard_timezone", "Local")

	// Auth defaults
	v.SetDefault("auth_session_secret", "")       // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h")  // 24 hours
	v.SetDefault("auth_bcrypt_cost", 12)          // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", false)    // HTTPS-only cookies
	v.SetDefault("auth_allow_registration", true) // Open admin registration
	v.SetDefault("auth_csrf_enabled", false)
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration

	// Session store defaults
	v.SetDefault("session_store", string(SessionStoreDatabase))
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	v.SetDefault("cors_allowed_origins", "")
	v.SetDefault("api_rate_limit_rps", 20)
	v.SetDefault("api_rate_limit_burst", 40)
	v.SetDefault("audit_retention_days", 90)
	v.SetDefault("maintenance_schedule", "0 3 * * *")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	return &Config{
		HTTP: HTTP{
			Port:         v.GetInt32("PORT"),
			Host:         v.GetString("HOST"),
			MaxBodyBytes: v.GetInt64("MAX_BODY_BYTES"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Driver: DatabaseDriver(strings.ToLower(v.GetString("DATABASE_DRIVER"))),
			Path:   v.GetString("DATABASE_PATH"),
			DSN:    v.GetString("DATABASE_DSN"),
		},
		Auth: Auth{
			SessionSecret:     v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:   v.GetDuration("AUTH_SESSION_LIFETIME"),
			BcryptCost:        v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:     v.GetBool("AUTH_SECURE_COOKIES"),
			AllowRegistration: v.GetBool("AUTH_ALLOW_REGISTRATION"),
			CSRFEnabled:       v.GetBool("AUTH_CSRF_ENABLED"),
			MaxLoginAttempts:  v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:   v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:   v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Session: Session{
			Store: SessionStore(strings.ToLower(v.GetString("SESSION_STORE"))),
		},
		Redis: Redis{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		CORS: CORS{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		RateLimit: RateLimit{
			RequestsPerSecond: v.GetFloat64("API_RATE_LIMIT_RPS"),
			Burst:             v.GetInt("API_RATE_LIMIT_BURST"),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Maintenance: Maintenance{
			Schedule: v.GetString("MAINTENANCE_SCHEDULE"),
		},
		UI: UI{
			StaticPath: v.GetString("STATIC_PATH"),
		},
		Dashboard: Dashboard{
			Timezone: v.GetString("DASHBOARD_TIMEZONE"),
		},
	}
}
