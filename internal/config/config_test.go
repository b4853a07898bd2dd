package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := NewConfig()

	assert.Equal(t, int32(3000), cfg.HTTP.Port)
	assert.Equal(t, int64(10<<20), cfg.HTTP.MaxBodyBytes)
	assert.Equal(t, DatabaseDriverSQLite, cfg.Database.Driver)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionLifetime)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.True(t, cfg.Auth.AllowRegistration)
	assert.Equal(t, SessionStoreDatabase, cfg.Session.Store)
	assert.Empty(t, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 90, cfg.Audit.RetentionDays)
	assert.Equal(t, "0 3 * * *", cfg.Maintenance.Schedule)
}

func TestNewConfig_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "8080")
	t.Setenv("AUTH_SESSION_LIFETIME", "2h")
	t.Setenv("SESSION_STORE", "Redis")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.example, http://b.example ,")

	cfg := NewConfig()

	assert.Equal(t, int32(8080), cfg.HTTP.Port)
	assert.Equal(t, 2*time.Hour, cfg.Auth.SessionLifetime)
	assert.Equal(t, SessionStoreRedis, cfg.Session.Store)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestNewConfig_LoadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.env"), []byte("AUDIT_RETENTION_DAYS=7\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("AUDIT_RETENTION_DAYS") })

	cfg := NewConfig()

	assert.Equal(t, 7, cfg.Audit.RetentionDays)
}

func TestDashboardLocation(t *testing.T) {
	assert.Equal(t, time.Local, Dashboard{}.Location())
	assert.Equal(t, time.Local, Dashboard{Timezone: "local"}.Location())
	assert.Equal(t, time.Local, Dashboard{Timezone: "Not/AZone"}.Location())
	assert.Equal(t, "UTC", Dashboard{Timezone: "UTC"}.Location().String())
}
