package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "")
	t.Setenv("DEV", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.True(t, cfg.App.Dev)
	assert.Equal(t, 0.9, cfg.CAIWatch.Threshold)
	assert.Equal(t, 14*24*time.Hour, cfg.SessionTTL())
	assert.False(t, cfg.Assistant.Enabled())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9000"
database:
  host: db.internal
  dbname: facturas_prod
storage:
  bucket: from-file
cai_watch:
  within_days: 10
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("S3_BUCKET", "from-env")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("MIGRATIONS", "yes")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "facturas_prod", cfg.Database.DBName)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "from-env", cfg.Storage.Bucket, "env overrides file")
	assert.Equal(t, 10, cfg.CAIWatch.WithinDays)
	assert.True(t, cfg.App.Migrations)
	// untouched keys keep defaults
	assert.Equal(t, "disable", cfg.Database.SSLMode)
}

func TestLoad_BadFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.App.Dev = false
	assert.ErrorContains(t, cfg.Validate(), "SESSION_SECRET")

	cfg.Session.Secret = "s3cret"
	cfg.CAIWatch.Threshold = 1.5
	assert.ErrorContains(t, cfg.Validate(), "threshold")

	cfg.CAIWatch.Threshold = 1
	assert.NoError(t, cfg.Validate())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: 5432, User: "u", Password: "p@ss", DBName: "db", SSLMode: "disable"}
	assert.Equal(t, "host=h port=5432 user=u password=p@ss dbname=db sslmode=disable", d.DSN())
	assert.Equal(t, "postgres://u:p%40ss@h:5432/db?sslmode=disable", d.MigrateURL())

	d.URL = "postgresql://x@supabase.co:5432/postgres"
	assert.Equal(t, d.URL, d.DSN())
	assert.Equal(t, d.URL, d.MigrateURL())
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("X_INT", "nope")
	assert.Equal(t, 3, getEnvInt("X_INT", 3))
	t.Setenv("X_BOOL", "TRUE")
	assert.True(t, getEnvBool("X_BOOL", false))
	t.Setenv("X_BOOL", "off")
	assert.False(t, getEnvBool("X_BOOL", true))
	t.Setenv("X_FLOAT", "0.75")
	assert.Equal(t, 0.75, getEnvFloat("X_FLOAT", 0))
}
