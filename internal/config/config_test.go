package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/bear/internal/telemetry"
)

func memFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	old := AppFs
	AppFs = fs
	t.Cleanup(func() { AppFs = old })

	homedir.DisableCache = true
	t.Setenv("HOME", "/home/tester")
	t.Setenv("DATABASE_URL", "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	memFs(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Driver)
	assert.Equal(t, 2, cfg.RetryAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, "noop", cfg.Telemetry)
	assert.Empty(t, cfg.File)
}

func TestLoad_File(t *testing.T) {
	fs := memFs(t)
	require.NoError(t, afero.WriteFile(fs, "/etc/bear/.bear.yaml", []byte(`
driver: mysql
host: db.local
port: 3306
user: app
database: shop
params:
  parseTime: "true"
pool:
  max_open: 10
  max_lifetime: 5m
auto_quote: true
retry:
  attempts: 4
  delay: 200ms
telemetry: memory
`), 0o644))

	cfg, err := Load("/etc/bear/.bear.yaml")
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Driver)
	assert.Equal(t, "db.local", cfg.Host)
	assert.Equal(t, 3306, cfg.Port)
	assert.Equal(t, map[string]string{"parsetime": "true"}, cfg.Params)
	assert.Equal(t, 10, cfg.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.ConnMaxLifetime)
	assert.True(t, cfg.AutoQuote)
	assert.Equal(t, 4, cfg.RetryAttempts)
	assert.Equal(t, "/etc/bear/.bear.yaml", cfg.File)

	db, err := cfg.DatabaseConfig()
	require.NoError(t, err)
	assert.Equal(t, 4, db.Retry.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, db.Retry.InitialDelay)
	_, ok := db.Telemetry.(*telemetry.Memory)
	assert.True(t, ok)

	_, err = Load("/missing.yaml")
	assert.Error(t, err)
}

func TestLoad_HomeSearchPath(t *testing.T) {
	fs := memFs(t)
	path := filepath.Join("/home/tester", ".config", "bear", ".bear.yaml")
	require.NoError(t, afero.WriteFile(fs, path, []byte("driver: postgres\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Driver)
	assert.Equal(t, path, cfg.File)
}

func TestLoad_EnvAndDotenv(t *testing.T) {
	fs := memFs(t)
	require.NoError(t, afero.WriteFile(fs, ".env", []byte(
		"BEAR_DRIVER=postgres\nBEAR_HOST=from-dotenv\nBEAR_USER=dotenv\nDATABASE_URL=postgres://u@h/db\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, ".env.local", []byte("BEAR_USER=local\n"), 0o644))
	t.Setenv("BEAR_HOST", "from-env")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Driver)
	assert.Equal(t, "from-env", cfg.Host, "the environment wins over .env")
	assert.Equal(t, "local", cfg.User, ".env.local wins over .env")
	assert.Equal(t, "postgres://u@h/db", cfg.DSN)
}

func TestDatabase_UnknownTelemetry(t *testing.T) {
	cfg := &Config{Driver: "sqlite", Telemetry: "statsd"}
	_, err := cfg.DatabaseConfig()
	assert.Error(t, err)
}

func TestSave(t *testing.T) {
	memFs(t)

	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "/home/tester/.config/bear/.bear.yaml", path)

	in := &Config{
		Driver: "mysql", Host: "db", Port: 3307, User: "app", Password: "secret",
		Database: "shop", RetryAttempts: 3, RetryDelay: time.Second, Telemetry: "memory",
	}
	require.NoError(t, Save(in, path))

	out, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mysql", out.Driver)
	assert.Equal(t, 3307, out.Port)
	assert.Equal(t, time.Second, out.RetryDelay)
	assert.Empty(t, out.Password, "passwords are not persisted")
}
