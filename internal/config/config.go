// Package config loads connection settings from a config file, the
// environment and .env files.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/satishbabariya/bear/database"
	"github.com/satishbabariya/bear/internal/telemetry"
)

// AppFs is the filesystem config and .env files are read from.
var AppFs = afero.NewOsFs()

const (
	configName = ".bear"
	envPrefix  = "BEAR"
)

// Config holds the CLI and connection settings.
type Config struct {
	Driver   string
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Params   map[string]string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	AutoQuote  bool
	LogQueries bool

	RetryAttempts int
	RetryDelay    time.Duration

	Telemetry string

	// File is the config file that was read, if any.
	File string
}

var keys = []string{
	"driver", "dsn", "host", "port", "user", "password", "database", "params",
	"pool.max_open", "pool.max_idle", "pool.max_lifetime",
	"auto_quote", "log_queries",
	"retry.attempts", "retry.delay",
	"telemetry",
}

func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetFs(AppFs)
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("driver", "sqlite")
	v.SetDefault("retry.attempts", database.DefaultRetryConfig().MaxAttempts)
	v.SetDefault("retry.delay", database.DefaultRetryConfig().InitialDelay)
	v.SetDefault("telemetry", string(telemetry.TypeNoop))
	return v
}

// Load reads configuration. An explicit file must exist; otherwise
// .bear.yaml is searched in the working directory, $HOME and
// $HOME/.config/bear. Environment variables (BEAR_*) override the file,
// and .env then .env.local fill in variables the environment does not
// set. DATABASE_URL is used as the DSN when none is configured.
func Load(file string) (*Config, error) {
	v := newViper()

	if file != "" {
		path, err := homedir.Expand(file)
		if err != nil {
			return nil, err
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(".")
		v.AddConfigPath(home)
		v.AddConfigPath(filepath.Join(home, ".config", "bear"))
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	dotenv, err := loadDotenv(".env", ".env.local")
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		name := envName(key)
		if os.Getenv(name) != "" {
			continue
		}
		if val, ok := dotenv[name]; ok {
			v.Set(key, val)
		}
	}

	cfg := &Config{
		Driver:          v.GetString("driver"),
		DSN:             v.GetString("dsn"),
		Host:            v.GetString("host"),
		Port:            v.GetInt("port"),
		User:            v.GetString("user"),
		Password:        v.GetString("password"),
		Database:        v.GetString("database"),
		Params:          v.GetStringMapString("params"),
		MaxOpenConns:    v.GetInt("pool.max_open"),
		MaxIdleConns:    v.GetInt("pool.max_idle"),
		ConnMaxLifetime: v.GetDuration("pool.max_lifetime"),
		AutoQuote:       v.GetBool("auto_quote"),
		LogQueries:      v.GetBool("log_queries"),
		RetryAttempts:   v.GetInt("retry.attempts"),
		RetryDelay:      v.GetDuration("retry.delay"),
		Telemetry:       v.GetString("telemetry"),
		File:            v.ConfigFileUsed(),
	}

	if cfg.DSN == "" {
		cfg.DSN = os.Getenv("DATABASE_URL")
		if cfg.DSN == "" {
			cfg.DSN = dotenv["DATABASE_URL"]
		}
	}
	return cfg, nil
}

// loadDotenv parses the files that exist, later files overriding earlier
// ones.
func loadDotenv(files ...string) (map[string]string, error) {
	out := map[string]string{}
	for _, name := range files {
		data, err := afero.ReadFile(AppFs, name)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		env, err := godotenv.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		for k, val := range env {
			out[k] = val
		}
	}
	return out, nil
}

// DatabaseConfig converts the settings into a connection config.
func (c *Config) DatabaseConfig() (database.Config, error) {
	t, err := telemetry.New(c.Telemetry)
	if err != nil {
		return database.Config{}, err
	}

	retry := database.DefaultRetryConfig()
	if c.RetryAttempts > 0 {
		retry.MaxAttempts = c.RetryAttempts
	}
	if c.RetryDelay > 0 {
		retry.InitialDelay = c.RetryDelay
	}

	return database.Config{
		Driver:          c.Driver,
		DSN:             c.DSN,
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		Database:        c.Database,
		Params:          c.Params,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		AutoQuote:       c.AutoQuote,
		LogQueries:      c.LogQueries,
		Retry:           retry,
		Telemetry:       t,
	}, nil
}

// DefaultPath returns $HOME/.config/bear/.bear.yaml.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "bear", configName+".yaml"), nil
}

// Save writes cfg to path, creating parent directories. The password is
// never written.
func Save(cfg *Config, path string) error {
	v := newViper()
	v.Set("driver", cfg.Driver)
	v.Set("dsn", cfg.DSN)
	v.Set("host", cfg.Host)
	v.Set("port", cfg.Port)
	v.Set("user", cfg.User)
	v.Set("database", cfg.Database)
	if len(cfg.Params) > 0 {
		v.Set("params", cfg.Params)
	}
	v.Set("pool.max_open", cfg.MaxOpenConns)
	v.Set("pool.max_idle", cfg.MaxIdleConns)
	v.Set("pool.max_lifetime", cfg.ConnMaxLifetime.String())
	v.Set("auto_quote", cfg.AutoQuote)
	v.Set("log_queries", cfg.LogQueries)
	v.Set("retry.attempts", cfg.RetryAttempts)
	v.Set("retry.delay", cfg.RetryDelay.String())
	v.Set("telemetry", cfg.Telemetry)

	if err := AppFs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return v.WriteConfigAs(path)
}
