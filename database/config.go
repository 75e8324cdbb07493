package database

import (
	"time"

	"github.com/satishbabariya/bear/database/driver"
	"github.com/satishbabariya/bear/internal/telemetry"
)

// Config describes how to open a Connection.
type Config struct {
	// Driver is mysql, postgres or sqlite.
	Driver string

	// DSN is used verbatim when set; otherwise it is assembled from the
	// host, port, credential and database fields.
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

	// AutoQuote quotes identifiers while compiling queries.
	AutoQuote bool

	// LogQueries logs every statement at debug level.
	LogQueries bool

	Retry RetryConfig

	// Telemetry receives query and connection events. Nil means no-op.
	Telemetry telemetry.Telemetry
}

// DataSourceName returns the DSN passed to database/sql.
func (c Config) DataSourceName(d driver.Driver) string {
	if c.DSN != "" {
		return c.DSN
	}
	return d.FormatDSN(driver.DSNOptions{
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		Database: c.Database,
		Params:   c.Params,
	})
}
