// Package driver isolates database engine specific rendering rules:
// identifier quoting, literal escaping for DDL, placeholder syntax and
// feature detection based on the server version.
package driver

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-version"
)

// Dialect identifies a SQL dialect.
type Dialect string

const (
	// MySQL dialect.
	MySQL Dialect = "mysql"
	// PostgreSQL dialect.
	PostgreSQL Dialect = "postgres"
	// SQLite dialect.
	SQLite Dialect = "sqlite"
)

// ErrUnsupportedDriver is returned for unknown driver names.
var ErrUnsupportedDriver = errors.New("unsupported driver")

// Driver describes how SQL is rendered for one database engine.
type Driver interface {
	// Dialect returns the SQL dialect implemented by the driver.
	Dialect() Dialect

	// SQLDriverName is the name registered with database/sql.
	SQLDriverName() string

	// QuoteIdentifier quotes a table, column, alias or function reference.
	QuoteIdentifier(identifier string) string

	// AutoQuoting reports whether identifiers are quoted during compilation.
	AutoQuoting() bool

	// EnableAutoQuoting toggles identifier quoting during compilation.
	EnableAutoQuoting(enable bool)

	// SupportsNativeJSON reports whether the server has a native JSON type.
	SupportsNativeJSON() bool

	// SchemaValue escapes a Go value as a SQL literal for use in DDL.
	SchemaValue(value any) string

	// Placeholder returns the positional placeholder for the 1-based position.
	Placeholder(position int) string

	// VersionSQL returns the statement that reports the server version.
	VersionSQL() string

	// SetServerVersion records the server version reported on connect.
	SetServerVersion(v string)

	// ServerVersion returns the recorded server version, if known.
	ServerVersion() string

	// SavePointSQL returns the statement creating the named savepoint.
	SavePointSQL(name string) string

	// ReleaseSavePointSQL returns the statement releasing the named savepoint.
	ReleaseSavePointSQL(name string) string

	// RollbackSavePointSQL returns the statement rolling back to the named savepoint.
	RollbackSavePointSQL(name string) string

	// FormatDSN assembles a data source name for the database/sql driver.
	FormatDSN(opts DSNOptions) string
}

// DSNOptions are the pieces a DSN is assembled from.
type DSNOptions struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Params   map[string]string
}

// New returns the driver registered under name.
func New(name string) (Driver, error) {
	switch strings.ToLower(name) {
	case "mysql", "mariadb":
		return NewMySQL(), nil
	case "postgres", "postgresql", "pgsql":
		return NewPostgres(), nil
	case "sqlite", "sqlite3":
		return NewSQLite(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, name)
	}
}

// base carries the state shared by every dialect.
type base struct {
	startQuote string
	endQuote   string

	mu        sync.RWMutex
	autoQuote bool
	version   string
}

// QuoteIdentifier quotes identifier using the dialect's quote characters.
func (b *base) QuoteIdentifier(identifier string) string {
	return quoteIdentifier(identifier, b.startQuote, b.endQuote)
}

// AutoQuoting reports whether compilation quotes identifiers.
func (b *base) AutoQuoting() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.autoQuote
}

// EnableAutoQuoting toggles identifier quoting.
func (b *base) EnableAutoQuoting(enable bool) {
	b.mu.Lock()
	b.autoQuote = enable
	b.mu.Unlock()
}

// SetServerVersion records the server version.
func (b *base) SetServerVersion(v string) {
	b.mu.Lock()
	b.version = strings.TrimSpace(v)
	b.mu.Unlock()
}

// ServerVersion returns the recorded server version.
func (b *base) ServerVersion() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// versionAtLeast compares the recorded server version with min. unknown is
// returned when no version was recorded or it cannot be parsed.
func (b *base) versionAtLeast(min string, unknown bool) bool {
	raw := b.ServerVersion()
	if raw == "" {
		return unknown
	}
	// "8.0.36-0ubuntu0.22.04.1" and "14.9 (Debian 14.9-1.pgdg120+1)"
	if i := strings.IndexAny(raw, " -"); i > 0 {
		raw = raw[:i]
	}
	v, err := version.NewVersion(raw)
	if err != nil {
		return unknown
	}
	return v.GreaterThanOrEqual(version.Must(version.NewVersion(min)))
}

// SavePointSQL returns the SAVEPOINT statement.
func (b *base) SavePointSQL(name string) string {
	return "SAVEPOINT " + name
}

// ReleaseSavePointSQL returns the RELEASE SAVEPOINT statement.
func (b *base) ReleaseSavePointSQL(name string) string {
	return "RELEASE SAVEPOINT " + name
}

// RollbackSavePointSQL returns the ROLLBACK TO SAVEPOINT statement.
func (b *base) RollbackSavePointSQL(name string) string {
	return "ROLLBACK TO SAVEPOINT " + name
}
