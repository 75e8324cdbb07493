package driver

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/lib/pq"
)

// PostgresDriver renders SQL for PostgreSQL.
type PostgresDriver struct {
	base
}

// NewPostgres creates a PostgreSQL driver.
func NewPostgres() *PostgresDriver {
	return &PostgresDriver{base: base{startQuote: `"`, endQuote: `"`}}
}

// Dialect returns PostgreSQL.
func (d *PostgresDriver) Dialect() Dialect {
	return PostgreSQL
}

// SQLDriverName returns the database/sql driver name.
func (d *PostgresDriver) SQLDriverName() string {
	return "postgres"
}

// SupportsNativeJSON reports whether json columns exist (9.2+).
func (d *PostgresDriver) SupportsNativeJSON() bool {
	return d.versionAtLeast("9.2", true)
}

// SchemaValue escapes value for DDL.
func (d *PostgresDriver) SchemaValue(value any) string {
	return literal(value, pq.QuoteLiteral)
}

// Placeholder returns $n.
func (d *PostgresDriver) Placeholder(position int) string {
	return fmt.Sprintf("$%d", position)
}

// VersionSQL returns the server version query.
func (d *PostgresDriver) VersionSQL() string {
	return "SHOW server_version"
}

// FormatDSN builds a lib/pq connection URL.
func (d *PostgresDriver) FormatDSN(opts DSNOptions) string {
	host := opts.Host
	if host == "" {
		host = "localhost"
	}
	port := opts.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + opts.Database,
	}
	if opts.User != "" {
		u.User = url.UserPassword(opts.User, opts.Password)
	}
	q := u.Query()
	for k, v := range opts.Params {
		q.Set(k, v)
	}
	if q.Get("sslmode") == "" {
		q.Set("sslmode", "disable")
	}
	u.RawQuery = q.Encode()
	return u.String()
}
