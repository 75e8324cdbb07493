package driver

import (
	"net"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// MySQLDriver renders SQL for MySQL and MariaDB.
type MySQLDriver struct {
	base
}

// NewMySQL creates a MySQL driver.
func NewMySQL() *MySQLDriver {
	return &MySQLDriver{base: base{startQuote: "`", endQuote: "`"}}
}

// Dialect returns MySQL.
func (d *MySQLDriver) Dialect() Dialect {
	return MySQL
}

// SQLDriverName returns the database/sql driver name.
func (d *MySQLDriver) SQLDriverName() string {
	return "mysql"
}

// IsMariaDB reports whether the recorded server version belongs to MariaDB.
func (d *MySQLDriver) IsMariaDB() bool {
	return strings.Contains(strings.ToLower(d.ServerVersion()), "mariadb")
}

// SupportsNativeJSON reports whether the server has a JSON column type.
// MariaDB only aliases JSON to LONGTEXT.
func (d *MySQLDriver) SupportsNativeJSON() bool {
	if d.IsMariaDB() {
		return false
	}
	return d.versionAtLeast("5.7.0", true)
}

// SupportsCTEs reports whether WITH clauses are available.
func (d *MySQLDriver) SupportsCTEs() bool {
	if d.IsMariaDB() {
		return d.versionAtLeast("10.2.1", true)
	}
	return d.versionAtLeast("8.0.0", true)
}

// SchemaValue escapes value for DDL.
func (d *MySQLDriver) SchemaValue(value any) string {
	return literal(value, quoteMySQL)
}

func quoteMySQL(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\x00", `\0`, "\n", `\n`, "\r", `\r`, "\x1a", `\Z`)
	return "'" + r.Replace(s) + "'"
}

// Placeholder returns "?" for every position.
func (d *MySQLDriver) Placeholder(int) string {
	return "?"
}

// VersionSQL returns the server version query.
func (d *MySQLDriver) VersionSQL() string {
	return "SELECT VERSION()"
}

// FormatDSN builds a go-sql-driver/mysql DSN.
func (d *MySQLDriver) FormatDSN(opts DSNOptions) string {
	cfg := mysql.NewConfig()
	cfg.User = opts.User
	cfg.Passwd = opts.Password
	cfg.Net = "tcp"
	host := opts.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := opts.Port
	if port == 0 {
		port = 3306
	}
	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	cfg.DBName = opts.Database
	cfg.ParseTime = true
	if len(opts.Params) > 0 {
		cfg.Params = opts.Params
	}
	return cfg.FormatDSN()
}
