package driver

import (
	"net/url"
	"sort"
	"strings"
)

// SQLiteDriver renders SQL for SQLite.
type SQLiteDriver struct {
	base
}

// NewSQLite creates a SQLite driver.
func NewSQLite() *SQLiteDriver {
	return &SQLiteDriver{base: base{startQuote: `"`, endQuote: `"`}}
}

// Dialect returns SQLite.
func (d *SQLiteDriver) Dialect() Dialect {
	return SQLite
}

// SQLDriverName returns the database/sql driver name.
func (d *SQLiteDriver) SQLDriverName() string {
	return "sqlite3"
}

// SupportsNativeJSON is always false; JSON is stored as TEXT.
func (d *SQLiteDriver) SupportsNativeJSON() bool {
	return false
}

// SchemaValue escapes value for DDL.
func (d *SQLiteDriver) SchemaValue(value any) string {
	switch v := value.(type) {
	case bool:
		if v {
			return "1"
		}
		return "0"
	}
	return literal(value, quoteStandard)
}

// Placeholder returns "?" for every position.
func (d *SQLiteDriver) Placeholder(int) string {
	return "?"
}

// VersionSQL returns the library version query.
func (d *SQLiteDriver) VersionSQL() string {
	return "SELECT sqlite_version()"
}

// FormatDSN builds a go-sqlite3 DSN. An empty database opens a private
// in-memory database.
func (d *SQLiteDriver) FormatDSN(opts DSNOptions) string {
	dsn := opts.Database
	if dsn == "" {
		dsn = ":memory:"
	}
	if len(opts.Params) == 0 {
		return dsn
	}
	keys := make([]string, 0, len(opts.Params))
	for k := range opts.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(opts.Params[k]))
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return "file:" + strings.TrimPrefix(dsn, "file:") + sep + strings.Join(parts, "&")
}
