package driver_test

import (
	"errors"
	"fmt"
	"testing"

	sqldriver "database/sql/driver"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/satishbabariya/bear/database/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	for _, name := range []string{"mysql", "postgres", "postgresql", "sqlite", "sqlite3"} {
		d, err := driver.New(name)
		require.NoError(t, err, name)
		assert.NotNil(t, d)
	}

	_, err := driver.New("oracle")
	assert.ErrorIs(t, err, driver.ErrUnsupportedDriver)
}

func TestQuoteIdentifier_MySQL(t *testing.T) {
	d := driver.NewMySQL()

	tests := []struct {
		in   string
		want string
	}{
		{"*", "*"},
		{"", ""},
		{"name", "`name`"},
		{"my-table", "`my-table`"},
		{"users.id", "`users`.`id`"},
		{"schema.users.id", "`schema`.`users`.`id`"},
		{"users.*", "`users`.*"},
		{"COUNT(id)", "COUNT(`id`)"},
		{"COUNT(users.id)", "COUNT(`users`.`id`)"},
		{"COUNT(*)", "COUNT(*)"},
		{"users.id AS user_id", "`users`.`id` AS `user_id`"},
		{"name as n", "`name` AS `n`"},
		{"users.first name", "`users`.`first name`"},
		{"first name", "`first name`"},
		{"  padded  ", "`padded`"},
		{"'literal'", "'literal'"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, d.QuoteIdentifier(tt.in))
		})
	}
}

func TestQuoteIdentifier_Postgres(t *testing.T) {
	d := driver.NewPostgres()
	assert.Equal(t, `"users"."id"`, d.QuoteIdentifier("users.id"))
	assert.Equal(t, `MAX("price") AS "top"`, d.QuoteIdentifier("MAX(price) AS top"))
}

func TestSupportsNativeJSON(t *testing.T) {
	d := driver.NewMySQL()
	assert.True(t, d.SupportsNativeJSON(), "unknown version assumes modern server")

	d.SetServerVersion("5.6.51")
	assert.False(t, d.SupportsNativeJSON())

	d.SetServerVersion("8.0.36-0ubuntu0.22.04.1")
	assert.True(t, d.SupportsNativeJSON())
	assert.True(t, d.SupportsCTEs())

	d.SetServerVersion("10.6.12-MariaDB")
	assert.True(t, d.IsMariaDB())
	assert.False(t, d.SupportsNativeJSON())

	pg := driver.NewPostgres()
	pg.SetServerVersion("9.1.24")
	assert.False(t, pg.SupportsNativeJSON())
	pg.SetServerVersion("14.9 (Debian 14.9-1.pgdg120+1)")
	assert.True(t, pg.SupportsNativeJSON())

	assert.False(t, driver.NewSQLite().SupportsNativeJSON())
}

func TestSchemaValue(t *testing.T) {
	my := driver.NewMySQL()
	assert.Equal(t, "NULL", my.SchemaValue(nil))
	assert.Equal(t, "TRUE", my.SchemaValue(true))
	assert.Equal(t, "FALSE", my.SchemaValue(false))
	assert.Equal(t, "42", my.SchemaValue(42))
	assert.Equal(t, "1.5", my.SchemaValue(1.5))
	assert.Equal(t, `'it\'s'`, my.SchemaValue("it's"))

	pg := driver.NewPostgres()
	assert.Equal(t, `'it''s'`, pg.SchemaValue("it's"))

	lite := driver.NewSQLite()
	assert.Equal(t, "1", lite.SchemaValue(true))
	assert.Equal(t, `'a''b'`, lite.SchemaValue("a'b"))
}

func TestPlaceholder(t *testing.T) {
	assert.Equal(t, "?", driver.NewMySQL().Placeholder(3))
	assert.Equal(t, "$3", driver.NewPostgres().Placeholder(3))
	assert.Equal(t, "?", driver.NewSQLite().Placeholder(1))
}

func TestFormatDSN(t *testing.T) {
	opts := driver.DSNOptions{Host: "db", Port: 3307, User: "root", Password: "secret", Database: "app"}

	dsn := driver.NewMySQL().FormatDSN(opts)
	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "db:3307", cfg.Addr)
	assert.Equal(t, "app", cfg.DBName)
	assert.True(t, cfg.ParseTime)

	pgDSN := driver.NewPostgres().FormatDSN(opts)
	assert.Contains(t, pgDSN, "postgres://root:secret@db:3307/app")
	assert.Contains(t, pgDSN, "sslmode=disable")

	assert.Equal(t, ":memory:", driver.NewSQLite().FormatDSN(driver.DSNOptions{}))
	assert.Equal(t, "file:app.db?cache=shared", driver.NewSQLite().FormatDSN(driver.DSNOptions{
		Database: "app.db",
		Params:   map[string]string{"cache": "shared"},
	}))
}

func TestAutoQuoting(t *testing.T) {
	d := driver.NewSQLite()
	assert.False(t, d.AutoQuoting())
	d.EnableAutoQuoting(true)
	assert.True(t, d.AutoQuoting())
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad conn", fmt.Errorf("exec: %w", sqldriver.ErrBadConn), true},
		{"mysql invalid conn", mysql.ErrInvalidConn, true},
		{"mysql deadlock", &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}, true},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, false},
		{"pq connection", &pq.Error{Code: "08006"}, true},
		{"pq serialization", &pq.Error{Code: "40001"}, true},
		{"pq unique", &pq.Error{Code: "23505"}, false},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"message", errors.New("MySQL server has gone away"), true},
		{"reset", errors.New("read tcp: connection reset by peer"), true},
		{"syntax", errors.New("syntax error near FROM"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, driver.IsTransient(tt.err))
		})
	}
}
