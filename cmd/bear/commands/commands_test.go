package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/bear/database"
	"github.com/satishbabariya/bear/database/schema"
	"github.com/satishbabariya/bear/internal/ui"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	prev := ui.Out
	ui.Out = &out
	t.Cleanup(func() { ui.Out = prev })

	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.Execute()
	return out.String(), err
}

func compileJSON(t *testing.T, args ...string) compiledQuery {
	t.Helper()

	out, err := run(t, append(args, "--json")...)
	require.NoError(t, err)
	var got compiledQuery
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	return got
}

func TestSQLSelect(t *testing.T) {
	got := compileJSON(t, "sql", "select",
		"--dialect", "mysql",
		"--table", "users",
		"--fields", "id,name",
		"--where", "age >= 18",
		"--where", "status in active,banned",
		"--order", "-created",
		"--limit", "10")

	assert.Equal(t, "SELECT id, name FROM users WHERE age >= :c0 AND status IN (:c1,:c2) ORDER BY created DESC LIMIT 10", got.SQL)
	assert.Equal(t, "mysql", got.Dialect)
	assert.Equal(t, []boundValue{
		{Placeholder: "c0", Value: float64(18)},
		{Placeholder: "c1", Value: "active"},
		{Placeholder: "c2", Value: "banned"},
	}, got.Bindings)
}

func TestSQLSelect_Compound(t *testing.T) {
	got := compileJSON(t, "sql", "select", "--dialect", "sqlite", "--table", "users",
		"--where", "age >= 18 and (role = admin or vip = true)")

	assert.Equal(t, "SELECT * FROM users WHERE (age >= :c0 AND (role = :c1 OR vip = :c2))", got.SQL)
	assert.Len(t, got.Bindings, 3)
}

func TestSQLSelect_Quoted(t *testing.T) {
	got := compileJSON(t, "sql", "select", "--dialect", "mysql", "--quote",
		"-t", "users", "-f", "id,name", "-w", "age > 21")

	assert.Equal(t, "SELECT `id`, `name` FROM `users` WHERE `age` > :c0", got.SQL)
}

func TestSQLInsert(t *testing.T) {
	got := compileJSON(t, "sql", "insert", "--dialect", "sqlite",
		"--table", "users", "--set", "name=alice", "--set", "age=30")

	assert.Equal(t, "INSERT INTO users (name, age) VALUES (:c0, :c1)", got.SQL)
	assert.Len(t, got.Bindings, 2)
}

func TestSQLUpdate(t *testing.T) {
	got := compileJSON(t, "sql", "update", "--dialect", "postgres",
		"--table", "users", "--set", "status=banned", "--where", "id = 7")

	assert.Equal(t, "UPDATE users SET status = :c0 WHERE id = :c1", got.SQL)
}

func TestSQLDelete(t *testing.T) {
	got := compileJSON(t, "sql", "delete", "--dialect", "sqlite",
		"--table", "users", "--where", "id = 7")

	assert.Equal(t, "DELETE FROM users WHERE id = :c0", got.SQL)
}

func TestSQL_Errors(t *testing.T) {
	_, err := run(t, "sql", "select", "--dialect", "mysql")
	assert.Error(t, err, "table is required")

	_, err = run(t, "sql", "insert", "--dialect", "mysql", "--table", "users")
	assert.ErrorContains(t, err, "--set")

	_, err = run(t, "sql", "select", "--dialect", "oracle", "--table", "users")
	assert.Error(t, err)

	_, err = run(t, "sql", "select", "--dialect", "mysql", "--table", "users", "--where", "nonsense")
	assert.ErrorContains(t, err, "invalid condition")
}

func TestSQLSelect_Pretty(t *testing.T) {
	out, err := run(t, "sql", "select", "--dialect", "sqlite", "--table", "users", "--where", "id = 3")
	require.NoError(t, err)
	assert.Contains(t, out, "SELECT * FROM users WHERE id = :c0")
	assert.Contains(t, out, "int64")
}

// sqliteConfig writes a config file for a fresh SQLite database holding a
// users table with two rows.
func sqliteConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	dbFile := filepath.Join(dir, "bear.db")
	cfgFile := filepath.Join(dir, "bear.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("driver: sqlite\ndatabase: "+dbFile+"\n"), 0o600))

	conn, err := database.Open(database.Config{Driver: "sqlite", Database: dbFile})
	require.NoError(t, err)
	ctx := context.Background()
	if err := conn.Connect(ctx); err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer conn.Disconnect()

	for _, sql := range []string{
		`CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, name VARCHAR(50) NOT NULL)`,
		`INSERT INTO users (name) VALUES ('ann'), ('bob')`,
	} {
		stmt, err := conn.Execute(ctx, sql, nil)
		require.NoError(t, err)
		require.NoError(t, stmt.Close())
	}
	return cfgFile
}

func TestSchemaDescribe(t *testing.T) {
	cfg := sqliteConfig(t)

	out, err := run(t, "--config", cfg, "schema", "describe", "users", "--json")
	require.NoError(t, err)

	var views []tableView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "users", views[0].Name)
	require.Len(t, views[0].Columns, 2)
	assert.Equal(t, "id", views[0].Columns[0].Name)
	assert.True(t, views[0].Columns[0].AutoIncrement)
	assert.Equal(t, "name", views[0].Columns[1].Name)

	out, err = run(t, "--config", cfg, "schema", "describe")
	require.NoError(t, err)
	assert.Contains(t, out, "users")
	assert.Contains(t, out, "auto increment")
}

func TestSchemaDescribe_Markdown(t *testing.T) {
	cfg := sqliteConfig(t)

	out, err := run(t, "--config", cfg, "schema", "describe", "users", "--markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "users")
	assert.Contains(t, out, "Column")
	assert.Contains(t, out, "name")
}

func TestMarkdownOf(t *testing.T) {
	users := schema.NewTable("users")
	require.NoError(t, users.AddColumn(schema.Column{Name: "id", Type: schema.TypeInteger, AutoIncrement: true}))
	require.NoError(t, users.AddConstraint(schema.Constraint{Name: "primary", Type: schema.ConstraintPrimary, Columns: []string{"id"}}))

	md, err := markdownOf([]*schema.TableSchema{users})
	require.NoError(t, err)
	assert.Contains(t, md, "## users")
	assert.Regexp(t, `\|\s+id\s+\|`, md)
	assert.Contains(t, md, "auto increment")
	assert.Contains(t, md, "primary")
}

func TestSchemaDescribe_Suggests(t *testing.T) {
	cfg := sqliteConfig(t)

	_, err := run(t, "--config", cfg, "schema", "describe", "userz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did you mean users")
}

func TestSchemaCreate(t *testing.T) {
	cfg := sqliteConfig(t)

	out, err := run(t, "--config", cfg, "schema", "create", "users", "--dialect", "mysql")
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE `users`")
	assert.Contains(t, out, "AUTO_INCREMENT")
}

func TestSchemaTablesAndDrop(t *testing.T) {
	cfg := sqliteConfig(t)

	out, err := run(t, "--config", cfg, "schema", "tables", "--count")
	require.NoError(t, err)
	assert.Contains(t, out, "users")
	assert.Contains(t, out, "2")

	_, err = run(t, "--config", cfg, "schema", "drop", "users", "--truncate", "--yes")
	require.NoError(t, err)
	out, err = run(t, "--config", cfg, "schema", "tables", "--count")
	require.NoError(t, err)
	assert.Contains(t, out, "0")

	_, err = run(t, "--config", cfg, "schema", "drop", "users", "-y")
	require.NoError(t, err)
	out, err = run(t, "--config", cfg, "schema", "tables")
	require.NoError(t, err)
	assert.NotContains(t, out, "users")
}

func TestConfigShow(t *testing.T) {
	cfg := sqliteConfig(t)

	out, err := run(t, "--config", cfg, "config", "show", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"Driver": "sqlite"`)
	assert.Contains(t, out, cfg)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", ".bear.yaml")

	_, err := run(t, "config", "init", "--path", path, "--driver", "postgres", "--database", "app", "--host", "db")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "driver: postgres")
	assert.Contains(t, string(data), "host: db")

	_, err = run(t, "config", "init", "--path", path, "--driver", "sqlite", "--database", "x")
	assert.ErrorContains(t, err, "already exists")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "bear version")
}
