package statement_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/satishbabariya/bear/database/statement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func question(int) string { return "?" }

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

func TestRewrite(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		ph        statement.PlaceholderFunc
		wantSQL   string
		wantNames []string
	}{
		{
			name:      "named to question marks",
			in:        "SELECT * FROM users WHERE age > :c0 AND name = :name",
			ph:        question,
			wantSQL:   "SELECT * FROM users WHERE age > ? AND name = ?",
			wantNames: []string{"c0", "name"},
		},
		{
			name:      "named to dollar",
			in:        "SELECT * FROM users WHERE id IN (:c0,:c1)",
			ph:        dollar,
			wantSQL:   "SELECT * FROM users WHERE id IN ($1,$2)",
			wantNames: []string{"c0", "c1"},
		},
		{
			name:      "quoted text untouched",
			in:        "SELECT ':skip', \"a:b\" FROM t WHERE x = :c0",
			ph:        dollar,
			wantSQL:   "SELECT ':skip', \"a:b\" FROM t WHERE x = $1",
			wantNames: []string{"c0"},
		},
		{
			name:      "casts untouched",
			in:        "SELECT created::date FROM t WHERE id = :c0",
			ph:        dollar,
			wantSQL:   "SELECT created::date FROM t WHERE id = $1",
			wantNames: []string{"c0"},
		},
		{
			name:      "positional",
			in:        "SELECT * FROM t WHERE a = ? AND b = ?",
			ph:        dollar,
			wantSQL:   "SELECT * FROM t WHERE a = $1 AND b = $2",
			wantNames: []string{"0", "1"},
		},
		{
			name:      "repeated name",
			in:        "SELECT * FROM t WHERE a = :v OR b = :v",
			ph:        question,
			wantSQL:   "SELECT * FROM t WHERE a = ? OR b = ?",
			wantNames: []string{"v", "v"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, names := statement.Rewrite(tt.in, tt.ph)
			assert.Equal(t, tt.wantSQL, got)
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		t.Skipf("sqlite3 unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStatement_Lifecycle(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	_, err := db.Exec("CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, age INTEGER)")
	require.NoError(t, err)

	insert, err := statement.Prepare(ctx, db, question, "INSERT INTO users (name, age) VALUES (:c0, :c1)")
	require.NoError(t, err)
	defer insert.Close()

	for i, name := range []string{"ann", "bob", "cid"} {
		insert.Bind(":c0", name)
		insert.Bind("c1", 20+i*10)
		require.NoError(t, insert.Execute(ctx))
		count, err := insert.RowCount()
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	}
	id, err := insert.LastInsertID()
	require.NoError(t, err)
	assert.EqualValues(t, 3, id)

	sel, err := statement.Prepare(ctx, db, question, "SELECT name, age FROM users WHERE age > :c0 ORDER BY age")
	require.NoError(t, err)
	defer sel.Close()

	sel.Bind("c0", 25)
	require.NoError(t, sel.Execute(ctx))
	assert.Equal(t, []string{"name", "age"}, sel.Columns())

	first, err := sel.Fetch()
	require.NoError(t, err)
	assert.Equal(t, "bob", first["name"])

	rest, err := sel.FetchAll()
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "cid", rest[0]["name"])

	require.NoError(t, sel.Close())
	require.NoError(t, sel.Close())
	assert.ErrorIs(t, sel.Execute(ctx), statement.ErrClosed)
}

func TestStatement_MissingBinding(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	stmt, err := statement.Prepare(ctx, db, question, "SELECT :c0 AS v")
	require.NoError(t, err)
	defer stmt.Close()

	assert.ErrorIs(t, stmt.Execute(ctx), statement.ErrMissingBinding)

	_, err = stmt.Fetch()
	assert.ErrorIs(t, err, statement.ErrNotExecuted)
}
