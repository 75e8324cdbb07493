package database_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	sqldriver "database/sql/driver"

	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/bear/database"
	"github.com/satishbabariya/bear/database/query"
	"github.com/satishbabariya/bear/internal/telemetry"
)

func openSQLite(t *testing.T, opts ...database.Option) *database.Connection {
	t.Helper()

	conn, err := database.Open(database.Config{Driver: "sqlite"}, opts...)
	require.NoError(t, err)
	if err := conn.Connect(context.Background()); err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = conn.Disconnect() })

	stmt, err := conn.Execute(context.Background(), `CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		age INTEGER
	)`, nil)
	require.NoError(t, err)
	require.NoError(t, stmt.Close())
	return conn
}

func count(t *testing.T, conn *database.Connection) int64 {
	t.Helper()
	row, err := conn.SelectQuery(query.As("n", "COUNT(*)")).From("users").First(context.Background())
	require.NoError(t, err)
	return row["n"].(int64)
}

func seed(t *testing.T, conn *database.Connection) {
	t.Helper()
	n, err := conn.InsertQuery("users", "name", "age").
		Values([]map[string]any{
			{"name": "ann", "age": 31},
			{"name": "bob", "age": 17},
			{"name": "cid", "age": 45},
		}).
		RowCountAndClose(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := database.Open(database.Config{Driver: "oracle"})
	assert.Error(t, err)
}

func TestConnection_CRUD(t *testing.T) {
	ctx := context.Background()
	metrics := telemetry.NewMemory()
	conn := openSQLite(t, database.WithTelemetry(metrics))
	assert.NotEmpty(t, conn.Driver().ServerVersion())

	seed(t, conn)

	rows, err := conn.SelectQuery("id", "name").
		From("users").
		Where(query.KV{Key: "age >", Value: 18}).
		OrderByAsc("name").
		All(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ann", rows[0]["name"])
	assert.Equal(t, "cid", rows[1]["name"])

	n, err := conn.UpdateQuery("users").
		Set("age", 18).
		Where(query.KV{Key: "name", Value: "bob"}).
		RowCountAndClose(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	row, err := conn.SelectQuery("age").From("users").Where(query.KV{Key: "name", Value: "bob"}).First(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(18), row["age"])

	n, err = conn.DeleteQuery("users").WhereIn("name", []string{"ann", "cid"}).RowCountAndClose(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, int64(1), count(t, conn))

	missing, err := conn.SelectQuery().From("users").Where(query.KV{Key: "name", Value: "zed"}).First(ctx)
	require.NoError(t, err)
	assert.Nil(t, missing)

	s := metrics.Snapshot()
	assert.Equal(t, int64(1), s.Queries["insert"])
	assert.Equal(t, int64(1), s.Queries["update"])
	assert.Equal(t, int64(1), s.Queries["delete"])
	assert.Equal(t, int64(2), s.Rows["delete"])
	assert.Equal(t, int64(1), s.Connections["connect"])
}

func TestConnection_ReExecuteAfterChange(t *testing.T) {
	ctx := context.Background()
	conn := openSQLite(t)
	seed(t, conn)

	q := conn.SelectQuery("name").From("users").Where(query.KV{Key: "age >", Value: 40})
	rows, err := q.All(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	q.OrWhere(query.KV{Key: "age <", Value: 18})
	assert.True(t, q.IsDirty())
	rows, err = q.All(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, 2, q.ValueBinder().Len())
}

func TestConnection_RawExecute(t *testing.T) {
	ctx := context.Background()
	conn := openSQLite(t)
	seed(t, conn)

	stmt, err := conn.Execute(ctx, "SELECT name FROM users WHERE age BETWEEN :lo AND :hi ORDER BY name", map[string]any{"lo": 18, "hi": 40})
	require.NoError(t, err)
	defer stmt.Close()

	rows, err := stmt.FetchAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ann", rows[0]["name"])
}

func TestConnection_Transactional(t *testing.T) {
	ctx := context.Background()
	conn := openSQLite(t)

	insert := func(name string) func(context.Context, *database.Connection) error {
		return func(ctx context.Context, c *database.Connection) error {
			_, err := c.InsertQuery("users", "name").Values(map[string]any{"name": name}).RowCountAndClose(ctx)
			return err
		}
	}

	require.NoError(t, conn.Transactional(ctx, insert("ann")))
	assert.Equal(t, int64(1), count(t, conn))

	boom := errors.New("boom")
	err := conn.Transactional(ctx, func(ctx context.Context, c *database.Connection) error {
		require.NoError(t, insert("bob")(ctx, c))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, conn.InTransaction())
	assert.Equal(t, int64(1), count(t, conn))

	assert.Panics(t, func() {
		_ = conn.Transactional(ctx, func(ctx context.Context, c *database.Connection) error {
			require.NoError(t, insert("cid")(ctx, c))
			panic("kaboom")
		})
	})
	assert.False(t, conn.InTransaction())
	assert.Equal(t, int64(1), count(t, conn))
}

func TestConnection_NestedSavepoints(t *testing.T) {
	ctx := context.Background()
	conn := openSQLite(t)

	require.NoError(t, conn.Begin(ctx))
	_, err := conn.InsertQuery("users", "name").Values(map[string]any{"name": "outer"}).RowCountAndClose(ctx)
	require.NoError(t, err)

	require.NoError(t, conn.Begin(ctx))
	assert.Equal(t, 2, conn.TransactionLevel())
	_, err = conn.InsertQuery("users", "name").Values(map[string]any{"name": "inner"}).RowCountAndClose(ctx)
	require.NoError(t, err)
	require.NoError(t, conn.Rollback(ctx))
	assert.Equal(t, 1, conn.TransactionLevel())

	require.NoError(t, conn.Commit(ctx))
	assert.Equal(t, 0, conn.TransactionLevel())

	rows, err := conn.SelectQuery("name").From("users").All(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "outer", rows[0]["name"])

	assert.ErrorIs(t, conn.Commit(ctx), database.ErrTransaction)
	assert.ErrorIs(t, conn.Rollback(ctx), database.ErrTransaction)
}

func TestReconnectStrategy(t *testing.T) {
	ctx := context.Background()
	conn := openSQLite(t)
	strategy := database.NewReconnectStrategy(conn)

	assert.False(t, strategy.ShouldRetry(ctx, errors.New("syntax error"), 0))

	require.NoError(t, conn.Begin(ctx))
	assert.False(t, strategy.ShouldRetry(ctx, sqldriver.ErrBadConn, 0))
	require.NoError(t, conn.Rollback(ctx))

	assert.True(t, strategy.ShouldRetry(ctx, sqldriver.ErrBadConn, 0))
	assert.True(t, conn.IsConnected())
}

func TestReconnectStrategy_ConcurrentStatements(t *testing.T) {
	ctx := context.Background()
	conn, err := database.Open(database.Config{
		Driver:   "sqlite",
		Database: filepath.Join(t.TempDir(), "bear.db"),
	})
	require.NoError(t, err)
	if err := conn.Connect(ctx); err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = conn.Disconnect() })
	strategy := database.NewReconnectStrategy(conn)

	var wg conc.WaitGroup
	for range 4 {
		wg.Go(func() {
			for range 25 {
				stmt, err := conn.Execute(ctx, "SELECT 1 AS one", nil)
				if err != nil {
					// statements in flight on a replaced handle may fail
					continue
				}
				_, _ = stmt.FetchAll()
				_ = stmt.Close()
			}
		})
	}
	wg.Go(func() {
		for range 5 {
			strategy.ShouldRetry(ctx, sqldriver.ErrBadConn, 0)
		}
	})
	require.NotPanics(t, wg.Wait)

	assert.True(t, conn.IsConnected())
	stmt, err := conn.Execute(ctx, "SELECT 1 AS one", nil)
	require.NoError(t, err)
	defer stmt.Close()
	rows, err := stmt.FetchAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 1, rows[0]["one"])
}
