// Package database connects the query builder to database/sql. A
// Connection compiles queries for its driver, prepares and executes them,
// manages nested transactions through savepoints and reconnects after
// transient failures.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/satishbabariya/bear/database/binder"
	"github.com/satishbabariya/bear/database/driver"
	"github.com/satishbabariya/bear/database/query"
	"github.com/satishbabariya/bear/database/statement"
	"github.com/satishbabariya/bear/internal/debug"
	"github.com/satishbabariya/bear/internal/telemetry"
)

// Connection is a database handle bound to a driver. Its transaction state
// belongs to a single goroutine; open separate Connections for concurrent
// transactions.
type Connection struct {
	cfg    Config
	driver driver.Driver
	owned  bool

	mu sync.RWMutex // guards db
	db *sql.DB

	tx      *sql.Tx
	txLevel int

	logQueries bool
	retry      *CommandRetry
	telemetry  telemetry.Telemetry
}

// Option configures a Connection.
type Option func(*Connection)

// WithTelemetry sets the telemetry collector.
func WithTelemetry(t telemetry.Telemetry) Option {
	return func(c *Connection) {
		if t != nil {
			c.telemetry = t
		}
	}
}

// WithQueryLogging toggles statement logging.
func WithQueryLogging(enable bool) Option {
	return func(c *Connection) {
		c.logQueries = enable
	}
}

// WithRetry replaces the retry policy.
func WithRetry(config RetryConfig) Option {
	return func(c *Connection) {
		c.retry = NewCommandRetry(NewReconnectStrategy(c), config)
	}
}

// Open creates a Connection from cfg. The database is contacted on
// Connect or on the first statement.
func Open(cfg Config, opts ...Option) (*Connection, error) {
	d, err := driver.New(cfg.Driver)
	if err != nil {
		return nil, err
	}
	d.EnableAutoQuoting(cfg.AutoQuote)

	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryConfig()
	}

	c := &Connection{
		cfg:        cfg,
		driver:     d,
		owned:      true,
		logQueries: cfg.LogQueries,
		telemetry:  cfg.Telemetry,
	}
	c.retry = NewCommandRetry(NewReconnectStrategy(c), retry)
	if c.telemetry == nil {
		c.telemetry = telemetry.NewNoop()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// New wraps an open *sql.DB. The Connection does not reconnect or close a
// database it did not open.
func New(db *sql.DB, d driver.Driver, opts ...Option) *Connection {
	c := &Connection{
		driver:    d,
		db:        db,
		telemetry: telemetry.NewNoop(),
	}
	c.retry = NewCommandRetry(NewReconnectStrategy(c), RetryConfig{MaxAttempts: 1})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Driver returns the SQL dialect driver.
func (c *Connection) Driver() driver.Driver {
	return c.driver
}

// DB returns the underlying handle, or nil before Connect.
func (c *Connection) DB() *sql.DB {
	return c.handle()
}

func (c *Connection) handle() *sql.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// IsConnected reports whether a database handle is open.
func (c *Connection) IsConnected() bool {
	return c.handle() != nil
}

// Connect opens and pings the database and records the server version on
// the driver.
func (c *Connection) Connect(ctx context.Context) error {
	start := time.Now()
	c.mu.Lock()
	err := c.connect(ctx)
	c.mu.Unlock()
	c.telemetry.RecordConnection(ctx, telemetry.ConnectionInfo{
		Event:    "connect",
		Duration: time.Since(start),
		Success:  err == nil,
	})
	return err
}

// connect requires c.mu to be held for writing.
func (c *Connection) connect(ctx context.Context) error {
	if c.db == nil {
		if !c.owned {
			return ErrNotConnected
		}
		db, err := sql.Open(c.driver.SQLDriverName(), c.cfg.DataSourceName(c.driver))
		if err != nil {
			return fmt.Errorf("open %s: %w", c.driver.Dialect(), err)
		}
		c.configurePool(db)
		c.db = db
	}

	if err := c.db.PingContext(ctx); err != nil {
		if c.owned {
			_ = c.db.Close()
			c.db = nil
		}
		return fmt.Errorf("connect %s: %w", c.driver.Dialect(), err)
	}

	var v string
	if err := c.db.QueryRowContext(ctx, c.driver.VersionSQL()).Scan(&v); err == nil {
		c.driver.SetServerVersion(v)
	} else {
		debug.Warn("could not read server version", "error", err)
	}
	debug.Debug("connected", "driver", c.driver.Dialect(), "version", c.driver.ServerVersion())
	return nil
}

func (c *Connection) configurePool(db *sql.DB) {
	if c.cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.cfg.MaxOpenConns)
	}
	if c.cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(c.cfg.MaxIdleConns)
	}
	if c.cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(c.cfg.ConnMaxLifetime)
	}
	// every connection to an in-memory SQLite database is a new database
	if c.driver.Dialect() == driver.SQLite && strings.Contains(c.cfg.DataSourceName(c.driver), ":memory:") {
		db.SetMaxOpenConns(1)
	}
}

// Disconnect closes the database handle. An open transaction is rolled
// back first.
func (c *Connection) Disconnect() error {
	if c.tx != nil {
		_ = c.tx.Rollback()
		c.tx = nil
		c.txLevel = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.close()
}

// close requires c.mu to be held for writing.
func (c *Connection) close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	c.telemetry.RecordConnection(context.Background(), telemetry.ConnectionInfo{Event: "disconnect", Success: err == nil})
	return err
}

// reconnect replaces the database handle while holding c.mu.
func (c *Connection) reconnect(ctx context.Context) error {
	if !c.owned {
		return ErrNotConnected
	}
	start := time.Now()
	c.mu.Lock()
	_ = c.close()
	err := c.connect(ctx)
	c.mu.Unlock()
	c.telemetry.RecordConnection(ctx, telemetry.ConnectionInfo{
		Event:    "reconnect",
		Duration: time.Since(start),
		Success:  err == nil,
	})
	return err
}

// Ping checks the database is reachable.
func (c *Connection) Ping(ctx context.Context) error {
	db := c.handle()
	if db == nil {
		return ErrNotConnected
	}
	return db.PingContext(ctx)
}

// ensureConnected returns an open handle, connecting first when needed.
func (c *Connection) ensureConnected(ctx context.Context) (*sql.DB, error) {
	if db := c.handle(); db != nil {
		return db, nil
	}
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	if db := c.handle(); db != nil {
		return db, nil
	}
	return nil, ErrNotConnected
}

// NewQuery creates an empty query bound to the connection.
func (c *Connection) NewQuery() *query.Query {
	return query.New(c)
}

// SelectQuery starts a SELECT of fields.
func (c *Connection) SelectQuery(fields ...any) *query.Query {
	return c.NewQuery().Select(fields...)
}

// InsertQuery starts an INSERT into table.
func (c *Connection) InsertQuery(table string, columns ...string) *query.Query {
	return c.NewQuery().Insert(columns...).Into(table)
}

// UpdateQuery starts an UPDATE of table.
func (c *Connection) UpdateQuery(table string) *query.Query {
	return c.NewQuery().Update(table)
}

// DeleteQuery starts a DELETE from table.
func (c *Connection) DeleteQuery(table string) *query.Query {
	return c.NewQuery().Delete(table)
}

// CompileQuery renders q for the connection's driver.
func (c *Connection) CompileQuery(q *query.Query, b *binder.ValueBinder) (string, error) {
	return query.NewCompiler(c.driver).Compile(q, b)
}

// ExecuteQuery compiles q with its own binder and executes it. The caller
// must Close the statement.
func (c *Connection) ExecuteQuery(ctx context.Context, q *query.Query) (*statement.Statement, error) {
	sql, err := q.ToSQL(nil)
	if err != nil {
		return nil, err
	}
	return c.run(ctx, string(q.Type()), sql, q.ValueBinder())
}

// Prepare prepares sql on the open transaction or the database.
func (c *Connection) Prepare(ctx context.Context, sql string) (*statement.Statement, error) {
	db, err := c.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}
	var p statement.Preparer = db
	if c.tx != nil {
		p = c.tx
	}
	return statement.Prepare(ctx, p, c.driver.Placeholder, sql)
}

// Execute runs raw SQL with named parameters. The caller must Close the
// statement.
func (c *Connection) Execute(ctx context.Context, sql string, params map[string]any) (*statement.Statement, error) {
	b := binder.New()
	for k, v := range params {
		b.Bind(":"+strings.TrimPrefix(k, ":"), v)
	}
	return c.run(ctx, "raw", sql, b)
}

// run prepares, binds and executes sql, retrying transient failures.
func (c *Connection) run(ctx context.Context, operation, sql string, b *binder.ValueBinder) (*statement.Statement, error) {
	var stmt *statement.Statement
	start := time.Now()

	err := c.retry.Run(ctx, func() error {
		s, err := c.Prepare(ctx, sql)
		if err != nil {
			return err
		}
		b.AttachTo(s)
		if err := s.Execute(ctx); err != nil {
			_ = s.Close()
			return err
		}
		stmt = s
		return nil
	})

	duration := time.Since(start)
	var rows int64
	if err == nil && operation != string(query.SelectType) {
		rows, _ = stmt.RowCount()
	}
	c.telemetry.RecordQuery(ctx, telemetry.QueryInfo{
		Operation:    operation,
		SQL:          sql,
		Duration:     duration,
		Success:      err == nil,
		RowsAffected: rows,
	})

	if err != nil {
		c.telemetry.RecordError(ctx, telemetry.ErrorInfo{Err: err, Operation: operation, SQL: sql})
		if c.logQueries {
			debug.Error("query failed", "sql", sql, "params", b.Values(), "error", err)
		}
		return nil, err
	}
	if c.logQueries {
		debug.Debug("query", "sql", sql, "params", b.Values(), "duration", duration)
	}
	return stmt, nil
}
