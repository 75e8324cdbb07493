package schema

import (
	"context"
	"fmt"

	"github.com/satishbabariya/bear/database/driver"
	"github.com/satishbabariya/bear/database/statement"
	"github.com/satishbabariya/bear/internal/debug"
)

// Executor runs raw SQL with named parameters. *database.Connection
// satisfies it.
type Executor interface {
	Driver() driver.Driver
	Execute(ctx context.Context, sql string, params map[string]any) (*statement.Statement, error)
}

// Collection reads and writes table definitions on a live database.
type Collection struct {
	exec    Executor
	dialect Dialect
}

// NewCollection creates a collection for the executor's engine.
func NewCollection(exec Executor) (*Collection, error) {
	d, err := NewDialect(exec.Driver())
	if err != nil {
		return nil, err
	}
	return &Collection{exec: exec, dialect: d}, nil
}

// Dialect returns the DDL dialect in use.
func (c *Collection) Dialect() Dialect {
	return c.dialect
}

// ListTables returns the table names of the current database.
func (c *Collection) ListTables(ctx context.Context) ([]string, error) {
	sql, params := c.dialect.ListTablesSQL()
	rows, err := c.fetch(ctx, sql, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, rowString(row, "name"))
	}
	return names, nil
}

// Describe reads a table's columns, indexes, foreign keys and options.
func (c *Collection) Describe(ctx context.Context, name string) (*TableSchema, error) {
	t := NewTable(name)

	steps := []struct {
		what    string
		sql     func(string) (string, map[string]any)
		convert func(*TableSchema, map[string]any) error
	}{
		{"columns", c.dialect.DescribeColumnSQL, c.dialect.ConvertColumn},
		{"indexes", c.dialect.DescribeIndexSQL, c.dialect.ConvertIndex},
		{"foreign keys", c.dialect.DescribeForeignKeySQL, c.dialect.ConvertForeignKey},
		{"options", c.dialect.DescribeOptionsSQL, func(t *TableSchema, row map[string]any) error {
			c.dialect.ConvertOptions(t, row)
			return nil
		}},
	}

	for _, step := range steps {
		sql, params := step.sql(name)
		if sql == "" {
			continue
		}
		rows, err := c.fetch(ctx, sql, params)
		if err != nil {
			return nil, fmt.Errorf("failed to describe %s of %s: %w", step.what, name, err)
		}
		if step.what == "columns" && len(rows) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
		}
		for _, row := range rows {
			if err := step.convert(t, row); err != nil {
				return nil, err
			}
		}
	}

	debug.Debug("described table", "table", name,
		"columns", len(t.columns), "indexes", len(t.indexes), "constraints", len(t.constraints))
	return t, nil
}

// Create runs the CREATE TABLE statements for t.
func (c *Collection) Create(ctx context.Context, t *TableSchema) error {
	stmts, err := c.dialect.CreateTableSQL(t)
	if err != nil {
		return err
	}
	return c.run(ctx, stmts)
}

// Drop drops t.
func (c *Collection) Drop(ctx context.Context, t *TableSchema) error {
	return c.run(ctx, c.dialect.DropTableSQL(t))
}

// Truncate deletes every row of t.
func (c *Collection) Truncate(ctx context.Context, t *TableSchema) error {
	return c.run(ctx, c.dialect.TruncateTableSQL(t))
}

func (c *Collection) run(ctx context.Context, stmts []string) error {
	for _, sql := range stmts {
		stmt, err := c.exec.Execute(ctx, sql, nil)
		if err != nil {
			return fmt.Errorf("failed to execute %q: %w", sql, err)
		}
		_ = stmt.Close()
	}
	return nil
}

func (c *Collection) fetch(ctx context.Context, sql string, params map[string]any) ([]map[string]any, error) {
	stmt, err := c.exec.Execute(ctx, sql, params)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	return stmt.FetchAll()
}
