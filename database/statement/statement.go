// Package statement wraps database/sql prepared statements with named
// placeholder binding and an explicit acquire/use/close lifecycle.
package statement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrClosed is returned when a closed statement is used.
	ErrClosed = errors.New("statement is closed")

	// ErrNotExecuted is returned when results are read before Execute.
	ErrNotExecuted = errors.New("statement has not been executed")

	// ErrMissingBinding is returned when a placeholder has no bound value.
	ErrMissingBinding = errors.New("missing value for placeholder")
)

// Preparer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// PlaceholderFunc renders the placeholder for a 1-based position.
type PlaceholderFunc func(position int) string

// Statement is a prepared statement. Callers must Close it on every path;
// Close is idempotent so it is always safe to defer.
type Statement struct {
	query     string
	rewritten string
	names     []string
	values    map[string]any

	stmt   *sql.Stmt
	rows   *sql.Rows
	result sql.Result

	columns  []string
	fetched  int64
	executed bool
	closed   bool
}

// Prepare rewrites query for the driver and prepares it on p.
func Prepare(ctx context.Context, p Preparer, placeholder PlaceholderFunc, query string) (*Statement, error) {
	rewritten, names := Rewrite(query, placeholder)
	stmt, err := p.PrepareContext(ctx, rewritten)
	if err != nil {
		return nil, fmt.Errorf("prepare statement: %w", err)
	}
	return &Statement{
		query:     query,
		rewritten: rewritten,
		names:     names,
		values:    make(map[string]any, len(names)),
		stmt:      stmt,
	}, nil
}

// SQL returns the statement text as compiled, with named placeholders.
func (s *Statement) SQL() string {
	return s.query
}

// DriverSQL returns the statement text sent to the driver.
func (s *Statement) DriverSQL() string {
	return s.rewritten
}

// Bind sets the value of a placeholder. Names may be given with or
// without the leading colon; positional parameters use their 0-based
// index.
func (s *Statement) Bind(placeholder string, value any) {
	s.values[strings.TrimPrefix(placeholder, ":")] = value
}

// Params returns the positional argument list for the bound values.
func (s *Statement) Params() ([]any, error) {
	args := make([]any, 0, len(s.names))
	for _, name := range s.names {
		v, ok := s.values[name]
		if !ok {
			return nil, fmt.Errorf("%w :%s", ErrMissingBinding, name)
		}
		args = append(args, v)
	}
	return args, nil
}

// Execute runs the statement. Row returning statements keep a cursor open
// until the rows are consumed or Close is called.
func (s *Statement) Execute(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	args, err := s.Params()
	if err != nil {
		return err
	}
	if s.rows != nil {
		_ = s.rows.Close()
		s.rows = nil
	}
	s.fetched = 0
	s.result = nil

	if returnsRows(s.query) {
		rows, err := s.stmt.QueryContext(ctx, args...)
		if err != nil {
			return err
		}
		cols, err := rows.Columns()
		if err != nil {
			_ = rows.Close()
			return err
		}
		s.rows = rows
		s.columns = cols
	} else {
		res, err := s.stmt.ExecContext(ctx, args...)
		if err != nil {
			return err
		}
		s.result = res
	}
	s.executed = true
	return nil
}

// Columns returns the result column names of a row returning statement.
func (s *Statement) Columns() []string {
	return s.columns
}

// Fetch returns the next row, or nil when the cursor is exhausted.
func (s *Statement) Fetch() (map[string]any, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if !s.executed {
		return nil, ErrNotExecuted
	}
	if s.rows == nil {
		return nil, nil
	}
	if !s.rows.Next() {
		err := s.rows.Err()
		s.closeCursor()
		return nil, err
	}

	values := make([]any, len(s.columns))
	ptrs := make([]any, len(s.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := s.rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	row := make(map[string]any, len(s.columns))
	for i, col := range s.columns {
		if b, ok := values[i].([]byte); ok {
			row[col] = string(b)
			continue
		}
		row[col] = values[i]
	}
	s.fetched++
	return row, nil
}

// FetchAll reads every remaining row and releases the cursor.
func (s *Statement) FetchAll() ([]map[string]any, error) {
	var out []map[string]any
	defer s.closeCursor()
	for {
		row, err := s.Fetch()
		if err != nil {
			return nil, err
		}
		if row == nil {
			return out, nil
		}
		out = append(out, row)
	}
}

// RowCount returns the affected rows for write statements and the number
// of rows fetched so far for queries.
func (s *Statement) RowCount() (int64, error) {
	if !s.executed {
		return 0, ErrNotExecuted
	}
	if s.result != nil {
		return s.result.RowsAffected()
	}
	return s.fetched, nil
}

// LastInsertID returns the id generated by the last insert.
func (s *Statement) LastInsertID() (int64, error) {
	if s.result == nil {
		return 0, ErrNotExecuted
	}
	return s.result.LastInsertId()
}

// CloseCursor releases the open result set, keeping the statement usable.
func (s *Statement) CloseCursor() error {
	return s.closeCursor()
}

func (s *Statement) closeCursor() error {
	if s.rows == nil {
		return nil
	}
	err := s.rows.Close()
	s.rows = nil
	return err
}

// Close releases the cursor and the prepared statement.
func (s *Statement) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	cursorErr := s.closeCursor()
	stmtErr := s.stmt.Close()
	return errors.Join(cursorErr, stmtErr)
}

// returnsRows reports whether query produces a result set.
func returnsRows(query string) bool {
	q := strings.TrimLeft(query, " \t\r\n(")
	if i := strings.IndexAny(q, " \t\r\n("); i > 0 {
		q = q[:i]
	}
	switch strings.ToUpper(q) {
	case "SELECT", "WITH", "SHOW", "PRAGMA", "DESCRIBE", "DESC", "EXPLAIN", "VALUES":
		return true
	}
	return strings.Contains(strings.ToUpper(query), " RETURNING ")
}
