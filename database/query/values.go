package query

import (
	"strings"

	"github.com/satishbabariya/bear/database/binder"
)

// ValuesExpression holds the rows of an INSERT. The rows come either from
// literal column to value maps or from a sub-query, never both.
type ValuesExpression struct {
	columns []string
	rows    []map[string]any
	query   *Query
}

// Values creates an empty VALUES list for columns.
func Values(columns ...string) *ValuesExpression {
	return &ValuesExpression{columns: append([]string(nil), columns...)}
}

// Columns returns the inserted columns.
func (e *ValuesExpression) Columns() []string {
	return append([]string(nil), e.columns...)
}

// SetColumns replaces the inserted columns.
func (e *ValuesExpression) SetColumns(columns ...string) *ValuesExpression {
	e.columns = append([]string(nil), columns...)
	return e
}

// Rows returns the literal rows.
func (e *ValuesExpression) Rows() []map[string]any {
	return e.rows
}

// Query returns the sub-query providing the rows, if any.
func (e *ValuesExpression) Query() *Query {
	return e.query
}

// Add appends a row (map[string]any), a list of rows or a sub-query.
// Mixing literal rows with a sub-query fails with ErrInvalidArgument.
func (e *ValuesExpression) Add(data any) error {
	switch v := data.(type) {
	case *Query:
		if len(e.rows) > 0 {
			return invalidArgument("cannot mix subqueries and literal rows in an insert")
		}
		e.query = v
		return nil
	case map[string]any:
		if e.query != nil {
			return invalidArgument("cannot mix subqueries and literal rows in an insert")
		}
		e.rows = append(e.rows, v)
		return nil
	case []map[string]any:
		for _, row := range v {
			if err := e.Add(row); err != nil {
				return err
			}
		}
		return nil
	}
	return invalidArgument("unsupported insert values %T", data)
}

// SQL renders "VALUES (...), (...)" or the sub-query.
func (e *ValuesExpression) SQL(b *binder.ValueBinder) (string, error) {
	if e.query != nil {
		return e.query.SQL(b)
	}
	if len(e.rows) == 0 {
		return "", nil
	}

	rows := make([]string, 0, len(e.rows))
	for _, row := range e.rows {
		placeholders := make([]string, 0, len(e.columns))
		for _, col := range e.columns {
			sql, err := renderValue(row[col], b)
			if err != nil {
				return "", err
			}
			placeholders = append(placeholders, sql)
		}
		rows = append(rows, "("+strings.Join(placeholders, ", ")+")")
	}
	return "VALUES " + strings.Join(rows, ", "), nil
}

// Traverse visits the sub-query and expression typed row values.
func (e *ValuesExpression) Traverse(visit func(Expression)) {
	if e.query != nil {
		visit(e.query)
		return
	}
	for _, row := range e.rows {
		for _, col := range e.columns {
			traverseValue(row[col], visit)
		}
	}
}

func (e *ValuesExpression) clone() Expression {
	cp := &ValuesExpression{columns: append([]string(nil), e.columns...)}
	if e.query != nil {
		cp.query = e.query.Clone()
	}
	for _, row := range e.rows {
		r := make(map[string]any, len(row))
		for k, v := range row {
			r[k] = cloneValue(v)
		}
		cp.rows = append(cp.rows, r)
	}
	return cp
}
