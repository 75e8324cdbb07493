package query

import (
	"context"

	"github.com/satishbabariya/bear/database/binder"
	"github.com/satishbabariya/bear/database/driver"
	"github.com/satishbabariya/bear/database/statement"
)

// Connection compiles and executes queries. It is implemented by
// database.Connection.
type Connection interface {
	Driver() driver.Driver
	CompileQuery(q *Query, b *binder.ValueBinder) (string, error)
	ExecuteQuery(ctx context.Context, q *Query) (*statement.Statement, error)
}

// Statement is the prepared statement returned by Execute.
type Statement = statement.Statement
