package schema

import (
	"errors"
	"fmt"
)

// ErrSchema reports an invalid table definition.
var ErrSchema = errors.New("schema error")

// Error describes an invalid column, index or constraint definition.
type Error struct {
	Table   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("schema error: table %s: %s", e.Table, e.Message)
}

func (e *Error) Unwrap() error {
	return ErrSchema
}

func schemaError(table, format string, args ...any) error {
	return &Error{Table: table, Message: fmt.Sprintf(format, args...)}
}

// ErrTableNotFound is returned when describing a table that does not exist.
var ErrTableNotFound = errors.New("table not found")
