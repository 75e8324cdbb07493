package query

import (
	"errors"
	"fmt"
)

var (
	// ErrQueryExpression reports a malformed condition or expression.
	ErrQueryExpression = errors.New("query expression error")

	// ErrInvalidArgument reports a builder call with conflicting or unusable input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNoConnection is returned when a query without a connection is compiled or executed.
	ErrNoConnection = errors.New("query has no connection")
)

// ExpressionError describes why an expression could not be built or rendered.
type ExpressionError struct {
	Message string
	Err     error
}

func (e *ExpressionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err, e.Message)
}

func (e *ExpressionError) Unwrap() error {
	return e.Err
}

func expressionError(format string, args ...any) error {
	return &ExpressionError{Message: fmt.Sprintf(format, args...), Err: ErrQueryExpression}
}

func invalidArgument(format string, args ...any) error {
	return &ExpressionError{Message: fmt.Sprintf(format, args...), Err: ErrInvalidArgument}
}
