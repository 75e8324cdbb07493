package query

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/bear/database/binder"
)

// ComparisonExpression compares a field with a value using a binary
// operator. IN and NOT IN compare against a list of values.
type ComparisonExpression struct {
	field    any
	operator string
	value    any
	multiple bool
}

// Compare creates a comparison. field may be a column name or an
// expression; value may be a plain value, a list or an expression such as
// a sub-query.
func Compare(field any, value any, operator string) *ComparisonExpression {
	op := strings.ToUpper(strings.TrimSpace(operator))
	if op == "" {
		op = "="
	}
	return &ComparisonExpression{
		field:    field,
		operator: op,
		value:    value,
		multiple: op == "IN" || op == "NOT IN",
	}
}

// Field returns the compared field.
func (e *ComparisonExpression) Field() any { return e.field }

// Operator returns the comparison operator.
func (e *ComparisonExpression) Operator() string { return e.operator }

// Value returns the compared value.
func (e *ComparisonExpression) Value() any { return e.value }

// IsMultiple reports whether the value is a list.
func (e *ComparisonExpression) IsMultiple() bool { return e.multiple }

// SetField replaces the compared field.
func (e *ComparisonExpression) SetField(field any) { e.field = field }

// SQL renders the comparison.
func (e *ComparisonExpression) SQL(b *binder.ValueBinder) (string, error) {
	field, err := renderField(e.field, b)
	if err != nil {
		return "", err
	}

	if v, ok := e.value.(Expression); ok && !isNilExpression(v) {
		sql, err := v.SQL(b)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s (%s)", field, e.operator, sql), nil
	}

	if e.multiple {
		tokens := b.GenerateManyNamed(flattenValues(e.value))
		if len(tokens) == 0 {
			return "", expressionError("impossible to generate condition with empty list of values for field (%s)", field)
		}
		return fmt.Sprintf("%s %s (%s)", field, e.operator, strings.Join(tokens, ",")), nil
	}

	placeholder := b.Placeholder(binder.DefaultPrefix)
	b.Bind(placeholder, e.value)
	return fmt.Sprintf("%s %s %s", field, e.operator, placeholder), nil
}

// Traverse visits the field and value when they are expressions.
func (e *ComparisonExpression) Traverse(visit func(Expression)) {
	traverseValue(e.field, visit)
	traverseValue(e.value, visit)
}

func (e *ComparisonExpression) clone() Expression {
	cp := *e
	cp.field = cloneValue(e.field)
	cp.value = cloneValue(e.value)
	if list, ok := e.value.([]any); ok {
		cp.value = append([]any{}, list...)
	}
	return &cp
}
