// Package query builds SQL queries as expression trees and compiles them
// into parameterized SQL text.
package query

import (
	"reflect"

	"github.com/satishbabariya/bear/database/binder"
)

// Expression is a node of the SQL syntax tree. The set of implementations
// is closed: identifiers, comparisons, BETWEEN, CASE, unary operators,
// ORDER BY clauses, INSERT values, composite conditions and sub-queries.
type Expression interface {
	// SQL renders the node, registering any bound values on b.
	SQL(b *binder.ValueBinder) (string, error)

	// Traverse calls visit for every direct child expression.
	Traverse(visit func(Expression))

	// clone returns a deep copy of the node.
	clone() Expression
}

// Walk calls fn for every expression below e, depth first. Sub-queries are
// visited but not descended into.
func Walk(e Expression, fn func(Expression)) {
	e.Traverse(func(child Expression) {
		fn(child)
		if _, ok := child.(*Query); ok {
			return
		}
		Walk(child, fn)
	})
}

// cloneValue deep copies v when it is an expression.
func cloneValue(v any) any {
	if e, ok := v.(Expression); ok && !isNilExpression(e) {
		return e.clone()
	}
	return v
}

func isNilExpression(e Expression) bool {
	if e == nil {
		return true
	}
	rv := reflect.ValueOf(e)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

// renderField renders a field that may be a plain name or an expression.
func renderField(field any, b *binder.ValueBinder) (string, error) {
	switch f := field.(type) {
	case string:
		return f, nil
	case *Query:
		sql, err := f.SQL(b)
		if err != nil {
			return "", err
		}
		return "(" + sql + ")", nil
	case Expression:
		return f.SQL(b)
	default:
		return "", expressionError("unsupported field type %T", field)
	}
}

// renderValue renders an expression verbatim or binds a plain value.
func renderValue(value any, b *binder.ValueBinder) (string, error) {
	if e, ok := value.(Expression); ok {
		return e.SQL(b)
	}
	placeholder := b.Placeholder(binder.DefaultPrefix)
	b.Bind(placeholder, value)
	return placeholder, nil
}

// flattenValues expands slices and arrays into a list of values. nil
// yields an empty list; any other value a single element list.
func flattenValues(v any) []any {
	if v == nil {
		return []any{}
	}
	if list, ok := v.([]any); ok {
		return append([]any{}, list...)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if _, isBytes := v.([]byte); isBytes {
			return []any{v}
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []any{v}
}

func traverseValue(v any, visit func(Expression)) {
	if e, ok := v.(Expression); ok && !isNilExpression(e) {
		visit(e)
	}
}
