package query

import (
	"regexp"
	"sort"
	"strings"

	"github.com/satishbabariya/bear/database/binder"
)

var orderFieldPattern = regexp.MustCompile(`^[\p{L}\p{N}_.]+$`)

// OrderClauseExpression orders by a single field in a fixed direction.
type OrderClauseExpression struct {
	field     any
	direction string
}

// OrderClause creates an ORDER BY item. field may be a column name or an
// expression.
func OrderClause(field any, direction string) *OrderClauseExpression {
	return &OrderClauseExpression{field: field, direction: strings.ToUpper(direction)}
}

// Field returns the ordered field.
func (e *OrderClauseExpression) Field() any { return e.field }

// Direction returns ASC or DESC.
func (e *OrderClauseExpression) Direction() string { return e.direction }

// SQL renders "field DIRECTION".
func (e *OrderClauseExpression) SQL(b *binder.ValueBinder) (string, error) {
	field, err := renderField(e.field, b)
	if err != nil {
		return "", err
	}
	return field + " " + e.direction, nil
}

// Traverse visits the field when it is an expression.
func (e *OrderClauseExpression) Traverse(visit func(Expression)) {
	traverseValue(e.field, visit)
}

func (e *OrderClauseExpression) clone() Expression {
	return &OrderClauseExpression{field: cloneValue(e.field), direction: e.direction}
}

// OrderByExpression is the list of ORDER BY items.
type OrderByExpression struct {
	items []any
	err   error
}

// OrderBy creates an ORDER BY list. Items are raw strings ("name DESC"),
// KV{field, "ASC"|"DESC"}, maps of field to direction, or expressions.
func OrderBy(items ...any) *OrderByExpression {
	e := &OrderByExpression{}
	return e.Add(items...)
}

// Add appends items to the list.
func (e *OrderByExpression) Add(items ...any) *OrderByExpression {
	for _, item := range items {
		if err := e.add(item); err != nil && e.err == nil {
			e.err = err
		}
	}
	return e
}

func (e *OrderByExpression) add(item any) error {
	switch v := item.(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(v) != "" {
			e.items = append(e.items, v)
		}
		return nil
	case []string:
		for _, s := range v {
			if err := e.add(s); err != nil {
				return err
			}
		}
		return nil
	case KV:
		return e.addKV(v)
	case []KV:
		for _, kv := range v {
			if err := e.addKV(kv); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := e.addKV(KV{Key: k, Value: v[k]}); err != nil {
				return err
			}
		}
		return nil
	case Expression:
		if !isNilExpression(v) {
			e.items = append(e.items, v)
		}
		return nil
	}
	return expressionError("unsupported order item %T", item)
}

func (e *OrderByExpression) addKV(kv KV) error {
	dir, ok := kv.Value.(string)
	if !ok {
		return expressionError("order direction for %q must be a string, got %T", kv.Key, kv.Value)
	}
	dir = strings.ToUpper(strings.TrimSpace(dir))
	if dir != "ASC" && dir != "DESC" {
		return expressionError("invalid order direction %q for %q", kv.Value, kv.Key)
	}
	if !orderFieldPattern.MatchString(kv.Key) {
		return expressionError("invalid order field %q", kv.Key)
	}
	e.items = append(e.items, OrderClause(kv.Key, dir))
	return nil
}

// Len returns the number of items.
func (e *OrderByExpression) Len() int {
	return len(e.items)
}

// Items returns the order items.
func (e *OrderByExpression) Items() []any {
	return append([]any(nil), e.items...)
}

// SQL renders "ORDER BY item, item".
func (e *OrderByExpression) SQL(b *binder.ValueBinder) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	parts := make([]string, 0, len(e.items))
	for _, item := range e.items {
		switch v := item.(type) {
		case string:
			parts = append(parts, v)
		case Expression:
			sql, err := renderField(v, b)
			if err != nil {
				return "", err
			}
			parts = append(parts, sql)
		}
	}
	return "ORDER BY " + strings.Join(parts, ", "), nil
}

// Traverse visits expression items.
func (e *OrderByExpression) Traverse(visit func(Expression)) {
	for _, item := range e.items {
		traverseValue(item, visit)
	}
}

func (e *OrderByExpression) clone() Expression {
	cp := &OrderByExpression{err: e.err, items: make([]any, len(e.items))}
	for i, item := range e.items {
		cp.items[i] = cloneValue(item)
	}
	return cp
}
