package query

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/bear/database/binder"
)

// QueryExpression is a list of conditions joined by a conjunction. It is
// the node WHERE, HAVING, join conditions and SET lists are built from.
// Errors found while adding conditions are kept and returned by SQL.
type QueryExpression struct {
	conjunction string
	conditions  []any
	err         error
}

// NewExpr creates an AND expression holding conditions.
func NewExpr(conditions ...any) *QueryExpression {
	return NewExprWith("AND", conditions...)
}

// NewExprWith creates an expression joined by conjunction.
func NewExprWith(conjunction string, conditions ...any) *QueryExpression {
	e := &QueryExpression{conjunction: normalizeConjunction(conjunction)}
	e.Add(conditions...)
	return e
}

func normalizeConjunction(conjunction string) string {
	c := strings.ToUpper(strings.TrimSpace(conjunction))
	if c == "" {
		return "AND"
	}
	return c
}

// Conjunction returns the operator joining the conditions.
func (e *QueryExpression) Conjunction() string {
	return e.conjunction
}

// SetConjunction changes the operator joining the conditions.
func (e *QueryExpression) SetConjunction(conjunction string) *QueryExpression {
	e.conjunction = normalizeConjunction(conjunction)
	return e
}

// Len returns the number of direct conditions.
func (e *QueryExpression) Len() int {
	return len(e.conditions)
}

// Conditions returns the direct conditions: raw SQL strings and expressions.
func (e *QueryExpression) Conditions() []any {
	return append([]any(nil), e.conditions...)
}

// Err returns the first error found while adding conditions.
func (e *QueryExpression) Err() error {
	return e.err
}

// Add parses conditions and appends them to the expression.
func (e *QueryExpression) Add(conditions ...any) *QueryExpression {
	for _, c := range conditions {
		if err := e.addCondition(c); err != nil && e.err == nil {
			e.err = err
		}
	}
	return e
}

func (e *QueryExpression) addCondition(c any) error {
	switch v := c.(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(v) != "" {
			e.conditions = append(e.conditions, v)
		}
		return nil
	case *QueryExpression:
		if v == nil {
			return nil
		}
		if v.err != nil {
			return v.err
		}
		e.conditions = append(e.conditions, v)
		return nil
	case KV:
		return e.addKV(v.Key, v.Value)
	case []KV:
		for _, kv := range v {
			if err := e.addKV(kv.Key, kv.Value); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		for _, kv := range sortedKVs(v) {
			kv := kv.(KV)
			if err := e.addKV(kv.Key, kv.Value); err != nil {
				return err
			}
		}
		return nil
	case And:
		return e.addGroup("AND", []any(v))
	case Or:
		return e.addGroup("OR", []any(v))
	case Xor:
		return e.addGroup("XOR", []any(v))
	case Not:
		return e.addNot([]any(v))
	case []any:
		return e.addGroup("AND", v)
	case Expression:
		if isNilExpression(v) {
			return nil
		}
		e.conditions = append(e.conditions, v)
		return nil
	default:
		return expressionError("unsupported condition type %T", c)
	}
}

func (e *QueryExpression) addGroup(conjunction string, conditions []any) error {
	if len(conditions) == 0 {
		return nil
	}
	nested := NewExprWith(conjunction, conditions...)
	if nested.err != nil {
		return nested.err
	}
	if nested.Len() > 0 {
		e.conditions = append(e.conditions, nested)
	}
	return nil
}

func (e *QueryExpression) addNot(conditions []any) error {
	if len(conditions) == 0 {
		return nil
	}
	nested := NewExpr(conditions...)
	if nested.err != nil {
		return nested.err
	}
	if nested.Len() > 0 {
		e.conditions = append(e.conditions, Unary("NOT", nested, Prefix))
	}
	return nil
}

func (e *QueryExpression) addKV(key string, value any) error {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "and":
		return e.addGroup("AND", conditionsOf(value))
	case "or":
		return e.addGroup("OR", conditionsOf(value))
	case "xor":
		return e.addGroup("XOR", conditionsOf(value))
	case "not":
		return e.addNot(conditionsOf(value))
	}

	cond, err := e.parseCondition(key, value)
	if err != nil {
		return err
	}
	e.conditions = append(e.conditions, cond)
	return nil
}

// parseCondition turns a "field operator" key and its value into a
// comparison, or into IS NULL / IS NOT NULL for null values.
func (e *QueryExpression) parseCondition(key string, value any) (Expression, error) {
	field, operator := splitCondition(key)
	if field == "" {
		return nil, expressionError("condition %q has no field", key)
	}

	if value == nil {
		switch operator {
		case "IS":
			return Unary("IS NULL", Identifier(field), Postfix), nil
		case "IS NOT":
			return Unary("IS NOT NULL", Identifier(field), Postfix), nil
		}
		if e.conjunction != "," {
			return nil, expressionError("expression %q is missing operator (IS, IS NOT) with null value", key)
		}
		return Compare(field, nil, operator), nil
	}

	switch operator {
	case "IS":
		operator = "="
	case "IS NOT":
		operator = "!="
	}
	return Compare(field, value, operator), nil
}

// Eq adds "field = value".
func (e *QueryExpression) Eq(field any, value any) *QueryExpression {
	return e.Add(Compare(field, value, "="))
}

// NotEq adds "field != value".
func (e *QueryExpression) NotEq(field any, value any) *QueryExpression {
	return e.Add(Compare(field, value, "!="))
}

// Gt adds "field > value".
func (e *QueryExpression) Gt(field any, value any) *QueryExpression {
	return e.Add(Compare(field, value, ">"))
}

// Gte adds "field >= value".
func (e *QueryExpression) Gte(field any, value any) *QueryExpression {
	return e.Add(Compare(field, value, ">="))
}

// Lt adds "field < value".
func (e *QueryExpression) Lt(field any, value any) *QueryExpression {
	return e.Add(Compare(field, value, "<"))
}

// Lte adds "field <= value".
func (e *QueryExpression) Lte(field any, value any) *QueryExpression {
	return e.Add(Compare(field, value, "<="))
}

// Like adds "field LIKE value".
func (e *QueryExpression) Like(field any, value any) *QueryExpression {
	return e.Add(Compare(field, value, "LIKE"))
}

// NotLike adds "field NOT LIKE value".
func (e *QueryExpression) NotLike(field any, value any) *QueryExpression {
	return e.Add(Compare(field, value, "NOT LIKE"))
}

// In adds "field IN (values)".
func (e *QueryExpression) In(field any, values any) *QueryExpression {
	return e.Add(Compare(field, values, "IN"))
}

// NotIn adds "field NOT IN (values)".
func (e *QueryExpression) NotIn(field any, values any) *QueryExpression {
	return e.Add(Compare(field, values, "NOT IN"))
}

// IsNull adds "(field) IS NULL".
func (e *QueryExpression) IsNull(field any) *QueryExpression {
	return e.Add(Unary("IS NULL", identifierOf(field), Postfix))
}

// IsNotNull adds "(field) IS NOT NULL".
func (e *QueryExpression) IsNotNull(field any) *QueryExpression {
	return e.Add(Unary("IS NOT NULL", identifierOf(field), Postfix))
}

// Between adds "field BETWEEN from AND to".
func (e *QueryExpression) Between(field any, from, to any) *QueryExpression {
	return e.Add(Between(field, from, to))
}

// Exists adds "EXISTS (sub)".
func (e *QueryExpression) Exists(sub *Query) *QueryExpression {
	return e.Add(Unary("EXISTS", sub, Prefix))
}

// NotExists adds "NOT EXISTS (sub)".
func (e *QueryExpression) NotExists(sub *Query) *QueryExpression {
	return e.Add(Unary("NOT EXISTS", sub, Prefix))
}

// AddCase adds a CASE expression.
func (e *QueryExpression) AddCase(c *CaseExpression) *QueryExpression {
	return e.Add(c)
}

func identifierOf(field any) any {
	if s, ok := field.(string); ok {
		return Identifier(s)
	}
	return field
}

// SQL renders the conditions joined by the conjunction. Nested
// expressions are wrapped in parentheses; empty ones are skipped.
func (e *QueryExpression) SQL(b *binder.ValueBinder) (string, error) {
	if e.err != nil {
		return "", e.err
	}

	parts := make([]string, 0, len(e.conditions))
	for _, c := range e.conditions {
		switch v := c.(type) {
		case string:
			parts = append(parts, v)
		case *QueryExpression:
			if v.Len() == 0 {
				continue
			}
			sql, err := v.SQL(b)
			if err != nil {
				return "", err
			}
			if sql == "" {
				continue
			}
			parts = append(parts, "("+sql+")")
		case *Query:
			sql, err := v.SQL(b)
			if err != nil {
				return "", err
			}
			parts = append(parts, "("+sql+")")
		case Expression:
			sql, err := v.SQL(b)
			if err != nil {
				return "", err
			}
			parts = append(parts, sql)
		default:
			return "", expressionError("unsupported condition type %T", c)
		}
	}

	sep := fmt.Sprintf(" %s ", e.conjunction)
	if e.conjunction == "," {
		sep = ", "
	}
	return strings.Join(parts, sep), nil
}

// Traverse visits every expression typed condition.
func (e *QueryExpression) Traverse(visit func(Expression)) {
	for _, c := range e.conditions {
		if x, ok := c.(Expression); ok {
			visit(x)
		}
	}
}

func (e *QueryExpression) clone() Expression {
	return e.Clone()
}

// Clone returns a deep copy of the expression.
func (e *QueryExpression) Clone() *QueryExpression {
	cp := &QueryExpression{conjunction: e.conjunction, err: e.err}
	cp.conditions = make([]any, len(e.conditions))
	for i, c := range e.conditions {
		cp.conditions[i] = cloneValue(c)
	}
	return cp
}
