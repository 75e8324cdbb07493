package query

import (
	"strings"

	"github.com/satishbabariya/bear/database/binder"
)

const (
	// Literal marks a CASE value whose key is rendered verbatim.
	Literal = "literal"
	// IdentifierValue marks a CASE value whose key is rendered as an identifier.
	IdentifierValue = "identifier"
)

// CaseExpression renders "CASE WHEN c THEN v ... ELSE e END".
type CaseExpression struct {
	conditions []Expression
	values     []any
	elseValue  any
}

// Case creates a CASE expression pairing conditions with values by
// position. A condition without a value yields 1. When there are more
// values than conditions, the last value becomes the ELSE value.
func Case(conditions []any, values []any) *CaseExpression {
	e := &CaseExpression{}
	e.Add(conditions, values)
	if len(values) > len(conditions) {
		e.Else(values[len(values)-1])
	}
	return e
}

// Add appends WHEN branches. Values may be plain values (bound),
// expressions, or KV pairs whose value is Literal or IdentifierValue to
// render the key verbatim or as an identifier.
func (e *CaseExpression) Add(conditions []any, values []any) *CaseExpression {
	for i, c := range conditions {
		cond := caseCondition(c)
		if cond == nil {
			continue
		}

		var value any = 1
		if i < len(values) {
			value = values[i]
		}

		e.conditions = append(e.conditions, cond)
		e.values = append(e.values, caseValue(value))
	}
	return e
}

func caseCondition(c any) Expression {
	switch v := c.(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return NewExpr(v)
	case Expression:
		if isNilExpression(v) {
			return nil
		}
		return v
	default:
		exp := NewExpr(c)
		if exp.Len() == 0 && exp.err == nil {
			return nil
		}
		return exp
	}
}

func caseValue(value any) any {
	kv, ok := value.(KV)
	if !ok {
		return value
	}
	switch kv.Value {
	case Literal:
		return rawSQL(kv.Key)
	case IdentifierValue:
		return Identifier(kv.Key)
	}
	return kv.Value
}

// Else sets the ELSE value. For a KV or a list of KVs the key of the last
// entry is used.
func (e *CaseExpression) Else(value any) *CaseExpression {
	switch v := value.(type) {
	case KV:
		value = v.Key
	case []KV:
		if len(v) == 0 {
			value = nil
		} else {
			value = v[len(v)-1].Key
		}
	}
	e.elseValue = value
	return e
}

// SQL renders the CASE expression.
func (e *CaseExpression) SQL(b *binder.ValueBinder) (string, error) {
	if len(e.conditions) == 0 {
		return "", expressionError("case expression has no conditions")
	}

	var sb strings.Builder
	sb.WriteString("CASE")
	for i, cond := range e.conditions {
		c, err := cond.SQL(b)
		if err != nil {
			return "", err
		}
		v, err := e.renderValue(e.values[i], b)
		if err != nil {
			return "", err
		}
		sb.WriteString(" WHEN ")
		sb.WriteString(c)
		sb.WriteString(" THEN ")
		sb.WriteString(v)
	}

	if e.elseValue != nil {
		v, err := e.renderValue(e.elseValue, b)
		if err != nil {
			return "", err
		}
		sb.WriteString(" ELSE ")
		sb.WriteString(v)
	}
	sb.WriteString(" END")
	return sb.String(), nil
}

func (e *CaseExpression) renderValue(value any, b *binder.ValueBinder) (string, error) {
	switch v := value.(type) {
	case rawSQL:
		return string(v), nil
	case *Query:
		sql, err := v.SQL(b)
		if err != nil {
			return "", err
		}
		return "(" + sql + ")", nil
	}
	return renderValue(value, b)
}

// Traverse visits conditions and expression typed values.
func (e *CaseExpression) Traverse(visit func(Expression)) {
	for i, c := range e.conditions {
		visit(c)
		traverseValue(e.values[i], visit)
	}
	traverseValue(e.elseValue, visit)
}

func (e *CaseExpression) clone() Expression {
	cp := &CaseExpression{elseValue: cloneValue(e.elseValue)}
	cp.conditions = make([]Expression, len(e.conditions))
	for i, c := range e.conditions {
		cp.conditions[i] = c.clone()
	}
	cp.values = make([]any, len(e.values))
	for i, v := range e.values {
		cp.values[i] = cloneValue(v)
	}
	return cp
}

// rawSQL is a SQL fragment rendered verbatim.
type rawSQL string
