package query

import "github.com/satishbabariya/bear/database/binder"

// Position places a unary operator before or after its operand.
type Position int

const (
	// Prefix renders "OP (operand)".
	Prefix Position = iota
	// Postfix renders "(operand) OP".
	Postfix
)

// UnaryExpression applies a single operand operator such as NOT or IS NULL.
type UnaryExpression struct {
	operator string
	operand  any
	position Position
}

// Unary creates a unary expression. A string operand is rendered
// verbatim, an expression is rendered recursively and anything else is
// bound as a value.
func Unary(operator string, operand any, position Position) *UnaryExpression {
	return &UnaryExpression{operator: operator, operand: operand, position: position}
}

// Operator returns the operator.
func (e *UnaryExpression) Operator() string { return e.operator }

// Operand returns the operand.
func (e *UnaryExpression) Operand() any { return e.operand }

// SQL renders the expression.
func (e *UnaryExpression) SQL(b *binder.ValueBinder) (string, error) {
	var operand string
	switch v := e.operand.(type) {
	case string:
		operand = v
	case Expression:
		sql, err := v.SQL(b)
		if err != nil {
			return "", err
		}
		operand = sql
	default:
		placeholder := b.Placeholder(binder.DefaultPrefix)
		b.Bind(placeholder, v)
		operand = placeholder
	}

	if e.position == Postfix {
		return "(" + operand + ") " + e.operator, nil
	}
	return e.operator + " (" + operand + ")", nil
}

// Traverse visits the operand when it is an expression.
func (e *UnaryExpression) Traverse(visit func(Expression)) {
	traverseValue(e.operand, visit)
}

func (e *UnaryExpression) clone() Expression {
	return &UnaryExpression{operator: e.operator, operand: cloneValue(e.operand), position: e.position}
}
