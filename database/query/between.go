package query

import (
	"fmt"

	"github.com/satishbabariya/bear/database/binder"
)

// BetweenExpression renders "field BETWEEN from AND to".
type BetweenExpression struct {
	field any
	from  any
	to    any
}

// Between creates a BETWEEN expression.
func Between(field any, from, to any) *BetweenExpression {
	return &BetweenExpression{field: field, from: from, to: to}
}

// SQL renders the expression.
func (e *BetweenExpression) SQL(b *binder.ValueBinder) (string, error) {
	field, err := renderField(e.field, b)
	if err != nil {
		return "", err
	}
	from, err := renderValue(e.from, b)
	if err != nil {
		return "", err
	}
	to, err := renderValue(e.to, b)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s BETWEEN %s AND %s", field, from, to), nil
}

// Traverse visits expression typed operands.
func (e *BetweenExpression) Traverse(visit func(Expression)) {
	traverseValue(e.field, visit)
	traverseValue(e.from, visit)
	traverseValue(e.to, visit)
}

func (e *BetweenExpression) clone() Expression {
	return &BetweenExpression{
		field: cloneValue(e.field),
		from:  cloneValue(e.from),
		to:    cloneValue(e.to),
	}
}
