package query

import "github.com/satishbabariya/bear/database/binder"

// IdentifierExpression is a table, column or alias reference rendered
// verbatim.
type IdentifierExpression struct {
	identifier string
	collation  string
}

// Identifier creates an identifier expression.
func Identifier(name string) *IdentifierExpression {
	return &IdentifierExpression{identifier: name}
}

// Name returns the identifier.
func (e *IdentifierExpression) Name() string {
	return e.identifier
}

// Collate sets a collation appended to the identifier.
func (e *IdentifierExpression) Collate(collation string) *IdentifierExpression {
	e.collation = collation
	return e
}

// SQL renders the identifier.
func (e *IdentifierExpression) SQL(*binder.ValueBinder) (string, error) {
	if e.collation != "" {
		return e.identifier + " COLLATE " + e.collation, nil
	}
	return e.identifier, nil
}

// Traverse has no children to visit.
func (e *IdentifierExpression) Traverse(func(Expression)) {}

func (e *IdentifierExpression) clone() Expression {
	cp := *e
	return &cp
}
