package query

import "github.com/satishbabariya/bear/database/driver"

// quoteIdentifiers returns a copy of q with table, column and alias names
// quoted for d. The copy shares the original value binder. Sub-queries
// are left alone; they are quoted when compiled themselves.
func quoteIdentifiers(q *Query, d driver.Driver) *Query {
	cp := q.Clone()
	cp.valueBinder = q.valueBinder

	quote := d.QuoteIdentifier
	for i, f := range cp.distinctOn {
		cp.distinctOn[i] = quote(f)
	}
	for i, f := range cp.selectFields {
		cp.selectFields[i] = quoteField(f, quote)
	}
	for i, f := range cp.from {
		cp.from[i] = quoteField(f, quote)
	}
	for _, j := range cp.joins {
		if s, ok := j.table.(string); ok {
			j.table = quote(s)
		}
		if j.alias != "" {
			j.alias = quote(j.alias)
		}
		quoteExpression(j.conditions, quote)
	}
	for i, g := range cp.group {
		switch v := g.(type) {
		case string:
			cp.group[i] = quote(v)
		case Expression:
			quoteExpression(v, quote)
		}
	}
	if cp.where != nil {
		quoteExpression(cp.where, quote)
	}
	if cp.having != nil {
		quoteExpression(cp.having, quote)
	}
	if cp.order != nil {
		quoteExpression(cp.order, quote)
	}
	if cp.insertTable != "" {
		cp.insertTable = quote(cp.insertTable)
	}
	for i, col := range cp.insertColumns {
		cp.insertColumns[i] = quote(col)
	}
	if s, ok := cp.updateTable.(string); ok {
		cp.updateTable = quote(s)
	}
	if cp.set != nil {
		quoteExpression(cp.set, quote)
	}
	return cp
}

func quoteField(f field, quote func(string) string) field {
	switch v := f.value.(type) {
	case string:
		f.value = quote(v)
	case *Query:
	case Expression:
		quoteExpression(v, quote)
	}
	if f.alias != "" {
		f.alias = quote(f.alias)
	}
	return f
}

// quoteExpression quotes the field names of e and every expression below
// it.
func quoteExpression(e Expression, quote func(string) string) {
	if _, ok := e.(*Query); ok {
		return
	}
	visit := func(node Expression) {
		switch n := node.(type) {
		case *IdentifierExpression:
			n.identifier = quote(n.identifier)
		case *ComparisonExpression:
			if s, ok := n.field.(string); ok {
				n.field = quote(s)
			}
		case *BetweenExpression:
			if s, ok := n.field.(string); ok {
				n.field = quote(s)
			}
		case *OrderClauseExpression:
			if s, ok := n.field.(string); ok {
				n.field = quote(s)
			}
		}
	}
	visit(e)
	Walk(e, visit)
}
