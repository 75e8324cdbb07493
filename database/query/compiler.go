package query

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/satishbabariya/bear/database/binder"
	"github.com/satishbabariya/bear/database/driver"
	"github.com/satishbabariya/bear/database/statement"
)

const (
	kwSelect   = "select"
	kwFrom     = "from"
	kwJoin     = "join"
	kwWhere    = "where"
	kwGroup    = "group"
	kwHaving   = "having"
	kwOrder    = "order"
	kwLimit    = "limit"
	kwOffset   = "offset"
	kwUnion    = "union"
	kwEpilog   = "epilog"
	kwInsert   = "insert"
	kwValues   = "values"
	kwUpdate   = "update"
	kwSet      = "set"
	kwDelete   = "delete"
	kwModifier = "modifier"
)

// keywordOrder lists the clauses compiled for each statement type, in
// the order SQL requires them.
var keywordOrder = map[Type][]string{
	SelectType: {kwSelect, kwFrom, kwJoin, kwWhere, kwGroup, kwHaving, kwOrder, kwLimit, kwOffset, kwUnion, kwEpilog},
	InsertType: {kwInsert, kwValues, kwEpilog},
	UpdateType: {kwUpdate, kwSet, kwWhere, kwEpilog},
	DeleteType: {kwDelete, kwModifier, kwFrom, kwWhere, kwEpilog},
}

// templates render keywords holding a single expression.
var templates = map[string]string{
	kwWhere:  " WHERE %s",
	kwHaving: " HAVING %s",
	kwEpilog: " %s",
}

type keywordBuilder func(c *Compiler, q *Query, b *binder.ValueBinder) (string, error)

// builders render structurally complex keywords. Set in init: the
// builders reach Compile again through sub-queries.
var builders map[string]keywordBuilder

func init() {
	builders = map[string]keywordBuilder{
		kwSelect:   (*Compiler).buildSelect,
		kwFrom:     (*Compiler).buildFrom,
		kwJoin:     (*Compiler).buildJoin,
		kwGroup:    (*Compiler).buildGroup,
		kwOrder:    (*Compiler).buildOrder,
		kwLimit:    (*Compiler).buildLimit,
		kwOffset:   (*Compiler).buildOffset,
		kwUnion:    (*Compiler).buildUnion,
		kwInsert:   (*Compiler).buildInsert,
		kwValues:   (*Compiler).buildValues,
		kwUpdate:   (*Compiler).buildUpdate,
		kwSet:      (*Compiler).buildSet,
		kwDelete:   (*Compiler).buildDelete,
		kwModifier: (*Compiler).buildModifier,
	}
}

// Compiler turns a Query into SQL text for one driver. A nil driver
// compiles generic SQL without identifier quoting.
type Compiler struct {
	driver driver.Driver
}

// NewCompiler creates a compiler for d.
func NewCompiler(d driver.Driver) *Compiler {
	return &Compiler{driver: d}
}

func (c *Compiler) dialect() driver.Dialect {
	if c.driver == nil {
		return ""
	}
	return c.driver.Dialect()
}

// Compile renders q, registering bound values on b. Values bound on the
// query's own binder are copied into b when their placeholder appears in
// the output, which lets sub-queries contribute their bindings.
func (c *Compiler) Compile(q *Query, b *binder.ValueBinder) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	if _, ok := keywordOrder[q.typ]; !ok {
		return "", invalidArgument("unknown query type %q", q.typ)
	}

	original := q
	q = c.transformDistinct(q)
	if c.driver != nil {
		q = c.adoptSubQueries(q)
	}
	if c.driver != nil && c.driver.AutoQuoting() {
		q = quoteIdentifiers(q, c.driver)
	}

	var sb strings.Builder
	var err error
	q.TraverseParts(func(part string) {
		if err != nil {
			return
		}
		var fragment string
		if tpl, ok := templates[part]; ok {
			fragment, err = c.renderTemplate(tpl, q, part, b)
		} else {
			fragment, err = builders[part](c, q, b)
		}
		sb.WriteString(fragment)
	})
	if err != nil {
		return "", err
	}

	sql := sb.String()
	c.reconcile(original, b, sql)
	return sql, nil
}

func (c *Compiler) renderTemplate(tpl string, q *Query, part string, b *binder.ValueBinder) (string, error) {
	if part == kwEpilog {
		return fmt.Sprintf(tpl, q.epilog), nil
	}
	sql, err := q.Clause(part).SQL(b)
	if err != nil || sql == "" {
		return "", err
	}
	return fmt.Sprintf(tpl, sql), nil
}

// reconcile copies bindings of the query's own binder referenced by sql
// into b. Placeholders already bound on b keep their value.
func (c *Compiler) reconcile(q *Query, b *binder.ValueBinder, sql string) {
	own := q.valueBinder
	if own == nil || own == b {
		return
	}
	for _, binding := range own.Bindings() {
		placeholder := ":" + binding.Placeholder
		if _, exists := b.Get(placeholder); exists {
			continue
		}
		pattern := regexp.MustCompile(regexp.QuoteMeta(placeholder) + `(?:\W|$)`)
		if pattern.MatchString(sql) {
			b.Bind(placeholder, binding.Value)
		}
	}
}

// subQueryConn compiles a sub-query built without a connection with the
// compiler of the statement embedding it.
type subQueryConn struct {
	c *Compiler
}

func (s subQueryConn) Driver() driver.Driver {
	return s.c.driver
}

func (s subQueryConn) CompileQuery(q *Query, b *binder.ValueBinder) (string, error) {
	return s.c.Compile(q, b)
}

func (s subQueryConn) ExecuteQuery(context.Context, *Query) (*statement.Statement, error) {
	return nil, ErrNoConnection
}

// adoptSubQueries returns a copy of q whose direct sub-queries without a
// connection compile with c, so they follow the same dialect and quoting.
func (c *Compiler) adoptSubQueries(q *Query) *Query {
	orphaned := func(e Expression) (*Query, bool) {
		sub, ok := e.(*Query)
		return sub, ok && sub != nil && sub.conn == nil
	}
	found := false
	Walk(q, func(e Expression) {
		if _, ok := orphaned(e); ok {
			found = true
		}
	})
	if !found {
		return q
	}

	cp := q.Clone()
	cp.valueBinder = q.valueBinder
	Walk(cp, func(e Expression) {
		if sub, ok := orphaned(e); ok {
			sub.conn = subQueryConn{c: c}
		}
	})
	return cp
}

// transformDistinct rewrites DISTINCT ON into GROUP BY for dialects
// without DISTINCT ON.
func (c *Compiler) transformDistinct(q *Query) *Query {
	if !q.distinct || len(q.distinctOn) == 0 || c.dialect() == driver.PostgreSQL {
		return q
	}
	cp := q.Clone()
	cp.valueBinder = q.valueBinder
	cp.group = nil
	for _, f := range q.distinctOn {
		cp.group = append(cp.group, f)
	}
	cp.distinct = false
	cp.distinctOn = nil
	return cp
}

func (c *Compiler) buildSelect(q *Query, b *binder.ValueBinder) (string, error) {
	var distinct string
	if q.distinct {
		distinct = "DISTINCT "
		if len(q.distinctOn) > 0 {
			distinct = fmt.Sprintf("DISTINCT ON (%s) ", strings.Join(q.distinctOn, ", "))
		}
	}

	fields := make([]string, 0, len(q.selectFields))
	for _, f := range q.selectFields {
		sql, err := renderField(f.value, b)
		if err != nil {
			return "", err
		}
		if f.alias != "" {
			sql += " AS " + f.alias
		}
		fields = append(fields, sql)
	}
	if len(fields) == 0 {
		fields = append(fields, "*")
	}

	return fmt.Sprintf("SELECT%s %s%s", modifierSQL(q), distinct, strings.Join(fields, ", ")), nil
}

func modifierSQL(q *Query) string {
	if len(q.modifiers) == 0 {
		return ""
	}
	return " " + strings.Join(q.modifiers, " ")
}

func (c *Compiler) buildFrom(q *Query, b *binder.ValueBinder) (string, error) {
	tables := make([]string, 0, len(q.from))
	for _, f := range q.from {
		sql, err := renderField(f.value, b)
		if err != nil {
			return "", err
		}
		if f.alias != "" {
			sql += " " + f.alias
		}
		tables = append(tables, sql)
	}
	return " FROM " + strings.Join(tables, ", "), nil
}

func (c *Compiler) buildJoin(q *Query, b *binder.ValueBinder) (string, error) {
	var sb strings.Builder
	for _, j := range q.joins {
		table, err := renderField(j.table, b)
		if err != nil {
			return "", err
		}
		sb.WriteString(" ")
		sb.WriteString(j.typ)
		sb.WriteString(" JOIN ")
		sb.WriteString(table)
		if j.alias != "" {
			sb.WriteString(" ")
			sb.WriteString(j.alias)
		}

		condition := ""
		if j.conditions != nil && j.conditions.Len() > 0 {
			condition, err = j.conditions.SQL(b)
			if err != nil {
				return "", err
			}
		}
		if condition == "" {
			condition = "1 = 1"
		}
		sb.WriteString(" ON ")
		sb.WriteString(condition)
	}
	return sb.String(), nil
}

func (c *Compiler) buildGroup(q *Query, b *binder.ValueBinder) (string, error) {
	fields := make([]string, 0, len(q.group))
	for _, g := range q.group {
		sql, err := renderField(g, b)
		if err != nil {
			return "", err
		}
		fields = append(fields, sql)
	}
	return " GROUP BY " + strings.Join(fields, ", "), nil
}

func (c *Compiler) buildOrder(q *Query, b *binder.ValueBinder) (string, error) {
	sql, err := q.order.SQL(b)
	if err != nil {
		return "", err
	}
	return " " + sql, nil
}

func (c *Compiler) buildLimit(q *Query, _ *binder.ValueBinder) (string, error) {
	return " LIMIT " + strconv.Itoa(*q.limit), nil
}

// buildOffset emits the OFFSET clause. MySQL and SQLite cannot take an
// OFFSET without a LIMIT, so an unbounded LIMIT is emitted first.
func (c *Compiler) buildOffset(q *Query, _ *binder.ValueBinder) (string, error) {
	var prefix string
	if q.limit == nil {
		switch c.dialect() {
		case driver.MySQL:
			prefix = " LIMIT 18446744073709551615"
		case driver.SQLite:
			prefix = " LIMIT -1"
		}
	}
	return prefix + " OFFSET " + strconv.Itoa(*q.offset), nil
}

// buildUnion wraps each union member in parentheses except on SQLite,
// which rejects them.
func (c *Compiler) buildUnion(q *Query, b *binder.ValueBinder) (string, error) {
	var sb strings.Builder
	for _, u := range q.unions {
		sql, err := u.query.SQL(b)
		if err != nil {
			return "", err
		}
		sb.WriteString(" UNION ")
		if u.all {
			sb.WriteString("ALL ")
		}
		if c.dialect() == driver.SQLite {
			sb.WriteString(sql)
		} else {
			sb.WriteString("(" + sql + ")")
		}
	}
	return sb.String(), nil
}

func (c *Compiler) buildInsert(q *Query, _ *binder.ValueBinder) (string, error) {
	if q.insertTable == "" {
		return "", invalidArgument("could not compile insert query: no table was specified, use Into() to define one")
	}
	return fmt.Sprintf("INSERT%s INTO %s (%s)", modifierSQL(q), q.insertTable, strings.Join(q.insertColumns, ", ")), nil
}

func (c *Compiler) buildValues(q *Query, b *binder.ValueBinder) (string, error) {
	sql, err := q.values.SQL(b)
	if err != nil {
		return "", err
	}
	if sql == "" {
		return "", invalidArgument("insert into %s has no values", q.insertTable)
	}
	sql = " " + sql
	if q.returning && c.dialect() == driver.PostgreSQL {
		sql += " RETURNING *"
	}
	return sql, nil
}

func (c *Compiler) buildUpdate(q *Query, b *binder.ValueBinder) (string, error) {
	table, err := renderField(q.updateTable, b)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("UPDATE%s %s", modifierSQL(q), table), nil
}

func (c *Compiler) buildSet(q *Query, b *binder.ValueBinder) (string, error) {
	sql, err := q.set.SQL(b)
	if err != nil {
		return "", err
	}
	return " SET " + sql, nil
}

func (c *Compiler) buildDelete(*Query, *binder.ValueBinder) (string, error) {
	return "DELETE", nil
}

func (c *Compiler) buildModifier(q *Query, _ *binder.ValueBinder) (string, error) {
	return modifierSQL(q), nil
}
