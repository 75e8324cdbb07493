package query

import (
	"context"
	"sort"
	"strings"

	"github.com/satishbabariya/bear/database/binder"
)

// Type is the kind of statement a Query compiles to.
type Type string

const (
	SelectType Type = "select"
	InsertType Type = "insert"
	UpdateType Type = "update"
	DeleteType Type = "delete"
)

// AliasedField is a value selected, or a table referenced, under an alias.
type AliasedField struct {
	Alias string
	Value any
}

// As aliases a field, expression, table or sub-query.
func As(alias string, value any) AliasedField {
	return AliasedField{Alias: alias, Value: value}
}

// SelectFunc produces select fields from the query being built.
type SelectFunc = func(q *Query) []any

// JoinSpec describes a join. Conditions accepts anything Where accepts,
// including a ConditionFunc which is invoked immediately.
type JoinSpec struct {
	Table      any
	Alias      string
	Type       string
	Conditions any
}

// InOptions tunes WhereIn and WhereNotIn.
type InOptions struct {
	// AllowEmpty renders an always false (IN) or null check (NOT IN)
	// predicate instead of failing on an empty value list.
	AllowEmpty bool
}

type field struct {
	alias string
	value any
}

type join struct {
	table      any
	alias      string
	typ        string
	conditions *QueryExpression
}

type union struct {
	all   bool
	query *Query
}

// Query is a mutable SQL builder. Every clause has a typed slot; fluent
// methods merge into or replace those slots and return the query. A Query
// is owned by one goroutine at a time; use Clone to fan out.
type Query struct {
	conn Connection
	typ  Type

	selectFields []field
	distinct     bool
	distinctOn   []string
	modifiers    []string
	from         []field
	joins        []*join
	where        *QueryExpression
	group        []any
	having       *QueryExpression
	order        *OrderByExpression
	limit        *int
	offset       *int
	unions       []union
	epilog       string

	insertTable   string
	insertColumns []string
	values        *ValuesExpression
	returning     bool

	updateTable any
	set         *QueryExpression

	dirty       bool
	executed    bool
	valueBinder *binder.ValueBinder
	err         error
}

// New creates a select query bound to conn. conn may be nil for queries
// that are only compiled.
func New(conn Connection) *Query {
	return &Query{conn: conn, typ: SelectType}
}

// Connection returns the connection the query executes on.
func (q *Query) Connection() Connection {
	return q.conn
}

// SetConnection rebinds the query.
func (q *Query) SetConnection(conn Connection) *Query {
	q.conn = conn
	return q
}

// Type returns the statement kind.
func (q *Query) Type() Type {
	return q.typ
}

// Err returns the first error recorded by a builder call.
func (q *Query) Err() error {
	return q.err
}

// IsDirty reports whether the query changed since it was last executed.
func (q *Query) IsDirty() bool {
	return q.dirty
}

func (q *Query) fail(err error) {
	if err != nil && q.err == nil {
		q.err = err
	}
}

func (q *Query) markDirty() {
	q.dirty = true
	if q.executed && q.valueBinder != nil {
		q.valueBinder.Reset()
	}
}

// Select adds fields to the SELECT list. Fields may be names, expressions,
// sub-queries, As(alias, value), map[string]any of alias to value, []string
// or a SelectFunc.
func (q *Query) Select(fields ...any) *Query {
	q.typ = SelectType
	for _, f := range fields {
		q.addSelect(f)
	}
	q.markDirty()
	return q
}

// ReplaceSelect discards the SELECT list before adding fields.
func (q *Query) ReplaceSelect(fields ...any) *Query {
	q.selectFields = nil
	return q.Select(fields...)
}

func (q *Query) addSelect(f any) {
	switch v := f.(type) {
	case nil:
	case string:
		if v != "" {
			q.selectFields = append(q.selectFields, field{value: v})
		}
	case []string:
		for _, s := range v {
			q.addSelect(s)
		}
	case []any:
		for _, s := range v {
			q.addSelect(s)
		}
	case AliasedField:
		q.selectFields = append(q.selectFields, field{alias: v.Alias, value: v.Value})
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			q.selectFields = append(q.selectFields, field{alias: k, value: v[k]})
		}
	case SelectFunc:
		for _, s := range v(q) {
			q.addSelect(s)
		}
	case Expression:
		q.selectFields = append(q.selectFields, field{value: v})
	default:
		q.fail(invalidArgument("unsupported select field %T", f))
	}
}

// Distinct makes the select DISTINCT. With fields it becomes DISTINCT ON
// for PostgreSQL and a GROUP BY on other dialects.
func (q *Query) Distinct(on ...string) *Query {
	q.distinct = true
	q.distinctOn = append(q.distinctOn, on...)
	q.markDirty()
	return q
}

// Modifier adds statement modifiers such as SQL_NO_CACHE or LOW_PRIORITY.
func (q *Query) Modifier(modifiers ...string) *Query {
	q.modifiers = append(q.modifiers, modifiers...)
	q.markDirty()
	return q
}

// From adds tables. Tables may be names, As(alias, table), a map of alias
// to table, or sub-queries under an alias.
func (q *Query) From(tables ...any) *Query {
	for _, t := range tables {
		q.addFrom(t)
	}
	q.markDirty()
	return q
}

// ReplaceFrom discards the FROM list before adding tables.
func (q *Query) ReplaceFrom(tables ...any) *Query {
	q.from = nil
	return q.From(tables...)
}

func (q *Query) addFrom(t any) {
	switch v := t.(type) {
	case nil:
	case string:
		if v != "" {
			q.from = append(q.from, field{value: v})
		}
	case []string:
		for _, s := range v {
			q.addFrom(s)
		}
	case AliasedField:
		q.from = append(q.from, field{alias: v.Alias, value: v.Value})
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			q.from = append(q.from, field{alias: k, value: v[k]})
		}
	case *Query:
		q.from = append(q.from, field{value: v})
	default:
		q.fail(invalidArgument("unsupported table %T", t))
	}
}

// Join adds a join. A join with the alias of an existing join replaces it.
func (q *Query) Join(spec JoinSpec) *Query {
	j := &join{table: spec.Table, alias: spec.Alias, typ: strings.ToUpper(strings.TrimSpace(spec.Type))}
	if a, ok := spec.Table.(AliasedField); ok {
		j.table = a.Value
		if j.alias == "" {
			j.alias = a.Alias
		}
	}
	switch j.table.(type) {
	case string, *Query:
	default:
		q.fail(invalidArgument("unsupported join table %T", spec.Table))
		return q
	}
	if j.typ == "" {
		j.typ = "INNER"
	}

	switch c := spec.Conditions.(type) {
	case nil:
		j.conditions = NewExpr()
	case ConditionFunc:
		j.conditions = c(NewExpr(), q)
		if j.conditions == nil {
			j.conditions = NewExpr()
		}
	case *QueryExpression:
		j.conditions = c
	default:
		j.conditions = NewExpr(conditionsOf(c)...)
	}
	q.fail(j.conditions.err)

	if j.alias != "" {
		for i, existing := range q.joins {
			if existing.alias == j.alias {
				q.joins[i] = j
				q.markDirty()
				return q
			}
		}
	}
	q.joins = append(q.joins, j)
	q.markDirty()
	return q
}

// InnerJoin adds an INNER JOIN. table may be As(alias, table).
func (q *Query) InnerJoin(table any, conditions ...any) *Query {
	return q.Join(JoinSpec{Table: table, Type: "INNER", Conditions: joinConditions(conditions)})
}

// LeftJoin adds a LEFT JOIN.
func (q *Query) LeftJoin(table any, conditions ...any) *Query {
	return q.Join(JoinSpec{Table: table, Type: "LEFT", Conditions: joinConditions(conditions)})
}

// RightJoin adds a RIGHT JOIN.
func (q *Query) RightJoin(table any, conditions ...any) *Query {
	return q.Join(JoinSpec{Table: table, Type: "RIGHT", Conditions: joinConditions(conditions)})
}

func joinConditions(conditions []any) any {
	switch len(conditions) {
	case 0:
		return nil
	case 1:
		return conditions[0]
	}
	return conditions
}

// RemoveJoin drops the join with alias.
func (q *Query) RemoveJoin(alias string) *Query {
	for i, j := range q.joins {
		if j.alias == alias {
			q.joins = append(q.joins[:i], q.joins[i+1:]...)
			q.markDirty()
			break
		}
	}
	return q
}

// Where adds conditions joined with AND to the WHERE clause.
func (q *Query) Where(conditions ...any) *Query {
	q.conjugate(&q.where, conditions, "AND")
	return q
}

// AndWhere is Where.
func (q *Query) AndWhere(conditions ...any) *Query {
	return q.Where(conditions...)
}

// OrWhere combines the current WHERE clause and conditions with OR.
func (q *Query) OrWhere(conditions ...any) *Query {
	q.conjugate(&q.where, conditions, "OR")
	return q
}

// ReplaceWhere discards the WHERE clause before adding conditions.
func (q *Query) ReplaceWhere(conditions ...any) *Query {
	q.where = nil
	q.markDirty()
	return q.Where(conditions...)
}

// WhereIn adds "field IN (values)". values may be a slice or a sub-query;
// nil is an empty list.
func (q *Query) WhereIn(field string, values any, opts ...InOptions) *Query {
	if values == nil {
		values = []any{}
	}
	if allowEmpty(opts) && isEmptyList(values) {
		return q.Where("1=0")
	}
	return q.Where(KV{Key: field + " IN", Value: values})
}

// WhereNotIn adds "field NOT IN (values)". With AllowEmpty an empty list
// only requires field to be non-null.
func (q *Query) WhereNotIn(field string, values any, opts ...InOptions) *Query {
	if values == nil {
		values = []any{}
	}
	if allowEmpty(opts) && isEmptyList(values) {
		return q.Where(KV{Key: field + " IS NOT", Value: nil})
	}
	return q.Where(KV{Key: field + " NOT IN", Value: values})
}

func allowEmpty(opts []InOptions) bool {
	for _, o := range opts {
		if o.AllowEmpty {
			return true
		}
	}
	return false
}

func isEmptyList(values any) bool {
	if _, ok := values.(Expression); ok {
		return false
	}
	return len(flattenValues(values)) == 0
}

// WhereNull adds "(field) IS NULL" for every field.
func (q *Query) WhereNull(fields ...string) *Query {
	conds := make([]any, len(fields))
	for i, f := range fields {
		conds[i] = KV{Key: f + " IS", Value: nil}
	}
	return q.Where(conds...)
}

// WhereNotNull adds "(field) IS NOT NULL" for every field.
func (q *Query) WhereNotNull(fields ...string) *Query {
	conds := make([]any, len(fields))
	for i, f := range fields {
		conds[i] = KV{Key: f + " IS NOT", Value: nil}
	}
	return q.Where(conds...)
}

// Group adds GROUP BY fields.
func (q *Query) Group(fields ...any) *Query {
	for _, f := range fields {
		switch v := f.(type) {
		case string:
			q.group = append(q.group, v)
		case []string:
			for _, s := range v {
				q.group = append(q.group, s)
			}
		case Expression:
			q.group = append(q.group, v)
		default:
			q.fail(invalidArgument("unsupported group field %T", f))
		}
	}
	q.markDirty()
	return q
}

// ReplaceGroup discards GROUP BY fields before adding fields.
func (q *Query) ReplaceGroup(fields ...any) *Query {
	q.group = nil
	return q.Group(fields...)
}

// Having adds conditions joined with AND to the HAVING clause.
func (q *Query) Having(conditions ...any) *Query {
	q.conjugate(&q.having, conditions, "AND")
	return q
}

// AndHaving is Having.
func (q *Query) AndHaving(conditions ...any) *Query {
	return q.Having(conditions...)
}

// OrHaving combines the current HAVING clause and conditions with OR.
func (q *Query) OrHaving(conditions ...any) *Query {
	q.conjugate(&q.having, conditions, "OR")
	return q
}

// conjugate merges conditions into the expression at part. When the
// existing expression already uses conjunction the conditions are added
// to it directly; otherwise both sides are wrapped in a new expression
// joined by conjunction.
func (q *Query) conjugate(part **QueryExpression, conditions []any, conjunction string) {
	expression := *part
	if expression == nil {
		expression = NewExpr()
	}

	if len(conditions) == 0 {
		return
	}
	if len(conditions) == 1 {
		if fn, ok := conditions[0].(ConditionFunc); ok {
			result := fn(NewExpr(), q)
			if result == nil {
				return
			}
			conditions = []any{result}
		}
	}

	if strings.EqualFold(expression.Conjunction(), conjunction) {
		expression.Add(conditions...)
	} else {
		expression = NewExprWith(conjunction, expression, groupOf(conditions))
	}

	q.fail(expression.err)
	*part = expression
	q.markDirty()
}

// groupOf returns a lone string or expression as is; anything else is
// wrapped in an AND group.
func groupOf(conditions []any) any {
	if len(conditions) == 1 {
		switch c := conditions[0].(type) {
		case string, Expression:
			return c
		}
	}
	return NewExpr(conditions...)
}

// OrderBy adds ORDER BY items.
func (q *Query) OrderBy(items ...any) *Query {
	if q.order == nil {
		q.order = OrderBy()
	}
	q.order.Add(items...)
	q.fail(q.order.err)
	q.markDirty()
	return q
}

// ReplaceOrder discards the ORDER BY list before adding items.
func (q *Query) ReplaceOrder(items ...any) *Query {
	q.order = nil
	q.markDirty()
	if len(items) == 0 {
		return q
	}
	return q.OrderBy(items...)
}

// OrderByAsc orders by field ascending.
func (q *Query) OrderByAsc(field any) *Query {
	return q.OrderBy(OrderClause(field, "ASC"))
}

// OrderByDesc orders by field descending.
func (q *Query) OrderByDesc(field any) *Query {
	return q.OrderBy(OrderClause(field, "DESC"))
}

// Limit sets the row limit.
func (q *Query) Limit(n int) *Query {
	q.limit = &n
	q.markDirty()
	return q
}

// Offset sets the number of rows to skip.
func (q *Query) Offset(n int) *Query {
	q.offset = &n
	q.markDirty()
	return q
}

// Page sets limit and offset for page num (1 based). A zero limit keeps
// the current one.
func (q *Query) Page(num, limit int) *Query {
	if num < 1 {
		q.fail(invalidArgument("pages must start at 1"))
		return q
	}
	if limit > 0 {
		q.Limit(limit)
	}
	size := 0
	if q.limit != nil {
		size = *q.limit
	}
	return q.Offset((num - 1) * size)
}

// Union appends "UNION other".
func (q *Query) Union(other *Query) *Query {
	q.unions = append(q.unions, union{query: other})
	q.markDirty()
	return q
}

// UnionAll appends "UNION ALL other".
func (q *Query) UnionAll(other *Query) *Query {
	q.unions = append(q.unions, union{all: true, query: other})
	q.markDirty()
	return q
}

// Epilog appends a raw fragment at the end of the statement.
func (q *Query) Epilog(sql string) *Query {
	q.epilog = sql
	q.markDirty()
	return q
}

// Insert makes the query an INSERT of columns.
func (q *Query) Insert(columns ...string) *Query {
	if len(columns) == 0 {
		q.fail(invalidArgument("at least 1 column is required to perform an insert"))
		return q
	}
	q.typ = InsertType
	q.insertColumns = append([]string(nil), columns...)
	if q.values == nil {
		q.values = Values(columns...)
	} else {
		q.values.SetColumns(columns...)
	}
	q.markDirty()
	return q
}

// Into sets the INSERT table.
func (q *Query) Into(table string) *Query {
	q.insertTable = table
	q.markDirty()
	return q
}

// Values adds insert rows: a map[string]any, a []map[string]any, a
// sub-query or a complete *ValuesExpression.
func (q *Query) Values(data any) *Query {
	if q.typ != InsertType || q.values == nil {
		q.fail(invalidArgument("cannot add values before defining insert columns"))
		return q
	}
	if v, ok := data.(*ValuesExpression); ok {
		q.values = v
	} else {
		q.fail(q.values.Add(data))
	}
	q.markDirty()
	return q
}

// Returning requests the inserted row back on dialects that support it.
func (q *Query) Returning() *Query {
	q.returning = true
	q.markDirty()
	return q
}

// Update makes the query an UPDATE of table.
func (q *Query) Update(table any) *Query {
	q.typ = UpdateType
	q.updateTable = table
	q.markDirty()
	return q
}

// Set adds "field = value" to the SET list. A nil value sets NULL.
func (q *Query) Set(field string, value any) *Query {
	return q.SetExpr(KV{Key: field, Value: value})
}

// SetExpr adds conditions to the SET list.
func (q *Query) SetExpr(conditions ...any) *Query {
	if q.set == nil {
		q.set = NewExprWith(",")
	}
	if len(conditions) == 1 {
		if fn, ok := conditions[0].(ConditionFunc); ok {
			if result := fn(q.set, q); result != nil {
				q.set = result
			}
			conditions = nil
		}
	}
	q.set.Add(conditions...)
	q.fail(q.set.err)
	q.markDirty()
	return q
}

// Delete makes the query a DELETE, optionally from table.
func (q *Query) Delete(table ...string) *Query {
	q.typ = DeleteType
	for _, t := range table {
		q.From(t)
	}
	q.markDirty()
	return q
}

// Bind binds value to a placeholder used in raw conditions.
func (q *Query) Bind(placeholder string, value any) *Query {
	q.ValueBinder().Bind(placeholder, value)
	return q
}

// ValueBinder returns the query's own binder, creating it on first use.
func (q *Query) ValueBinder() *binder.ValueBinder {
	if q.valueBinder == nil {
		q.valueBinder = binder.New()
	}
	return q.valueBinder
}

// SetValueBinder replaces the query's own binder.
func (q *Query) SetValueBinder(b *binder.ValueBinder) *Query {
	q.valueBinder = b
	return q
}

// NewExpr creates an AND expression holding conditions.
func (q *Query) NewExpr(conditions ...any) *QueryExpression {
	return NewExpr(conditions...)
}

// Clause returns the expression held by part ("where", "having", "order",
// "set", "values") or nil.
func (q *Query) Clause(part string) Expression {
	switch part {
	case "where":
		if q.where != nil {
			return q.where
		}
	case "having":
		if q.having != nil {
			return q.having
		}
	case "order":
		if q.order != nil {
			return q.order
		}
	case "set":
		if q.set != nil {
			return q.set
		}
	case "values":
		if q.values != nil {
			return q.values
		}
	}
	return nil
}

// Clone returns a deep copy of the query. Expression trees and the value
// binder are copied; the connection is shared.
func (q *Query) Clone() *Query {
	cp := *q
	cp.selectFields = cloneFields(q.selectFields)
	cp.distinctOn = append([]string(nil), q.distinctOn...)
	cp.modifiers = append([]string(nil), q.modifiers...)
	cp.from = cloneFields(q.from)
	cp.joins = make([]*join, len(q.joins))
	for i, j := range q.joins {
		cj := *j
		cj.table = cloneValue(j.table)
		cj.conditions = j.conditions.Clone()
		cp.joins[i] = &cj
	}
	if q.where != nil {
		cp.where = q.where.Clone()
	}
	cp.group = make([]any, len(q.group))
	for i, g := range q.group {
		cp.group[i] = cloneValue(g)
	}
	if q.having != nil {
		cp.having = q.having.Clone()
	}
	if q.order != nil {
		cp.order = q.order.clone().(*OrderByExpression)
	}
	if q.limit != nil {
		n := *q.limit
		cp.limit = &n
	}
	if q.offset != nil {
		n := *q.offset
		cp.offset = &n
	}
	cp.unions = make([]union, len(q.unions))
	for i, u := range q.unions {
		cp.unions[i] = union{all: u.all, query: u.query.Clone()}
	}
	cp.insertColumns = append([]string(nil), q.insertColumns...)
	if q.values != nil {
		cp.values = q.values.clone().(*ValuesExpression)
	}
	cp.updateTable = cloneValue(q.updateTable)
	if q.set != nil {
		cp.set = q.set.Clone()
	}
	if q.valueBinder != nil {
		cp.valueBinder = q.valueBinder.Clone()
	}
	cp.executed = false
	return &cp
}

func cloneFields(fields []field) []field {
	out := make([]field, len(fields))
	for i, f := range fields {
		out[i] = field{alias: f.alias, value: cloneValue(f.value)}
	}
	return out
}

// Traverse visits every expression held by the query's clauses.
func (q *Query) Traverse(visit func(Expression)) {
	for _, f := range q.selectFields {
		traverseValue(f.value, visit)
	}
	for _, f := range q.from {
		traverseValue(f.value, visit)
	}
	for _, j := range q.joins {
		traverseValue(j.table, visit)
		visit(j.conditions)
	}
	if q.where != nil {
		visit(q.where)
	}
	for _, g := range q.group {
		traverseValue(g, visit)
	}
	if q.having != nil {
		visit(q.having)
	}
	if q.order != nil {
		visit(q.order)
	}
	for _, u := range q.unions {
		visit(u.query)
	}
	if q.values != nil {
		visit(q.values)
	}
	traverseValue(q.updateTable, visit)
	if q.set != nil {
		visit(q.set)
	}
}

// TraverseParts calls visit for every keyword compiled for the query's
// type that currently holds a value, in compilation order.
func (q *Query) TraverseParts(visit func(part string)) {
	for _, part := range keywordOrder[q.typ] {
		if !q.isEmptyPart(part) {
			visit(part)
		}
	}
}

func (q *Query) isEmptyPart(part string) bool {
	switch part {
	case kwSelect, kwInsert, kwUpdate, kwDelete:
		return false
	case kwModifier:
		return len(q.modifiers) == 0
	case kwFrom:
		return len(q.from) == 0
	case kwJoin:
		return len(q.joins) == 0
	case kwWhere:
		return q.where == nil || q.where.Len() == 0
	case kwGroup:
		return len(q.group) == 0
	case kwHaving:
		return q.having == nil || q.having.Len() == 0
	case kwOrder:
		return q.order == nil || q.order.Len() == 0
	case kwLimit:
		return q.limit == nil
	case kwOffset:
		return q.offset == nil
	case kwUnion:
		return len(q.unions) == 0
	case kwEpilog:
		return q.epilog == ""
	case kwValues:
		return q.values == nil
	case kwSet:
		return q.set == nil || q.set.Len() == 0
	}
	return true
}

// ToSQL compiles the query. With a nil binder the query's own binder is
// used and its placeholder counter restarts, so repeated calls produce
// the same placeholders.
func (q *Query) ToSQL(b *binder.ValueBinder) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	if b == nil {
		b = q.ValueBinder()
		b.ResetCount()
	}
	if q.conn != nil {
		return q.conn.CompileQuery(q, b)
	}
	return NewCompiler(nil).Compile(q, b)
}

// String compiles the query with its own binder, returning the error text
// when compilation fails.
func (q *Query) String() string {
	sql, err := q.ToSQL(nil)
	if err != nil {
		return err.Error()
	}
	return sql
}

// SQL renders the query as a sub-query of another statement.
func (q *Query) SQL(b *binder.ValueBinder) (string, error) {
	return q.ToSQL(b)
}

func (q *Query) clone() Expression {
	return q.Clone()
}

// Execute compiles and runs the query. The caller owns the returned
// statement and must Close it.
func (q *Query) Execute(ctx context.Context) (*Statement, error) {
	if q.err != nil {
		return nil, q.err
	}
	if q.conn == nil {
		return nil, ErrNoConnection
	}
	stmt, err := q.conn.ExecuteQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	q.executed = true
	q.dirty = false
	return stmt, nil
}

// RowCountAndClose executes the query and returns the affected row count,
// always closing the statement.
func (q *Query) RowCountAndClose(ctx context.Context) (int64, error) {
	stmt, err := q.Execute(ctx)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	return stmt.RowCount()
}

// All executes the query and fetches every row, always closing the
// statement.
func (q *Query) All(ctx context.Context) ([]map[string]any, error) {
	stmt, err := q.Execute(ctx)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	return stmt.FetchAll()
}

// First fetches the first row of the query limited to one row. It returns
// nil when nothing matches. The query itself is left unchanged.
func (q *Query) First(ctx context.Context) (map[string]any, error) {
	rows, err := q.Clone().Limit(1).All(ctx)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}
