// Package orm maps table rows to entities on top of the query builder.
package orm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/satishbabariya/bear/database"
	"github.com/satishbabariya/bear/database/driver"
	"github.com/satishbabariya/bear/database/query"
	"github.com/satishbabariya/bear/internal/debug"
)

var (
	// ErrRecordNotFound is returned when no row matches a primary key.
	ErrRecordNotFound = errors.New("record not found")

	// ErrPrimaryKey is returned when primary key values are missing or do
	// not match the key's columns.
	ErrPrimaryKey = errors.New("invalid primary key")

	// ErrNewEntity is returned when updating or deleting an entity that
	// was never saved.
	ErrNewEntity = errors.New("entity is not persisted")
)

// Table is a repository for one database table.
type Table struct {
	conn       *database.Connection
	name       string
	alias      string
	primaryKey []string
	cache      *Cache
	uuidKey    bool
}

// Option configures a Table.
type Option func(*Table)

// WithAlias sets the alias used in SELECT queries.
func WithAlias(alias string) Option {
	return func(t *Table) {
		t.alias = alias
	}
}

// WithPrimaryKey sets the primary key columns. The default is "id".
func WithPrimaryKey(columns ...string) Option {
	return func(t *Table) {
		t.primaryKey = columns
	}
}

// WithCache caches rows loaded by Get.
func WithCache(c *Cache) Option {
	return func(t *Table) {
		t.cache = c
	}
}

// WithUUIDKey generates a UUID for the primary key of new entities that
// do not carry one.
func WithUUIDKey() Option {
	return func(t *Table) {
		t.uuidKey = true
	}
}

// NewTable creates a repository for the named table.
func NewTable(conn *database.Connection, name string, opts ...Option) *Table {
	t := &Table{
		conn:       conn,
		name:       name,
		primaryKey: []string{"id"},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Alias returns the query alias, which defaults to the table name.
func (t *Table) Alias() string {
	if t.alias == "" {
		return t.name
	}
	return t.alias
}

// PrimaryKey returns the primary key columns.
func (t *Table) PrimaryKey() []string {
	return append([]string(nil), t.primaryKey...)
}

// Connection returns the connection queries run on.
func (t *Table) Connection() *database.Connection {
	return t.conn
}

// Query starts a SELECT of every column of the table.
func (t *Table) Query() *query.Query {
	q := t.conn.SelectQuery()
	if t.alias != "" && t.alias != t.name {
		return q.From(query.As(t.alias, t.name))
	}
	return q.From(t.name)
}

// Find returns the entities matching conditions.
func (t *Table) Find(ctx context.Context, conditions ...any) ([]*Entity, error) {
	q := t.Query()
	if len(conditions) > 0 {
		q.Where(conditions...)
	}
	return t.All(ctx, q)
}

// All runs q and hydrates every row.
func (t *Table) All(ctx context.Context, q *query.Query) ([]*Entity, error) {
	rows, err := q.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", t.name, err)
	}
	out := make([]*Entity, len(rows))
	for i, row := range rows {
		out[i] = hydrate(t.name, row)
	}
	return out, nil
}

// First returns the first entity matching conditions, or nil.
func (t *Table) First(ctx context.Context, conditions ...any) (*Entity, error) {
	q := t.Query()
	if len(conditions) > 0 {
		q.Where(conditions...)
	}
	row, err := q.First(ctx)
	if err != nil || row == nil {
		return nil, err
	}
	return hydrate(t.name, row), nil
}

// Get loads the entity with primary key id. Composite keys are given as a
// []any in key column order.
func (t *Table) Get(ctx context.Context, id any) (*Entity, error) {
	values, ok := id.([]any)
	if !ok {
		values = []any{id}
	}
	conds, err := t.keyConditions(values)
	if err != nil {
		return nil, err
	}

	if t.cache != nil {
		if row, ok := t.cache.get(t.name, values); ok {
			return hydrate(t.name, row), nil
		}
	}

	row, err := t.Query().Where(conds).First(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", t.name, err)
	}
	if row == nil {
		return nil, fmt.Errorf("%w: %s %s", ErrRecordNotFound, t.name, formatKey(values))
	}
	if t.cache != nil {
		t.cache.set(t.name, values, row)
	}
	return hydrate(t.name, row), nil
}

// Save inserts new entities and updates persisted ones.
func (t *Table) Save(ctx context.Context, e *Entity) error {
	if e.IsNew() {
		return t.Insert(ctx, e)
	}
	return t.Update(ctx, e)
}

// Insert writes a new entity. A generated single-column key is read back
// into the entity.
func (t *Table) Insert(ctx context.Context, e *Entity) error {
	single := len(t.primaryKey) == 1
	if single && t.uuidKey && !e.Has(t.primaryKey[0]) {
		e.Set(t.primaryKey[0], uuid.NewString())
	}

	columns := e.Dirty()
	if len(columns) == 0 {
		columns = e.Fields()
	}
	if len(columns) == 0 {
		return fmt.Errorf("%w: nothing to insert into %s", query.ErrInvalidArgument, t.name)
	}

	q := t.conn.InsertQuery(t.name, columns...).Values(e.Extract(columns...))
	readBack := single && !e.Has(t.primaryKey[0])
	returning := readBack && t.conn.Driver().Dialect() == driver.PostgreSQL
	if returning {
		q.Returning()
	}

	stmt, err := q.Execute(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert into %s: %w", t.name, err)
	}
	defer stmt.Close()

	if readBack {
		if returning {
			row, err := stmt.Fetch()
			if err != nil {
				return fmt.Errorf("failed to read inserted %s: %w", t.name, err)
			}
			if row != nil {
				e.Set(t.primaryKey[0], row[t.primaryKey[0]])
			}
		} else if id, err := stmt.LastInsertID(); err == nil && id > 0 {
			e.Set(t.primaryKey[0], id)
		}
	}

	e.source = t.name
	e.SetNew(false).Clean()
	debug.Debug("inserted entity", "table", t.name, "key", formatKey(t.keyOf(e)))
	return nil
}

// Update writes the dirty fields of a persisted entity. The row is matched
// on the original key values, so the key itself may change.
func (t *Table) Update(ctx context.Context, e *Entity) error {
	if e.IsNew() {
		return fmt.Errorf("%w: %s", ErrNewEntity, t.name)
	}
	dirty := e.Dirty()
	if len(dirty) == 0 {
		return nil
	}

	original := make([]any, len(t.primaryKey))
	for i, col := range t.primaryKey {
		original[i] = e.Original(col)
	}
	conds, err := t.keyConditions(original)
	if err != nil {
		return err
	}

	q := t.conn.UpdateQuery(t.name)
	for _, col := range dirty {
		q.Set(col, e.Get(col))
	}
	if _, err := q.Where(conds).RowCountAndClose(ctx); err != nil {
		return fmt.Errorf("failed to update %s: %w", t.name, err)
	}

	if t.cache != nil {
		t.cache.invalidate(t.name, original)
	}
	e.Clean()
	return nil
}

// Delete removes a persisted entity.
func (t *Table) Delete(ctx context.Context, e *Entity) error {
	if e.IsNew() {
		return fmt.Errorf("%w: %s", ErrNewEntity, t.name)
	}
	key := t.keyOf(e)
	conds, err := t.keyConditions(key)
	if err != nil {
		return err
	}

	n, err := t.conn.DeleteQuery(t.name).Where(conds).RowCountAndClose(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", t.name, err)
	}
	if t.cache != nil {
		t.cache.invalidate(t.name, key)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", ErrRecordNotFound, t.name, formatKey(key))
	}
	e.SetNew(true)
	return nil
}

// UpdateAll sets fields on every row matching conditions and returns the
// affected row count.
func (t *Table) UpdateAll(ctx context.Context, fields map[string]any, conditions ...any) (int64, error) {
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: no fields to update", query.ErrInvalidArgument)
	}
	q := t.conn.UpdateQuery(t.name)
	for _, k := range sortedKeys(fields) {
		q.Set(k, fields[k])
	}
	if len(conditions) > 0 {
		q.Where(conditions...)
	}
	n, err := q.RowCountAndClose(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to update %s: %w", t.name, err)
	}
	if t.cache != nil {
		t.cache.InvalidateTable(t.name)
	}
	return n, nil
}

// DeleteAll removes every row matching conditions and returns the affected
// row count.
func (t *Table) DeleteAll(ctx context.Context, conditions ...any) (int64, error) {
	q := t.conn.DeleteQuery(t.name)
	if len(conditions) > 0 {
		q.Where(conditions...)
	}
	n, err := q.RowCountAndClose(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", t.name, err)
	}
	if t.cache != nil {
		t.cache.InvalidateTable(t.name)
	}
	return n, nil
}

// Exists reports whether any row matches conditions.
func (t *Table) Exists(ctx context.Context, conditions ...any) (bool, error) {
	fields := make([]any, len(t.primaryKey))
	for i, col := range t.primaryKey {
		fields[i] = col
	}
	q := t.conn.SelectQuery(fields...).From(t.name)
	if len(conditions) > 0 {
		q.Where(conditions...)
	}
	row, err := q.First(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to query %s: %w", t.name, err)
	}
	return row != nil, nil
}

// Count returns the number of rows matching conditions.
func (t *Table) Count(ctx context.Context, conditions ...any) (int64, error) {
	q := t.conn.SelectQuery(query.As("count", "COUNT(*)")).From(t.name)
	if len(conditions) > 0 {
		q.Where(conditions...)
	}
	row, err := q.First(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", t.name, err)
	}
	switch n := row["count"].(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case string:
		var v int64
		_, err := fmt.Sscan(n, &v)
		return v, err
	default:
		return 0, fmt.Errorf("unexpected count %T", n)
	}
}

func (t *Table) keyOf(e *Entity) []any {
	out := make([]any, len(t.primaryKey))
	for i, col := range t.primaryKey {
		out[i] = e.Get(col)
	}
	return out
}

func (t *Table) keyConditions(values []any) ([]query.KV, error) {
	if len(values) != len(t.primaryKey) {
		return nil, fmt.Errorf("%w: %s expects %d values, got %d",
			ErrPrimaryKey, t.name, len(t.primaryKey), len(values))
	}
	conds := make([]query.KV, len(values))
	for i, v := range values {
		if v == nil {
			return nil, fmt.Errorf("%w: %s.%s is null", ErrPrimaryKey, t.name, t.primaryKey[i])
		}
		conds[i] = query.KV{Key: t.primaryKey[i], Value: v}
	}
	return conds, nil
}

func formatKey(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ",")
}
