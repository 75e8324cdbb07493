// Package schema models tables as columns, indexes and constraints and
// renders that model as DDL for MySQL, PostgreSQL and SQLite. It can also
// read a live table back into the model.
package schema

import (
	"slices"
)

// ColumnType is an abstract column type mapped onto a dialect type.
type ColumnType string

const (
	TypeString       ColumnType = "string"
	TypeChar         ColumnType = "char"
	TypeText         ColumnType = "text"
	TypeUUID         ColumnType = "uuid"
	TypeInteger      ColumnType = "integer"
	TypeTinyInteger  ColumnType = "tinyinteger"
	TypeSmallInteger ColumnType = "smallinteger"
	TypeBigInteger   ColumnType = "biginteger"
	TypeFloat        ColumnType = "float"
	TypeDecimal      ColumnType = "decimal"
	TypeBoolean      ColumnType = "boolean"
	TypeDate         ColumnType = "date"
	TypeDateTime     ColumnType = "datetime"
	TypeTimestamp    ColumnType = "timestamp"
	TypeTime         ColumnType = "time"
	TypeBinary       ColumnType = "binary"
	TypeJSON         ColumnType = "json"
)

var columnTypes = []ColumnType{
	TypeString, TypeChar, TypeText, TypeUUID, TypeInteger, TypeTinyInteger,
	TypeSmallInteger, TypeBigInteger, TypeFloat, TypeDecimal, TypeBoolean,
	TypeDate, TypeDateTime, TypeTimestamp, TypeTime, TypeBinary, TypeJSON,
}

// IsNumeric reports whether values of the type are numbers.
func (t ColumnType) IsNumeric() bool {
	switch t {
	case TypeInteger, TypeTinyInteger, TypeSmallInteger, TypeBigInteger, TypeFloat, TypeDecimal:
		return true
	}
	return false
}

// IsInteger reports whether the type is one of the integer types.
func (t ColumnType) IsInteger() bool {
	switch t {
	case TypeInteger, TypeTinyInteger, TypeSmallInteger, TypeBigInteger:
		return true
	}
	return false
}

// Column is a column definition.
type Column struct {
	Name      string
	Type      ColumnType
	Length    int
	Precision int
	Unsigned  bool
	Null      bool

	// Default is the default value; nil means no default. The string
	// CURRENT_TIMESTAMP is emitted verbatim for date and time columns.
	Default any

	AutoIncrement bool
	Comment       string
	Collate       string
}

// IndexType is the kind of an index.
type IndexType string

const (
	IndexIndex    IndexType = "index"
	IndexFulltext IndexType = "fulltext"
)

// Index is a non-unique index.
type Index struct {
	Name    string
	Type    IndexType
	Columns []string
	// Length limits the indexed prefix per column.
	Length map[string]int
}

// ConstraintType is the kind of a constraint.
type ConstraintType string

const (
	ConstraintPrimary ConstraintType = "primary"
	ConstraintUnique  ConstraintType = "unique"
	ConstraintForeign ConstraintType = "foreign"
)

// Action is what a foreign key does when the referenced row changes.
type Action string

const (
	ActionCascade    Action = "cascade"
	ActionSetNull    Action = "setNull"
	ActionNoAction   Action = "noAction"
	ActionRestrict   Action = "restrict"
	ActionSetDefault Action = "setDefault"
)

// Reference is the target of a foreign key.
type Reference struct {
	Table   string
	Columns []string
}

// Constraint is a primary key, unique key or foreign key.
type Constraint struct {
	Name       string
	Type       ConstraintType
	Columns    []string
	References *Reference
	Update     Action
	Delete     Action
	Length     map[string]int
}

// Options are table level settings. Dialects ignore what they do not
// support.
type Options struct {
	Engine    string
	Charset   string
	Collation string
}

// TableSchema describes one table. Indexes and constraints may only
// reference columns that were added before them.
type TableSchema struct {
	name        string
	columns     []*Column
	indexes     []*Index
	constraints []*Constraint
	options     Options
	temporary   bool
}

// NewTable creates an empty table definition.
func NewTable(name string) *TableSchema {
	return &TableSchema{name: name}
}

// Name returns the table name.
func (t *TableSchema) Name() string {
	return t.name
}

// AddColumn adds a column, replacing one with the same name.
func (t *TableSchema) AddColumn(c Column) error {
	if c.Name == "" {
		return schemaError(t.name, "column name is required")
	}
	if c.Type == "" {
		c.Type = TypeString
	}
	if !slices.Contains(columnTypes, c.Type) {
		return schemaError(t.name, "column %s has unknown type %q", c.Name, c.Type)
	}

	for i, existing := range t.columns {
		if existing.Name == c.Name {
			t.columns[i] = &c
			return nil
		}
	}
	t.columns = append(t.columns, &c)
	return nil
}

// Column returns the column called name.
func (t *TableSchema) Column(name string) (Column, bool) {
	for _, c := range t.columns {
		if c.Name == name {
			return *c, true
		}
	}
	return Column{}, false
}

// HasColumn reports whether the column exists.
func (t *TableSchema) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// Columns returns the columns in definition order.
func (t *TableSchema) Columns() []Column {
	out := make([]Column, len(t.columns))
	for i, c := range t.columns {
		out[i] = *c
	}
	return out
}

// ColumnNames returns the column names in definition order.
func (t *TableSchema) ColumnNames() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.Name
	}
	return out
}

// RemoveColumn drops a column that no index or constraint references.
func (t *TableSchema) RemoveColumn(name string) error {
	for _, idx := range t.indexes {
		if slices.Contains(idx.Columns, name) {
			return schemaError(t.name, "column %s is used by index %s", name, idx.Name)
		}
	}
	for _, c := range t.constraints {
		if slices.Contains(c.Columns, name) {
			return schemaError(t.name, "column %s is used by constraint %s", name, c.Name)
		}
	}
	t.columns = slices.DeleteFunc(t.columns, func(c *Column) bool { return c.Name == name })
	return nil
}

func (t *TableSchema) checkColumns(kind, name string, columns []string) error {
	if len(columns) == 0 {
		return schemaError(t.name, "%s %s must have at least one column", kind, name)
	}
	for _, col := range columns {
		if !t.HasColumn(col) {
			return schemaError(t.name, "%s %s references unknown column %s", kind, name, col)
		}
	}
	return nil
}

// AddIndex adds an index, replacing one with the same name.
func (t *TableSchema) AddIndex(idx Index) error {
	if idx.Name == "" {
		return schemaError(t.name, "index name is required")
	}
	if idx.Type == "" {
		idx.Type = IndexIndex
	}
	if idx.Type != IndexIndex && idx.Type != IndexFulltext {
		return schemaError(t.name, "index %s has invalid type %q", idx.Name, idx.Type)
	}
	if err := t.checkColumns("index", idx.Name, idx.Columns); err != nil {
		return err
	}

	idx.Columns = slices.Clone(idx.Columns)
	for i, existing := range t.indexes {
		if existing.Name == idx.Name {
			t.indexes[i] = &idx
			return nil
		}
	}
	t.indexes = append(t.indexes, &idx)
	return nil
}

// Index returns the index called name.
func (t *TableSchema) Index(name string) (Index, bool) {
	for _, idx := range t.indexes {
		if idx.Name == name {
			return *idx, true
		}
	}
	return Index{}, false
}

// Indexes returns the indexes in definition order.
func (t *TableSchema) Indexes() []Index {
	out := make([]Index, len(t.indexes))
	for i, idx := range t.indexes {
		out[i] = *idx
	}
	return out
}

// AddConstraint adds a constraint. A foreign key added under the name of an
// existing foreign key extends its column and reference lists; other
// constraints replace one with the same name.
func (t *TableSchema) AddConstraint(c Constraint) error {
	if c.Name == "" {
		return schemaError(t.name, "constraint name is required")
	}
	switch c.Type {
	case ConstraintPrimary, ConstraintUnique, ConstraintForeign:
	default:
		return schemaError(t.name, "constraint %s has invalid type %q", c.Name, c.Type)
	}
	if err := t.checkColumns("constraint", c.Name, c.Columns); err != nil {
		return err
	}
	c.Columns = slices.Clone(c.Columns)

	if c.Type == ConstraintForeign {
		if c.References == nil || c.References.Table == "" || len(c.References.Columns) == 0 {
			return schemaError(t.name, "foreign key %s needs a referenced table and columns", c.Name)
		}
		if c.Update == "" {
			c.Update = ActionRestrict
		}
		if c.Delete == "" {
			c.Delete = ActionRestrict
		}
		if !validAction(c.Update) || !validAction(c.Delete) {
			return schemaError(t.name, "foreign key %s has invalid action", c.Name)
		}
		ref := *c.References
		ref.Columns = slices.Clone(ref.Columns)
		c.References = &ref
	}

	for i, existing := range t.constraints {
		if existing.Name != c.Name {
			continue
		}
		if c.Type == ConstraintForeign && existing.Type == ConstraintForeign {
			existing.Columns = union(existing.Columns, c.Columns)
			existing.References.Columns = union(existing.References.Columns, c.References.Columns)
			return nil
		}
		t.constraints[i] = &c
		return nil
	}
	t.constraints = append(t.constraints, &c)
	return nil
}

func validAction(a Action) bool {
	switch a {
	case ActionCascade, ActionSetNull, ActionNoAction, ActionRestrict, ActionSetDefault:
		return true
	}
	return false
}

func union(a, b []string) []string {
	out := slices.Clone(a)
	for _, s := range b {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// Constraint returns the constraint called name.
func (t *TableSchema) Constraint(name string) (Constraint, bool) {
	for _, c := range t.constraints {
		if c.Name == name {
			return *c, true
		}
	}
	return Constraint{}, false
}

// Constraints returns the constraints in definition order.
func (t *TableSchema) Constraints() []Constraint {
	out := make([]Constraint, len(t.constraints))
	for i, c := range t.constraints {
		out[i] = *c
	}
	return out
}

// DropConstraint removes a constraint.
func (t *TableSchema) DropConstraint(name string) {
	t.constraints = slices.DeleteFunc(t.constraints, func(c *Constraint) bool { return c.Name == name })
}

// PrimaryKey returns the primary key columns.
func (t *TableSchema) PrimaryKey() []string {
	for _, c := range t.constraints {
		if c.Type == ConstraintPrimary {
			return slices.Clone(c.Columns)
		}
	}
	return nil
}

// SetOptions replaces the table options.
func (t *TableSchema) SetOptions(o Options) {
	t.options = o
}

// Options returns the table options.
func (t *TableSchema) Options() Options {
	return t.options
}

// SetTemporary marks the table as temporary.
func (t *TableSchema) SetTemporary(temporary bool) {
	t.temporary = temporary
}

// IsTemporary reports whether the table is temporary.
func (t *TableSchema) IsTemporary() bool {
	return t.temporary
}

// foreignKeys returns the foreign key constraints.
func (t *TableSchema) foreignKeys() []*Constraint {
	var out []*Constraint
	for _, c := range t.constraints {
		if c.Type == ConstraintForeign {
			out = append(out, c)
		}
	}
	return out
}
