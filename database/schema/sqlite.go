package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// SQLiteDialect renders DDL for SQLite. Keys are declared inline because
// SQLite cannot add or drop constraints on an existing table.
type SQLiteDialect struct {
	dialect
}

// autoIncrementColumn returns the single integer primary key column that
// is declared AUTOINCREMENT, if any.
func (d *SQLiteDialect) autoIncrementColumn(t *TableSchema) string {
	pk := t.PrimaryKey()
	if len(pk) != 1 {
		return ""
	}
	c, ok := t.Column(pk[0])
	if !ok || !c.AutoIncrement || !c.Type.IsInteger() {
		return ""
	}
	return c.Name
}

// CreateTableSQL returns CREATE TABLE followed by CREATE INDEX statements.
func (d *SQLiteDialect) CreateTableSQL(t *TableSchema) ([]string, error) {
	if len(t.columns) == 0 {
		return nil, schemaError(t.name, "table has no columns")
	}

	var lines []string
	for _, c := range t.columns {
		line, err := d.ColumnSQL(t, c.Name)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	for _, c := range t.constraints {
		line, err := d.ConstraintSQL(t, c.Name)
		if err != nil {
			return nil, err
		}
		if line != "" {
			lines = append(lines, line)
		}
	}

	create := "CREATE TABLE"
	if t.temporary {
		create = "CREATE TEMPORARY TABLE"
	}
	out := []string{fmt.Sprintf("%s %s (\n%s\n)", create, d.quote(t.name), indent(lines))}
	for _, idx := range t.indexes {
		sql, err := d.IndexSQL(t, idx.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, sql)
	}
	return out, nil
}

// DropTableSQL drops the table.
func (d *SQLiteDialect) DropTableSQL(t *TableSchema) []string {
	return []string{"DROP TABLE " + d.quote(t.name)}
}

// TruncateTableSQL deletes every row and resets the AUTOINCREMENT counter.
func (d *SQLiteDialect) TruncateTableSQL(t *TableSchema) []string {
	out := []string{"DELETE FROM " + d.quote(t.name)}
	if d.autoIncrementColumn(t) != "" {
		out = append(out, "DELETE FROM sqlite_sequence WHERE name = "+d.driver.SchemaValue(t.name))
	}
	return out
}

// AddConstraintSQL returns nothing; foreign keys are part of CREATE TABLE.
func (d *SQLiteDialect) AddConstraintSQL(*TableSchema) []string {
	return nil
}

// DropConstraintSQL returns nothing; foreign keys are part of CREATE TABLE.
func (d *SQLiteDialect) DropConstraintSQL(*TableSchema) []string {
	return nil
}

// ColumnSQL renders one column definition. The AUTOINCREMENT column carries
// the primary key inline.
func (d *SQLiteDialect) ColumnSQL(t *TableSchema, name string) (string, error) {
	c, err := d.findColumn(t, name)
	if err != nil {
		return "", err
	}

	if d.autoIncrementColumn(t) == c.Name {
		return d.quote(c.Name) + " INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT", nil
	}

	var sb strings.Builder
	sb.WriteString(d.quote(c.Name))
	sb.WriteString(" ")
	if c.Unsigned && c.Type.IsNumeric() {
		sb.WriteString("UNSIGNED ")
	}
	sb.WriteString(d.columnType(c))

	if c.Collate != "" && (c.Type == TypeString || c.Type == TypeChar || c.Type == TypeText) {
		sb.WriteString(" COLLATE " + c.Collate)
	}
	if !c.Null {
		sb.WriteString(" NOT NULL")
	}
	if c.Null && c.Default == nil {
		sb.WriteString(" DEFAULT NULL")
	} else {
		sb.WriteString(d.defaultSQL(c))
	}
	return sb.String(), nil
}

func (d *SQLiteDialect) columnType(c *Column) string {
	switch c.Type {
	case TypeString:
		if c.Length > 0 {
			return "VARCHAR(" + strconv.Itoa(c.Length) + ")"
		}
		return "VARCHAR"
	case TypeChar:
		return "CHAR(" + strconv.Itoa(lengthOr(c.Length, 1)) + ")"
	case TypeUUID:
		return "CHAR(36)"
	case TypeText, TypeJSON:
		return "TEXT"
	case TypeTinyInteger:
		return "TINYINT"
	case TypeSmallInteger:
		return "SMALLINT"
	case TypeInteger:
		return "INTEGER"
	case TypeBigInteger:
		return "BIGINT"
	case TypeFloat:
		return "FLOAT"
	case TypeDecimal:
		if c.Length > 0 {
			return fmt.Sprintf("DECIMAL(%d,%d)", c.Length, c.Precision)
		}
		return "DECIMAL"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeDate:
		return "DATE"
	case TypeDateTime:
		return "DATETIME"
	case TypeTimestamp:
		return "TIMESTAMP"
	case TypeTime:
		return "TIME"
	case TypeBinary:
		return "BLOB"
	}
	return "VARCHAR"
}

// IndexSQL renders a CREATE INDEX statement. SQLite has no full text index
// type, so full text indexes become plain indexes.
func (d *SQLiteDialect) IndexSQL(t *TableSchema, name string) (string, error) {
	idx, err := d.findIndex(t, name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
		d.quote(idx.Name), d.quote(t.name), d.quoteColumns(idx.Columns, nil)), nil
}

// ConstraintSQL renders a constraint clause. The primary key of an
// AUTOINCREMENT column renders empty because the column declares it.
func (d *SQLiteDialect) ConstraintSQL(t *TableSchema, name string) (string, error) {
	c, err := d.findConstraint(t, name)
	if err != nil {
		return "", err
	}
	cols := d.quoteColumns(c.Columns, nil)
	switch c.Type {
	case ConstraintPrimary:
		if d.autoIncrementColumn(t) != "" {
			return "", nil
		}
		return fmt.Sprintf("CONSTRAINT %s PRIMARY KEY (%s)", d.quote(c.Name), cols), nil
	case ConstraintUnique:
		return fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)", d.quote(c.Name), cols), nil
	default:
		return fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) %s", d.quote(c.Name), cols, d.references(c)), nil
	}
}

// ListTablesSQL lists user tables.
func (d *SQLiteDialect) ListTablesSQL() (string, map[string]any) {
	return `SELECT name AS name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`, nil
}

// DescribeColumnSQL reads pragma_table_info and whether the table was
// declared with AUTOINCREMENT.
func (d *SQLiteDialect) DescribeColumnSQL(table string) (string, map[string]any) {
	return `SELECT
			p.name AS name,
			p.type AS type,
			p."notnull" AS not_null,
			p.dflt_value AS default_value,
			p.pk AS pk,
			(SELECT COUNT(*) FROM sqlite_master m
				WHERE m.type = 'table' AND m.name = :table AND m.sql LIKE '%AUTOINCREMENT%') AS auto_increment
		FROM pragma_table_info(:table) p
		ORDER BY p.cid`, tableParams(table)
}

// DescribeIndexSQL returns one row per indexed column.
func (d *SQLiteDialect) DescribeIndexSQL(table string) (string, map[string]any) {
	return `SELECT
			il.name AS name,
			il."unique" AS is_unique,
			il.origin AS origin,
			ii.name AS column_name
		FROM pragma_index_list(:table) il
		JOIN pragma_index_info(il.name) ii
		ORDER BY il.seq, ii.seqno`, tableParams(table)
}

// DescribeForeignKeySQL returns one row per foreign key column. SQLite does
// not keep constraint names, so keys are named after the table and key id.
func (d *SQLiteDialect) DescribeForeignKeySQL(table string) (string, map[string]any) {
	return `SELECT
			id AS id,
			"table" AS referenced_table,
			"from" AS column_name,
			"to" AS referenced_column,
			on_update AS update_rule,
			on_delete AS delete_rule
		FROM pragma_foreign_key_list(:table)
		ORDER BY id, seq`, tableParams(table)
}

// DescribeOptionsSQL is empty; SQLite tables carry no options.
func (d *SQLiteDialect) DescribeOptionsSQL(string) (string, map[string]any) {
	return "", nil
}

// ConvertColumn adds the column described by row and records its primary
// key membership.
func (d *SQLiteDialect) ConvertColumn(t *TableSchema, row map[string]any) error {
	raw := strings.ToLower(strings.TrimSpace(rowString(row, "type")))
	unsigned := strings.HasPrefix(raw, "unsigned ")
	p := parseSQLType(strings.TrimPrefix(raw, "unsigned "))

	c := Column{
		Name:      rowString(row, "name"),
		Null:      rowInt(row, "not_null") == 0,
		Length:    p.length,
		Precision: p.precision,
		Unsigned:  unsigned || p.unsigned,
	}
	switch p.name {
	case "tinyint":
		c.Type = TypeTinyInteger
	case "smallint":
		c.Type = TypeSmallInteger
	case "int", "integer", "mediumint":
		c.Type = TypeInteger
	case "bigint":
		c.Type = TypeBigInteger
	case "boolean", "bool":
		c.Type = TypeBoolean
	case "char":
		if p.length == 36 {
			c.Type, c.Length = TypeUUID, 0
		} else {
			c.Type = TypeChar
		}
	case "varchar", "character varying", "nvarchar":
		c.Type = TypeString
	case "text", "clob":
		c.Type = TypeText
	case "blob":
		c.Type = TypeBinary
	case "float", "real", "double", "double precision":
		c.Type = TypeFloat
	case "decimal", "numeric":
		c.Type = TypeDecimal
	case "date":
		c.Type = TypeDate
	case "datetime":
		c.Type = TypeDateTime
	case "timestamp":
		c.Type = TypeTimestamp
	case "time":
		c.Type = TypeTime
	case "json":
		c.Type = TypeJSON
	default:
		c.Type = TypeString
	}

	pk := rowInt(row, "pk")
	if pk > 0 && c.Type == TypeInteger && rowInt(row, "auto_increment") > 0 {
		c.AutoIncrement = true
	}
	if row["default_value"] != nil {
		c.Default = unquoteDefault(rowString(row, "default_value"))
	}
	if err := t.AddColumn(c); err != nil {
		return err
	}
	if pk > 0 {
		return addToConstraint(t, "primary", ConstraintPrimary, c.Name, 0)
	}
	return nil
}

// ConvertIndex adds one indexed column. Indexes backing the primary key
// are skipped because ConvertColumn already recorded it. Automatic unique
// indexes are renamed so the regenerated DDL does not use the reserved
// sqlite_ prefix.
func (d *SQLiteDialect) ConvertIndex(t *TableSchema, row map[string]any) error {
	if rowString(row, "origin") == "pk" {
		return nil
	}
	name := rowString(row, "name")
	column := rowString(row, "column_name")
	if rowBool(row, "is_unique") {
		if rest, ok := strings.CutPrefix(name, "sqlite_autoindex_"); ok {
			name = "uq_" + rest
		}
		return addToConstraint(t, name, ConstraintUnique, column, 0)
	}
	return addToIndex(t, name, IndexIndex, column, 0)
}

// ConvertForeignKey adds one foreign key column. Rows with the same id merge.
func (d *SQLiteDialect) ConvertForeignKey(t *TableSchema, row map[string]any) error {
	return t.AddConstraint(Constraint{
		Name:    fmt.Sprintf("%s_fk_%d", t.name, rowInt(row, "id")),
		Type:    ConstraintForeign,
		Columns: []string{rowString(row, "column_name")},
		References: &Reference{
			Table:   rowString(row, "referenced_table"),
			Columns: []string{rowString(row, "referenced_column")},
		},
		Update: parseAction(rowString(row, "update_rule")),
		Delete: parseAction(rowString(row, "delete_rule")),
	})
}

// ConvertOptions does nothing for SQLite.
func (d *SQLiteDialect) ConvertOptions(*TableSchema, map[string]any) {}
