package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// PostgresDialect renders DDL for PostgreSQL.
type PostgresDialect struct {
	dialect
}

// CreateTableSQL returns CREATE TABLE followed by CREATE INDEX and
// COMMENT ON statements.
func (d *PostgresDialect) CreateTableSQL(t *TableSchema) ([]string, error) {
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
		lines = append(lines, line)
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
	for _, c := range t.columns {
		if c.Comment == "" {
			continue
		}
		out = append(out, fmt.Sprintf("COMMENT ON COLUMN %s.%s IS %s",
			d.quote(t.name), d.quote(c.Name), d.driver.SchemaValue(c.Comment)))
	}
	return out, nil
}

// DropTableSQL drops the table and dependent objects.
func (d *PostgresDialect) DropTableSQL(t *TableSchema) []string {
	return []string{"DROP TABLE " + d.quote(t.name) + " CASCADE"}
}

// TruncateTableSQL empties the table and restarts its sequences.
func (d *PostgresDialect) TruncateTableSQL(t *TableSchema) []string {
	return []string{"TRUNCATE " + d.quote(t.name) + " RESTART IDENTITY CASCADE"}
}

// AddConstraintSQL adds each foreign key with ALTER TABLE.
func (d *PostgresDialect) AddConstraintSQL(t *TableSchema) []string {
	var out []string
	for _, c := range t.foreignKeys() {
		sql, _ := d.ConstraintSQL(t, c.Name)
		out = append(out, fmt.Sprintf("ALTER TABLE %s ADD %s", d.quote(t.name), sql))
	}
	return out
}

// DropConstraintSQL drops each foreign key.
func (d *PostgresDialect) DropConstraintSQL(t *TableSchema) []string {
	var out []string
	for _, c := range t.foreignKeys() {
		out = append(out, fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", d.quote(t.name), d.quote(c.Name)))
	}
	return out
}

// ColumnSQL renders one column definition. Auto incrementing integers use
// the serial types.
func (d *PostgresDialect) ColumnSQL(t *TableSchema, name string) (string, error) {
	c, err := d.findColumn(t, name)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(d.quote(c.Name))
	sb.WriteString(" ")
	sb.WriteString(d.columnType(c))

	if c.Collate != "" && (c.Type == TypeString || c.Type == TypeChar || c.Type == TypeText) {
		sb.WriteString(` COLLATE "` + c.Collate + `"`)
	}
	if c.Null {
		sb.WriteString(" NULL")
	} else {
		sb.WriteString(" NOT NULL")
	}
	if !c.AutoIncrement {
		sb.WriteString(d.defaultSQL(c))
	}
	return sb.String(), nil
}

func (d *PostgresDialect) columnType(c *Column) string {
	serial := c.AutoIncrement && c.Type.IsInteger()
	switch c.Type {
	case TypeString:
		if c.Length > 0 {
			return "VARCHAR(" + strconv.Itoa(c.Length) + ")"
		}
		return "VARCHAR"
	case TypeChar:
		return "CHAR(" + strconv.Itoa(lengthOr(c.Length, 1)) + ")"
	case TypeUUID:
		return "UUID"
	case TypeText:
		return "TEXT"
	case TypeTinyInteger, TypeSmallInteger:
		if serial {
			return "SMALLSERIAL"
		}
		return "SMALLINT"
	case TypeInteger:
		if serial {
			return "SERIAL"
		}
		return "INTEGER"
	case TypeBigInteger:
		if serial {
			return "BIGSERIAL"
		}
		return "BIGINT"
	case TypeFloat:
		if c.Precision > 0 {
			return "FLOAT(" + strconv.Itoa(c.Precision) + ")"
		}
		return "DOUBLE PRECISION"
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
		return "TIMESTAMP" + fraction(c.Precision)
	case TypeTimestamp:
		return "TIMESTAMPTZ" + fraction(c.Precision)
	case TypeTime:
		return "TIME"
	case TypeBinary:
		return "BYTEA"
	case TypeJSON:
		return "JSONB"
	}
	return "VARCHAR"
}

// IndexSQL renders a CREATE INDEX statement. Full text indexes use GIN over
// to_tsvector.
func (d *PostgresDialect) IndexSQL(t *TableSchema, name string) (string, error) {
	idx, err := d.findIndex(t, name)
	if err != nil {
		return "", err
	}
	if idx.Type == IndexFulltext {
		return fmt.Sprintf("CREATE INDEX %s ON %s USING gin(to_tsvector('english', %s))",
			d.quote(idx.Name), d.quote(t.name), d.quoteColumns(idx.Columns, nil)), nil
	}
	return fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
		d.quote(idx.Name), d.quote(t.name), d.quoteColumns(idx.Columns, nil)), nil
}

// ConstraintSQL renders a primary, unique or foreign key clause.
func (d *PostgresDialect) ConstraintSQL(t *TableSchema, name string) (string, error) {
	c, err := d.findConstraint(t, name)
	if err != nil {
		return "", err
	}
	cols := d.quoteColumns(c.Columns, nil)
	switch c.Type {
	case ConstraintPrimary:
		return "PRIMARY KEY (" + cols + ")", nil
	case ConstraintUnique:
		return fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)", d.quote(c.Name), cols), nil
	default:
		return fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) %s DEFERRABLE INITIALLY IMMEDIATE",
			d.quote(c.Name), cols, d.references(c)), nil
	}
}

// ListTablesSQL lists the base tables of the current schema.
func (d *PostgresDialect) ListTablesSQL() (string, map[string]any) {
	return `SELECT table_name AS name
		FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name`, nil
}

// DescribeColumnSQL reads column metadata from information_schema.
func (d *PostgresDialect) DescribeColumnSQL(table string) (string, map[string]any) {
	return `SELECT
			c.column_name AS name,
			c.data_type AS data_type,
			c.is_nullable AS nullable,
			c.column_default AS default_value,
			c.character_maximum_length AS char_length,
			c.numeric_precision AS numeric_precision,
			c.numeric_scale AS numeric_scale,
			c.datetime_precision AS datetime_precision,
			c.collation_name AS collation,
			col_description((quote_ident(c.table_schema) || '.' || quote_ident(c.table_name))::regclass, c.ordinal_position) AS comment
		FROM information_schema.columns c
		WHERE c.table_schema = current_schema() AND c.table_name = :table
		ORDER BY c.ordinal_position`, tableParams(table)
}

// DescribeIndexSQL returns one row per indexed column. Expression indexes
// have no column and are not reported.
func (d *PostgresDialect) DescribeIndexSQL(table string) (string, map[string]any) {
	return `SELECT
			i.relname AS name,
			a.attname AS column_name,
			ix.indisprimary AS is_primary,
			ix.indisunique AS is_unique
		FROM pg_class t
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_index ix ON ix.indrelid = t.oid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		WHERE n.nspname = current_schema() AND t.relname = :table
		ORDER BY i.relname, array_position(ix.indkey::int2[], a.attnum)`, tableParams(table)
}

// DescribeForeignKeySQL returns one row per foreign key column.
func (d *PostgresDialect) DescribeForeignKeySQL(table string) (string, map[string]any) {
	return `SELECT
			tc.constraint_name AS name,
			kcu.column_name AS column_name,
			ccu.table_name AS referenced_table,
			ccu.column_name AS referenced_column,
			rc.update_rule AS update_rule,
			rc.delete_rule AS delete_rule
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
		JOIN information_schema.referential_constraints rc
			ON rc.constraint_name = tc.constraint_name AND rc.constraint_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = current_schema()
			AND tc.table_name = :table
		ORDER BY tc.constraint_name, kcu.ordinal_position`, tableParams(table)
}

// DescribeOptionsSQL is empty; PostgreSQL tables carry no options here.
func (d *PostgresDialect) DescribeOptionsSQL(string) (string, map[string]any) {
	return "", nil
}

// ConvertColumn adds the column described by row.
func (d *PostgresDialect) ConvertColumn(t *TableSchema, row map[string]any) error {
	c := Column{
		Name:    rowString(row, "name"),
		Null:    rowBool(row, "nullable"),
		Collate: rowString(row, "collation"),
		Comment: rowString(row, "comment"),
	}

	switch strings.ToLower(rowString(row, "data_type")) {
	case "character varying":
		c.Type, c.Length = TypeString, rowInt(row, "char_length")
	case "character":
		c.Type, c.Length = TypeChar, rowInt(row, "char_length")
	case "uuid":
		c.Type = TypeUUID
	case "text":
		c.Type = TypeText
	case "smallint":
		c.Type = TypeSmallInteger
	case "integer":
		c.Type = TypeInteger
	case "bigint":
		c.Type = TypeBigInteger
	case "real", "double precision":
		c.Type = TypeFloat
	case "numeric":
		c.Type = TypeDecimal
		c.Length, c.Precision = rowInt(row, "numeric_precision"), rowInt(row, "numeric_scale")
	case "boolean":
		c.Type = TypeBoolean
	case "date":
		c.Type = TypeDate
	case "timestamp without time zone":
		c.Type = TypeDateTime
	case "timestamp with time zone":
		c.Type = TypeTimestamp
	case "time without time zone", "time with time zone":
		c.Type = TypeTime
	case "bytea":
		c.Type = TypeBinary
	case "json", "jsonb":
		c.Type = TypeJSON
	default:
		c.Type = TypeString
	}
	if c.Type == TypeDateTime || c.Type == TypeTimestamp {
		if p := rowInt(row, "datetime_precision"); p != 6 {
			c.Precision = p
		}
	}

	def := rowString(row, "default_value")
	switch {
	case strings.HasPrefix(def, "nextval("):
		c.AutoIncrement = true
	case def != "":
		c.Default = convertPostgresDefault(def)
	}
	return t.AddColumn(c)
}

// convertPostgresDefault strips the type cast PostgreSQL appends to stored
// defaults, as in 'draft'::character varying.
func convertPostgresDefault(def string) any {
	if i := strings.LastIndex(def, "::"); i > 0 {
		def = def[:i]
	}
	switch strings.ToLower(def) {
	case "true":
		return true
	case "false":
		return false
	}
	return unquoteDefault(def)
}

// ConvertIndex adds one indexed column.
func (d *PostgresDialect) ConvertIndex(t *TableSchema, row map[string]any) error {
	name := rowString(row, "name")
	column := rowString(row, "column_name")

	switch {
	case rowBool(row, "is_primary"):
		return addToConstraint(t, "primary", ConstraintPrimary, column, 0)
	case rowBool(row, "is_unique"):
		return addToConstraint(t, name, ConstraintUnique, column, 0)
	default:
		return addToIndex(t, name, IndexIndex, column, 0)
	}
}

// ConvertForeignKey adds one foreign key column. Rows of the same key merge.
func (d *PostgresDialect) ConvertForeignKey(t *TableSchema, row map[string]any) error {
	return t.AddConstraint(Constraint{
		Name:    rowString(row, "name"),
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

// ConvertOptions does nothing for PostgreSQL.
func (d *PostgresDialect) ConvertOptions(*TableSchema, map[string]any) {}
