package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// MySQLDialect renders DDL for MySQL and MariaDB.
type MySQLDialect struct {
	dialect
}

// CreateTableSQL returns a single CREATE TABLE statement with every key
// declared inline.
func (d *MySQLDialect) CreateTableSQL(t *TableSchema) ([]string, error) {
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
	for _, idx := range t.indexes {
		line, err := d.IndexSQL(t, idx.Name)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	create := "CREATE TABLE"
	if t.temporary {
		create = "CREATE TEMPORARY TABLE"
	}
	sql := fmt.Sprintf("%s %s (\n%s\n)", create, d.quote(t.name), indent(lines))

	o := t.options
	if o.Engine != "" {
		sql += " ENGINE=" + o.Engine
	}
	if o.Charset != "" {
		sql += " DEFAULT CHARSET=" + o.Charset
	}
	if o.Collation != "" {
		sql += " COLLATE=" + o.Collation
	}
	return []string{sql}, nil
}

func indent(lines []string) string {
	return "  " + strings.Join(lines, ",\n  ")
}

// DropTableSQL drops the table.
func (d *MySQLDialect) DropTableSQL(t *TableSchema) []string {
	if t.temporary {
		return []string{"DROP TEMPORARY TABLE " + d.quote(t.name)}
	}
	return []string{"DROP TABLE " + d.quote(t.name)}
}

// TruncateTableSQL empties the table and resets AUTO_INCREMENT.
func (d *MySQLDialect) TruncateTableSQL(t *TableSchema) []string {
	return []string{"TRUNCATE TABLE " + d.quote(t.name)}
}

// AddConstraintSQL adds each foreign key with ALTER TABLE.
func (d *MySQLDialect) AddConstraintSQL(t *TableSchema) []string {
	var out []string
	for _, c := range t.foreignKeys() {
		sql, _ := d.ConstraintSQL(t, c.Name)
		out = append(out, fmt.Sprintf("ALTER TABLE %s ADD %s", d.quote(t.name), sql))
	}
	return out
}

// DropConstraintSQL drops each foreign key.
func (d *MySQLDialect) DropConstraintSQL(t *TableSchema) []string {
	var out []string
	for _, c := range t.foreignKeys() {
		out = append(out, fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", d.quote(t.name), d.quote(c.Name)))
	}
	return out
}

// ColumnSQL renders one column definition.
func (d *MySQLDialect) ColumnSQL(t *TableSchema, name string) (string, error) {
	c, err := d.findColumn(t, name)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(d.quote(c.Name))
	sb.WriteString(" ")
	sb.WriteString(d.columnType(c))

	if c.Unsigned && c.Type.IsNumeric() {
		sb.WriteString(" UNSIGNED")
	}
	if c.Collate != "" && (c.Type == TypeString || c.Type == TypeChar || c.Type == TypeText) {
		sb.WriteString(" COLLATE " + c.Collate)
	}
	if c.Null {
		if c.Type == TypeTimestamp {
			sb.WriteString(" NULL")
		}
	} else {
		sb.WriteString(" NOT NULL")
	}
	if c.AutoIncrement && c.Type.IsInteger() {
		sb.WriteString(" AUTO_INCREMENT")
	}
	if c.Null && c.Default == nil && !c.AutoIncrement {
		sb.WriteString(" DEFAULT NULL")
	} else {
		sb.WriteString(d.defaultSQL(c))
	}
	if c.Comment != "" {
		sb.WriteString(" COMMENT " + d.driver.SchemaValue(c.Comment))
	}
	return sb.String(), nil
}

func (d *MySQLDialect) columnType(c *Column) string {
	switch c.Type {
	case TypeString:
		return "VARCHAR(" + strconv.Itoa(lengthOr(c.Length, 255)) + ")"
	case TypeChar:
		return "CHAR(" + strconv.Itoa(lengthOr(c.Length, 1)) + ")"
	case TypeUUID:
		return "CHAR(36)"
	case TypeText:
		switch {
		case c.Length == 0:
			return "TEXT"
		case c.Length <= 255:
			return "TINYTEXT"
		case c.Length <= 65535:
			return "TEXT"
		case c.Length <= 16777215:
			return "MEDIUMTEXT"
		default:
			return "LONGTEXT"
		}
	case TypeTinyInteger:
		return "TINYINT"
	case TypeSmallInteger:
		return "SMALLINT"
	case TypeInteger:
		return "INTEGER"
	case TypeBigInteger:
		return "BIGINT"
	case TypeFloat:
		if c.Length > 0 && c.Precision > 0 {
			return fmt.Sprintf("FLOAT(%d,%d)", c.Length, c.Precision)
		}
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
		return "DATETIME" + fraction(c.Precision)
	case TypeTimestamp:
		return "TIMESTAMP" + fraction(c.Precision)
	case TypeTime:
		return "TIME"
	case TypeBinary:
		switch {
		case c.Length == 16:
			return "BINARY(16)"
		case c.Length > 0 && c.Length <= 255:
			return "VARBINARY(" + strconv.Itoa(c.Length) + ")"
		case c.Length > 0 && c.Length <= 65535:
			return "BLOB"
		default:
			return "LONGBLOB"
		}
	case TypeJSON:
		if d.driver.SupportsNativeJSON() {
			return "JSON"
		}
		return "LONGTEXT"
	}
	return "VARCHAR(255)"
}

func lengthOr(n, fallback int) int {
	if n > 0 {
		return n
	}
	return fallback
}

func fraction(precision int) string {
	if precision > 0 {
		return "(" + strconv.Itoa(precision) + ")"
	}
	return ""
}

// IndexSQL renders an index as a KEY clause.
func (d *MySQLDialect) IndexSQL(t *TableSchema, name string) (string, error) {
	idx, err := d.findIndex(t, name)
	if err != nil {
		return "", err
	}
	kind := "KEY"
	if idx.Type == IndexFulltext {
		kind = "FULLTEXT KEY"
	}
	return fmt.Sprintf("%s %s (%s)", kind, d.quote(idx.Name), d.quoteColumns(idx.Columns, idx.Length)), nil
}

// ConstraintSQL renders a primary, unique or foreign key clause.
func (d *MySQLDialect) ConstraintSQL(t *TableSchema, name string) (string, error) {
	c, err := d.findConstraint(t, name)
	if err != nil {
		return "", err
	}
	cols := d.quoteColumns(c.Columns, c.Length)
	switch c.Type {
	case ConstraintPrimary:
		return "PRIMARY KEY (" + cols + ")", nil
	case ConstraintUnique:
		return fmt.Sprintf("UNIQUE KEY %s (%s)", d.quote(c.Name), cols), nil
	default:
		return fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) %s", d.quote(c.Name), cols, d.references(c)), nil
	}
}

// ListTablesSQL lists the base tables of the current database.
func (d *MySQLDialect) ListTablesSQL() (string, map[string]any) {
	return `SELECT table_name AS name
		FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
		ORDER BY table_name`, nil
}

// DescribeColumnSQL reads column metadata from information_schema.
func (d *MySQLDialect) DescribeColumnSQL(table string) (string, map[string]any) {
	return `SELECT
			column_name AS name,
			column_type AS column_type,
			is_nullable AS nullable,
			column_default AS default_value,
			extra AS extra,
			column_comment AS comment,
			collation_name AS collation,
			numeric_scale AS numeric_scale,
			datetime_precision AS datetime_precision
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = :table
		ORDER BY ordinal_position`, tableParams(table)
}

// DescribeIndexSQL returns one row per indexed column, primary key included.
func (d *MySQLDialect) DescribeIndexSQL(table string) (string, map[string]any) {
	return `SELECT
			index_name AS name,
			column_name AS column_name,
			non_unique AS non_unique,
			index_type AS index_type,
			sub_part AS sub_part
		FROM information_schema.statistics
		WHERE table_schema = DATABASE() AND table_name = :table
		ORDER BY index_name, seq_in_index`, tableParams(table)
}

// DescribeForeignKeySQL returns one row per foreign key column.
func (d *MySQLDialect) DescribeForeignKeySQL(table string) (string, map[string]any) {
	return `SELECT
			kcu.constraint_name AS name,
			kcu.column_name AS column_name,
			kcu.referenced_table_name AS referenced_table,
			kcu.referenced_column_name AS referenced_column,
			rc.update_rule AS update_rule,
			rc.delete_rule AS delete_rule
		FROM information_schema.key_column_usage kcu
		JOIN information_schema.referential_constraints rc
			ON rc.constraint_schema = kcu.constraint_schema
			AND rc.constraint_name = kcu.constraint_name
			AND rc.table_name = kcu.table_name
		WHERE kcu.table_schema = DATABASE()
			AND kcu.table_name = :table
			AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.constraint_name, kcu.ordinal_position`, tableParams(table)
}

// DescribeOptionsSQL reads engine, charset and collation.
func (d *MySQLDialect) DescribeOptionsSQL(table string) (string, map[string]any) {
	return `SELECT
			t.engine AS engine,
			t.table_collation AS collation,
			c.character_set_name AS charset
		FROM information_schema.tables t
		LEFT JOIN information_schema.collation_character_set_applicability c
			ON c.collation_name = t.table_collation
		WHERE t.table_schema = DATABASE() AND t.table_name = :table`, tableParams(table)
}

// ConvertColumn adds the column described by row.
func (d *MySQLDialect) ConvertColumn(t *TableSchema, row map[string]any) error {
	c := convertMySQLType(rowString(row, "column_type"))
	c.Name = rowString(row, "name")
	c.Null = rowBool(row, "nullable")
	c.Comment = rowString(row, "comment")
	c.Collate = rowString(row, "collation")
	c.AutoIncrement = strings.Contains(strings.ToLower(rowString(row, "extra")), "auto_increment")
	if row["default_value"] != nil {
		c.Default = unquoteDefault(rowString(row, "default_value"))
	}
	if isTimeType(c.Type) {
		c.Precision = rowInt(row, "datetime_precision")
	}
	return t.AddColumn(c)
}

// convertMySQLType maps a column_type such as "int(10) unsigned" onto the
// abstract types.
func convertMySQLType(raw string) Column {
	p := parseSQLType(raw)
	c := Column{Length: p.length, Precision: p.precision, Unsigned: p.unsigned}

	switch p.name {
	case "tinyint":
		if p.length == 1 {
			c.Type, c.Length, c.Unsigned = TypeBoolean, 0, false
		} else {
			c.Type = TypeTinyInteger
		}
	case "smallint":
		c.Type = TypeSmallInteger
	case "mediumint", "int", "integer":
		c.Type = TypeInteger
	case "bigint":
		c.Type = TypeBigInteger
	case "bool", "boolean":
		c.Type = TypeBoolean
	case "char":
		if p.length == 36 {
			c.Type, c.Length = TypeUUID, 0
		} else {
			c.Type = TypeChar
		}
	case "varchar":
		c.Type = TypeString
	case "tinytext":
		c.Type, c.Length = TypeText, 255
	case "text":
		c.Type, c.Length = TypeText, 0
	case "mediumtext":
		c.Type, c.Length = TypeText, 16777215
	case "longtext":
		c.Type, c.Length = TypeText, 4294967295
	case "binary", "varbinary":
		c.Type = TypeBinary
	case "tinyblob", "blob", "mediumblob", "longblob":
		c.Type, c.Length = TypeBinary, 0
	case "float", "double", "real":
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
	if c.Type.IsInteger() {
		// display width is not a length
		c.Length = 0
	}
	return c
}

// ConvertIndex adds one indexed column. The PRIMARY index becomes the
// primary key and unique indexes become unique constraints.
func (d *MySQLDialect) ConvertIndex(t *TableSchema, row map[string]any) error {
	name := rowString(row, "name")
	column := rowString(row, "column_name")
	length := rowInt(row, "sub_part")

	switch {
	case name == "PRIMARY":
		return addToConstraint(t, "primary", ConstraintPrimary, column, length)
	case rowInt(row, "non_unique") == 0:
		return addToConstraint(t, name, ConstraintUnique, column, length)
	case strings.EqualFold(rowString(row, "index_type"), "FULLTEXT"):
		return addToIndex(t, name, IndexFulltext, column, 0)
	default:
		return addToIndex(t, name, IndexIndex, column, length)
	}
}

// ConvertForeignKey adds one foreign key column. Rows of the same key merge.
func (d *MySQLDialect) ConvertForeignKey(t *TableSchema, row map[string]any) error {
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

// ConvertOptions records engine, charset and collation.
func (d *MySQLDialect) ConvertOptions(t *TableSchema, row map[string]any) {
	t.SetOptions(Options{
		Engine:    rowString(row, "engine"),
		Charset:   rowString(row, "charset"),
		Collation: rowString(row, "collation"),
	})
}
