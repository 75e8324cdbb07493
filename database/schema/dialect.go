package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/satishbabariya/bear/database/driver"
)

// Dialect renders a TableSchema as DDL for one engine and reads describe
// results back into the model.
type Dialect interface {
	// CreateTableSQL returns the statements creating the table, its
	// indexes and comments.
	CreateTableSQL(t *TableSchema) ([]string, error)
	DropTableSQL(t *TableSchema) []string
	TruncateTableSQL(t *TableSchema) []string

	// AddConstraintSQL returns ALTER statements adding the foreign keys.
	// Engines that cannot alter constraints return nothing.
	AddConstraintSQL(t *TableSchema) []string
	DropConstraintSQL(t *TableSchema) []string

	ColumnSQL(t *TableSchema, name string) (string, error)
	IndexSQL(t *TableSchema, name string) (string, error)
	ConstraintSQL(t *TableSchema, name string) (string, error)

	// Describe queries use the named parameter :table. An empty query
	// means the engine has nothing to report.
	ListTablesSQL() (string, map[string]any)
	DescribeColumnSQL(table string) (string, map[string]any)
	DescribeIndexSQL(table string) (string, map[string]any)
	DescribeForeignKeySQL(table string) (string, map[string]any)
	DescribeOptionsSQL(table string) (string, map[string]any)

	ConvertColumn(t *TableSchema, row map[string]any) error
	ConvertIndex(t *TableSchema, row map[string]any) error
	ConvertForeignKey(t *TableSchema, row map[string]any) error
	ConvertOptions(t *TableSchema, row map[string]any)
}

// NewDialect returns the dialect for the driver's engine.
func NewDialect(d driver.Driver) (Dialect, error) {
	switch d.Dialect() {
	case driver.MySQL:
		return &MySQLDialect{dialect{driver: d}}, nil
	case driver.PostgreSQL:
		return &PostgresDialect{dialect{driver: d}}, nil
	case driver.SQLite:
		return &SQLiteDialect{dialect{driver: d}}, nil
	default:
		return nil, fmt.Errorf("%w: %s", driver.ErrUnsupportedDriver, d.Dialect())
	}
}

// dialect holds what every engine renders the same way.
type dialect struct {
	driver driver.Driver
}

func (d dialect) quote(name string) string {
	return d.driver.QuoteIdentifier(name)
}

func (d dialect) quoteColumns(columns []string, length map[string]int) string {
	out := make([]string, len(columns))
	for i, col := range columns {
		out[i] = d.quote(col)
		if n := length[col]; n > 0 {
			out[i] += "(" + strconv.Itoa(n) + ")"
		}
	}
	return strings.Join(out, ", ")
}

func tableParams(table string) map[string]any {
	return map[string]any{"table": table}
}

// references renders the REFERENCES clause of a foreign key.
func (d dialect) references(c *Constraint) string {
	return fmt.Sprintf("REFERENCES %s (%s) ON UPDATE %s ON DELETE %s",
		d.quote(c.References.Table),
		d.quoteColumns(c.References.Columns, nil),
		actionSQL(c.Update),
		actionSQL(c.Delete),
	)
}

// defaultSQL renders the DEFAULT clause, or "" when there is none.
func (d dialect) defaultSQL(c *Column) string {
	if c.Default == nil {
		return ""
	}
	if s, ok := c.Default.(string); ok && isTimeType(c.Type) && strings.EqualFold(s, "CURRENT_TIMESTAMP") {
		return " DEFAULT CURRENT_TIMESTAMP"
	}
	return " DEFAULT " + d.driver.SchemaValue(c.Default)
}

func (d dialect) findColumn(t *TableSchema, name string) (*Column, error) {
	for _, c := range t.columns {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, schemaError(t.name, "unknown column %s", name)
}

func (d dialect) findIndex(t *TableSchema, name string) (*Index, error) {
	for _, idx := range t.indexes {
		if idx.Name == name {
			return idx, nil
		}
	}
	return nil, schemaError(t.name, "unknown index %s", name)
}

func (d dialect) findConstraint(t *TableSchema, name string) (*Constraint, error) {
	for _, c := range t.constraints {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, schemaError(t.name, "unknown constraint %s", name)
}

func isTimeType(t ColumnType) bool {
	switch t {
	case TypeDate, TypeDateTime, TypeTimestamp, TypeTime:
		return true
	}
	return false
}

func actionSQL(a Action) string {
	switch a {
	case ActionCascade:
		return "CASCADE"
	case ActionSetNull:
		return "SET NULL"
	case ActionNoAction:
		return "NO ACTION"
	case ActionSetDefault:
		return "SET DEFAULT"
	default:
		return "RESTRICT"
	}
}

func parseAction(s string) Action {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CASCADE":
		return ActionCascade
	case "SET NULL":
		return ActionSetNull
	case "NO ACTION":
		return ActionNoAction
	case "SET DEFAULT":
		return ActionSetDefault
	default:
		return ActionRestrict
	}
}

// addToConstraint appends column to the named primary or unique
// constraint, creating it on first use.
func addToConstraint(t *TableSchema, name string, typ ConstraintType, column string, length int) error {
	c, ok := t.Constraint(name)
	if !ok {
		c = Constraint{Name: name, Type: typ}
	}
	c.Columns = append(c.Columns, column)
	if length > 0 {
		if c.Length == nil {
			c.Length = map[string]int{}
		}
		c.Length[column] = length
	}
	return t.AddConstraint(c)
}

// addToIndex appends column to the named index, creating it on first use.
func addToIndex(t *TableSchema, name string, typ IndexType, column string, length int) error {
	idx, ok := t.Index(name)
	if !ok {
		idx = Index{Name: name, Type: typ}
	}
	idx.Columns = append(idx.Columns, column)
	if length > 0 {
		if idx.Length == nil {
			idx.Length = map[string]int{}
		}
		idx.Length[column] = length
	}
	return t.AddIndex(idx)
}

// sqlType splits "decimal(10,2) unsigned" into its parts.
var sqlType = regexp.MustCompile(`^([a-z ]+?)\s*(?:\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\))?\s*(unsigned)?(?:\s+zerofill)?$`)

type parsedType struct {
	name      string
	length    int
	precision int
	unsigned  bool
}

func parseSQLType(raw string) parsedType {
	raw = strings.ToLower(strings.TrimSpace(raw))
	m := sqlType.FindStringSubmatch(raw)
	if m == nil {
		return parsedType{name: raw}
	}
	p := parsedType{name: strings.TrimSpace(m[1]), unsigned: m[4] != ""}
	p.length, _ = strconv.Atoi(m[2])
	p.precision, _ = strconv.Atoi(m[3])
	return p
}

// Row accessors tolerate the value types the drivers return.

func rowString(row map[string]any, key string) string {
	switch v := row[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func rowInt(row map[string]any, key string) int {
	switch v := row[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case int32:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		n, _ := strconv.Atoi(rowString(row, key))
		return n
	}
}

func rowBool(row map[string]any, key string) bool {
	switch v := row[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToUpper(v) {
		case "YES", "TRUE", "T", "1":
			return true
		}
		return false
	default:
		return rowInt(row, key) != 0
	}
}

// unquoteDefault strips the quoting a server applies to a stored default.
func unquoteDefault(s string) any {
	s = strings.TrimSpace(s)
	switch {
	case s == "" || strings.EqualFold(s, "NULL"):
		return nil
	case strings.Contains(strings.ToUpper(s), "CURRENT_TIMESTAMP"), strings.EqualFold(s, "now()"):
		return "CURRENT_TIMESTAMP"
	case len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'':
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	return s
}
