package commands

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/bear/database/binder"
	"github.com/satishbabariya/bear/database/driver"
	"github.com/satishbabariya/bear/database/query"
	"github.com/satishbabariya/bear/internal/ui"
)

type sqlOptions struct {
	table   string
	fields  []string
	where   []string
	set     []string
	order   []string
	group   []string
	limit   int
	offset  int
	dialect string
	quote   bool
	json    bool
}

func newSQLCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sql",
		Short: "Compile queries to SQL without running them",
	}

	build := map[string]func(q *query.Query, o *sqlOptions) error{
		"select": buildSelect,
		"insert": buildInsert,
		"update": buildUpdate,
		"delete": buildDelete,
	}
	for _, name := range []string{"select", "insert", "update", "delete"} {
		cmd.AddCommand(newSQLSubcommand(a, name, build[name]))
	}
	return cmd
}

func newSQLSubcommand(a *app, name string, build func(*query.Query, *sqlOptions) error) *cobra.Command {
	o := &sqlOptions{}

	cmd := &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("Compile a %s query", strings.ToUpper(name)),
		Example: map[string]string{
			"select": `  bear sql select --table users --fields id,name --where "age >= 18" --order -created --limit 10`,
			"insert": `  bear sql insert --table users --set name=alice --set age=30 --dialect postgres`,
			"update": `  bear sql update --table users --set status=banned --where "id = 7"`,
			"delete": `  bear sql delete --table users --where "status in banned,deleted"`,
		}[name],
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.sqlDriver(o)
			if err != nil {
				return err
			}
			q := query.New(nil)
			if err := build(q, o); err != nil {
				return err
			}
			return printQuery(cmd, d, q, o.json)
		},
	}

	cmd.Flags().StringVarP(&o.table, "table", "t", "", "table name")
	cmd.Flags().StringVar(&o.dialect, "dialect", "", "mysql, postgres or sqlite (default from config)")
	cmd.Flags().BoolVar(&o.quote, "quote", false, "quote identifiers")
	cmd.Flags().BoolVar(&o.json, "json", false, "print SQL and bindings as JSON")
	_ = cmd.MarkFlagRequired("table")

	if name != "insert" {
		cmd.Flags().StringArrayVarP(&o.where, "where", "w", nil, `condition such as "age >= 18 and (role = admin or vip = true)"; repeat to AND them`)
	}
	if name == "insert" || name == "update" {
		cmd.Flags().StringArrayVar(&o.set, "set", nil, "field=value; repeatable")
	}
	if name == "select" {
		cmd.Flags().StringSliceVarP(&o.fields, "fields", "f", nil, "fields to select (default *)")
		cmd.Flags().StringSliceVar(&o.group, "group", nil, "GROUP BY fields")
	}
	if name != "insert" {
		cmd.Flags().StringSliceVar(&o.order, "order", nil, "ORDER BY fields; prefix with - for descending")
		cmd.Flags().IntVar(&o.limit, "limit", 0, "LIMIT")
	}
	if name == "select" {
		cmd.Flags().IntVar(&o.offset, "offset", 0, "OFFSET")
	}
	return cmd
}

// sqlDriver resolves the dialect flag, falling back to the configured driver.
func (a *app) sqlDriver(o *sqlOptions) (driver.Driver, error) {
	name := o.dialect
	if name == "" {
		cfg, err := a.config()
		if err != nil {
			return nil, err
		}
		name = cfg.Driver
	}
	d, err := driver.New(name)
	if err != nil {
		return nil, err
	}
	d.EnableAutoQuoting(o.quote)
	return d, nil
}

func applyWhere(q *query.Query, where []string) error {
	for _, w := range where {
		cond, err := parseFilter(w)
		if err != nil {
			return err
		}
		q.Where(cond)
	}
	return nil
}

func applyLimits(q *query.Query, o *sqlOptions) {
	applyOrder(q, o.order)
	if o.limit > 0 {
		q.Limit(o.limit)
	}
	if o.offset > 0 {
		q.Offset(o.offset)
	}
}

func assignments(set []string) ([]string, map[string]any, error) {
	if len(set) == 0 {
		return nil, nil, fmt.Errorf("at least one --set field=value is required")
	}
	columns := make([]string, 0, len(set))
	values := make(map[string]any, len(set))
	for _, s := range set {
		field, value, err := parseAssignment(s)
		if err != nil {
			return nil, nil, err
		}
		if _, dup := values[field]; !dup {
			columns = append(columns, field)
		}
		values[field] = value
	}
	return columns, values, nil
}

func buildSelect(q *query.Query, o *sqlOptions) error {
	if len(o.fields) == 0 {
		q.Select("*")
	} else {
		fields := make([]any, len(o.fields))
		for i, f := range o.fields {
			fields[i] = strings.TrimSpace(f)
		}
		q.Select(fields...)
	}
	q.From(o.table)
	if err := applyWhere(q, o.where); err != nil {
		return err
	}
	if len(o.group) > 0 {
		fields := make([]any, len(o.group))
		for i, g := range o.group {
			fields[i] = strings.TrimSpace(g)
		}
		q.Group(fields...)
	}
	applyLimits(q, o)
	return nil
}

func buildInsert(q *query.Query, o *sqlOptions) error {
	columns, values, err := assignments(o.set)
	if err != nil {
		return err
	}
	q.Insert(columns...).Into(o.table).Values(values)
	return nil
}

func buildUpdate(q *query.Query, o *sqlOptions) error {
	columns, values, err := assignments(o.set)
	if err != nil {
		return err
	}
	q.Update(o.table)
	for _, c := range columns {
		q.Set(c, values[c])
	}
	if err := applyWhere(q, o.where); err != nil {
		return err
	}
	applyLimits(q, o)
	return nil
}

func buildDelete(q *query.Query, o *sqlOptions) error {
	q.Delete(o.table)
	if err := applyWhere(q, o.where); err != nil {
		return err
	}
	applyLimits(q, o)
	return nil
}

type compiledQuery struct {
	SQL      string       `json:"sql"`
	Dialect  string       `json:"dialect"`
	Bindings []boundValue `json:"bindings"`
}

type boundValue struct {
	Placeholder string `json:"placeholder"`
	Value       any    `json:"value"`
}

func compile(d driver.Driver, q *query.Query) (*compiledQuery, error) {
	b := binder.New()
	sql, err := query.NewCompiler(d).Compile(q, b)
	if err != nil {
		return nil, err
	}
	out := &compiledQuery{
		SQL:      sql,
		Dialect:  string(d.Dialect()),
		Bindings: []boundValue{},
	}
	for _, bv := range b.Bindings() {
		out.Bindings = append(out.Bindings, boundValue{Placeholder: bv.Placeholder, Value: bv.Value})
	}
	return out, nil
}

func printQuery(cmd *cobra.Command, d driver.Driver, q *query.Query, asJSON bool) error {
	compiled, err := compile(d, q)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(compiled)
	}

	ui.PrintCodeBlock(compiled.SQL, compiled.Dialect)
	if len(compiled.Bindings) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(compiled.Bindings))
	for _, bv := range compiled.Bindings {
		rows = append(rows, []string{":" + bv.Placeholder, fmt.Sprintf("%v", bv.Value), fmt.Sprintf("%T", bv.Value)})
	}
	return ui.PrintTable([]string{"Placeholder", "Value", "Type"}, rows)
}
