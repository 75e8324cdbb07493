package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/dustin/go-humanize"
	json "github.com/goccy/go-json"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/pterm/pterm"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/bear/database"
	"github.com/satishbabariya/bear/database/driver"
	"github.com/satishbabariya/bear/database/schema"
	"github.com/satishbabariya/bear/internal/ui"
	"github.com/satishbabariya/bear/orm"
)

// maxDescribeWorkers bounds concurrent describe queries.
const maxDescribeWorkers = 4

func newSchemaCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect and manage table schemas",
	}
	cmd.AddCommand(newSchemaTablesCommand(a))
	cmd.AddCommand(newSchemaDescribeCommand(a))
	cmd.AddCommand(newSchemaCreateCommand(a))
	cmd.AddCommand(newSchemaDropCommand(a))
	return cmd
}

// session is an open connection plus its schema collection.
type session struct {
	conn *database.Connection
	coll *schema.Collection
}

func (a *app) openSession(ctx context.Context) (*session, error) {
	conn, err := a.connect(ctx)
	if err != nil {
		return nil, err
	}
	coll, err := schema.NewCollection(conn)
	if err != nil {
		_ = conn.Disconnect()
		return nil, err
	}
	return &session{conn: conn, coll: coll}, nil
}

func (s *session) Close() {
	_ = s.conn.Disconnect()
}

// describe reads the named tables concurrently, keeping the given order.
// Unknown tables are reported with the closest existing names.
func (s *session) describe(ctx context.Context, names []string) ([]*schema.TableSchema, error) {
	p := pool.NewWithResults[*schema.TableSchema]().
		WithContext(ctx).
		WithCancelOnError().
		WithMaxGoroutines(maxDescribeWorkers)
	for _, name := range names {
		p.Go(func(ctx context.Context) (*schema.TableSchema, error) {
			return s.coll.Describe(ctx, name)
		})
	}
	tables, err := p.Wait()
	if err != nil {
		if errors.Is(err, schema.ErrTableNotFound) {
			return nil, s.notFound(ctx, names, err)
		}
		return nil, err
	}

	position := make(map[string]int, len(names))
	for i, n := range names {
		position[n] = i
	}
	sort.Slice(tables, func(i, j int) bool {
		return position[tables[i].Name()] < position[tables[j].Name()]
	})
	return tables, nil
}

func (s *session) notFound(ctx context.Context, names []string, cause error) error {
	existing, err := s.coll.ListTables(ctx)
	if err != nil {
		return cause
	}
	known := make(map[string]bool, len(existing))
	for _, n := range existing {
		known[n] = true
	}
	for _, name := range names {
		if known[name] {
			continue
		}
		if matches := suggest(name, existing); len(matches) > 0 {
			return fmt.Errorf("%w (did you mean %s?)", cause, strings.Join(matches, ", "))
		}
	}
	return cause
}

// suggest returns up to three table names close to name.
func suggest(name string, candidates []string) []string {
	ranks := fuzzy.RankFindNormalizedFold(name, candidates)
	if len(ranks) == 0 {
		// Fall back to edit distance for typos.
		for _, c := range candidates {
			if d := fuzzy.LevenshteinDistance(strings.ToLower(name), strings.ToLower(c)); d <= 2 {
				ranks = append(ranks, fuzzy.Rank{Target: c, Distance: d})
			}
		}
	}
	sort.Sort(ranks)

	var out []string
	for _, r := range ranks {
		out = append(out, r.Target)
		if len(out) == 3 {
			break
		}
	}
	return out
}

func newSchemaTablesCommand(a *app) *cobra.Command {
	var counts bool

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List the tables of the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			names, err := s.coll.ListTables(ctx)
			if err != nil {
				return err
			}
			sort.Strings(names)
			if !counts {
				ui.PrintList(names)
				return nil
			}

			rows := make([][]string, 0, len(names))
			for _, name := range names {
				n, err := orm.NewTable(s.conn, name).Count(ctx)
				if err != nil {
					return err
				}
				rows = append(rows, []string{name, humanize.Comma(n)})
			}
			return ui.PrintTable([]string{"Table", "Rows"}, rows)
		},
	}
	cmd.Flags().BoolVar(&counts, "count", false, "show row counts")
	return cmd
}

func newSchemaDescribeCommand(a *app) *cobra.Command {
	var asJSON, asMarkdown bool

	cmd := &cobra.Command{
		Use:   "describe [table...]",
		Short: "Describe tables; all tables when none are named",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			names := args
			if len(names) == 0 {
				if names, err = s.coll.ListTables(ctx); err != nil {
					return err
				}
				sort.Strings(names)
			}

			var spinner *pterm.SpinnerPrinter
			if !asJSON {
				spinner = ui.Spinner(fmt.Sprintf("Describing %d table(s)", len(names)))
			}
			tables, err := s.describe(ctx, names)
			if spinner != nil {
				if err != nil {
					spinner.Fail(err.Error())
				} else {
					spinner.Success(fmt.Sprintf("Described %d table(s)", len(tables)))
				}
			}
			if err != nil {
				return err
			}

			if asJSON {
				views := make([]tableView, 0, len(tables))
				for _, t := range tables {
					views = append(views, viewOf(t))
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(views)
			}
			if asMarkdown {
				md, err := markdownOf(tables)
				if err != nil {
					return err
				}
				return ui.PrintMarkdown(md)
			}
			for _, t := range tables {
				if err := printTable(t); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the schemas as JSON")
	cmd.Flags().BoolVar(&asMarkdown, "markdown", false, "render the schemas as markdown")
	return cmd
}

func newSchemaCreateCommand(a *app) *cobra.Command {
	var (
		dialect string
		execute bool
	)

	cmd := &cobra.Command{
		Use:   "create <table>",
		Short: "Print the CREATE TABLE statements of a live table",
		Long: "Describes a table and renders it back as DDL, optionally for another dialect.\n" +
			"With --execute the DDL runs against the connected database.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			tables, err := s.describe(ctx, args)
			if err != nil {
				return err
			}
			t := tables[0]

			target := s.coll.Dialect()
			label := string(s.conn.Driver().Dialect())
			if dialect != "" {
				d, err := driver.New(dialect)
				if err != nil {
					return err
				}
				if target, err = schema.NewDialect(d); err != nil {
					return err
				}
				label = string(d.Dialect())
			}

			stmts, err := target.CreateTableSQL(t)
			if err != nil {
				return err
			}
			if execute {
				if dialect != "" {
					return fmt.Errorf("--execute cannot be combined with --dialect")
				}
				return s.coll.Create(ctx, t)
			}
			ui.PrintCodeBlock(strings.Join(stmts, ";\n\n")+";", label)
			return nil
		},
	}
	cmd.Flags().StringVar(&dialect, "dialect", "", "render for mysql, postgres or sqlite instead of the connected engine")
	cmd.Flags().BoolVar(&execute, "execute", false, "run the statements instead of printing them")
	return cmd
}

func newSchemaDropCommand(a *app) *cobra.Command {
	var (
		yes      bool
		truncate bool
	)

	cmd := &cobra.Command{
		Use:   "drop <table>",
		Short: "Drop or truncate a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			tables, err := s.describe(ctx, args)
			if err != nil {
				return err
			}
			t := tables[0]

			verb, done := "Drop", "Dropped"
			if truncate {
				verb, done = "Truncate", "Truncated"
			}
			if !yes {
				confirmed := false
				prompt := &survey.Confirm{
					Message: fmt.Sprintf("%s table %s?", verb, t.Name()),
					Default: false,
				}
				if err := survey.AskOne(prompt, &confirmed); err != nil {
					return err
				}
				if !confirmed {
					ui.PrintWarning("Aborted")
					return nil
				}
			}

			if truncate {
				err = s.coll.Truncate(ctx, t)
			} else {
				err = s.coll.Drop(ctx, t)
			}
			if err != nil {
				return err
			}
			ui.PrintSuccess("%s %s", done, t.Name())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	cmd.Flags().BoolVar(&truncate, "truncate", false, "delete all rows instead of dropping the table")
	return cmd
}

type tableView struct {
	Name        string              `json:"name"`
	Columns     []schema.Column     `json:"columns"`
	Indexes     []schema.Index      `json:"indexes,omitempty"`
	Constraints []schema.Constraint `json:"constraints,omitempty"`
	Options     schema.Options      `json:"options"`
}

func viewOf(t *schema.TableSchema) tableView {
	return tableView{
		Name:        t.Name(),
		Columns:     t.Columns(),
		Indexes:     t.Indexes(),
		Constraints: t.Constraints(),
		Options:     t.Options(),
	}
}

func columnRows(t *schema.TableSchema) [][]string {
	rows := make([][]string, 0, len(t.Columns()))
	for _, c := range t.Columns() {
		rows = append(rows, []string{c.Name, columnType(c), yesNo(c.Null), defaultOf(c), columnExtra(c)})
	}
	return rows
}

func keyRows(t *schema.TableSchema) [][]string {
	var rows [][]string
	for _, c := range t.Constraints() {
		target := ""
		if c.References != nil {
			target = fmt.Sprintf("%s(%s) on update %s on delete %s",
				c.References.Table, strings.Join(c.References.Columns, ", "), c.Update, c.Delete)
		}
		rows = append(rows, []string{c.Name, string(c.Type), strings.Join(c.Columns, ", "), target})
	}
	for _, idx := range t.Indexes() {
		rows = append(rows, []string{idx.Name, string(idx.Type), strings.Join(idx.Columns, ", "), ""})
	}
	return rows
}

var (
	columnHeaders = []string{"Column", "Type", "Null", "Default", "Extra"}
	keyHeaders    = []string{"Key", "Type", "Columns", "References"}
)

func printTable(t *schema.TableSchema) error {
	ui.PrintSection(t.Name())
	if err := ui.PrintTable(columnHeaders, columnRows(t)); err != nil {
		return err
	}
	if keys := keyRows(t); len(keys) > 0 {
		return ui.PrintTable(keyHeaders, keys)
	}
	return nil
}

// markdownOf renders the tables as one markdown document.
func markdownOf(tables []*schema.TableSchema) (string, error) {
	var sb strings.Builder
	for _, t := range tables {
		fmt.Fprintf(&sb, "## %s\n\n", t.Name())
		columns, err := ui.MarkdownTable(columnHeaders, columnRows(t))
		if err != nil {
			return "", err
		}
		sb.WriteString(columns + "\n")
		if keys := keyRows(t); len(keys) > 0 {
			md, err := ui.MarkdownTable(keyHeaders, keys)
			if err != nil {
				return "", err
			}
			sb.WriteString(md + "\n")
		}
	}
	return sb.String(), nil
}

func columnType(c schema.Column) string {
	s := string(c.Type)
	switch {
	case c.Length > 0 && c.Precision > 0:
		s += "(" + strconv.Itoa(c.Length) + "," + strconv.Itoa(c.Precision) + ")"
	case c.Length > 0:
		s += "(" + strconv.Itoa(c.Length) + ")"
	}
	if c.Unsigned {
		s += " unsigned"
	}
	return s
}

func defaultOf(c schema.Column) string {
	if c.Default == nil {
		return ""
	}
	return fmt.Sprintf("%v", c.Default)
}

func columnExtra(c schema.Column) string {
	var parts []string
	if c.AutoIncrement {
		parts = append(parts, "auto increment")
	}
	if c.Collate != "" {
		parts = append(parts, "collate "+c.Collate)
	}
	if c.Comment != "" {
		parts = append(parts, fmt.Sprintf("%q", c.Comment))
	}
	return strings.Join(parts, ", ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
