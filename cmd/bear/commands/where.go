package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/satishbabariya/bear/database/query"
)

// filterLexer tokenizes --where expressions such as
// "age >= 18 and (role in admin,owner or name like 'A%')".
var filterLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "String", Pattern: `'(?:''|[^'])*'|"(?:\\.|[^"\\])*"`},
	{Name: "Operator", Pattern: `<>|!=|>=|<=|=|<|>`},
	{Name: "Punct", Pattern: `[(),]`},
	{Name: "Keyword", Pattern: `(?i)\b(?:and|or|not|like|in|is)\b`},
	{Name: "Word", Pattern: `[^\s,()'"=<>!]+`},
})

type filterOr struct {
	Terms []*filterAnd `@@ ( "or" @@ )*`
}

type filterAnd struct {
	Terms []*filterUnary `@@ ( "and" @@ )*`
}

type filterUnary struct {
	Not        *filterUnary      `  "not" @@`
	Group      *filterOr         `| "(" @@ ")"`
	Comparison *filterComparison `| @@`
}

type filterComparison struct {
	Field   string         `@Word`
	Negated bool           `@"not"?`
	Op      string         `@( Operator | "like" | "in" | "is" )`
	IsNot   bool           `@"not"?`
	Values  []*filterValue `( "(" @@ ( "," @@ )* ")" | @@ ( "," @@ )* )`
}

type filterValue struct {
	String *string `  @String`
	Word   *string `| @Word`
}

var filterParser = participle.MustBuild[filterOr](
	participle.Lexer(filterLexer),
	participle.Elide("Whitespace"),
	participle.CaseInsensitive("Keyword"),
	participle.UseLookahead(2),
)

// parseFilter turns a --where expression into a query condition.
func parseFilter(s string) (any, error) {
	tree, err := filterParser.ParseString("", s)
	if err != nil {
		return nil, fmt.Errorf("invalid condition %q: %w", s, err)
	}
	cond, err := tree.condition()
	if err != nil {
		return nil, fmt.Errorf("invalid condition %q: %w", s, err)
	}
	return cond, nil
}

func (f *filterOr) condition() (any, error) {
	terms := make([]any, 0, len(f.Terms))
	for _, t := range f.Terms {
		c, err := t.condition()
		if err != nil {
			return nil, err
		}
		terms = append(terms, c)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return query.Or(terms), nil
}

func (f *filterAnd) condition() (any, error) {
	terms := make([]any, 0, len(f.Terms))
	for _, t := range f.Terms {
		c, err := t.condition()
		if err != nil {
			return nil, err
		}
		terms = append(terms, c)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return query.And(terms), nil
}

func (f *filterUnary) condition() (any, error) {
	switch {
	case f.Not != nil:
		c, err := f.Not.condition()
		if err != nil {
			return nil, err
		}
		return query.Not{c}, nil
	case f.Group != nil:
		return f.Group.condition()
	default:
		return f.Comparison.condition()
	}
}

func (f *filterComparison) condition() (any, error) {
	op := strings.ToUpper(f.Op)
	if f.Negated {
		if op != "LIKE" && op != "IN" {
			return nil, fmt.Errorf("NOT cannot precede %s", op)
		}
		op = "NOT " + op
	}
	if f.IsNot {
		if op != "IS" {
			return nil, fmt.Errorf("NOT cannot follow %s", op)
		}
		op = "IS NOT"
	}

	values := make([]any, 0, len(f.Values))
	for _, v := range f.Values {
		values = append(values, v.value())
	}
	key := f.Field + " " + op

	if op == "IN" || op == "NOT IN" {
		return query.KV{Key: key, Value: values}, nil
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%s takes a single value, got %d", op, len(values))
	}
	return query.KV{Key: key, Value: values[0]}, nil
}

func (v *filterValue) value() any {
	if v.String == nil {
		return parseValue(*v.Word)
	}
	s := *v.String
	if s[0] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		return unquoted
	}
	return s[1 : len(s)-1]
}

// parseAssignment splits "field=value".
func parseAssignment(s string) (string, any, error) {
	field, value, ok := strings.Cut(s, "=")
	field = strings.TrimSpace(field)
	if !ok || field == "" {
		return "", nil, fmt.Errorf("invalid assignment %q, expected \"<field>=<value>\"", s)
	}
	return field, parseValue(strings.TrimSpace(value)), nil
}

// parseValue reads a bare value as a quoted string, NULL, a boolean, an
// integer, a float or a plain string.
func parseValue(s string) any {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	switch strings.ToLower(s) {
	case "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// applyOrder adds "name" (ascending) or "-name" (descending) items.
func applyOrder(q *query.Query, items []string) {
	for _, item := range items {
		item = strings.TrimSpace(item)
		switch {
		case item == "":
		case strings.HasPrefix(item, "-"):
			q.OrderByDesc(item[1:])
		default:
			q.OrderByAsc(strings.TrimPrefix(item, "+"))
		}
	}
}
